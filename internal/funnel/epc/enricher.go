// internal/funnel/epc/enricher.go
package epc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/httpclient"
	"energylab-funnel/internal/common/logger"
)

// Config holds the EPC lookup client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type lookupResponse struct {
	Success bool    `json:"success"`
	Data    *Record `json:"data"`
}

// Enricher fetches the EPC record for an address. EPC data is optional
// enrichment: any failure, timeout, or empty response yields a nil record
// and the funnel continues without it.
type Enricher struct {
	cfg    Config
	client *httpclient.Client
	logger logger.Logger
}

// NewEnricher creates an EPC enricher.
func NewEnricher(cfg Config, log logger.Logger) *Enricher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Enricher{
		cfg:    cfg,
		client: httpclient.New(cfg.Timeout),
		logger: log,
	}
}

// Lookup returns the EPC record for the given address lines, or nil when no
// record could be obtained. It never fails.
func (e *Enricher) Lookup(ctx context.Context, line1, line2, postcode string) *Record {
	params := url.Values{}
	params.Set("address1", line1)
	if line2 != "" {
		params.Set("address2", line2)
	}
	params.Set("postcode", postcode)

	endpoint := fmt.Sprintf("%s/api/epc/lookup?%s", strings.TrimRight(e.cfg.BaseURL, "/"), params.Encode())

	record, err := e.fetch(ctx, endpoint)
	if err != nil {
		degraded := errors.NewEPCLookupFailedError(err)
		e.logger.Warn("EPC lookup failed, continuing without EPC data", map[string]interface{}{
			"postcode": postcode,
			"code":     string(degraded.Code),
			"error":    degraded.Details,
		})
		return nil
	}
	if record == nil {
		e.logger.Debug("No EPC record for address", map[string]interface{}{
			"postcode": postcode,
		})
		return nil
	}

	e.logger.Debug("EPC record found", map[string]interface{}{
		"postcode":     postcode,
		"energyRating": record.EnergyRating.Current,
	})
	return record
}

func (e *Enricher) fetch(ctx context.Context, endpoint string) (*Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building EPC request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling EPC service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("EPC service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading EPC response: %w", err)
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing EPC response: %w", err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("EPC service reported failure")
	}
	return parsed.Data, nil
}
