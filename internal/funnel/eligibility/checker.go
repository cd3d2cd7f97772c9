// internal/funnel/eligibility/checker.go
package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/httpclient"
	"energylab-funnel/internal/common/logger"
)

// Result is the scheme-eligibility outcome for one address. ProductID and
// DesID are opaque provider identifiers carried through to the lead payload.
type Result struct {
	EcoEligible         bool   `json:"ecoEligible"`
	BaxterKellyEligible bool   `json:"baxterKellyEligible"`
	ProductID           string `json:"product_id"`
	DesID               string `json:"des_id"`
}

// Config holds the eligibility client settings. DemoMode selects the
// randomized fallback used in demos; production falls back to all-false.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	DemoMode bool
}

type apiResponse struct {
	Success bool `json:"success"`
	Data    struct {
		EcoEligible         bool       `json:"ecoEligible"`
		BaxterKellyEligible bool       `json:"baxterKellyEligible"`
		BaxterProdID        providerID `json:"baxterprodID"`
		BaxterDesID         providerID `json:"baxterdesid"`
	} `json:"data"`
}

// providerID tolerates the provider's id-or-false field shape: a numeric or
// string id when the scheme applies, boolean false when it does not.
type providerID string

func (p *providerID) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case nil, bool:
		*p = ""
	case string:
		*p = providerID(val)
	case float64:
		*p = providerID(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return fmt.Errorf("unexpected provider id value %q", string(b))
	}
	return nil
}

// Checker queries the eligibility service for an address. It never returns
// an error to callers: failures degrade to a fallback result so the funnel
// always progresses.
type Checker struct {
	cfg    Config
	client *httpclient.Client
	cache  Cache
	logger logger.Logger
	randFn func() float64
}

// NewChecker creates an eligibility checker. Cache may be nil to disable
// memoisation.
func NewChecker(cfg Config, cache Cache, log logger.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Checker{
		cfg:    cfg,
		client: httpclient.New(cfg.Timeout),
		cache:  cache,
		logger: log,
		randFn: rand.Float64,
	}
}

// Check returns the eligibility result for the given address lines. Results
// are memoised per address so re-selecting the same address during a session
// does not re-query the provider.
func (c *Checker) Check(ctx context.Context, line1, line2, postcode string) Result {
	key := cacheKey(line1, line2, postcode)

	if c.cache != nil {
		if cached, ok := c.cache.Get(ctx, key); ok {
			c.logger.Debug("Eligibility served from cache", map[string]interface{}{
				"postcode": postcode,
			})
			return cached
		}
	}

	result, err := c.query(ctx, line1, line2, postcode)
	if err != nil {
		degraded := errors.NewEligibilityCheckFailedError(err)
		c.logger.Warn("Eligibility check failed, using fallback", map[string]interface{}{
			"postcode": postcode,
			"demoMode": c.cfg.DemoMode,
			"code":     string(degraded.Code),
			"error":    degraded.Details,
		})
		return c.fallback()
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, result)
	}
	return result
}

func (c *Checker) query(ctx context.Context, line1, line2, postcode string) (Result, error) {
	params := url.Values{}
	params.Set("address_line_1", line1)
	params.Set("address_line_2", line2)
	params.Set("post_code", postcode)

	endpoint := fmt.Sprintf("%s/api/checkEligibility?%s", strings.TrimRight(c.cfg.BaseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building eligibility request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling eligibility service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("eligibility service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading eligibility response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, fmt.Errorf("parsing eligibility response: %w", err)
	}
	if !parsed.Success {
		return Result{}, fmt.Errorf("eligibility service reported failure")
	}

	return Result{
		EcoEligible:         parsed.Data.EcoEligible,
		BaxterKellyEligible: parsed.Data.BaxterKellyEligible,
		ProductID:           string(parsed.Data.BaxterProdID),
		DesID:               string(parsed.Data.BaxterDesID),
	}, nil
}

// fallback produces the degraded result. Demo mode randomizes the flags so
// both funnel branches stay reachable in demos; production reports not
// eligible.
func (c *Checker) fallback() Result {
	if !c.cfg.DemoMode {
		return Result{}
	}
	return Result{
		EcoEligible:         c.randFn() < 0.5,
		BaxterKellyEligible: c.randFn() < 0.3,
	}
}

func cacheKey(line1, line2, postcode string) string {
	return fmt.Sprintf("eligibility:%s|%s|%s", line1, line2, postcode)
}

func marshalResult(r Result) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalResult(s string) (Result, error) {
	var r Result
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}
