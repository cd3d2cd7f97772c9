// internal/funnel/lead/submitter.go
package lead

import (
	"bytes"
	"context"
	"encoding/json"
	errs "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/httpclient"
	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/common/observability"
	"energylab-funnel/internal/funnel/state"
)

// Config holds the lead-ingestion client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Receipt is what callers are shown after a submission. Accepted is always
// true: the funnel policy masks every real outcome behind the success
// screen. Phone echoes the submitted number verbatim for the confirmation
// message.
type Receipt struct {
	Accepted bool   `json:"accepted"`
	Phone    string `json:"phone"`
}

// Submitter POSTs leads to the ingestion endpoint. The true outcome of each
// attempt goes to the audit sink and logs only; callers always receive a
// success receipt. Surfacing rejections to the submitter is deliberately
// avoided.
type Submitter struct {
	cfg    Config
	client *httpclient.Client
	audit  AuditSink
	obs    *observability.Observability
	logger logger.Logger
}

// NewSubmitter creates a lead submitter. Audit may be nil to disable the
// audit trail.
func NewSubmitter(cfg Config, audit AuditSink, log logger.Logger) *Submitter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if audit == nil {
		audit = NoOpAudit{}
	}
	return &Submitter{
		cfg:    cfg,
		client: httpclient.New(cfg.Timeout),
		audit:  audit,
		logger: log,
	}
}

// WithObservability attaches the metrics recorder. The submission counter
// carries the true outcome even though callers only ever see success.
func (s *Submitter) WithObservability(obs *observability.Observability) *Submitter {
	s.obs = obs
	return s
}

// Submit validates, transforms, and POSTs the lead. Every path returns an
// accepted receipt; failures are recorded for diagnostics and never
// returned.
func (s *Submitter) Submit(ctx context.Context, sessionID string, form state.FormState, tracking Tracking) Receipt {
	payload := BuildPayload(form, tracking)
	receipt := Receipt{Accepted: true, Phone: form.Phone}

	if err := ValidatePayload(payload); err != nil {
		s.recordOutcome(ctx, sessionID, payload, false, err.Error())
		return receipt
	}

	delivered, detail := s.post(ctx, payload)
	if !delivered {
		degraded := errors.NewLeadSubmitFailedError(errs.New(detail))
		detail = fmt.Sprintf("%s (%s)", degraded.Error(), degraded.Details)
	}
	s.recordOutcome(ctx, sessionID, payload, delivered, detail)
	return receipt
}

func (s *Submitter) post(ctx context.Context, payload Payload) (bool, string) {
	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Sprintf("marshaling payload: %v", err)
	}

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/api/leads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Sprintf("building submission request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Sprintf("calling ingestion endpoint: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Sprintf("reading ingestion response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Sprintf("ingestion endpoint returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// Any JSON shape is tolerated; a 2xx with an unparseable body
		// still counts as delivered.
		return true, "delivered, unparseable response body"
	}
	if !parsed.Success {
		return false, fmt.Sprintf("ingestion endpoint reported failure: %s", parsed.Message)
	}
	return true, "delivered"
}

func (s *Submitter) recordOutcome(ctx context.Context, sessionID string, payload Payload, delivered bool, detail string) {
	fields := map[string]interface{}{
		"sessionId": sessionID,
		"delivered": delivered,
		"detail":    detail,
	}
	if delivered {
		s.logger.Info("Lead submitted", fields)
	} else {
		s.logger.Warn("Lead submission failed, outcome masked from user", fields)
	}

	if s.obs != nil {
		outcome := "delivered"
		if !delivered {
			outcome = "failed"
		}
		s.obs.RecordSubmission(ctx, outcome)
	}

	if err := s.audit.RecordSubmission(ctx, sessionID, payload, delivered, detail); err != nil {
		s.logger.Error("Failed to write submission audit record", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
}
