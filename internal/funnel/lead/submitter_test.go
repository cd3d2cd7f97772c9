// internal/funnel/lead/submitter_test.go
package lead

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/funnel/state"
)

type capturingAudit struct {
	mu        sync.Mutex
	sessionID string
	payload   Payload
	delivered bool
	detail    string
	calls     int
}

func (c *capturingAudit) RecordSubmission(_ context.Context, sessionID string, payload Payload, delivered bool, detail string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.payload = payload
	c.delivered = delivered
	c.detail = detail
	c.calls++
	return nil
}

func validForm() state.FormState {
	form := state.New()
	form.FirstName = "Jo"
	form.LastName = "Bloggs"
	form.Email = "jo@example.com"
	form.Phone = "07700900123"
	form.Postcode = "SW1A 1AA"
	form.AddressLine1 = "12 High St"
	form.Town = "London"
	return form
}

func newTestSubmitter(t *testing.T, baseURL string, audit AuditSink) *Submitter {
	t.Helper()
	cfg := Config{BaseURL: baseURL, Timeout: 2 * time.Second}
	return NewSubmitter(cfg, audit, logger.NewTestLogger(t))
}

func TestSubmitMasksEveryOutcome(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"http error status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
		"api reports failure": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success": false, "message": "duplicate lead"}`))
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			audit := &capturingAudit{}
			submitter := newTestSubmitter(t, server.URL, audit)
			receipt := submitter.Submit(context.Background(), "sess-1", validForm(), Tracking{})

			assert.True(t, receipt.Accepted)
			assert.Equal(t, "07700900123", receipt.Phone, "confirmation must echo the phone number verbatim")
			assert.Equal(t, 1, audit.calls)
			assert.False(t, audit.delivered, "audit trail must keep the true outcome")
			assert.Contains(t, audit.detail, "LEAD_SUBMIT_FAILED")
		})
	}
}

func TestSubmitMasksNetworkError(t *testing.T) {
	audit := &capturingAudit{}
	submitter := newTestSubmitter(t, "http://127.0.0.1:1", audit)
	receipt := submitter.Submit(context.Background(), "sess-1", validForm(), Tracking{})

	assert.True(t, receipt.Accepted)
	assert.Equal(t, "07700900123", receipt.Phone)
	assert.False(t, audit.delivered)
}

func TestSubmitRecordsDelivery(t *testing.T) {
	var received Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/leads", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, decodeJSONBody(r, &received))
		w.Write([]byte(`{"success": true}`))
	}))
	defer server.Close()

	audit := &capturingAudit{}
	submitter := newTestSubmitter(t, server.URL, audit)
	tracking := Tracking{Source: "energylab", ClickID: "abc123"}
	receipt := submitter.Submit(context.Background(), "sess-2", validForm(), tracking)

	assert.True(t, receipt.Accepted)
	assert.True(t, audit.delivered)
	assert.Equal(t, "sess-2", audit.sessionID)
	assert.Equal(t, "Jo", received.FirstName)
	assert.Equal(t, "YES", received.ContactByPhone)
	assert.Equal(t, "energylab", received.Tracking.Source)
}

func TestSubmitInvalidPayloadSkipsPostButStillSucceeds(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	form := validForm()
	form.Email = "not-an-email"

	audit := &capturingAudit{}
	submitter := newTestSubmitter(t, server.URL, audit)
	receipt := submitter.Submit(context.Background(), "sess-3", form, Tracking{})

	assert.True(t, receipt.Accepted)
	assert.False(t, called, "invalid payload must not reach the ingestion endpoint")
	assert.False(t, audit.delivered)
	assert.Contains(t, audit.detail, "LEAD_VALIDATION_FAILED")
}

func decodeJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
