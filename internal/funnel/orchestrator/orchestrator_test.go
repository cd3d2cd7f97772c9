// internal/funnel/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"energylab-funnel/internal/common/errors"
	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/funnel/address"
	"energylab-funnel/internal/funnel/eligibility"
	"energylab-funnel/internal/funnel/epc"
	"energylab-funnel/internal/funnel/lead"
	"energylab-funnel/internal/funnel/progress"
	"energylab-funnel/internal/funnel/session"
	"energylab-funnel/internal/funnel/wizard"
)

type capturedEvent struct {
	index string
	doc   map[string]interface{}
}

type capturingIndexer struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (c *capturingIndexer) Index(_ context.Context, index string, doc interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{index: index, doc: doc.(map[string]interface{})})
	return nil
}

func (c *capturingIndexer) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.events))
	for _, e := range c.events {
		types = append(types, e.doc["event"].(string))
	}
	return types
}

// upstream fakes the three enrichment providers plus the ingestion
// endpoint behind one httptest server.
type upstream struct {
	server       *httptest.Server
	epcAvailable bool
	leadStatus   int
	mu           sync.Mutex
	leadCalls    int
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{epcAvailable: true, leadStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/addresses/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"addresses": [
				{"Column6": "12", "Column4": "High St", "Column1": "London", "Column 0": "SW1A 1AA", "Column 12": "100023336956"},
				{"Column7": "Oak House", "Column4": "High St", "Column1": "London", "Column 0": "SW1A 1AA", "Column 12": "100023336957"}
			]
		}`))
	})
	mux.HandleFunc("/api/checkEligibility", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"ecoEligible": true, "baxterKellyEligible": false, "baxterprodID": "BX-100", "baxterdesid": "DES-7"}}`))
	})
	mux.HandleFunc("/api/epc/lookup", func(w http.ResponseWriter, r *http.Request) {
		if !u.epcAvailable {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"success": true, "data": {"energyRating": {"current": "D"}, "property": {"type": "Mid-terrace house", "totalFloorArea": 84.5}}}`))
	})
	mux.HandleFunc("/api/leads", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		u.leadCalls++
		status := u.leadStatus
		u.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Write([]byte(`{"success": true}`))
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestOrchestrator(t *testing.T, u *upstream, events EventIndexer) *Orchestrator {
	t.Helper()
	log := logger.NewTestLogger(t)
	base := u.server.URL
	timeout := 2 * time.Second

	o := New(
		Config{TransitionDelay: 0, DefaultSource: "energylab", EventIndex: "funnel-events"},
		session.NewMemoryStore(time.Minute),
		address.NewResolver(address.Config{BaseURL: base, Timeout: timeout}, log),
		eligibility.NewChecker(eligibility.Config{BaseURL: base, Timeout: timeout}, eligibility.NewMemoryCache(), log),
		epc.NewEnricher(epc.Config{BaseURL: base, Timeout: timeout}, log),
		lead.NewSubmitter(lead.Config{BaseURL: base, Timeout: timeout}, nil, log),
		nil,
		events,
		nil,
		log,
	)
	t.Cleanup(o.Close)
	return o
}

func startAtPostcode(t *testing.T, o *Orchestrator, query string) *session.Session {
	t.Helper()
	values, err := url.ParseQuery(query)
	require.NoError(t, err)
	s, err := o.StartSession(context.Background(), values)
	require.NoError(t, err)
	s, err = o.Advance(context.Background(), s.ID)
	require.NoError(t, err)
	require.Equal(t, wizard.StepPostcode, s.Step)
	return s
}

func TestFullFunnelWithEPCConfirmation(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	events := &capturingIndexer{}
	o := newTestOrchestrator(t, u, events)

	s := startAtPostcode(t, o, "utm_source=paid&gclid=G1")

	options, err := o.LookupPostcode(ctx, s.ID, "SW1A 1AA")
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "12", options[0].Candidate.HouseNumber, "numbered candidate sorts first")

	result, err := o.SelectAddress(ctx, s.ID, options[0].Candidate)
	require.NoError(t, err)
	require.True(t, result.RequiresEPCConfirm)
	require.NotNil(t, result.EPCSummary)
	assert.Equal(t, "Mid-terrace house", result.EPCSummary.PropertyType)

	view, err := o.GetView(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPostcode, view.Session.Step, "EPC confirmation holds the postcode step")
	assert.Equal(t, session.SubEPCConfirm, view.Session.SubState)
	assert.True(t, view.Session.Form.EcoEligible)
	assert.Equal(t, "BX-100", view.Session.Form.ProductID)
	require.NotNil(t, view.Session.Form.EPC)

	s2, err := o.ConfirmEPC(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepContact, s2.Step)

	s3, err := o.SubmitContact(ctx, s.ID, Contact{FirstName: "Jo", LastName: "Bloggs", Email: "jo@example.com", Phone: "07700900123"})
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPrivacy, s3.Step)

	receipt, err := o.Finalize(ctx, s.ID, false)
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.Equal(t, "07700900123", receipt.Phone)

	final, err := o.GetView(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, final.Session.Completed)
	assert.Equal(t, "paid", final.Session.Tracking.Source)
	assert.Equal(t, "G1", final.Session.Tracking.ClickID)

	assert.Equal(t, []string{
		"session_started",
		"step_changed",
		"postcode_resolved",
		"address_selected",
		"epc_confirmed",
		"contact_submitted",
		"lead_submitted",
	}, events.eventTypes())
}

func TestSelectAddressWithoutEPCAdvancesDirectly(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	u.epcAvailable = false
	o := newTestOrchestrator(t, u, nil)

	s := startAtPostcode(t, o, "")
	options, err := o.LookupPostcode(ctx, s.ID, "SW1A 1AA")
	require.NoError(t, err)

	result, err := o.SelectAddress(ctx, s.ID, options[0].Candidate)
	require.NoError(t, err)
	assert.False(t, result.RequiresEPCConfirm)
	assert.Nil(t, result.EPCSummary)

	view, err := o.GetView(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepContact, view.Session.Step, "absent EPC skips the confirmation sub-state")
	assert.Nil(t, view.Session.Form.EPC)
	assert.True(t, view.Session.Form.EcoEligible, "eligibility still merges without EPC data")
}

func TestConfirmEPCWithoutPendingConfirmation(t *testing.T) {
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)
	s := startAtPostcode(t, o, "")

	_, err := o.ConfirmEPC(context.Background(), s.ID)
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}

func TestSearchAgainResetsOnlyAddressSubset(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)

	s := startAtPostcode(t, o, "")
	options, err := o.LookupPostcode(ctx, s.ID, "SW1A 1AA")
	require.NoError(t, err)
	_, err = o.SelectAddress(ctx, s.ID, options[0].Candidate)
	require.NoError(t, err)
	_, err = o.ConfirmEPC(ctx, s.ID)
	require.NoError(t, err)
	_, err = o.SubmitContact(ctx, s.ID, Contact{FirstName: "Jo", LastName: "Bloggs", Email: "jo@example.com", Phone: "07700900123"})
	require.NoError(t, err)

	s2, err := o.SearchAgain(ctx, s.ID)
	require.NoError(t, err)

	assert.Equal(t, wizard.StepPostcode, s2.Step)
	assert.Equal(t, session.SubPostcodeEntry, s2.SubState)
	assert.Empty(t, s2.Form.Postcode)
	assert.Empty(t, s2.Form.AddressLine1)
	assert.False(t, s2.Form.EcoEligible)
	assert.Nil(t, s2.Form.EPC)
	assert.Equal(t, "Jo", s2.Form.FirstName, "contact details survive search again")
	assert.Equal(t, "07700900123", s2.Form.Phone)
}

func TestSubmitManualAddressBypassesEnrichment(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)
	s := startAtPostcode(t, o, "")

	_, err := o.EnterManualAddress(ctx, s.ID)
	require.NoError(t, err)

	s2, err := o.SubmitManualAddress(ctx, s.ID, ManualAddress{
		House:    "12",
		Street:   "High St",
		Town:     "London",
		Postcode: "SW1A 1AA",
	})
	require.NoError(t, err)

	assert.Equal(t, wizard.StepContact, s2.Step)
	assert.Equal(t, "12 High St", s2.Form.AddressLine1)
	assert.False(t, s2.Form.EcoEligible)
	assert.False(t, s2.Form.BaxterKellyEligible)
	assert.Nil(t, s2.Form.EPC)
}

func TestSubmitManualAddressValidation(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)
	s := startAtPostcode(t, o, "")

	_, err := o.SubmitManualAddress(ctx, s.ID, ManualAddress{Street: "High St", Town: "London", Postcode: "SW1A 1AA"})
	assert.Error(t, err, "missing house")

	_, err = o.SubmitManualAddress(ctx, s.ID, ManualAddress{House: "12", Town: "London", Postcode: "SW1A 1AA"})
	assert.Error(t, err, "missing street")

	_, err = o.SubmitManualAddress(ctx, s.ID, ManualAddress{House: "12", Street: "High St", Postcode: "SW1A 1AA"})
	assert.Error(t, err, "missing town")

	_, err = o.SubmitManualAddress(ctx, s.ID, ManualAddress{House: "12", Street: "High St", Town: "London", Postcode: "nope"})
	assert.Error(t, err, "invalid postcode")

	view, err := o.GetView(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPostcode, view.Session.Step, "incomplete manual address blocks progression")
}

func TestSubmitContactValidation(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)
	s := startAtPostcode(t, o, "")

	cases := []Contact{
		{LastName: "Bloggs", Email: "jo@example.com", Phone: "07700900123"},
		{FirstName: "Jo", Email: "jo@example.com", Phone: "07700900123"},
		{FirstName: "Jo", LastName: "Bloggs", Email: "jo at example", Phone: "07700900123"},
		{FirstName: "Jo", LastName: "Bloggs", Email: "jo@example.com", Phone: "123"},
	}
	for _, c := range cases {
		_, err := o.SubmitContact(ctx, s.ID, c)
		require.Error(t, err)
		stdErr, ok := err.(*errors.StandardError)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
	}

	view, err := o.GetView(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepPostcode, view.Session.Step, "validation failures block progression")
}

func TestFinalizeMasksIngestionFailure(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	u.leadStatus = http.StatusBadGateway
	o := newTestOrchestrator(t, u, nil)

	s := startAtPostcode(t, o, "")
	options, err := o.LookupPostcode(ctx, s.ID, "SW1A 1AA")
	require.NoError(t, err)
	_, err = o.SelectAddress(ctx, s.ID, options[0].Candidate)
	require.NoError(t, err)
	_, err = o.ConfirmEPC(ctx, s.ID)
	require.NoError(t, err)
	_, err = o.SubmitContact(ctx, s.ID, Contact{FirstName: "Jo", LastName: "Bloggs", Email: "jo@example.com", Phone: "07700900123"})
	require.NoError(t, err)

	receipt, err := o.Finalize(ctx, s.ID, true)
	require.NoError(t, err)
	assert.True(t, receipt.Accepted, "rejection is never surfaced")
	assert.Equal(t, "07700900123", receipt.Phone)
	assert.Equal(t, 1, u.leadCalls)
}

func TestNavigationClampsAtBounds(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)

	values := url.Values{}
	s, err := o.StartSession(ctx, values)
	require.NoError(t, err)

	s2, err := o.Retreat(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepWelcome, s2.Step)

	for i := 0; i < 10; i++ {
		s2, err = o.Advance(ctx, s.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, wizard.StepPrivacy, s2.Step)
}

func TestSelectAddressWaitsForProgressScript(t *testing.T) {
	ctx := context.Background()
	u := newUpstream(t)
	log := logger.NewTestLogger(t)
	base := u.server.URL
	timeout := 2 * time.Second

	script := progress.NewScript([]string{"A", "B"}, 50*time.Millisecond)
	o := New(
		Config{DefaultSource: "energylab", Script: script},
		session.NewMemoryStore(time.Minute),
		address.NewResolver(address.Config{BaseURL: base, Timeout: timeout}, log),
		eligibility.NewChecker(eligibility.Config{BaseURL: base, Timeout: timeout}, nil, log),
		epc.NewEnricher(epc.Config{BaseURL: base, Timeout: timeout}, log),
		lead.NewSubmitter(lead.Config{BaseURL: base, Timeout: timeout}, nil, log),
		nil, nil, nil,
		log,
	)
	t.Cleanup(o.Close)

	s := startAtPostcode(t, o, "")
	options, err := o.LookupPostcode(ctx, s.ID, "SW1A 1AA")
	require.NoError(t, err)

	started := time.Now()
	_, err = o.SelectAddress(ctx, s.ID, options[0].Candidate)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), script.Total(),
		"selection must not complete before the script has played out")
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	u := newUpstream(t)
	o := newTestOrchestrator(t, u, nil)

	_, err := o.GetView(context.Background(), "missing")
	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSessionNotFound, stdErr.Code)
}
