// internal/funnel/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"net/url"
	"sync"
	"time"

	"energylab-funnel/internal/common/logger"
	"energylab-funnel/internal/common/notify"
	"energylab-funnel/internal/common/observability"
	"energylab-funnel/internal/funnel/address"
	"energylab-funnel/internal/funnel/eligibility"
	"energylab-funnel/internal/funnel/epc"
	"energylab-funnel/internal/funnel/lead"
	"energylab-funnel/internal/funnel/progress"
	"energylab-funnel/internal/funnel/session"
	"energylab-funnel/internal/funnel/state"
	"energylab-funnel/internal/funnel/wizard"
)

// EventIndexer records funnel events for analytics. Indexing is best
// effort and never blocks the wizard.
type EventIndexer interface {
	Index(ctx context.Context, index string, doc interface{}) error
}

// Config holds orchestrator settings. Script, when set, is the
// finding-deals schedule: address selection does not return before the
// script has played out, so the animation and the enrichment finish
// together.
type Config struct {
	TransitionDelay time.Duration
	DefaultSource   string
	EventIndex      string
	Script          *progress.Script
}

// Orchestrator drives the funnel: it owns session navigation, sequences the
// enrichment chain on address selection, and performs the final submission.
// Enrichment and submission failures never halt the wizard; only local
// validation blocks progression.
type Orchestrator struct {
	cfg         Config
	sessions    session.Store
	resolver    *address.Resolver
	eligibility *eligibility.Checker
	epc         *epc.Enricher
	submitter   *lead.Submitter
	notifier    *notify.Notifier
	events      EventIndexer
	obs         *observability.Observability
	logger      logger.Logger

	mu          sync.Mutex
	controllers map[string]*wizard.Controller
}

// New creates the orchestrator. notifier, events, and obs may be nil to
// disable the corresponding side channels.
func New(
	cfg Config,
	sessions session.Store,
	resolver *address.Resolver,
	elig *eligibility.Checker,
	epcEnricher *epc.Enricher,
	submitter *lead.Submitter,
	notifier *notify.Notifier,
	events EventIndexer,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	if cfg.EventIndex == "" {
		cfg.EventIndex = "funnel-events"
	}
	return &Orchestrator{
		cfg:         cfg,
		sessions:    sessions,
		resolver:    resolver,
		eligibility: elig,
		epc:         epcEnricher,
		submitter:   submitter,
		notifier:    notifier,
		events:      events,
		obs:         obs,
		logger:      log,
		controllers: make(map[string]*wizard.Controller),
	}
}

// StartSession creates a session, capturing campaign attribution from the
// landing-page query string.
func (o *Orchestrator) StartSession(ctx context.Context, query url.Values) (*session.Session, error) {
	tracking := lead.ExtractTracking(query, o.cfg.DefaultSource)
	s := session.NewSession(tracking)
	if err := o.sessions.Create(ctx, s); err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.controllers[s.ID] = wizard.NewController(o.cfg.TransitionDelay)
	o.mu.Unlock()

	o.logger.Info("Session started", map[string]interface{}{
		"sessionId": s.ID,
		"source":    tracking.Source,
	})
	o.indexEvent(ctx, s.ID, "session_started", map[string]interface{}{
		"source": tracking.Source,
	})
	return s, nil
}

// EndSession deletes the session and releases its transition controller.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	o.mu.Lock()
	if c, ok := o.controllers[sessionID]; ok {
		c.Close()
		delete(o.controllers, sessionID)
	}
	o.mu.Unlock()
	return o.sessions.Delete(ctx, sessionID)
}

// View is the session snapshot returned to callers: the persisted state
// plus the transition controller's display indices.
type View struct {
	Session     *session.Session `json:"session"`
	DisplayStep wizard.Step      `json:"displayStep"`
	Phase       string           `json:"phase"`
	Visible     bool             `json:"visible"`
}

// GetView loads a session together with its transition state.
func (o *Orchestrator) GetView(ctx context.Context, sessionID string) (*View, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ctrl := o.controller(s)
	return &View{
		Session:     s,
		DisplayStep: ctrl.DisplayStep(),
		Phase:       ctrl.Phase().String(),
		Visible:     ctrl.Visible(),
	}, nil
}

// Advance moves the session one step forward. At the last step it is a
// no-op.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.navigate(ctx, sessionID, "forward", wizard.Step.Next)
}

// Retreat moves the session one step back. At the first step it is a no-op.
func (o *Orchestrator) Retreat(ctx context.Context, sessionID string) (*session.Session, error) {
	return o.navigate(ctx, sessionID, "back", wizard.Step.Prev)
}

func (o *Orchestrator) navigate(ctx context.Context, sessionID, direction string, move func(wizard.Step) wizard.Step) (*session.Session, error) {
	s, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	target := move(s.Step)
	if target == s.Step {
		return s, nil
	}
	s.Step = target
	if err := o.sessions.Save(ctx, s); err != nil {
		return nil, err
	}
	o.controller(s).Jump(target)

	if o.obs != nil {
		o.obs.RecordStep(ctx, direction, int(target))
	}
	o.indexEvent(ctx, s.ID, "step_changed", map[string]interface{}{
		"direction": direction,
		"step":      target.String(),
	})
	return s, nil
}

// controller returns the session's transition controller, recreating it
// after a restart so persisted sessions keep working.
func (o *Orchestrator) controller(s *session.Session) *wizard.Controller {
	o.mu.Lock()
	defer o.mu.Unlock()
	c, ok := o.controllers[s.ID]
	if !ok {
		c = wizard.NewController(o.cfg.TransitionDelay)
		c.Jump(s.Step)
		o.controllers[s.ID] = c
	}
	return c
}

// Close releases every transition controller.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, c := range o.controllers {
		c.Close()
		delete(o.controllers, id)
	}
}

func (o *Orchestrator) indexEvent(ctx context.Context, sessionID, eventType string, fields map[string]interface{}) {
	if o.events == nil {
		return
	}
	doc := map[string]interface{}{
		"sessionId": sessionID,
		"event":     eventType,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range fields {
		doc[k] = v
	}
	if err := o.events.Index(ctx, o.cfg.EventIndex, doc); err != nil {
		o.logger.Warn("Failed to index funnel event", map[string]interface{}{
			"sessionId": sessionID,
			"event":     eventType,
			"error":     err.Error(),
		})
	}
}

// mergeAndSave applies a form patch and persists the session.
func (o *Orchestrator) mergeAndSave(ctx context.Context, s *session.Session, p state.Patch) error {
	s.Form = s.Form.Merge(p)
	return o.sessions.Save(ctx, s)
}
