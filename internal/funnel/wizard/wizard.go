// internal/funnel/wizard/wizard.go
package wizard

import (
	"sync"
	"time"
)

// Step is a wizard position. The canonical funnel has four steps.
type Step int

const (
	StepWelcome Step = iota
	StepPostcode
	StepContact
	StepPrivacy

	stepCount
)

func (s Step) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepPostcode:
		return "postcode"
	case StepContact:
		return "contact"
	case StepPrivacy:
		return "privacy"
	}
	return "unknown"
}

// Next returns the following step, clamped at the last step.
func (s Step) Next() Step {
	if s >= stepCount-1 {
		return s
	}
	return s + 1
}

// Prev returns the preceding step, clamped at the first step.
func (s Step) Prev() Step {
	if s <= 0 {
		return s
	}
	return s - 1
}

// Phase is the slide-transition state. Content is hidden while Exiting and
// shown again once the display step has caught up.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseExiting
	PhaseEntering
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseExiting:
		return "exiting"
	case PhaseEntering:
		return "entering"
	}
	return "unknown"
}

// Controller owns the wizard's step index and the delayed display index.
// The display index chases the real index after the transition delay so a
// slide change never renders a half-updated frame. Rapid navigation
// collapses to the latest target step: the pending timer is replaced, never
// queued.
type Controller struct {
	mu          sync.Mutex
	step        Step
	displayStep Step
	phase       Phase
	delay       time.Duration
	timer       *time.Timer
	closed      bool
}

// NewController creates a controller at the welcome step. delay is the
// visual transition delay before displayStep catches up.
func NewController(delay time.Duration) *Controller {
	return &Controller{delay: delay}
}

// Step returns the real step index.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// DisplayStep returns the delayed display index used for rendering.
func (c *Controller) DisplayStep() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayStep
}

// Phase returns the current transition phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Visible reports whether slide content should be rendered. Content is
// hidden only while a transition is exiting the old slide.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase != PhaseExiting
}

// Advance moves one step forward. At the last step it is a no-op.
func (c *Controller) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step >= stepCount-1 {
		return
	}
	c.setStepLocked(c.step + 1)
}

// Retreat moves one step back. At the first step it is a no-op.
func (c *Controller) Retreat() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.step <= 0 {
		return
	}
	c.setStepLocked(c.step - 1)
}

// Jump moves directly to the given step. Out-of-range targets are no-ops.
func (c *Controller) Jump(target Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if target < 0 || target >= stepCount || target == c.step {
		return
	}
	c.setStepLocked(target)
}

// setStepLocked starts (or restarts) the transition toward target.
// Caller holds c.mu.
func (c *Controller) setStepLocked(target Step) {
	c.step = target
	c.phase = PhaseExiting

	if c.timer != nil {
		c.timer.Stop()
	}
	if c.closed {
		return
	}
	if c.delay <= 0 {
		c.displayStep = target
		c.phase = PhaseIdle
		return
	}
	c.timer = time.AfterFunc(c.delay, c.finishExit)
}

// finishExit fires when the exit delay elapses: the display index catches
// up and the new slide enters.
func (c *Controller) finishExit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != PhaseExiting {
		return
	}
	c.displayStep = c.step
	c.phase = PhaseEntering
	c.timer = time.AfterFunc(c.delay, c.finishEnter)
}

func (c *Controller) finishEnter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != PhaseEntering {
		return
	}
	c.phase = PhaseIdle
}

// Close cancels any pending transition timer. The controller stays readable
// but no further transitions are scheduled.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
