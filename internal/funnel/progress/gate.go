// internal/funnel/progress/gate.go
package progress

import "sync"

// Gate releases only when both the cosmetic script has finished playing and
// the real enrichment work has completed. This is the single sanctioned
// coupling between the animation and network state: the wizard must not
// advance off the finding-deals view on the timer alone, nor before the
// timer has played out.
type Gate struct {
	mu          sync.Mutex
	scriptDone  bool
	workDone    bool
	releaseOnce sync.Once
	released    chan struct{}
}

// NewGate creates an unreleased gate.
func NewGate() *Gate {
	return &Gate{released: make(chan struct{})}
}

// ScriptFinished marks the cosmetic script as complete.
func (g *Gate) ScriptFinished() {
	g.mu.Lock()
	g.scriptDone = true
	g.maybeReleaseLocked()
	g.mu.Unlock()
}

// WorkFinished marks the real enrichment work as complete.
func (g *Gate) WorkFinished() {
	g.mu.Lock()
	g.workDone = true
	g.maybeReleaseLocked()
	g.mu.Unlock()
}

// Released returns a channel closed once both halves have completed.
func (g *Gate) Released() <-chan struct{} {
	return g.released
}

// Open reports whether the gate has released.
func (g *Gate) Open() bool {
	select {
	case <-g.released:
		return true
	default:
		return false
	}
}

func (g *Gate) maybeReleaseLocked() {
	if g.scriptDone && g.workDone {
		g.releaseOnce.Do(func() { close(g.released) })
	}
}
