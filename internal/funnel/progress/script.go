// internal/funnel/progress/script.go
package progress

import "time"

// Reveal is one scheduled entry of the finding-deals script: a provider
// name and the elapsed time at which it becomes visible.
type Reveal struct {
	Provider string        `json:"provider"`
	After    time.Duration `json:"after"`
}

// Script is the fixed reveal schedule. It is purely cosmetic and driven by
// elapsed time only; nothing in it reflects real enrichment progress.
type Script struct {
	reveals []Reveal
	total   time.Duration
}

// DefaultProviders is the stock provider list shown while enrichment runs.
var DefaultProviders = []string{
	"British Gas",
	"EDF Energy",
	"E.ON Next",
	"Octopus Energy",
	"OVO Energy",
	"ScottishPower",
}

// NewScript builds a schedule revealing each provider at a fixed interval.
func NewScript(providers []string, interval time.Duration) *Script {
	if interval <= 0 {
		interval = 600 * time.Millisecond
	}
	reveals := make([]Reveal, 0, len(providers))
	for i, p := range providers {
		reveals = append(reveals, Reveal{Provider: p, After: time.Duration(i+1) * interval})
	}
	return &Script{
		reveals: reveals,
		total:   time.Duration(len(providers)) * interval,
	}
}

// Visible returns the providers revealed after the given elapsed time, in
// schedule order.
func (s *Script) Visible(elapsed time.Duration) []string {
	out := make([]string, 0, len(s.reveals))
	for _, r := range s.reveals {
		if elapsed >= r.After {
			out = append(out, r.Provider)
		}
	}
	return out
}

// Done reports whether the whole script has played out.
func (s *Script) Done(elapsed time.Duration) bool {
	return elapsed >= s.total
}

// Total is the script's full running time.
func (s *Script) Total() time.Duration {
	return s.total
}
