// Package health tracks recent failure strikes for a wrapped agent and
// derives a healthy/unhealthy status used to gate further calls.
package health

import (
	"sync"
	"time"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// Status is the derived health of the wrapped agent.
type Status string

const (
	Healthy   Status = "healthy"
	Unhealthy Status = "unhealthy"
)

// Strike records one failure or flagged event.
type Strike struct {
	Reason string
	At     time.Time
}

// Monitor is the strike-based circuit breaker for one wrapped agent.
// Transitions are edge-triggered on AddStrike/Reset; stale strikes are
// pruned lazily on the next AddStrike, not on a timer.
// Safe for concurrent use.
type Monitor struct {
	maxStrikes int
	window     time.Duration

	mu      sync.Mutex
	strikes []Strike
	status  Status
}

// New creates a healthy monitor for the given health config.
func New(cfg contract.Health) *Monitor {
	return &Monitor{
		maxStrikes: cfg.MaxStrikes,
		window:     time.Duration(cfg.StrikeWindowSeconds) * time.Second,
		status:     Healthy,
	}
}

// AddStrike appends a timestamped strike, prunes strikes that fell out of
// the window, and re-derives the status. Returns the new status.
func (m *Monitor) AddStrike(reason string) Status {
	return m.addStrikeAt(reason, time.Now())
}

func (m *Monitor) addStrikeAt(reason string, now time.Time) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strikes = append(m.strikes, Strike{Reason: reason, At: now})

	cutoff := now.Add(-m.window)
	kept := m.strikes[:0]
	for _, s := range m.strikes {
		if s.At.After(cutoff) {
			kept = append(kept, s)
		}
	}
	m.strikes = kept

	if len(m.strikes) >= m.maxStrikes {
		m.status = Unhealthy
	} else {
		m.status = Healthy
	}
	return m.status
}

// Reset clears all strikes and forces the status back to healthy.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strikes = nil
	m.status = Healthy
}

// Status returns the current status without mutating state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Strikes returns the number of strikes currently inside the window as of
// the last transition.
func (m *Monitor) Strikes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.strikes)
}
