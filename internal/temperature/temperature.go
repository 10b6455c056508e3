// Package temperature tracks the sampling temperature for a wrapped agent,
// nudged by enforcement outcomes and clamped to the contract's range.
package temperature

import (
	"sync"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// step is how far one adjustment moves the tracked value.
const step = 0.05

// Controller owns the temperature state for one wrapped agent.
// Safe for concurrent use.
type Controller struct {
	mode     contract.TemperatureMode
	min, max float64
	current  float64
	mu       sync.Mutex
}

// New creates a controller for the given control settings.
// Both modes start at the midpoint of the range.
func New(tc contract.TemperatureControl) *Controller {
	min, max := tc.Min(), tc.Max()
	return &Controller{
		mode:    tc.Mode,
		min:     min,
		max:     max,
		current: (min + max) / 2,
	}
}

// Get returns the current temperature.
func (c *Controller) Get() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Adjust moves the temperature in response to an enforcement outcome:
// toward the minimum on success, toward the maximum on failure.
// Fixed mode ignores feedback. The value never leaves [min, max].
func (c *Controller) Adjust(success bool) {
	if c.mode != contract.ModeAdaptive {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if success {
		c.current -= step
	} else {
		c.current += step
	}
	if c.current < c.min {
		c.current = c.min
	}
	if c.current > c.max {
		c.current = c.max
	}
}
