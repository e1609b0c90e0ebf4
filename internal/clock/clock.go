// Package clock provides wall-clock time sources.
package clock

import (
	"sync"
	"time"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// systemClock implements domain.Clock using the standard time package.
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System is the process-wide real clock.
var System domain.Clock = systemClock{}

// Fake is a manually driven clock for tests. Safe for concurrent use.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock frozen at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d and returns the new time.
func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

// Set jumps the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

var _ domain.Clock = (*Fake)(nil)
