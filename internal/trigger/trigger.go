// Package trigger implements a cancellable, pausable periodic alarm.
//
// A Trigger wakes at a fixed granularity and compares the wall clock with a
// stored deadline. When the deadline has passed it fires the handler once and
// moves the deadline to now + interval, so a late wake never causes catch-up
// firing and deadlines never accumulate tick-counting drift.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/clock"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// DefaultGranularity is how often the wait loop compares the clock with the deadline.
const DefaultGranularity = time.Second

var (
	ErrInvalidConfiguration = errors.New("invalid trigger configuration")
	ErrInvalidState         = errors.New("invalid trigger state")
	ErrAlreadyRunning       = fmt.Errorf("%w: already running", ErrInvalidState)
	ErrDisposed             = fmt.Errorf("%w: disposed", ErrInvalidState)
	ErrHandlerPanic         = errors.New("trigger handler panicked")
)

// State is the lifecycle state of a Trigger.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler is invoked on the trigger's wait goroutine each time it fires.
// ctx is cancelled when the trigger is paused or stopped.
//
// Firings are strictly sequential. A handler must not call Stop or Pause on
// its own trigger synchronously; both wait for the handler to return.
type Handler func(ctx context.Context, firedAt time.Time)

// Option configures a Trigger.
type Option func(*Trigger)

// WithClock sets the time source used for deadlines.
func WithClock(c domain.Clock) Option {
	return func(t *Trigger) { t.clock = c }
}

// WithGranularity sets how often the wait loop wakes up.
func WithGranularity(d time.Duration) Option {
	return func(t *Trigger) { t.granularity = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Trigger) { t.logger = l }
}

// WithName labels log lines.
func WithName(name string) Option {
	return func(t *Trigger) { t.name = name }
}

// Trigger fires a handler every interval until stopped.
type Trigger struct {
	name        string
	interval    time.Duration
	granularity time.Duration
	handler     Handler
	clock       domain.Clock
	logger      *zap.Logger

	mu        sync.Mutex
	state     State
	parent    context.Context
	deadline  time.Time
	remaining time.Duration
	fires     int
	err       error
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates an idle trigger. interval and granularity must be positive.
func New(interval time.Duration, handler Handler, opts ...Option) (*Trigger, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive, got %s", ErrInvalidConfiguration, interval)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", ErrInvalidConfiguration)
	}

	t := &Trigger{
		name:        "trigger",
		interval:    interval,
		granularity: DefaultGranularity,
		handler:     handler,
		clock:       clock.System,
		logger:      zap.NewNop(),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.granularity <= 0 {
		return nil, fmt.Errorf("%w: granularity must be positive, got %s", ErrInvalidConfiguration, t.granularity)
	}
	return t, nil
}

// Start computes the first deadline and launches the wait loop.
// A failed trigger may be started again; a stopped one may not.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateRunning, StatePaused:
		return ErrAlreadyRunning
	case StateDisposed:
		return ErrDisposed
	}

	t.parent = ctx
	t.err = nil
	t.deadline = t.clock.Now().Add(t.interval)
	t.launchLocked()
	t.state = StateRunning

	t.logger.Debug("trigger started",
		zap.String("trigger", t.name),
		zap.Duration("interval", t.interval),
		zap.Time("deadline", t.deadline))
	return nil
}

// Stop cancels the wait loop and waits for it to exit.
// Safe to call multiple times and on a trigger that was never started.
func (t *Trigger) Stop() {
	t.mu.Lock()
	cancel, done := t.detachLocked()
	alreadyDisposed := t.state == StateDisposed
	t.state = StateDisposed
	t.mu.Unlock()

	join(cancel, done)
	if !alreadyDisposed {
		t.logger.Debug("trigger stopped", zap.String("trigger", t.name))
	}
}

// Pause freezes the time left until the next deadline.
func (t *Trigger) Pause() error {
	t.mu.Lock()
	if t.state != StateRunning {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("%w: cannot pause from %s", ErrInvalidState, state)
	}

	remaining := t.deadline.Sub(t.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	t.remaining = remaining
	t.state = StatePaused
	cancel, done := t.detachLocked()
	t.mu.Unlock()

	join(cancel, done)
	t.logger.Debug("trigger paused",
		zap.String("trigger", t.name),
		zap.Duration("remaining", remaining))
	return nil
}

// Resume restarts the wait loop with the time that was left at Pause.
func (t *Trigger) Resume() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePaused {
		return fmt.Errorf("%w: cannot resume from %s", ErrInvalidState, t.state)
	}

	t.deadline = t.clock.Now().Add(t.remaining)
	t.remaining = 0
	t.launchLocked()
	t.state = StateRunning

	t.logger.Debug("trigger resumed",
		zap.String("trigger", t.name),
		zap.Time("deadline", t.deadline))
	return nil
}

// State returns the current lifecycle state.
func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Interval returns the configured firing interval.
func (t *Trigger) Interval() time.Duration {
	return t.interval
}

// Deadline returns the next firing time. Zero unless running.
func (t *Trigger) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return time.Time{}
	}
	return t.deadline
}

// Remaining returns the time left until the next fire.
// While paused it is the frozen value recorded by Pause.
func (t *Trigger) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case StatePaused:
		return t.remaining
	case StateRunning:
		if r := t.deadline.Sub(t.clock.Now()); r > 0 {
			return r
		}
	}
	return 0
}

// Fires returns how many times the handler has been invoked.
func (t *Trigger) Fires() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fires
}

// Err returns the fault that moved the trigger to StateFailed, if any.
func (t *Trigger) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Trigger) launchLocked() {
	ctx, cancel := context.WithCancel(t.parent)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	go t.run(ctx, done)
}

// detachLocked hands the current wait loop over to the caller for joining.
func (t *Trigger) detachLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.done = nil
	return cancel, done
}

func join(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Trigger) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			t.exit(done, StateFailed, fmt.Errorf("%w: %v", ErrHandlerPanic, r))
		}
	}()

	ticker := time.NewTicker(t.granularity)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.exit(done, StateDisposed, nil)
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			t.exit(done, StateDisposed, nil)
			return
		}

		firedAt, due := t.due()
		if !due {
			continue
		}
		t.logger.Debug("trigger fired",
			zap.String("trigger", t.name),
			zap.Time("at", firedAt))
		t.handler(ctx, firedAt)
	}
}

// due reports whether the deadline has passed and, if so, schedules the next one.
func (t *Trigger) due() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateRunning {
		return time.Time{}, false
	}
	now := t.clock.Now()
	if now.Before(t.deadline) {
		return now, false
	}
	t.deadline = now.Add(t.interval)
	t.fires++
	return now, true
}

// exit records why the loop identified by done ended on its own.
// Loops detached by Stop or Pause are ignored.
func (t *Trigger) exit(done chan struct{}, state State, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != done {
		return
	}
	t.cancel()
	t.cancel = nil
	t.done = nil
	t.state = state
	t.err = err

	if err != nil {
		t.logger.Error("trigger failed",
			zap.String("trigger", t.name),
			zap.Error(err))
	}
}
