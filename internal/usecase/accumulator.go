package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/trigger"
)

// TimeLedger is the part of the ledger the accumulator flushes into.
type TimeLedger interface {
	// AddTotalTime adds d to the persisted total and returns the new total.
	AddTotalTime(d time.Duration) (time.Duration, error)
}

// AccumulatorConfig holds sampling and flushing cadences.
type AccumulatorConfig struct {
	SampleInterval  time.Duration // How often liveness is sampled (default 100ms)
	FlushThreshold  time.Duration // Pending time that triggers a flush (default 1s)
	FlushOnShutdown bool          // Flush the unflushed remainder when Run returns
}

// DefaultAccumulatorConfig returns default accumulator configuration.
func DefaultAccumulatorConfig() AccumulatorConfig {
	return AccumulatorConfig{
		SampleInterval:  100 * time.Millisecond,
		FlushThreshold:  time.Second,
		FlushOnShutdown: true,
	}
}

// Validate rejects non-positive cadences.
func (c AccumulatorConfig) Validate() error {
	if c.SampleInterval <= 0 {
		return fmt.Errorf("%w: sample interval must be positive, got %s", trigger.ErrInvalidConfiguration, c.SampleInterval)
	}
	if c.FlushThreshold <= 0 {
		return fmt.Errorf("%w: flush threshold must be positive, got %s", trigger.ErrInvalidConfiguration, c.FlushThreshold)
	}
	return nil
}

// Accumulator samples target liveness on a fast cadence and flushes the
// accumulated active time into the ledger once it exceeds the threshold.
//
// The pending duration is owned by the accumulator. It is reset after every
// flush attempt, including failed ones, so a persistently failing store
// loses at most one window per attempt instead of re-adding it forever.
type Accumulator struct {
	config  AccumulatorConfig
	poller  *LivenessPoller
	ledger  TimeLedger
	targets domain.TargetSource
	metrics domain.Metrics
	logger  *zap.Logger

	mu       sync.Mutex
	pending  time.Duration
	flushes  int
	failures int
}

// NewAccumulator creates an accumulator.
func NewAccumulator(
	config AccumulatorConfig,
	poller *LivenessPoller,
	ledger TimeLedger,
	targets domain.TargetSource,
	logger *zap.Logger,
	opts ...Option,
) (*Accumulator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	return &Accumulator{
		config:  config,
		poller:  poller,
		ledger:  ledger,
		targets: targets,
		metrics: o.metrics,
		logger:  logger,
	}, nil
}

// Run samples every SampleInterval until ctx is canceled.
func (a *Accumulator) Run(ctx context.Context) error {
	a.logger.Info("accumulator started",
		zap.Duration("sample_interval", a.config.SampleInterval),
		zap.Duration("flush_threshold", a.config.FlushThreshold))

	ticker := time.NewTicker(a.config.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if a.config.FlushOnShutdown && a.Pending() > 0 {
				_ = a.Flush()
			}
			a.logger.Info("accumulator stopping",
				zap.Int("flushes", a.Flushes()),
				zap.Duration("unflushed", a.Pending()))
			return ctx.Err()

		case <-ticker.C:
			a.Sample()
		}
	}
}

// Sample runs one sampling tick. Reports whether it flushed.
func (a *Accumulator) Sample() bool {
	active := a.poller.IsAnyRunning(a.targets.All())
	a.metrics.ObserveSample(active)
	if !active {
		return false
	}

	a.mu.Lock()
	a.pending += a.config.SampleInterval
	due := a.pending > a.config.FlushThreshold
	a.mu.Unlock()

	if !due {
		return false
	}
	_ = a.Flush()
	return true
}

// Flush adds the pending time to the ledger and resets it.
// Failures are logged and returned but never stop sampling.
func (a *Accumulator) Flush() error {
	a.mu.Lock()
	window := a.pending
	a.pending = 0
	a.mu.Unlock()

	total, err := a.ledger.AddTotalTime(window)

	a.mu.Lock()
	if err != nil {
		a.failures++
	} else {
		a.flushes++
	}
	a.mu.Unlock()
	a.metrics.ObserveFlush(window, total, err)

	if err != nil {
		a.logger.Warn("flush failed, discarding window",
			zap.Duration("window", window),
			zap.Error(err))
		return err
	}
	a.logger.Debug("flushed active time",
		zap.Duration("window", window),
		zap.Duration("total", total))
	return nil
}

// Pending returns the accumulated time not yet flushed.
func (a *Accumulator) Pending() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Flushes returns the number of successful flushes.
func (a *Accumulator) Flushes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.flushes
}

// Failures returns the number of failed flushes.
func (a *Accumulator) Failures() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failures
}
