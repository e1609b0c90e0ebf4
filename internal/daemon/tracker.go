// Package daemon implements the long-running tracker process.
package daemon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/usecase"
)

// TrackerConfig holds tracker daemon configuration.
type TrackerConfig struct {
	HeartbeatInterval time.Duration // How often to refresh the instance registry
}

// DefaultTrackerConfig returns default tracker configuration.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		HeartbeatInterval: 30 * time.Second,
	}
}

// Tracker owns the accumulator and the activity guard.
// It starts both, and on shutdown stops the guard and waits for the
// accumulator's final flush before returning.
type Tracker struct {
	config      TrackerConfig
	accumulator *usecase.Accumulator
	guard       *usecase.ActivityGuard
	registry    domain.InstanceRegistry
	instance    domain.TrackerInstance
	logger      *zap.Logger
}

// NewTracker creates a tracker. registry may be nil.
func NewTracker(
	config TrackerConfig,
	accumulator *usecase.Accumulator,
	guard *usecase.ActivityGuard,
	registry domain.InstanceRegistry,
	instance domain.TrackerInstance,
	logger *zap.Logger,
) *Tracker {
	return &Tracker{
		config:      config,
		accumulator: accumulator,
		guard:       guard,
		registry:    registry,
		instance:    instance,
		logger:      logger,
	}
}

// Run blocks until ctx is canceled.
func (t *Tracker) Run(ctx context.Context) error {
	if t.registry != nil {
		if err := t.registry.Register(t.instance); err != nil {
			t.logger.Error("failed to register tracker", zap.Error(err))
			return err
		}
		defer func() {
			if err := t.registry.Clear(); err != nil {
				t.logger.Warn("failed to clear tracker registration", zap.Error(err))
			}
		}()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = t.accumulator.Run(runCtx)
	}()

	if err := t.guard.Start(runCtx); err != nil {
		t.logger.Error("failed to start activity guard", zap.Error(err))
		cancel()
		wg.Wait()
		return err
	}

	t.logger.Info("tracker started",
		zap.Int("pid", t.instance.PID),
		zap.String("ledger", t.instance.Ledger))

	var heartbeat <-chan time.Time
	if t.registry != nil && t.config.HeartbeatInterval > 0 {
		ticker := time.NewTicker(t.config.HeartbeatInterval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopping")
			t.guard.Stop()
			cancel()
			wg.Wait()
			t.logger.Info("tracker stopped",
				zap.Int("flushes", t.accumulator.Flushes()),
				zap.Int("checks", t.guard.Checks()))
			return ctx.Err()

		case <-heartbeat:
			if err := t.registry.Heartbeat(); err != nil {
				t.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// PauseChecks suspends activity checks. Time tracking continues.
func (t *Tracker) PauseChecks() error {
	if err := t.guard.Pause(); err != nil {
		return err
	}
	t.logger.Info("activity checks paused",
		zap.Duration("remaining", t.guard.Trigger().Remaining()))
	return nil
}

// ResumeChecks continues activity checks where they were paused.
func (t *Tracker) ResumeChecks() error {
	if err := t.guard.Resume(); err != nil {
		return err
	}
	t.logger.Info("activity checks resumed",
		zap.Time("next_check", t.guard.Trigger().Deadline()))
	return nil
}
