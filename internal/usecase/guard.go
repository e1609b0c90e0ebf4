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

// ActivityCheckPrompt is the question shown on every activity check.
const ActivityCheckPrompt = "This is a periodic check to see if you are still using the monitored applications. " +
	"WARNING: *Please save all your work. Pressing \"No\" will shut down all monitored applications.*"

// GuardConfig holds activity check settings.
type GuardConfig struct {
	CheckInterval time.Duration // Time between activity checks (default 30m)
	Granularity   time.Duration // How often the check trigger wakes up (default 1s)
}

// DefaultGuardConfig returns default activity guard configuration.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		CheckInterval: 30 * time.Minute,
		Granularity:   trigger.DefaultGranularity,
	}
}

// ActivityGuard periodically asks the user whether they are still working
// and terminates the watched applications when they answer no.
type ActivityGuard struct {
	config   GuardConfig
	poller   *LivenessPoller
	presence domain.ProcessPresence
	prompt   domain.UserPrompt
	targets  domain.TargetSource
	metrics  domain.Metrics
	clock    domain.Clock
	logger   *zap.Logger
	trigger  *trigger.Trigger

	mu     sync.Mutex
	last   domain.GuardResult
	checks int
}

// NewActivityGuard creates an idle guard. Call Start to begin checking.
func NewActivityGuard(
	config GuardConfig,
	poller *LivenessPoller,
	presence domain.ProcessPresence,
	prompt domain.UserPrompt,
	targets domain.TargetSource,
	logger *zap.Logger,
	opts ...Option,
) (*ActivityGuard, error) {
	if config.CheckInterval <= 0 {
		return nil, fmt.Errorf("%w: check interval must be positive, got %s", trigger.ErrInvalidConfiguration, config.CheckInterval)
	}
	if config.Granularity <= 0 {
		config.Granularity = trigger.DefaultGranularity
	}

	o := applyOptions(opts)
	g := &ActivityGuard{
		config:   config,
		poller:   poller,
		presence: presence,
		prompt:   prompt,
		targets:  targets,
		metrics:  o.metrics,
		clock:    o.clock,
		logger:   logger,
	}

	t, err := trigger.New(config.CheckInterval, g.onFire,
		trigger.WithClock(o.clock),
		trigger.WithGranularity(config.Granularity),
		trigger.WithLogger(logger),
		trigger.WithName("activity-check"))
	if err != nil {
		return nil, err
	}
	g.trigger = t
	return g, nil
}

// Start schedules the first check one interval from now.
func (g *ActivityGuard) Start(ctx context.Context) error {
	if err := g.trigger.Start(ctx); err != nil {
		return err
	}
	g.logger.Info("activity guard started",
		zap.Duration("check_interval", g.config.CheckInterval),
		zap.Time("next_check", g.trigger.Deadline()))
	return nil
}

// Stop cancels pending checks. An in-flight prompt is abandoned.
func (g *ActivityGuard) Stop() {
	g.trigger.Stop()
}

// Pause suspends checking and remembers the time left.
func (g *ActivityGuard) Pause() error {
	return g.trigger.Pause()
}

// Resume continues checking with the remembered time left.
func (g *ActivityGuard) Resume() error {
	return g.trigger.Resume()
}

// Trigger exposes the underlying trigger for status reporting.
func (g *ActivityGuard) Trigger() *trigger.Trigger {
	return g.trigger
}

// LastResult returns the outcome of the most recent check.
func (g *ActivityGuard) LastResult() (domain.GuardResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.checks > 0
}

// Checks returns how many checks have completed.
func (g *ActivityGuard) Checks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checks
}

func (g *ActivityGuard) onFire(ctx context.Context, _ time.Time) {
	g.Check(ctx)
}

// Check runs one activity check. Nothing is asked when no watched
// application is running. On a "no" answer every watched application
// still running is asked to terminate; any other answer changes nothing.
func (g *ActivityGuard) Check(ctx context.Context) domain.GuardResult {
	result := domain.GuardResult{CheckedAt: g.clock.Now()}
	defer g.record(&result)

	targets := g.targets.All()
	if !g.poller.IsAnyRunning(targets) {
		g.logger.Debug("no watched application running, skipping activity check")
		return result
	}

	result.Prompted = true
	answer, err := g.prompt.Confirm(ctx, ActivityCheckPrompt)
	result.Answer = answer
	if err != nil {
		g.logger.Warn("activity check prompt failed", zap.Error(err))
		result.Errors = append(result.Errors, err)
		return result
	}

	if answer != domain.AnswerNo {
		g.logger.Info("activity check answered", zap.Stringer("answer", answer))
		return result
	}

	// The prompt may have been open for a while; act on what is alive now.
	for _, t := range g.poller.RunningTargets(targets) {
		n, err := g.presence.Terminate(t.ProcessName)
		if err != nil {
			g.logger.Warn("failed to terminate application",
				zap.String("target", t.ID),
				zap.String("process", t.ProcessName),
				zap.Error(err))
			result.Errors = append(result.Errors, err)
			continue
		}
		g.logger.Info("terminated application",
			zap.String("target", t.ID),
			zap.String("process", t.ProcessName),
			zap.Int("processes", n))
		result.Terminated = append(result.Terminated, t.ID)
	}

	return result
}

func (g *ActivityGuard) record(result *domain.GuardResult) {
	g.mu.Lock()
	g.last = *result
	g.checks++
	g.mu.Unlock()
	g.metrics.ObserveCheck(*result)
}
