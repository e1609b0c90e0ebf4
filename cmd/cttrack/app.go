package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ddobrev25/coding-time-tracker/internal/config"
	"github.com/ddobrev25/coding-time-tracker/internal/daemon"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/infra"
	"github.com/ddobrev25/coding-time-tracker/internal/ledger"
	"github.com/ddobrev25/coding-time-tracker/internal/metrics"
	"github.com/ddobrev25/coding-time-tracker/internal/target"
	"github.com/ddobrev25/coding-time-tracker/internal/usecase"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	presence *infra.ProcessPresenceImpl
	targets  *target.Registry
	ledger   *ledger.Ledger
	registry *infra.FileRegistry
}

func newApp(cfg *config.Config, logger *zap.Logger) (*app, error) {
	targets, err := target.NewRegistryWithTargets(cfg.DomainTargets()...)
	if err != nil {
		return nil, err
	}

	l, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		presence: infra.NewProcessPresence(),
		targets:  targets,
		ledger:   l,
		registry: infra.NewFileRegistry(infra.RunFileFor(cfg.LedgerPath())),
	}, nil
}

func (a *app) Close() error {
	return a.ledger.Close()
}

// openLedger opens the configured backend.
func openLedger(cfg *config.Config) (*ledger.Ledger, error) {
	switch cfg.Ledger.Backend {
	case config.BackendSQLCipher:
		key, err := infra.NewLedgerKeyProvider(cfg.LedgerPath(), cfg.KeyDir()).Key()
		if err != nil {
			return nil, err
		}
		store, err := infra.NewSQLStore(cfg.LedgerPath(), key)
		if err != nil {
			return nil, err
		}
		return ledger.New(store), nil
	default:
		return ledger.New(infra.NewFileStore(cfg.LedgerPath())), nil
	}
}

// prompt picks the activity check prompt. Without a terminal every check
// goes unanswered, which never closes anything.
func (a *app) prompt() domain.UserPrompt {
	if a.cfg.Prompt.Mode == config.PromptAutoYes {
		return infra.StaticPrompt{Answer: domain.AnswerYes}
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		a.logger.Warn("stdin is not a terminal, activity checks will go unanswered")
		return infra.StaticPrompt{Answer: domain.AnswerUnknown}
	}
	return infra.NewTerminalPrompt(os.Stdin, os.Stdout, a.cfg.Prompt.Timeout)
}

func (a *app) guard(poller *usecase.LivenessPoller, opts ...usecase.Option) (*usecase.ActivityGuard, error) {
	return usecase.NewActivityGuard(a.cfg.GuardConfig(), poller, a.presence, a.prompt(), a.targets, a.logger, opts...)
}

// tracker wires the accumulator, the guard and the metrics exporter.
func (a *app) tracker() (*daemon.Tracker, error) {
	m, err := metrics.NewTextfile(a.cfg.Metrics.Textfile, a.logger)
	if err != nil {
		return nil, err
	}

	poller := usecase.NewLivenessPoller(a.presence, a.logger)
	acc, err := usecase.NewAccumulator(a.cfg.AccumulatorConfig(), poller, a.ledger, a.targets, a.logger,
		usecase.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	guard, err := a.guard(poller, usecase.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	trackerCfg := daemon.DefaultTrackerConfig()
	trackerCfg.HeartbeatInterval = a.cfg.HeartbeatInterval

	instance := domain.TrackerInstance{
		ID:      uuid.NewString(),
		PID:     os.Getpid(),
		Version: Version,
		Ledger:  a.ledger.Location(),
	}
	logger := a.logger.With(zap.String("instance", instance.ID))

	return daemon.NewTracker(trackerCfg, acc, guard, a.registry, instance, logger), nil
}

// watchTargets applies target edits in the config file to the running
// tracker until ctx is canceled.
func (a *app) watchTargets(ctx context.Context) error {
	w, err := config.NewWatcher(a.cfg.Source, a.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx, func(next *config.Config) {
		added, removed, err := a.targets.Sync(next.DomainTargets())
		if err != nil {
			a.logger.Warn("keeping previous targets", zap.Error(err))
			return
		}
		if len(added) > 0 || len(removed) > 0 {
			a.logger.Info("watched targets updated",
				zap.Strings("added", added),
				zap.Strings("removed", removed))
		}
	})
}
