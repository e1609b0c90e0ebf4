// Package usecase contains application business logic.
package usecase

import (
	"go.uber.org/zap"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// LivenessPoller answers whether watched targets are running.
// Every call re-queries the OS; nothing is cached.
type LivenessPoller struct {
	presence domain.ProcessPresence
	logger   *zap.Logger
}

// NewLivenessPoller creates a poller over presence.
func NewLivenessPoller(presence domain.ProcessPresence, logger *zap.Logger) *LivenessPoller {
	return &LivenessPoller{presence: presence, logger: logger}
}

// IsAnyRunning reports whether at least one target has a live process.
func (p *LivenessPoller) IsAnyRunning(targets []domain.Target) bool {
	for _, t := range targets {
		if p.isAlive(t) {
			return true
		}
	}
	return false
}

// AreAllRunning reports whether every target has a live process.
// An empty target set is never considered satisfied.
func (p *LivenessPoller) AreAllRunning(targets []domain.Target) bool {
	if len(targets) == 0 {
		return false
	}
	for _, t := range targets {
		if !p.isAlive(t) {
			return false
		}
	}
	return true
}

// RunningTargets returns the targets that currently have a live process.
func (p *LivenessPoller) RunningTargets(targets []domain.Target) []domain.Target {
	var live []domain.Target
	for _, t := range targets {
		if p.isAlive(t) {
			live = append(live, t)
		}
	}
	return live
}

// isAlive treats a failed presence query as "not running".
func (p *LivenessPoller) isAlive(t domain.Target) bool {
	running, err := p.presence.IsRunning(t.ProcessName)
	if err != nil {
		p.logger.Debug("presence query failed, treating target as not running",
			zap.String("target", t.ID),
			zap.String("process", t.ProcessName),
			zap.Error(err))
		return false
	}
	return running
}
