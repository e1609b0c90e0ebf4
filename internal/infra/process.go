// Package infra implements infrastructure concerns (processes, ledger stores, prompts).
package infra

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// ProcessPresenceImpl implements domain.ProcessPresence using gopsutil.
type ProcessPresenceImpl struct {
	// list enumerates processes; replaced in tests.
	list func() ([]*process.Process, error)
}

// NewProcessPresence creates a gopsutil-backed presence checker.
func NewProcessPresence() *ProcessPresenceImpl {
	return &ProcessPresenceImpl{list: process.Processes}
}

// FindByName returns the live processes whose name matches name.
// Matching is case-insensitive and ignores a trailing ".exe".
func (pp *ProcessPresenceImpl) FindByName(name string) ([]*process.Process, error) {
	procs, err := pp.list()
	if err != nil {
		return nil, err
	}

	var found []*process.Process
	for _, p := range procs {
		n, err := p.Name()
		if err != nil {
			continue // Process may have exited
		}
		if MatchProcessName(n, name) {
			found = append(found, p)
		}
	}
	return found, nil
}

// IsRunning reports whether any process named name is alive.
func (pp *ProcessPresenceImpl) IsRunning(name string) (bool, error) {
	found, err := pp.FindByName(name)
	if err != nil {
		return false, err
	}
	return len(found) > 0, nil
}

// Terminate sends SIGTERM to every process named name.
// Processes that exit on their own before being signalled are not errors.
func (pp *ProcessPresenceImpl) Terminate(name string) (int, error) {
	found, err := pp.FindByName(name)
	if err != nil {
		return 0, err
	}

	var errs []error
	terminated := 0
	for _, p := range found {
		if err := p.Terminate(); err != nil {
			if alive, _ := p.IsRunning(); !alive {
				continue
			}
			errs = append(errs, fmt.Errorf("terminate pid %d: %w", p.Pid, err))
			continue
		}
		terminated++
	}
	return terminated, errors.Join(errs...)
}

// MatchProcessName compares an OS process name with a target's process name.
func MatchProcessName(actual, want string) bool {
	trim := func(s string) string {
		s = strings.TrimSpace(s)
		if len(s) > 4 && strings.EqualFold(s[len(s)-4:], ".exe") {
			s = s[:len(s)-4]
		}
		return s
	}
	return strings.EqualFold(trim(actual), trim(want))
}

// Ensure ProcessPresenceImpl implements domain.ProcessPresence.
var _ domain.ProcessPresence = (*ProcessPresenceImpl)(nil)
