package infra

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// DefaultRunFile is the instance registry file name, kept next to the ledger.
const DefaultRunFile = ".cttrack.run"

// FileRegistry implements domain.InstanceRegistry using a JSON file.
type FileRegistry struct {
	path  string
	alive func(pid int) bool
	now   func() time.Time
}

// NewFileRegistry creates a registry at path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{path: path, alive: PIDAlive, now: time.Now}
}

// RunFileFor returns the registry path that belongs to a ledger location.
func RunFileFor(ledgerPath string) string {
	return filepath.Join(filepath.Dir(ledgerPath), DefaultRunFile)
}

// Path returns the registry file path.
func (r *FileRegistry) Path() string {
	return r.path
}

// Register saves inst, stamping its heartbeat.
func (r *FileRegistry) Register(inst domain.TrackerInstance) error {
	return r.withLock(func() error {
		if inst.StartedAt == 0 {
			inst.StartedAt = r.now().Unix()
		}
		inst.LastHeartbeat = r.now().Unix()
		return r.atomicWrite(&inst)
	})
}

// Heartbeat updates the timestamp for liveness display.
func (r *FileRegistry) Heartbeat() error {
	return r.withLock(func() error {
		inst, err := r.Get()
		if err != nil {
			return err
		}
		if inst == nil {
			return fmt.Errorf("no tracker registered at %s", r.path)
		}
		inst.LastHeartbeat = r.now().Unix()
		return r.atomicWrite(inst)
	})
}

// Get returns the registered instance or nil.
func (r *FileRegistry) Get() (*domain.TrackerInstance, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var inst domain.TrackerInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, fmt.Errorf("corrupt registry %s: %w", r.path, err)
	}
	return &inst, nil
}

// IsAlive checks the registered PID. A stale registration is not an error.
func (r *FileRegistry) IsAlive() (bool, *domain.TrackerInstance, error) {
	inst, err := r.Get()
	if err != nil || inst == nil {
		return false, inst, err
	}
	return r.alive(inst.PID), inst, nil
}

// Clear removes the registry file. Missing is fine.
func (r *FileRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// PIDAlive reports whether a process with pid exists.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

func (r *FileRegistry) withLock(fn func() error) error {
	return withFileLock(r.path, fn)
}

// atomicWrite writes the registry atomically (write + rename).
func (r *FileRegistry) atomicWrite(inst *domain.TrackerInstance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.InstanceRegistry.
var _ domain.InstanceRegistry = (*FileRegistry)(nil)
