package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// withFileLock runs fn while holding an exclusive lock on path+".lock".
// Serializes writers across processes (tracker and CLI).
func withFileLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}
