package domain

import (
	"context"
	"time"
)

// Clock is the wall-clock time source.
// Implementation: clock.System in production, clock.Fake in tests.
type Clock interface {
	Now() time.Time
}

// ProcessPresence answers process-level questions about the OS.
// Implementation: uses gopsutil for cross-platform support.
type ProcessPresence interface {
	// IsRunning reports whether at least one process with the given name is alive.
	IsRunning(name string) (bool, error)

	// Terminate asks every process with the given name to exit.
	// Returns the number of processes signalled; zero is not an error.
	Terminate(name string) (int, error)
}

// UserPrompt asks the user a yes/no question.
type UserPrompt interface {
	// Confirm shows message and blocks until answered or ctx is done.
	Confirm(ctx context.Context, message string) (Answer, error)
}

// Store is the durable key/value backend behind the ledger.
// Implementations: line-oriented text file, SQLCipher database.
type Store interface {
	// Read returns the first value stored for key.
	Read(key string) (value string, ok bool, err error)

	// Write inserts or replaces the value for key.
	// After a successful Write exactly one record for key exists.
	Write(key, value string) error

	// Remove deletes every record for key. Returns true if one existed.
	Remove(key string) (bool, error)

	// Create initializes the backing store with a single seed record.
	// It never touches an existing store and reports whether it created one.
	Create(seedKey, seedValue string) (bool, error)

	// Location describes where the data lives (for status output).
	Location() string

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of the ledger encryption key.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// TargetSource provides the current set of watched targets.
type TargetSource interface {
	// All returns a snapshot of the watched targets.
	All() []Target
}

// Metrics receives tracker events.
type Metrics interface {
	ObserveSample(active bool)
	ObserveFlush(added time.Duration, total time.Duration, err error)
	ObserveCheck(result GuardResult)
}

// InstanceRegistry records the running tracker so that a second one is not
// started against the same ledger.
type InstanceRegistry interface {
	// Register records inst as the running tracker.
	Register(inst TrackerInstance) error

	// Heartbeat refreshes the liveness timestamp of the registered tracker.
	Heartbeat() error

	// Get returns the registered tracker, or nil when none is registered.
	Get() (*TrackerInstance, error)

	// IsAlive reports whether the registered tracker's process still exists.
	IsAlive() (bool, *TrackerInstance, error)

	// Clear removes the registration.
	Clear() error
}
