// Package ledger persists accumulated time in a small fixed vocabulary of keys.
//
// The ledger is a typed facade over a domain.Store: it enforces which keys
// may be written, seeds the immutable creation timestamp, and encodes the
// total time as a duration string that round-trips exactly.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ddobrev25/coding-time-tracker/internal/clock"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// TimeLayout is the human-readable format of the TimeCreated record.
const TimeLayout = "2006-01-02 15:04:05"

var (
	ErrInvalidKey   = errors.New("invalid ledger key")
	ErrInvalidValue = errors.New("invalid ledger value")
	ErrStorageFault = errors.New("ledger storage fault")
)

// Ledger reads and writes tracker records through a Store.
// All operations are serialized.
type Ledger struct {
	store domain.Store
	clock domain.Clock
	mu    sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the clock used to stamp TimeCreated.
func WithClock(c domain.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// New wraps store.
func New(store domain.Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, clock: clock.System}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// EnsureCreated creates the backing store with its TimeCreated record if it
// does not exist yet. An existing store is never modified.
func (l *Ledger) EnsureCreated() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ensureCreatedLocked()
}

func (l *Ledger) ensureCreatedLocked() (bool, error) {
	created, err := l.store.Create(string(domain.KeyTimeCreated), l.clock.Now().Format(TimeLayout))
	if err != nil {
		return false, fmt.Errorf("%w: create %s: %w", ErrStorageFault, l.store.Location(), err)
	}
	return created, nil
}

// Read returns the value stored for key. Unknown keys are simply absent.
func (l *Ledger) Read(key domain.LedgerKey) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readLocked(key)
}

func (l *Ledger) readLocked(key domain.LedgerKey) (string, bool, error) {
	if !key.Known() {
		return "", false, nil
	}
	v, ok, err := l.store.Read(string(key))
	if err != nil {
		return "", false, fmt.Errorf("%w: read %s: %w", ErrStorageFault, key, err)
	}
	return v, ok, nil
}

// Exists reports whether a record for key is present.
func (l *Ledger) Exists(key domain.LedgerKey) (bool, error) {
	_, ok, err := l.Read(key)
	return ok, err
}

// Write stores value under key, replacing any previous record.
// TimeCreated is write-protected.
func (l *Ledger) Write(key domain.LedgerKey, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked(key, value)
}

func (l *Ledger) writeLocked(key domain.LedgerKey, value string) error {
	if !key.Known() || key == domain.KeyTimeCreated {
		return fmt.Errorf("%w: %q is not writable", ErrInvalidKey, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value for %s spans multiple lines", ErrInvalidValue, key)
	}
	if _, err := l.ensureCreatedLocked(); err != nil {
		return err
	}
	if err := l.store.Write(string(key), value); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorageFault, key, err)
	}
	return nil
}

// TotalTime returns the persisted total.
func (l *Ledger) TotalTime() (time.Duration, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalLocked()
}

func (l *Ledger) totalLocked() (time.Duration, bool, error) {
	v, ok, err := l.readLocked(domain.KeyTotalTime)
	if err != nil || !ok {
		return 0, false, err
	}
	d, err := ParseDuration(v)
	if err != nil {
		return 0, true, fmt.Errorf("%w: %s: %w", ErrStorageFault, domain.KeyTotalTime, err)
	}
	return d, true, nil
}

// SetTotalTime overwrites the persisted total.
func (l *Ledger) SetTotalTime(d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked(domain.KeyTotalTime, FormatDuration(d))
}

// AddTotalTime adds d to the persisted total, creating the record when it
// is missing, and returns the new total. A stored value that cannot be
// parsed is left untouched.
func (l *Ledger) AddTotalTime(d time.Duration) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, _, err := l.totalLocked()
	if err != nil {
		return 0, err
	}
	total := current + d
	if err := l.writeLocked(domain.KeyTotalTime, FormatDuration(total)); err != nil {
		return 0, err
	}
	return total, nil
}

// TimeCreated returns the creation timestamp in the local time zone.
func (l *Ledger) TimeCreated() (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok, err := l.readLocked(domain.KeyTimeCreated)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.ParseInLocation(TimeLayout, v, time.Local)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("%w: %s: %w", ErrStorageFault, domain.KeyTimeCreated, err)
	}
	return t, true, nil
}

// Reset removes the TotalTime record. Reports whether one existed.
func (l *Ledger) Reset() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed, err := l.store.Remove(string(domain.KeyTotalTime))
	if err != nil {
		return false, fmt.Errorf("%w: remove %s: %w", ErrStorageFault, domain.KeyTotalTime, err)
	}
	return removed, nil
}

// Location describes where the ledger is stored.
func (l *Ledger) Location() string {
	return l.store.Location()
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
