package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ddobrev25/coding-time-tracker/internal/clock"
	"github.com/ddobrev25/coding-time-tracker/internal/domain"
	"github.com/ddobrev25/coding-time-tracker/internal/infra"
)

var created = time.Date(2024, 3, 1, 9, 30, 15, 0, time.Local)

func newFileLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), infra.DefaultLedgerFile)
	return New(infra.NewFileStore(path), WithClock(clock.NewFake(created))), path
}

// failingStore implements domain.Store and fails every call
type failingStore struct{ err error }

func (s failingStore) Read(string) (string, bool, error)   { return "", false, s.err }
func (s failingStore) Write(string, string) error          { return s.err }
func (s failingStore) Remove(string) (bool, error)         { return false, s.err }
func (s failingStore) Create(string, string) (bool, error) { return false, s.err }
func (s failingStore) Location() string                    { return "failing" }
func (s failingStore) Close() error                        { return nil }

func TestLedger_EnsureCreated(t *testing.T) {
	l, path := newFileLedger(t)

	ok, err := l.EnsureCreated()
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.EnsureCreated()
	require.NoError(t, err)
	assert.False(t, ok, "second call leaves the file alone")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TimeCreated: 2024-03-01 09:30:15\n", string(data))

	got, ok, err := l.TimeCreated()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, created.Equal(got))
}

func TestLedger_ReadMissing(t *testing.T) {
	l, path := newFileLedger(t)

	_, ok, err := l.Read(domain.KeyTotalTime)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Read(domain.KeyNone)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.Read("Unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "reads never create the ledger")
}

func TestLedger_WriteRejectsProtectedKeys(t *testing.T) {
	l, _ := newFileLedger(t)

	for _, key := range []domain.LedgerKey{domain.KeyNone, domain.KeyTimeCreated, "Editor"} {
		err := l.Write(key, "x")
		assert.ErrorIs(t, err, ErrInvalidKey, "%q", key)
	}

	_, ok, err := l.Read(domain.KeyTimeCreated)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_WriteRejectsMultilineValue(t *testing.T) {
	l, _ := newFileLedger(t)
	assert.ErrorIs(t, l.Write(domain.KeyTotalTime, "1\nTimeCreated: x"), ErrInvalidValue)
}

func TestLedger_WriteCreatesFile(t *testing.T) {
	l, path := newFileLedger(t)

	require.NoError(t, l.Write(domain.KeyTotalTime, "00:00:01.1"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TimeCreated: 2024-03-01 09:30:15\nTotalTime: 00:00:01.1\n", string(data))
}

func TestLedger_AddTotalTime(t *testing.T) {
	l, _ := newFileLedger(t)

	total, err := l.AddTotalTime(1100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1100*time.Millisecond, total)

	total, err = l.AddTotalTime(1100 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2200*time.Millisecond, total)

	v, _, err := l.Read(domain.KeyTotalTime)
	require.NoError(t, err)
	assert.Equal(t, "00:00:02.2", v)

	exists, err := l.Exists(domain.KeyTotalTime)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLedger_ReadsLegacyTotals(t *testing.T) {
	l, path := newFileLedger(t)
	require.NoError(t, os.WriteFile(path, []byte("TimeCreated: 2023-01-05 08:00:00\r\nTotalTime: 1.02:03:04.5000000\r\n"), 0644))

	total, ok, err := l.TotalTime()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 26*time.Hour+3*time.Minute+4*time.Second+500*time.Millisecond, total)

	total, err = l.AddTotalTime(500 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "1.02:03:05", FormatDuration(total))
}

func TestLedger_CorruptTotalIsNotOverwritten(t *testing.T) {
	l, path := newFileLedger(t)
	content := "TimeCreated: 2024-03-01 09:30:15\nTotalTime: garbage\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := l.AddTotalTime(time.Second)
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
}

func TestLedger_SetTotalTime(t *testing.T) {
	l, _ := newFileLedger(t)

	require.NoError(t, l.SetTotalTime(90*time.Minute))
	total, ok, err := l.TotalTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, total)
}

func TestLedger_Reset(t *testing.T) {
	l, _ := newFileLedger(t)

	removed, err := l.Reset()
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = l.AddTotalTime(time.Minute)
	require.NoError(t, err)

	removed, err = l.Reset()
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok, err := l.TotalTime()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = l.TimeCreated()
	require.NoError(t, err)
	assert.True(t, ok, "reset keeps the creation stamp")
}

func TestLedger_StorageFault(t *testing.T) {
	cause := errors.New("disk on fire")
	l := New(failingStore{err: cause})

	_, _, err := l.Read(domain.KeyTotalTime)
	assert.ErrorIs(t, err, ErrStorageFault)
	assert.ErrorIs(t, err, cause)

	_, err = l.AddTotalTime(time.Second)
	assert.ErrorIs(t, err, ErrStorageFault)

	_, err = l.EnsureCreated()
	assert.ErrorIs(t, err, ErrStorageFault)

	_, err = l.Reset()
	assert.ErrorIs(t, err, ErrStorageFault)
}

func TestLedger_CorruptTimeCreated(t *testing.T) {
	l, path := newFileLedger(t)
	require.NoError(t, os.WriteFile(path, []byte("TimeCreated: yesterday\n"), 0644))

	_, ok, err := l.TimeCreated()
	assert.True(t, ok)
	assert.ErrorIs(t, err, ErrStorageFault)
}

func TestLedger_Location(t *testing.T) {
	l, path := newFileLedger(t)
	assert.Equal(t, path, l.Location())
	assert.NoError(t, l.Close())
}
