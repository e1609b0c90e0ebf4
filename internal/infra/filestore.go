package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// DefaultLedgerFile is the ledger file name used when none is configured.
const DefaultLedgerFile = "file.cttf"

const recordSeparator = ": "

// FileStore implements domain.Store as a text file with one
// "<Key>: <Value>" record per line. Lines that are not records are
// preserved verbatim on rewrite.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the file path.
func (s *FileStore) Location() string {
	return s.path
}

// Read returns the value of the first record for key.
func (s *FileStore) Read(key string) (string, bool, error) {
	lines, err := s.readLines()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	for _, line := range lines {
		if k, v, ok := splitRecord(line); ok && k == key {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Write rewrites the record for key in place, or appends it when missing.
// Duplicate records for key are collapsed into the first one.
func (s *FileStore) Write(key, value string) error {
	return s.withLock(func() error {
		lines, err := s.readLines()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		record := key + recordSeparator + value
		out := make([]string, 0, len(lines)+1)
		found := false
		for _, line := range lines {
			if k, _, ok := splitRecord(line); ok && k == key {
				if !found {
					out = append(out, record)
					found = true
				}
				continue
			}
			out = append(out, line)
		}
		if !found {
			out = append(out, record)
		}
		return s.atomicWrite(out)
	})
}

// Remove deletes every record for key.
func (s *FileStore) Remove(key string) (bool, error) {
	removed := false
	err := s.withLock(func() error {
		lines, err := s.readLines()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if k, _, ok := splitRecord(line); ok && k == key {
				removed = true
				continue
			}
			out = append(out, line)
		}
		if !removed {
			return nil
		}
		return s.atomicWrite(out)
	})
	return removed, err
}

// Create writes a new file holding only the seed record.
// An existing file is left alone.
func (s *FileStore) Create(seedKey, seedValue string) (bool, error) {
	if _, err := os.Stat(s.path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.WriteString(seedKey + recordSeparator + seedValue + "\n"); err != nil {
		f.Close()
		return false, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

// Close is a no-op; the file is opened per operation.
func (s *FileStore) Close() error {
	return nil
}

// splitRecord parses "<Key>: <Value>". Windows line endings are tolerated.
func splitRecord(line string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(strings.TrimRight(line, "\r"), recordSeparator)
	if !ok || key == "" {
		return "", "", false
	}
	return key, value, true
}

func (s *FileStore) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

func (s *FileStore) withLock(fn func() error) error {
	return withFileLock(s.path, fn)
}

// atomicWrite replaces the file contents (write temp + rename).
func (s *FileStore) atomicWrite(lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	// Unique per process to avoid races with a concurrent CLI invocation
	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, []byte(b.String()), 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileStore implements domain.Store.
var _ domain.Store = (*FileStore)(nil)
