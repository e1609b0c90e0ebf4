package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

var errStoreDown = errors.New("store unavailable")

// mockPresence implements domain.ProcessPresence for testing
type mockPresence struct {
	mu           sync.Mutex
	running      map[string]bool
	queryErr     map[string]error
	terminateErr map[string]error
	terminated   []string
}

func newMockPresence(running ...string) *mockPresence {
	m := &mockPresence{
		running:      make(map[string]bool),
		queryErr:     make(map[string]error),
		terminateErr: make(map[string]error),
	}
	for _, name := range running {
		m.running[name] = true
	}
	return m
}

func (m *mockPresence) IsRunning(name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.queryErr[name]; err != nil {
		return false, err
	}
	return m.running[name], nil
}

func (m *mockPresence) Terminate(name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.terminateErr[name]; err != nil {
		return 0, err
	}
	m.terminated = append(m.terminated, name)
	if !m.running[name] {
		return 0, nil
	}
	m.running[name] = false
	return 1, nil
}

func (m *mockPresence) set(name string, running bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[name] = running
}

func (m *mockPresence) terminatedNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.terminated...)
}

// memStore implements domain.Store in memory for testing
type memStore struct {
	mu       sync.Mutex
	records  map[string]string
	created  bool
	writeErr error
	writes   int
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]string)}
}

func (s *memStore) Read(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[key]
	return v, ok, nil
}

func (s *memStore) Write(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.records[key] = value
	s.writes++
	return nil
}

func (s *memStore) Remove(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	delete(s.records, key)
	return ok, nil
}

func (s *memStore) Create(seedKey, seedValue string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.created {
		return false, nil
	}
	s.created = true
	s.records[seedKey] = seedValue
	return true, nil
}

func (s *memStore) Location() string { return "memory" }
func (s *memStore) Close() error     { return nil }

func (s *memStore) failWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

func (s *memStore) get(key domain.LedgerKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.records[string(key)]
	return v, ok
}

// scriptedPrompt implements domain.UserPrompt for testing
type scriptedPrompt struct {
	mu       sync.Mutex
	answer   domain.Answer
	err      error
	asked    int
	messages []string
}

func (p *scriptedPrompt) Confirm(_ context.Context, message string) (domain.Answer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked++
	p.messages = append(p.messages, message)
	return p.answer, p.err
}

func (p *scriptedPrompt) timesAsked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asked
}

// recordingMetrics implements domain.Metrics for testing
type recordingMetrics struct {
	mu            sync.Mutex
	activeSamples int
	idleSamples   int
	flushedTotal  time.Duration
	failedFlushes int
	checks        []domain.GuardResult
}

func (m *recordingMetrics) ObserveSample(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if active {
		m.activeSamples++
	} else {
		m.idleSamples++
	}
}

func (m *recordingMetrics) ObserveFlush(added, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failedFlushes++
		return
	}
	m.flushedTotal += added
}

func (m *recordingMetrics) ObserveCheck(result domain.GuardResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, result)
}

func (m *recordingMetrics) active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeSamples
}
