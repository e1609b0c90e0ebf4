// Package fixtures provides test doubles shared by package and integration tests.
package fixtures

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// FakePresence is an in-memory process table.
type FakePresence struct {
	mu         sync.Mutex
	running    map[string]int
	terminated []string
}

// NewFakePresence creates a process table with one process per name.
func NewFakePresence(running ...string) *FakePresence {
	f := &FakePresence{running: make(map[string]int)}
	for _, name := range running {
		f.running[strings.ToLower(name)]++
	}
	return f
}

// Launch starts one more process named name.
func (f *FakePresence) Launch(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running[strings.ToLower(name)]++
}

// Exit ends every process named name.
func (f *FakePresence) Exit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, strings.ToLower(name))
}

// IsRunning implements domain.ProcessPresence.
func (f *FakePresence) IsRunning(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[strings.ToLower(name)] > 0, nil
}

// Terminate implements domain.ProcessPresence.
func (f *FakePresence) Terminate(name string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.ToLower(name)
	n := f.running[key]
	delete(f.running, key)
	f.terminated = append(f.terminated, key)
	return n, nil
}

// Terminated returns the names passed to Terminate, in order.
func (f *FakePresence) Terminated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.terminated...)
}

// QueuedPrompt answers from a queue, then falls back to Default.
type QueuedPrompt struct {
	mu      sync.Mutex
	queue   []domain.Answer
	Default domain.Answer
	asked   int
}

// NewQueuedPrompt creates a prompt that returns answers in order.
func NewQueuedPrompt(answers ...domain.Answer) *QueuedPrompt {
	return &QueuedPrompt{queue: answers}
}

// Confirm implements domain.UserPrompt.
func (p *QueuedPrompt) Confirm(ctx context.Context, _ string) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnswerUnknown, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked++
	if len(p.queue) == 0 {
		return p.Default, nil
	}
	a := p.queue[0]
	p.queue = p.queue[1:]
	return a, nil
}

// Asked returns how many questions were asked.
func (p *QueuedPrompt) Asked() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.asked
}

// LedgerFile returns a ledger path inside a fresh temporary directory.
func LedgerFile() (path string, cleanup func(), err error) {
	dir, err := os.MkdirTemp("", "cttrack-test-*")
	if err != nil {
		return "", nil, err
	}
	return filepath.Join(dir, "file.cttf"), func() { os.RemoveAll(dir) }, nil
}

var (
	_ domain.ProcessPresence = (*FakePresence)(nil)
	_ domain.UserPrompt      = (*QueuedPrompt)(nil)
)
