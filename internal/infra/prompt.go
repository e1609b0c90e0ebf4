package infra

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ddobrev25/coding-time-tracker/internal/domain"
)

// ActivityCheckCaption is the default title printed above activity checks.
const ActivityCheckCaption = "Are you still coding?"

// TerminalPrompt asks yes/no questions on a terminal.
// Anything other than y/yes/n/no, an unanswered prompt, or a closed input
// yields AnswerUnknown.
type TerminalPrompt struct {
	// Caption is printed above every question.
	Caption string

	out     io.Writer
	timeout time.Duration

	once  sync.Once
	in    io.Reader
	lines chan string
	eof   bool
}

// NewTerminalPrompt reads answers from in and writes questions to out.
// timeout <= 0 waits until ctx is done.
func NewTerminalPrompt(in io.Reader, out io.Writer, timeout time.Duration) *TerminalPrompt {
	return &TerminalPrompt{
		Caption: ActivityCheckCaption,
		in:      in,
		out:     out,
		timeout: timeout,
		lines:   make(chan string, 1),
	}
}

// Confirm prints message and waits for an answer.
func (p *TerminalPrompt) Confirm(ctx context.Context, message string) (domain.Answer, error) {
	p.once.Do(p.startReader)

	if _, err := fmt.Fprintf(p.out, "\n%s\n%s [y/N]: ", p.Caption, message); err != nil {
		return domain.AnswerUnknown, err
	}

	if p.eof {
		fmt.Fprintln(p.out)
		return domain.AnswerUnknown, nil
	}

	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ctx.Done():
		return domain.AnswerUnknown, ctx.Err()
	case <-timeout:
		fmt.Fprintln(p.out)
		return domain.AnswerUnknown, nil
	case line, ok := <-p.lines:
		if !ok {
			p.eof = true
			return domain.AnswerUnknown, nil
		}
		return ParseAnswer(line), nil
	}
}

// ParseAnswer maps free-form input to an Answer.
func ParseAnswer(s string) domain.Answer {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return domain.AnswerYes
	case "n", "no":
		return domain.AnswerNo
	default:
		return domain.AnswerUnknown
	}
}

// startReader pumps input lines so a timed-out prompt never leaves a blocked read behind.
func (p *TerminalPrompt) startReader() {
	lines := p.lines
	in := p.in
	go func() {
		defer close(lines)
		if in == nil {
			return
		}
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
}

// StaticPrompt answers every question the same way without asking.
// Used for headless runs where no terminal is attached.
type StaticPrompt struct {
	Answer domain.Answer
}

// Confirm returns the configured answer.
func (p StaticPrompt) Confirm(ctx context.Context, _ string) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.AnswerUnknown, err
	}
	return p.Answer, nil
}

var (
	_ domain.UserPrompt = (*TerminalPrompt)(nil)
	_ domain.UserPrompt = StaticPrompt{}
)
