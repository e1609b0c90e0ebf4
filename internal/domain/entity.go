// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Target identifies one watched application.
type Target struct {
	ID          string // Stable identifier (e.g., "vs2022", "vscode")
	Name        string // Human-readable name for display
	ProcessName string // Process name used for liveness lookup
}

// Answer is the user's reply to an activity check.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// LedgerKey is a key in the closed vocabulary of the time ledger.
type LedgerKey string

const (
	KeyNone        LedgerKey = ""
	KeyTimeCreated LedgerKey = "TimeCreated"
	KeyTotalTime   LedgerKey = "TotalTime"
)

// Known reports whether k is part of the ledger vocabulary.
func (k LedgerKey) Known() bool {
	return k == KeyTimeCreated || k == KeyTotalTime
}

// GuardResult captures what happened during a single activity check.
type GuardResult struct {
	Prompted   bool
	Answer     Answer
	Terminated []string // Target IDs whose processes were asked to terminate
	Errors     []error
	CheckedAt  time.Time
}

// TrackerInstance describes a running tracker process.
type TrackerInstance struct {
	ID            string `json:"id,omitempty"` // Unique per run
	PID           int    `json:"pid"`
	StartedAt     int64  `json:"started_at"`     // Unix seconds
	LastHeartbeat int64  `json:"last_heartbeat"` // Unix seconds
	Version       string `json:"version,omitempty"`
	Ledger        string `json:"ledger,omitempty"` // Ledger location in use
}
