package history

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("history disabled")

// Config configures the run-history store.
//
// Driver values:
//   - "file": dependency-free file backend (jsonl)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", history is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxRecords  int           // file driver compaction bound; 0 means default
}

// RunRecord is one finished job run.
// Keep it compact and schema-stable.
type RunRecord struct {
	JobID      uint64    `json:"job_id"`
	Priority   string    `json:"priority"`
	RunAt      time.Time `json:"run_at"`
	Started    time.Time `json:"started"`
	WaitMS     int64     `json:"wait_ms"`
	DurationMS int64     `json:"duration_ms"`
	Outcome    string    `json:"outcome"` // completed | failed | skipped
	Error      string    `json:"error,omitempty"`
}

// Store is the minimal persistence API used by the recorder and diagnostics.
type Store interface {
	AppendRun(ctx context.Context, r RunRecord) error
	Recent(ctx context.Context, n int) ([]RunRecord, error)
	Close() error
}
