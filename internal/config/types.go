package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`

	// History persists a record per finished job run.
	// Queued jobs are never persisted.
	History *HistoryConfig `json:"history,omitempty"`

	// Ingest relays delimited telemetry records into the scheduler.
	Ingest *IngestConfig `json:"ingest,omitempty"`

	Metrics MetricsConfig `json:"metrics,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// SchedulerConfig sizes the worker pool and the bounded ready queue.
// Both are fixed for the process lifetime; hot reload does not touch them.
type SchedulerConfig struct {
	Workers      int `json:"workers,omitempty"`
	MaxQueueSize int `json:"max_queue_size,omitempty"`
}

// HistoryConfig configures the run-history store.
//
// Driver values:
//   - "file": dependency-free JSONL backend
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", history is disabled.
type HistoryConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	MaxRecords  int    `json:"max_records,omitempty"`  // file driver compaction bound
}

// IngestConfig configures the telemetry ingest relay.
//
// Each valid record in Path becomes one decode-and-forward job submitted to
// the scheduler at Priority. RatePerSec bounds the producer side; 0 disables
// rate limiting.
type IngestConfig struct {
	Enabled    bool   `json:"enabled,omitempty"`
	Path       string `json:"path,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// MetricsConfig controls periodic metrics reporting (logged snapshots).
// ReportSchedule accepts the formats documented in internal/recur.
type MetricsConfig struct {
	ReportSchedule string `json:"report_schedule,omitempty"`
}

// Defaults (when fields are omitted/zero):
//   - logging.level: "INFO", console on
//   - scheduler.workers: 4
//   - scheduler.max_queue_size: 256
//   - ingest.rate_per_sec: 0 (unlimited)
//   - metrics.report_schedule: "" (disabled)
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Console == nil {
		on := true
		c.Logging.Console = &on
	}
	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = 4
	}
	if c.Scheduler.MaxQueueSize == 0 {
		c.Scheduler.MaxQueueSize = 256
	}
}

// Validate rejects configs the daemon could not start with. It is also used
// by the watcher before publishing a reloaded config.
func (c *Config) Validate() error {
	// Zero is indistinguishable from "omitted" for these ints, so it means
	// "use the default" (applied before validation); only negatives are bad.
	if c.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers: cannot be negative, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.MaxQueueSize < 0 {
		return fmt.Errorf("scheduler.max_queue_size: cannot be negative, got %d", c.Scheduler.MaxQueueSize)
	}
	if c.History != nil {
		switch d := strings.ToLower(strings.TrimSpace(c.History.Driver)); d {
		case "", "none", "file", "sqlite":
		default:
			return fmt.Errorf("history.driver: unknown driver %q", d)
		}
		if _, err := ParseDurationField("history.busy_timeout", c.History.BusyTimeout); err != nil {
			return err
		}
	}
	if c.Ingest != nil && c.Ingest.Enabled {
		if strings.TrimSpace(c.Ingest.Path) == "" {
			return fmt.Errorf("ingest.path: required when ingest is enabled")
		}
		if c.Ingest.RatePerSec < 0 {
			return fmt.Errorf("ingest.rate_per_sec: must be >= 0, got %d", c.Ingest.RatePerSec)
		}
		switch strings.ToLower(strings.TrimSpace(c.Ingest.Priority)) {
		case "", "low", "normal", "high":
		default:
			return fmt.Errorf("ingest.priority: must be one of low, normal, high")
		}
	}
	return nil
}
