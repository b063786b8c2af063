package sched

import (
	"errors"
	"time"
)

// JobID identifies a submitted job. IDs are assigned under the scheduler lock,
// strictly increasing, and never reused within a Scheduler instance.
type JobID uint64

// JobFunc is the unit of work. It is opaque to the scheduler; failures are
// signalled by panicking and are contained at the worker boundary.
type JobFunc func()

// Priority breaks ties among jobs that share the same RunAt.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParsePriority maps a config string to a Priority. Empty means Normal.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "", "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	default:
		return PriorityNormal, errors.New("priority must be one of low, normal, high")
	}
}

// ShutdownMode selects how Shutdown treats pending jobs.
type ShutdownMode uint8

const (
	// ShutdownGraceful finishes running and pending jobs, then stops.
	ShutdownGraceful ShutdownMode = iota
	// ShutdownImmediate stops taking new jobs and drops pending jobs.
	ShutdownImmediate
)

func (m ShutdownMode) String() string {
	if m == ShutdownImmediate {
		return "immediate"
	}
	return "graceful"
}

var (
	ErrNotAccepting = errors.New("scheduler not accepting submissions")
	ErrQueueFull    = errors.New("scheduler queue full")
	ErrNilJob       = errors.New("job function is nil")
)

// job is the internal record for one scheduled unit of work.
// runAt, priority and fn are immutable after submission.
type job struct {
	id         JobID
	runAt      time.Time
	priority   Priority
	fn         JobFunc
	enqueuedAt time.Time
}

// JobEvent is published on the event bus for job lifecycle events.
type JobEvent struct {
	ID       JobID         `json:"id"`
	Priority string        `json:"priority"`
	RunAt    time.Time     `json:"run_at"`
	Started  time.Time     `json:"started"`
	Wait     time.Duration `json:"wait"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

const (
	EventJobCompleted = "job.completed"
	EventJobFailed    = "job.failed"
	EventJobSkipped   = "job.skipped"
)
