// Package history persists one record per finished job run.
//
// It currently supports:
//   - A dependency-free file backend (JSON Lines with bounded compaction)
//   - SQLite (optional build tag "sqlite")
//
// Only finished runs are recorded (completed, failed, or skipped-as-cancelled);
// queued jobs are never persisted, so the scheduler's queue state does not
// survive a restart.
package history
