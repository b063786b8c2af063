// Package sched implements schedd's time- and priority-ordered job scheduler.
//
// # Overview
//
// A Scheduler owns a bounded ready queue serviced by a fixed pool of worker
// goroutines. Jobs are submitted with an eligibility time (RunAt) and a
// priority; workers pick the earliest eligible job, breaking RunAt ties by
// priority (High first) and then by submission order. Producers never block:
// Submit either succeeds or returns a rejection synchronously (backpressure).
//
// # Cancellation
//
// Cancellation is lazy: Cancel marks the id in a registry without touching
// the queue, and the job is discarded when a worker pops it. This avoids O(n)
// removal from the heap. A job that has already started executing is not
// interrupted.
//
// # Shutdown
//
// Shutdown(ShutdownGraceful) stops accepting work and drains the queue,
// including jobs whose RunAt has not yet elapsed (workers wait for them to
// become due). Shutdown(ShutdownImmediate) drops all pending jobs; a job
// already mid-execution finishes. Both block until every worker has exited.
//
// # Locking
//
// One mutex/condvar pair guards the queue, the cancellation registry and the
// shutdown flags. This coarse lock is a deliberate simplicity-over-contention
// trade-off: it is held only while inspecting or mutating the queue, never
// while a job executes. Running/completed counters and accumulated wait time
// are independent atomics so Metrics() stays cheap on the hot path.
package sched
