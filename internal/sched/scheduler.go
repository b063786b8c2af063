package sched

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"schedd/internal/eventbus"
	logx "schedd/pkg/logx"
)

// Config controls a Scheduler instance. Both values are fixed for the
// instance's lifetime (the pool never resizes).
type Config struct {
	Workers      int
	MaxQueueSize int
}

// Scheduler is a bounded, time- and priority-ordered work queue serviced by a
// fixed pool of worker goroutines. See the package doc for the full contract.
type Scheduler struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	// mu guards queue, cancelled, accepting, stopWorkers, mode and nextID.
	// cond waiters are the workers; Submit signals one, Shutdown broadcasts.
	mu        sync.Mutex
	cond      *sync.Cond
	queue     readyQueue
	cancelled map[JobID]bool

	accepting   bool
	stopWorkers bool
	mode        ShutdownMode
	nextID      JobID

	workers  sync.WaitGroup
	joinOnce sync.Once

	// Metrics atomics live outside mu so Metrics() and the execution path
	// don't serialize against submissions.
	running     atomic.Int64
	completed   atomic.Uint64
	totalWaitNs atomic.Int64
}

// Metrics is a point-in-time snapshot of scheduler load.
type Metrics struct {
	QueuedJobs  int
	RunningJobs int
	AvgWaitMs   float64
}

// New validates cfg, creates the scheduler and starts its worker pool.
func New(cfg Config, log logx.Logger, bus eventbus.Bus) (*Scheduler, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("sched: workers must be > 0, got %d", cfg.Workers)
	}
	if cfg.MaxQueueSize <= 0 {
		return nil, fmt.Errorf("sched: max queue size must be > 0, got %d", cfg.MaxQueueSize)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	s := &Scheduler{
		cfg:       cfg,
		log:       log,
		bus:       bus,
		cancelled: make(map[JobID]bool),
		accepting: true,
		nextID:    1,
	}
	s.cond = sync.NewCond(&s.mu)

	s.workers.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go s.runWorker(i)
	}
	s.log.Info("scheduler started", logx.Int("workers", cfg.Workers), logx.Int("max_queue", cfg.MaxQueueSize))
	return s, nil
}

// Submit enqueues fn to run no earlier than runAt. It never blocks: if the
// scheduler is shutting down or the queue is at capacity, the job is rejected
// and the caller decides whether to retry, drop or escalate.
//
// On success exactly one worker is woken, matching the one job that became
// runnable.
func (s *Scheduler) Submit(fn JobFunc, runAt time.Time, priority Priority) (JobID, error) {
	if fn == nil {
		return 0, ErrNilJob
	}

	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return 0, ErrNotAccepting
	}
	if s.queue.Len() >= s.cfg.MaxQueueSize {
		qlen := s.queue.Len()
		s.mu.Unlock()
		s.log.Warn("submission rejected: queue full", logx.Int("queue_len", qlen), logx.Int("max_queue", s.cfg.MaxQueueSize))
		return 0, ErrQueueFull
	}

	id := s.nextID
	s.nextID++
	s.queue.push(&job{
		id:         id,
		runAt:      runAt,
		priority:   priority,
		fn:         fn,
		enqueuedAt: time.Now(),
	})
	qlen := s.queue.Len()
	s.mu.Unlock()

	s.cond.Signal()
	s.log.Debug("job submitted", logx.Uint64("id", uint64(id)), logx.String("priority", priority.String()), logx.Time("run_at", runAt), logx.Int("queue_len", qlen))
	return id, nil
}

// Cancel marks id as cancelled. The queue is not searched; the job is skipped
// when a worker pops it (lazy cancellation). Cancelling an unknown,
// already-run or already-cancelled id is an idempotent no-op.
//
// Returns false once the scheduler has stopped accepting submissions.
func (s *Scheduler) Cancel(id JobID) bool {
	s.mu.Lock()
	if !s.accepting {
		s.mu.Unlock()
		return false
	}
	s.cancelled[id] = true
	s.mu.Unlock()

	s.log.Debug("job cancelled", logx.Uint64("id", uint64(id)))
	return true
}

// Shutdown stops the scheduler and blocks until every worker has exited.
//
// Immediate drops all pending jobs (they never run and are never reported);
// a job currently executing finishes. Graceful leaves the queue intact and
// lets workers drain it, waiting for future-dated jobs to become due; the
// first worker to observe empty-and-draining flips the stop flag and wakes
// its peers.
//
// Shutdown is one-shot: later calls (with either mode) only wait for the
// workers to finish.
func (s *Scheduler) Shutdown(mode ShutdownMode) {
	s.mu.Lock()
	if s.accepting {
		s.accepting = false
		s.mode = mode
		s.log.Info("shutdown requested", logx.String("mode", mode.String()), logx.Int("queue_len", s.queue.Len()))

		if mode == ShutdownImmediate {
			dropped := s.queue.Len()
			s.queue.clear()
			// Pending cancellations can never resolve once the queue is gone.
			clear(s.cancelled)
			s.stopWorkers = true
			if dropped > 0 {
				s.log.Info("immediate shutdown: pending jobs dropped", logx.Int("dropped", dropped))
			}
		} else if s.queue.Len() == 0 {
			// Already drained: graceful shutdown can stop right away.
			s.stopWorkers = true
		}
	}
	s.mu.Unlock()

	s.cond.Broadcast()
	s.workers.Wait()
	s.joinOnce.Do(func() {
		s.log.Info("scheduler stopped", logx.Uint64("completed", s.completed.Load()))
	})
}

// Close shuts the scheduler down immediately. It exists so callers that never
// shut down explicitly can defer cleanup without leaking workers.
func (s *Scheduler) Close() error {
	s.Shutdown(ShutdownImmediate)
	return nil
}

// Metrics returns current queue depth, running-job count and the average wait
// (submission to start of execution) of completed jobs in milliseconds.
// AvgWaitMs is 0 until the first job completes.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	queued := s.queue.Len()
	s.mu.Unlock()

	m := Metrics{
		QueuedJobs:  queued,
		RunningJobs: int(s.running.Load()),
	}
	if completed := s.completed.Load(); completed > 0 {
		m.AvgWaitMs = float64(s.totalWaitNs.Load()) / float64(completed) / 1e6
	}
	return m
}
