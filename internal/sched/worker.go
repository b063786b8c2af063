package sched

import (
	"fmt"
	"runtime/debug"
	"time"

	"schedd/internal/eventbus"
	logx "schedd/pkg/logx"
)

// runWorker is one pool goroutine. Each iteration takes the next eligible job
// under the lock, releases the lock, and executes the job in isolation.
func (s *Scheduler) runWorker(idx int) {
	defer s.workers.Done()

	log := s.log.With(logx.Int("worker", idx))
	log.Debug("worker started")

	for {
		s.mu.Lock()
		j, ok := s.nextJobLocked(log)
		s.mu.Unlock()
		if !ok {
			log.Debug("worker stopped")
			return
		}
		s.execute(j, log)
	}
}

// nextJobLocked blocks until a job is ready to run or a stop condition fires.
// Call with s.mu held; returns with s.mu held. ok=false means the worker must
// exit.
func (s *Scheduler) nextJobLocked(log logx.Logger) (j *job, ok bool) {
	for {
		if s.stopWorkers {
			return nil, false
		}

		if s.queue.Len() == 0 {
			if !s.accepting && s.mode == ShutdownGraceful {
				// Drain complete. First worker here flips the terminal flag
				// and wakes its peers so they observe it too.
				s.stopWorkers = true
				s.cond.Broadcast()
				log.Debug("graceful stop: queue drained")
				return nil, false
			}
			s.cond.Wait()
			continue
		}

		head := s.queue.peek()
		now := time.Now()
		if head.runAt.After(now) {
			// Sleep until the head becomes due. An earlier submission or a
			// shutdown will wake us sooner; either way re-evaluate from the top.
			s.waitUntilLocked(head.runAt)
			continue
		}

		j = s.queue.pop()
		if s.cancelled[j.id] {
			delete(s.cancelled, j.id)
			log.Debug("skipping cancelled job", logx.Uint64("id", uint64(j.id)))
			if s.bus != nil {
				s.bus.Publish(eventbus.Event{Type: EventJobSkipped, Data: JobEvent{
					ID: j.id, Priority: j.priority.String(), RunAt: j.runAt, Error: "cancelled",
				}})
			}
			continue
		}
		return j, true
	}
}

// waitUntilLocked waits on the condvar with a deadline. sync.Cond has no timed
// wait, so a timer broadcasts when the deadline elapses. The timer callback
// takes s.mu before broadcasting; since the caller holds s.mu until cond.Wait
// releases it, the wakeup cannot be lost.
func (s *Scheduler) waitUntilLocked(deadline time.Time) {
	t := time.AfterFunc(time.Until(deadline), func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	s.cond.Wait()
	t.Stop()
}

// execute runs one job outside the lock. A panicking job is contained here:
// it is logged and reported on the bus, and never takes the worker down.
func (s *Scheduler) execute(j *job, log logx.Logger) {
	s.running.Add(1)
	start := time.Now()
	wait := start.Sub(j.enqueuedAt)
	if wait < 0 {
		wait = 0
	}

	err, stack := runIsolated(j.fn)

	dur := time.Since(start)
	s.totalWaitNs.Add(int64(wait))
	s.completed.Add(1)
	s.running.Add(-1)

	ev := JobEvent{
		ID:       j.id,
		Priority: j.priority.String(),
		RunAt:    j.runAt,
		Started:  start,
		Wait:     wait,
		Duration: dur,
	}
	if err != nil {
		ev.Error = err.Error()
		log.Error("job failed", logx.Uint64("id", uint64(j.id)), logx.Err(err), logx.Duration("wait", wait), logx.Duration("dur", dur), logx.Stack(stack))
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: EventJobFailed, Data: ev})
		}
		return
	}

	log.Debug("job completed", logx.Uint64("id", uint64(j.id)), logx.Duration("wait", wait), logx.Duration("dur", dur))
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: EventJobCompleted, Data: ev})
	}
}

// runIsolated invokes fn and converts a panic into an error so one bad job
// can't crash the process or permanently kill a worker.
func runIsolated(fn JobFunc) (err error, stack string) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			stack = string(debug.Stack())
		}
	}()
	fn()
	return nil, ""
}
