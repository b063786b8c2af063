package history

import (
	"context"

	"schedd/internal/eventbus"
	"schedd/internal/sched"
	logx "schedd/pkg/logx"
)

// Recorder turns job lifecycle events into persisted run records.
// It is the only writer of the store during normal operation.
type Recorder struct {
	store Store
	log   logx.Logger
}

func NewRecorder(store Store, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{store: store, log: log}
}

// Run consumes bus events until ctx is cancelled. Append failures are logged
// and dropped; history must never block or fail the scheduler.
func (r *Recorder) Run(ctx context.Context, bus eventbus.Bus) error {
	if r.store == nil || bus == nil {
		<-ctx.Done()
		return nil
	}

	events, unsub := bus.Subscribe(256)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			rec, ok := toRunRecord(e)
			if !ok {
				continue
			}
			if err := r.store.AppendRun(ctx, rec); err != nil && ctx.Err() == nil {
				r.log.Warn("history append failed", logx.Uint64("job_id", rec.JobID), logx.Err(err))
			}
		}
	}
}

func toRunRecord(e eventbus.Event) (RunRecord, bool) {
	je, ok := e.Data.(sched.JobEvent)
	if !ok {
		return RunRecord{}, false
	}

	var outcome string
	switch e.Type {
	case sched.EventJobCompleted:
		outcome = "completed"
	case sched.EventJobFailed:
		outcome = "failed"
	case sched.EventJobSkipped:
		outcome = "skipped"
	default:
		return RunRecord{}, false
	}

	return RunRecord{
		JobID:      uint64(je.ID),
		Priority:   je.Priority,
		RunAt:      je.RunAt,
		Started:    je.Started,
		WaitMS:     je.Wait.Milliseconds(),
		DurationMS: je.Duration.Milliseconds(),
		Outcome:    outcome,
		Error:      je.Error,
	}, true
}
