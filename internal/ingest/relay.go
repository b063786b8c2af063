package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/time/rate"

	"schedd/internal/sched"
	logx "schedd/pkg/logx"
)

// Submitter is the slice of the scheduler the relay needs.
type Submitter interface {
	Submit(fn sched.JobFunc, runAt time.Time, priority sched.Priority) (sched.JobID, error)
}

// Sink receives forwarded records. Deliver is called from scheduler workers,
// so implementations must be safe for concurrent use. End is delivered as the
// final job after all records.
type Sink interface {
	Deliver(rec Record) error
	End() error
}

// PrintSink writes formatted records to a writer (the consumer side of the
// original pipeline: poll and print).
type PrintSink struct {
	W io.Writer
}

func (p PrintSink) Deliver(rec Record) error {
	_, err := fmt.Fprintln(p.W, rec.Format())
	return err
}

func (p PrintSink) End() error {
	_, err := fmt.Fprintln(p.W, "end of stream")
	return err
}

type Config struct {
	Path       string
	RatePerSec int            // 0 disables rate limiting
	Priority   sched.Priority // priority of submitted jobs
}

// Stats counts one relay pass.
type Stats struct {
	Valid   int
	Invalid int
	Dropped int // rejected by backpressure after retries
}

// Relay is the producer: it parses the input and feeds decode-and-forward
// jobs into the scheduler.
type Relay struct {
	cfg  Config
	sub  Submitter
	sink Sink
	log  logx.Logger
	lim  *rate.Limiter
}

const (
	submitRetries    = 3
	submitRetryDelay = 50 * time.Millisecond
)

func NewRelay(cfg Config, sub Submitter, sink Sink, log logx.Logger) *Relay {
	if log.IsZero() {
		log = logx.Nop()
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return &Relay{cfg: cfg, sub: sub, sink: sink, log: log, lim: lim}
}

// Run reads cfg.Path to EOF, submitting one job per valid record, then an
// end-of-stream job. It blocks only on the rate limiter and backpressure
// retries, never on job execution.
func (r *Relay) Run(ctx context.Context) error {
	f, err := os.Open(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	stats, err := r.relay(ctx, f)
	r.log.Info("ingest finished",
		logx.Int("valid", stats.Valid),
		logx.Int("invalid", stats.Invalid),
		logx.Int("dropped", stats.Dropped),
	)
	return err
}

func (r *Relay) relay(ctx context.Context, src io.Reader) (Stats, error) {
	var stats Stats

	sc := bufio.NewScanner(src)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			stats.Invalid++
			r.log.Warn("skipping malformed line", logx.Int("line", lineNo), logx.Err(err))
			continue
		}

		if r.lim != nil {
			if err := r.lim.Wait(ctx); err != nil {
				return stats, err
			}
		}

		if err := r.submit(ctx, func() { _ = r.sink.Deliver(rec) }); err != nil {
			if errors.Is(err, sched.ErrQueueFull) {
				stats.Dropped++
				r.log.Warn("record dropped: scheduler queue full", logx.Int("line", lineNo))
				continue
			}
			if errors.Is(err, sched.ErrNotAccepting) {
				// Shutdown raced the relay. The remaining input is abandoned;
				// this is an ordinary end-of-run, not a failure.
				r.log.Info("scheduler shutting down; ending ingest", logx.Int("line", lineNo))
				return stats, nil
			}
			return stats, err
		}
		stats.Valid++
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read data file: %w", err)
	}

	// In-band terminator. Backpressure and shutdown both mean the consumer
	// side is gone or saturated; neither fails the run.
	if err := r.submit(ctx, func() { _ = r.sink.End() }); err != nil &&
		!errors.Is(err, sched.ErrQueueFull) && !errors.Is(err, sched.ErrNotAccepting) {
		return stats, err
	}
	return stats, nil
}

// submit pushes one immediately-eligible job at the configured priority,
// retrying briefly on backpressure. ErrQueueFull is returned once retries are
// exhausted.
func (r *Relay) submit(ctx context.Context, fn sched.JobFunc) error {
	for attempt := 0; ; attempt++ {
		_, err := r.sub.Submit(fn, time.Now(), r.cfg.Priority)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sched.ErrQueueFull) || attempt >= submitRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(submitRetryDelay):
		}
	}
}
