// Package app wires the daemon together: config, logging, event bus, the
// scheduler core, recurring triggers, the ingest relay and the run-history
// recorder.
package app

import (
	"context"
	"strings"
	"time"

	"schedd/internal/config"
	"schedd/internal/eventbus"
	"schedd/internal/history"
	"schedd/internal/ingest"
	"schedd/internal/recur"
	"schedd/internal/runtime/supervisor"
	"schedd/internal/sched"
	logx "schedd/pkg/logx"
)

const metricsReportSchedule = "metrics.report"

type App struct {
	cfgm *config.Manager
	sup  *supervisor.Supervisor

	logs *logx.Service
	log  logx.Logger

	bus   eventbus.Bus
	store history.Store
	sched *sched.Scheduler
	trig  *recur.Service
	relay *ingest.Relay
}

// New loads the config and constructs every component. Nothing runs until
// Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console == nil || *cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	store, err := openStore(cfg, log)
	if err != nil {
		logs.Close()
		return nil, err
	}

	schedSvc, err := sched.New(sched.Config{
		Workers:      cfg.Scheduler.Workers,
		MaxQueueSize: cfg.Scheduler.MaxQueueSize,
	}, log.With(logx.String("comp", "sched")), bus)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		logs.Close()
		return nil, err
	}

	a := &App{
		cfgm:  cfgm,
		logs:  logs,
		log:   log.With(logx.String("comp", "app")),
		bus:   bus,
		store: store,
		sched: schedSvc,
		trig:  recur.New(recur.Config{}, schedSvc, log.With(logx.String("comp", "recur"))),
	}

	if cfg.Ingest != nil && cfg.Ingest.Enabled {
		prio, err := sched.ParsePriority(strings.ToLower(strings.TrimSpace(cfg.Ingest.Priority)))
		if err != nil {
			_ = a.sched.Close()
			if store != nil {
				_ = store.Close()
			}
			logs.Close()
			return nil, err
		}
		a.relay = ingest.NewRelay(ingest.Config{
			Path:       cfg.Ingest.Path,
			RatePerSec: cfg.Ingest.RatePerSec,
			Priority:   prio,
		}, schedSvc, ingest.PrintSink{W: logx.Stdout()}, log.With(logx.String("comp", "ingest")))
	}

	return a, nil
}

func openStore(cfg *config.Config, log logx.Logger) (history.Store, error) {
	if cfg.History == nil {
		return nil, nil
	}
	busy, err := config.ParseDurationField("history.busy_timeout", cfg.History.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return history.Open(history.Config{
		Driver:      cfg.History.Driver,
		Path:        cfg.History.Path,
		BusyTimeout: busy,
		MaxRecords:  cfg.History.MaxRecords,
	}, log.With(logx.String("comp", "history")))
}

// Scheduler exposes the core for embedding callers (tests, future APIs).
func (a *App) Scheduler() *sched.Scheduler { return a.sched }

// Triggers exposes the recurring-submission service so callers can register
// their own schedules before Start.
func (a *App) Triggers() *recur.Service { return a.trig }

// Done is closed when the app run context ends.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log),
		supervisor.WithCancelOnError(true),
	)

	if a.store != nil {
		rec := history.NewRecorder(a.store, a.log.With(logx.String("comp", "history")))
		a.sup.Go("history.record", func(c context.Context) error {
			return rec.Run(c, a.bus)
		})
	}

	if spec := strings.TrimSpace(a.cfgm.Get().Metrics.ReportSchedule); spec != "" {
		if err := a.registerMetricsReport(spec); err != nil {
			return err
		}
	}
	a.trig.Start()

	if a.relay != nil {
		a.sup.Go("ingest.relay", func(c context.Context) error {
			return a.relay.Run(c)
		})
	}

	// Hot reload: only logging is live-adjustable. Worker count and queue
	// size are fixed for the process lifetime.
	sub := a.cfgm.Subscribe(4)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.applyReload(cfg)
			}
		}
	})
	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("started",
		logx.Int("workers", a.cfgm.Get().Scheduler.Workers),
		logx.Int("max_queue_size", a.cfgm.Get().Scheduler.MaxQueueSize),
	)
	return nil
}

func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console == nil || *cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if spec := strings.TrimSpace(cfg.Metrics.ReportSchedule); spec != "" {
		if err := a.registerMetricsReport(spec); err != nil {
			a.log.Warn("metrics report schedule rejected", logx.Err(err))
		}
	} else {
		a.trig.Remove(metricsReportSchedule)
	}
	a.log.Info("config applied", logx.String("level", cfg.Logging.Level))
}

func (a *App) registerMetricsReport(schedule string) error {
	return a.trig.Add(metricsReportSchedule, schedule, sched.PriorityLow, func() {
		m := a.sched.Metrics()
		a.log.Info("metrics",
			logx.Int("queued", m.QueuedJobs),
			logx.Int("running", m.RunningJobs),
			logx.Float64("avg_wait_ms", m.AvgWaitMs),
			logx.Uint64("events_dropped", a.bus.Dropped()),
		)
	})
}

// ForceImmediate flips an in-progress graceful shutdown to immediate,
// dropping all pending jobs.
func (a *App) ForceImmediate() {
	a.log.Warn("forcing immediate shutdown")
	a.sched.Shutdown(sched.ShutdownImmediate)
}

// Stop shuts the daemon down: triggers first so nothing new is submitted,
// then the scheduler in the given mode, then the supervised loops and the
// store. ctx bounds the wait for supervised goroutines only; a graceful
// scheduler shutdown drains fully.
func (a *App) Stop(ctx context.Context, mode sched.ShutdownMode) error {
	start := time.Now()
	a.log.Info("stopping", logx.String("mode", mode.String()))

	a.trig.Stop(ctx)
	a.sched.Shutdown(mode)

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}

	a.log.Info("stopped", logx.Duration("took", time.Since(start)))
	a.logs.Close()
	return err
}
