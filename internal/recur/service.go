package recur

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"schedd/internal/sched"
	logx "schedd/pkg/logx"
)

// Submitter is the slice of the scheduler the trigger service needs.
type Submitter interface {
	Submit(fn sched.JobFunc, runAt time.Time, priority sched.Priority) (sched.JobID, error)
}

// Config controls the trigger service.
type Config struct {
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"; empty means local time
}

type scheduleDef struct {
	name     string
	spec     string // cron spec or @every
	priority sched.Priority
	fn       sched.JobFunc
	entryID  cron.EntryID
}

// Service owns a cron runner and translates ticks into scheduler submissions.
// It is trigger-only: execution, ordering, and backpressure live in the
// scheduler.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	sub Submitter

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	// submit error throttling, keyed by schedule name
	warnMu   sync.Mutex
	lastWarn map[string]time.Time
}

func New(cfg Config, sub Submitter, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		sub: sub,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser:   cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		lastWarn: map[string]time.Time{},
	}
}

// Add parses schedule and registers a recurring submission under name,
// replacing any existing schedule with the same name.
func (s *Service) Add(name, schedule string, priority sched.Priority, fn sched.JobFunc) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("name required")
	}
	if fn == nil {
		return sched.ErrNilJob
	}
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	spec := ps.Cron
	if ps.Kind == SpecInterval {
		spec = fmt.Sprintf("@every %s", ps.Every.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert by name to prevent duplicates across hot-reloads.
	s.removeLocked(name)
	s.defs = append(s.defs, scheduleDef{name: name, spec: spec, priority: priority, fn: fn})
	if s.c != nil {
		if err := s.registerLocked(&s.defs[len(s.defs)-1]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", name), logx.String("spec", spec), logx.Err(err))
			return err
		}
		s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec))
	}
	// Not started yet: keep the definition and register when Start() runs.
	return nil
}

// Remove unschedules the named submission. It returns true if something was
// removed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	removed := s.removeLocked(name)
	s.mu.Unlock()
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

// Names returns the registered schedule names, for diagnostics.
func (s *Service) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d.name)
	}
	return out
}

// Start begins cron triggering and registers any definitions added before
// startup. Calling Start twice is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	loc := s.loadLocationLocked()
	s.loc = loc
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))
	for i := range s.defs {
		if err := s.registerLocked(&s.defs[i]); err != nil {
			s.log.Error("schedule register failed",
				logx.String("name", s.defs[i].name), logx.String("spec", s.defs[i].spec), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("triggers started", logx.String("tz", loc.String()), logx.Int("schedules", len(s.defs)))
}

// Stop stops cron triggering and waits for in-flight trigger callbacks, or
// until ctx expires. Definitions are kept so Start can resume them.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	for i := range s.defs {
		s.defs[i].entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("triggers stopped")
}

func (s *Service) removeLocked(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// registerLocked adds the definition to the running cron instance. Call with
// s.mu held and s.c non-nil.
func (s *Service) registerLocked(d *scheduleDef) error {
	name, priority, fn := d.name, d.priority, d.fn
	eid, err := s.c.AddJob(d.spec, cron.FuncJob(func() {
		if _, err := s.sub.Submit(fn, time.Now(), priority); err != nil {
			s.reportSubmitError(name, err)
		}
	}))
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

// reportSubmitError logs rejected trigger submissions, at most once per
// schedule per minute so a wedged queue does not flood the log.
func (s *Service) reportSubmitError(name string, err error) {
	s.warnMu.Lock()
	last := s.lastWarn[name]
	now := time.Now()
	throttled := now.Sub(last) < time.Minute
	if !throttled {
		s.lastWarn[name] = now
	}
	s.warnMu.Unlock()
	if throttled {
		return
	}
	s.log.Warn("trigger submission rejected", logx.String("name", name), logx.Err(err))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
