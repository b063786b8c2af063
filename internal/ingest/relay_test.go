package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"schedd/internal/sched"
	logx "schedd/pkg/logx"
)

// collectSink records deliveries in order; safe for concurrent use.
type collectSink struct {
	mu    sync.Mutex
	recs  []Record
	ended bool
}

func (c *collectSink) Deliver(rec Record) error {
	c.mu.Lock()
	c.recs = append(c.recs, rec)
	c.mu.Unlock()
	return nil
}

func (c *collectSink) End() error {
	c.mu.Lock()
	c.ended = true
	c.mu.Unlock()
	return nil
}

func TestRelayEndToEnd(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.txt")
	data := "" +
		"1,t1,50.0,ON,OK\n" +
		"\n" + // blank lines are skipped silently
		"garbage line\n" +
		"2,t2,60.0,0,ENGINE_OVERHEAT\n" +
		"3,t3,oops,ON,OK\n" +
		"4,t4,70.0,1,SENSOR_FAILURE\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write data: %v", err)
	}

	s, err := sched.New(sched.Config{Workers: 1, MaxQueueSize: 64}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}

	sink := &collectSink{}
	relay := NewRelay(Config{Path: path, Priority: sched.PriorityNormal}, s, sink, logx.Nop())
	if err := relay.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Drain everything the relay submitted.
	s.Shutdown(sched.ShutdownGraceful)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.recs) != 3 {
		t.Fatalf("delivered %d records, want 3: %+v", len(sink.recs), sink.recs)
	}
	// Single worker + equal priority: records arrive in submission order.
	wantIDs := []int{1, 2, 4}
	for i, id := range wantIDs {
		if sink.recs[i].VehicleID != id {
			t.Fatalf("record %d has vehicle id %d, want %d", i, sink.recs[i].VehicleID, id)
		}
	}
	if !sink.ended {
		t.Fatal("end-of-stream was not delivered")
	}
}

func TestRelayStatsCountInvalid(t *testing.T) {
	t.Parallel()

	s, err := sched.New(sched.Config{Workers: 1, MaxQueueSize: 64}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	relay := NewRelay(Config{Priority: sched.PriorityNormal}, s, &collectSink{}, logx.Nop())

	src := "1,t1,50.0,ON,OK\nbroken\n2,t2,60.0,ON,OK\n"
	stats, err := relay.relay(context.Background(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if stats.Valid != 2 || stats.Invalid != 1 || stats.Dropped != 0 {
		t.Fatalf("stats = %+v, want {Valid:2 Invalid:1 Dropped:0}", stats)
	}
}

func TestRelayEndsCleanlyWhenSchedulerShutsDown(t *testing.T) {
	t.Parallel()

	s, err := sched.New(sched.Config{Workers: 1, MaxQueueSize: 64}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	s.Shutdown(sched.ShutdownGraceful)

	// A shutdown arriving mid-stream must read as end-of-run, not as a
	// fatal relay error that takes the daemon down with exit 1.
	relay := NewRelay(Config{Priority: sched.PriorityNormal}, s, &collectSink{}, logx.Nop())
	stats, err := relay.relay(context.Background(), strings.NewReader("1,t1,50.0,ON,OK\n2,t2,60.0,ON,OK\n"))
	if err != nil {
		t.Fatalf("relay should end cleanly on shutdown, got: %v", err)
	}
	if stats.Valid != 0 {
		t.Fatalf("stats = %+v, want no records accepted", stats)
	}
}

func TestRelayDropsOnSustainedBackpressure(t *testing.T) {
	t.Parallel()

	s, err := sched.New(sched.Config{Workers: 1, MaxQueueSize: 1}, logx.Nop(), nil)
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	// Wedge the worker and fill the single queue slot so every further
	// submission hits backpressure.
	release := make(chan struct{})
	if _, err := s.Submit(func() { <-release }, time.Now(), sched.PriorityNormal); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for s.Metrics().RunningJobs != 1 {
		if time.Now().After(deadline) {
			t.Fatal("blocker did not start")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := s.Submit(func() {}, time.Now().Add(time.Hour), sched.PriorityNormal); err != nil {
		t.Fatalf("Submit filler: %v", err)
	}

	relay := NewRelay(Config{Priority: sched.PriorityNormal}, s, &collectSink{}, logx.Nop())
	stats, err := relay.relay(context.Background(), strings.NewReader("1,t1,50.0,ON,OK\n"))
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if stats.Dropped != 1 || stats.Valid != 0 {
		t.Fatalf("stats = %+v, want the record dropped", stats)
	}
	close(release)
}
