package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	done := make(chan struct{})
	s.Go0("sleeper", func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-done:
	default:
		t.Fatal("Stop returned before the goroutine exited")
	}
}

func TestFirstErrorCancels(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))
	boom := errors.New("boom")
	s.Go("failing", func(ctx context.Context) error { return boom })
	s.Go0("follower", func(ctx context.Context) { <-ctx.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Wait returned %v, want wrapped boom", err)
	}
}

func TestPanicIsRecoveredAndRecorded(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))
	s.Go("panicky", func(ctx context.Context) error { panic("kaboom") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil {
		t.Fatal("Wait should surface the panic as an error")
	}
	if got := s.Counters(); got.Active != 0 || got.Started != 1 {
		t.Fatalf("Counters() = %+v, want active 0 started 1", got)
	}
}

func TestContextCanceledIsCleanExit(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("clean", func(ctx context.Context) error { return context.Canceled })
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
