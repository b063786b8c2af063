package sched

import (
	"testing"
	"time"
)

func TestReadyQueueOrdering(t *testing.T) {
	t.Parallel()
	base := time.Now()

	var q readyQueue
	// Insertion order is deliberately scrambled.
	q.push(&job{id: 4, runAt: base.Add(time.Second), priority: PriorityLow})
	q.push(&job{id: 2, runAt: base, priority: PriorityNormal})
	q.push(&job{id: 1, runAt: base, priority: PriorityNormal})
	q.push(&job{id: 3, runAt: base, priority: PriorityHigh})
	q.push(&job{id: 5, runAt: base.Add(-time.Second), priority: PriorityLow})

	// Expect: earlier runAt first; same runAt by priority (high first);
	// remaining ties by ascending id.
	want := []JobID{5, 3, 1, 2, 4}
	for i, id := range want {
		j := q.pop()
		if j.id != id {
			t.Fatalf("pop %d: got id %d, want %d", i, j.id, id)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("queue not empty after draining: %d", q.Len())
	}
}

func TestReadyQueuePeekAndClear(t *testing.T) {
	t.Parallel()
	base := time.Now()

	var q readyQueue
	if q.peek() != nil {
		t.Fatal("peek on empty queue should be nil")
	}
	q.push(&job{id: 1, runAt: base.Add(time.Minute)})
	q.push(&job{id: 2, runAt: base})
	if got := q.peek(); got == nil || got.id != 2 {
		t.Fatalf("peek = %+v, want id 2", got)
	}
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}

	q.clear()
	if q.Len() != 0 {
		t.Fatalf("len after clear = %d, want 0", q.Len())
	}
}
