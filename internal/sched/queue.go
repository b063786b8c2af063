package sched

import "container/heap"

// readyQueue implements heap.Interface over jobs.
//
// Ready ordering:
//  1. Earlier runAt first
//  2. If same runAt, higher priority first
//  3. Tie-break by lower id first for deterministic behavior
//
// IDs are unique, so the order is total: two jobs never compare equal.
type readyQueue []*job

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if !a.runAt.Equal(b.runAt) {
		return a.runAt.Before(b.runAt)
	}
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	return a.id < b.id
}

func (q readyQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
}

// Push adds a job to the queue. Called by heap.Push — do not call directly.
func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(*job))
}

// Pop removes and returns the last element. Called by heap.Pop — do not call directly.
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	j := old[n-1]
	old[n-1] = nil // avoid memory leak
	*q = old[:n-1]
	return j
}

// peek returns the earliest-ordered job without removing it.
func (q readyQueue) peek() *job {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (q *readyQueue) push(j *job) { heap.Push(q, j) }

func (q *readyQueue) pop() *job { return heap.Pop(q).(*job) }

// clear drops all pending jobs (immediate shutdown).
func (q *readyQueue) clear() {
	old := *q
	for i := range old {
		old[i] = nil
	}
	*q = old[:0]
}
