package engine

import "container/heap"

// eventHeap implements heap.Interface ordering events by (When, seq): ties
// at the same simulated time resolve in insertion order, giving
// reproducible runs.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].When == h[j].When {
		return h[i].seq < h[j].seq
	}
	return h[i].When < h[j].When
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// eventQueue is the engine's min-heap of pending events plus a global
// sequence counter for deterministic equal-time ordering.
type eventQueue struct {
	h   eventHeap
	seq uint64
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	heap.Init(&q.h)
	return q
}

func (q *eventQueue) push(e *Event) {
	q.seq++
	e.seq = q.seq
	heap.Push(&q.h, e)
}

func (q *eventQueue) peek() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

func (q *eventQueue) pop() *Event {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Event)
}

func (q *eventQueue) len() int { return len(q.h) }

// removeMatching removes every event satisfying pred and returns how many
// were removed. It rebuilds the heap once rather than re-heapifying per
// removal.
func (q *eventQueue) removeMatching(pred func(*Event) bool) int {
	kept := q.h[:0]
	removed := 0
	for _, e := range q.h {
		if pred(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.h = kept
	heap.Init(&q.h)
	return removed
}
