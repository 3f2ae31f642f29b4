package sim

import "container/heap"

// EventHeap is the simulator's pending-event queue. Events pop by timestamp,
// then EventType.Rank, then the sequence number assigned at scheduling, so two
// runs with the same seed dispatch identically.
type EventHeap struct {
	q eventQueue
}

// NewEventHeap returns an empty queue.
func NewEventHeap() *EventHeap {
	return &EventHeap{}
}

func (h *EventHeap) Len() int { return len(h.q) }

// Schedule queues e.
func (h *EventHeap) Schedule(e Event) {
	heap.Push(&h.q, e)
}

// PopNext removes and returns the earliest event, or nil when empty.
func (h *EventHeap) PopNext() Event {
	if len(h.q) == 0 {
		return nil
	}
	return heap.Pop(&h.q).(Event)
}

// Peek returns the earliest event without removing it, or nil when empty.
func (h *EventHeap) Peek() Event {
	if len(h.q) == 0 {
		return nil
	}
	return h.q[0]
}

// precedes reports whether a must be dispatched before b.
func precedes(a, b Event) bool {
	if ta, tb := a.Timestamp(), b.Timestamp(); ta != tb {
		return ta < tb
	}
	if ra, rb := a.Type().Rank(), b.Type().Rank(); ra != rb {
		return ra < rb
	}
	return a.Seq() < b.Seq()
}

type eventQueue []Event

func (q eventQueue) Len() int           { return len(q) }
func (q eventQueue) Less(i, j int) bool { return precedes(q[i], q[j]) }
func (q eventQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(Event)) }

func (q *eventQueue) Pop() any {
	old := *q
	last := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return last
}
