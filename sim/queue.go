// Implements the RecomputeQueue, which holds recomputes waiting for a backend slot.
// Recomputes are enqueued when every slot is busy

package sim

import (
	"fmt"
	"strings"
)

// RecomputeQueue represents a FIFO queue of recomputes waiting for the backend.
// A queued recompute leaves either from the front, when a slot frees up, or
// from anywhere, when its queue timeout fires.
type RecomputeQueue struct {
	queue []*Recompute // FIFO queue of recomputes
}

// Enqueue adds a recompute to the back of the queue.
func (q *RecomputeQueue) Enqueue(r *Recompute) {
	q.queue = append(q.queue, r)
}

func (q *RecomputeQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, r := range q.queue {
		sb.WriteString(fmt.Sprintf("%d:key=%d", r.ID, r.Key))
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of recomputes in the queue.
func (q *RecomputeQueue) Len() int {
	return len(q.queue)
}

// Peek returns the recompute at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *RecomputeQueue) Peek() *Recompute {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Dequeue removes the recompute at the front of the queue.
// Returns nil if the queue is empty.
func (q *RecomputeQueue) Dequeue() *Recompute {
	if len(q.queue) == 0 {
		return nil
	}
	r := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return r
}

// Remove deletes r from wherever it sits in the queue, keeping the order of
// the rest. It reports whether r was queued.
func (q *RecomputeQueue) Remove(r *Recompute) bool {
	for i, queued := range q.queue {
		if queued == r {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			return true
		}
	}
	return false
}
