package sim

import "github.com/sirupsen/logrus"

// EventType names a kind of simulation event.
type EventType string

const (
	EventTypeRecomputeDone  EventType = "RecomputeDone"
	EventTypeBackendTimeout EventType = "BackendTimeout"
	EventTypeArrival        EventType = "Arrival"
)

// Rank orders simultaneous events: completions settle a key before a timeout
// can fail its waiters, and both run before arrivals at the same tick, so a
// request arriving exactly when a value lands sees that value. Unknown types
// sort last.
func (t EventType) Rank() int {
	switch t {
	case EventTypeRecomputeDone:
		return 0
	case EventTypeBackendTimeout:
		return 1
	case EventTypeArrival:
		return 2
	default:
		return 3
	}
}

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method
// that advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Seq() uint64
	Type() EventType
	Execute(*Simulator)
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	timestamp int64
	seq       uint64
	eventType EventType
}

func (e *BaseEvent) Timestamp() int64 { return e.timestamp }
func (e *BaseEvent) Seq() uint64      { return e.seq }
func (e *BaseEvent) Type() EventType  { return e.eventType }

// ArrivalEvent represents a request reaching the cache.
type ArrivalEvent struct {
	BaseEvent
	Request Request
}

// Execute looks the request up in the cache and pulls the next arrival from
// the request source.
func (e *ArrivalEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< Arrival: request %d key %d at %d ticks", e.Request.ID, e.Request.Key, e.timestamp)
	sim.handleArrival(e.Request)
	sim.scheduleNextArrival()
}

// RecomputeDoneEvent represents a backend recompute finishing.
type RecomputeDoneEvent struct {
	BaseEvent
	Job *Recompute
}

// Execute writes the recomputed value and releases the backend slot.
func (e *RecomputeDoneEvent) Execute(sim *Simulator) {
	logrus.Tracef("<< RecomputeDone: job %d key %d at %d ticks", e.Job.ID, e.Job.Key, e.timestamp)
	sim.completeRecompute(e.Job)
}

// BackendTimeoutEvent fires when a queued recompute has waited for a backend
// slot longer than the configured timeout.
type BackendTimeoutEvent struct {
	BaseEvent
	Job *Recompute
}

// Execute fails the recompute if it is still queued.
func (e *BackendTimeoutEvent) Execute(sim *Simulator) {
	if !sim.backend.Expire(e.Job) {
		return
	}
	logrus.Debugf("<< BackendTimeout: job %d key %d at %d ticks", e.Job.ID, e.Job.Key, e.timestamp)
	sim.failRecompute(e.Job)
}
