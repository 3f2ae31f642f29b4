package sim

// EntryState is the state of a key in the cache model at a given instant.
type EntryState int

const (
	StateAbsent      EntryState = iota // never computed
	StateValid                         // value present and not expired
	StateStale                         // expired but inside the grace window, nothing in flight
	StateExpired                       // expired and past the grace window
	StateRecomputing                   // no valid value and a recompute is in flight
)

func (s EntryState) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateValid:
		return "valid"
	case StateStale:
		return "stale"
	case StateExpired:
		return "expired"
	case StateRecomputing:
		return "recomputing"
	default:
		return "unknown"
	}
}

// Entry is the cache model's record for one key.
type Entry struct {
	Key        int
	HasValue   bool
	ComputedAt int64 // when the backend read that produced the current value started
	InsertedAt int64 // when the current value was written
	ExpiresAt  int64 // first tick at which the value is no longer valid
	InFlight   int   // recomputes currently queued or running at the backend

	expirySeen bool
	waiters    []*waiter
	window     *window
}

// waiter is a request whose response depends on a recompute.
type waiter struct {
	req    Request
	record int // index into the trace, -1 when untraced
}

// window tracks one recompute window: from the first recompute triggered while
// the key had no valid value until the key becomes valid again (or every
// in-flight recompute has failed).
type window struct {
	start      int64
	requests   int
	recomputes int
}

// RecomputeWindow is a closed recompute window.
type RecomputeWindow struct {
	Key        int
	Start      int64
	End        int64
	Requests   int // requests for the key that arrived inside the window
	Recomputes int // recomputes triggered inside the window
	Failed     bool
}

// state derives the entry state at now. grace is zero unless stale values may
// be served.
func (e *Entry) state(now, grace int64) EntryState {
	switch {
	case e.HasValue && now < e.ExpiresAt:
		return StateValid
	case e.InFlight > 0:
		return StateRecomputing
	case !e.HasValue:
		return StateAbsent
	case now < e.ExpiresAt+grace:
		return StateStale
	default:
		return StateExpired
	}
}

// hasStale reports whether the entry holds an expired value still inside the
// grace window.
func (e *Entry) hasStale(now, grace int64) bool {
	return e.HasValue && now >= e.ExpiresAt && now < e.ExpiresAt+grace
}

// Waiting returns the number of requests queued on the entry.
func (e *Entry) Waiting() int {
	return len(e.waiters)
}
