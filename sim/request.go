package sim

// Request is a single simulated cache read.
type Request struct {
	ID          int64 // Sequential identifier, assigned by the generator
	Key         int   // Requested key in [0, population)
	ArrivalTime int64 // Arrival time in ticks
}

// RequestSource yields requests in non-decreasing arrival order. Next returns
// false once the sequence is exhausted.
type RequestSource interface {
	Next() (Request, bool)
}

// Outcome classifies how the cache model served a request.
type Outcome int

const (
	OutcomeHit           Outcome = iota // served a valid value
	OutcomeMissRecompute                // missed and triggered a recompute
	OutcomeMissWaited                   // missed and waited for an in-flight recompute
	OutcomeServedStale                  // served an expired value within the grace window
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{OutcomeHit, OutcomeMissRecompute, OutcomeMissWaited, OutcomeServedStale}

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeMissRecompute:
		return "miss-recompute"
	case OutcomeMissWaited:
		return "miss-waited"
	case OutcomeServedStale:
		return "served-stale"
	default:
		return "unknown"
	}
}
