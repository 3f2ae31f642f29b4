// Package trace provides per-request and per-window recording for cache
// stampede analysis. This package has no dependencies on sim/. It stores pure
// data types.
package trace

// RequestRecord captures how one request was served.
type RequestRecord struct {
	RequestID    int64
	Key          int
	Arrival      int64
	Outcome      string
	ResolvedAt   int64 // -1 while unresolved
	ResponseTime int64 // ticks, including cache access latency
	Failed       bool
}

// Resolved reports whether the request received a response before the horizon.
func (r RequestRecord) Resolved() bool {
	return r.ResolvedAt >= 0
}

// WindowRecord captures one recompute window of a key: the interval during
// which the key had no valid value and at least one recompute was running.
type WindowRecord struct {
	Key        int
	Start      int64
	End        int64
	Requests   int // requests for the key arriving inside the window
	Recomputes int // recomputes triggered inside the window
	Failed     bool
	Open       bool // still open when the run stopped
}

// ConcurrentMisses returns the number of recomputes started while another was
// already running for the same key.
func (w WindowRecord) ConcurrentMisses() int {
	if w.Recomputes == 0 {
		return 0
	}
	return w.Recomputes - 1
}

// RecomputeRecord captures one backend recompute.
type RecomputeRecord struct {
	JobID       int64
	Key         int
	RequestedAt int64
	StartedAt   int64 // -1 when the job never left the backend queue
	FinishedAt  int64
	Failed      bool
	StaleSet    bool // the written value was older than the one it replaced
}
