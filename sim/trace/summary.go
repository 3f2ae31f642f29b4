package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRequests    int
	Unresolved       int
	FailedRequests   int
	OutcomeCounts    map[string]int // outcome name → count of requests
	TotalWindows     int
	OpenWindows      int
	ConcurrentMisses int
	MaxWindowSize    int // most requests seen inside one window
	MeanWindowTicks  float64
	StaleSets        int
	FailedRecomputes int
	KeysAffected     int // distinct keys with at least one window
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OutcomeCounts: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRequests = len(st.Requests)
	for _, r := range st.Requests {
		summary.OutcomeCounts[r.Outcome]++
		switch {
		case !r.Resolved():
			summary.Unresolved++
		case r.Failed:
			summary.FailedRequests++
		}
	}

	keys := make(map[int]bool)
	if len(st.Windows) > 0 {
		var totalTicks int64
		for _, w := range st.Windows {
			keys[w.Key] = true
			summary.ConcurrentMisses += w.ConcurrentMisses()
			totalTicks += w.End - w.Start
			if w.Requests > summary.MaxWindowSize {
				summary.MaxWindowSize = w.Requests
			}
			if w.Open {
				summary.OpenWindows++
			}
		}
		summary.TotalWindows = len(st.Windows)
		summary.MeanWindowTicks = float64(totalTicks) / float64(len(st.Windows))
	}
	summary.KeysAffected = len(keys)

	for _, rc := range st.Recomputes {
		if rc.StaleSet {
			summary.StaleSets++
		}
		if rc.Failed {
			summary.FailedRecomputes++
		}
	}

	return summary
}
