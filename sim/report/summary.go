package report

import (
	"fmt"
	"io"

	"github.com/cachestudy/cachesim/sim"
)

// PrintSummary writes the human-readable run summary to w.
func PrintSummary(w io.Writer, p sim.Params, r *sim.Result) {
	s := r.Summary()
	fmt.Fprintln(w, "=== Cache Simulation ===")
	fmt.Fprintf(w, "Parameters           : %s\n", p.Caption())
	fmt.Fprintf(w, "Requests             : %d\n", s.Requests)
	fmt.Fprintf(w, "Hit Rate             : %.2f%%\n", 100*s.HitRate)
	fmt.Fprintf(w, "Hits                 : %d\n", s.Hits)
	fmt.Fprintf(w, "Miss (recompute)     : %d\n", s.MissRecompute)
	fmt.Fprintf(w, "Miss (waited)        : %d\n", s.MissWaited)
	fmt.Fprintf(w, "Served Stale         : %d\n", s.ServedStale)
	fmt.Fprintf(w, "Recomputes           : %d\n", s.Recomputes)
	fmt.Fprintf(w, "Concurrent Misses    : %d\n", s.ConcurrentMisses)
	fmt.Fprintf(w, "Stampede Windows     : %d of %d\n", s.StampedeEvents, s.Windows)
	fmt.Fprintf(w, "Stale Sets           : %d\n", s.StaleSets)
	fmt.Fprintf(w, "Expirations          : %d\n", s.Expirations)
	fmt.Fprintf(w, "TTL Extensions       : %d\n", s.Extensions)
	if s.BackendFailures > 0 || s.FailedRequests > 0 {
		fmt.Fprintf(w, "Backend Failures     : %d (%d requests failed)\n", s.BackendFailures, s.FailedRequests)
	}
	if s.Pending > 0 {
		fmt.Fprintf(w, "Pending at Horizon   : %d\n", s.Pending)
	}
	if s.ResponseTime.Count > 0 {
		rt := s.ResponseTime
		fmt.Fprintf(w, "Response Time (ms)   : mean %.2f  p50 %.2f  p95 %.2f  p99 %.2f  max %.2f\n",
			rt.Mean, rt.P50, rt.P95, rt.P99, rt.Max)
	}
}

// PrintComparison writes one row per run, for runs of the same workload under
// different mitigations.
func PrintComparison(w io.Writer, names []string, results []*sim.Result) {
	fmt.Fprintf(w, "%-28s %9s %8s %11s %11s %11s %10s %10s %10s\n",
		"variant", "requests", "hit%", "recomputes", "concurrent", "stale-srv", "stale-set", "expired", "p99 ms")
	for i, r := range results {
		s := r.Summary()
		fmt.Fprintf(w, "%-28s %9d %8.2f %11d %11d %11d %10d %10d %10.2f\n",
			names[i], s.Requests, 100*s.HitRate, s.Recomputes, s.ConcurrentMisses,
			s.ServedStale, s.StaleSets, s.Expirations, s.ResponseTime.P99)
	}
}
