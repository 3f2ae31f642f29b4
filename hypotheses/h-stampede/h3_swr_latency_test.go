package stampede

import (
	"testing"
	"time"

	"github.com/cachestudy/cachesim/sim"
)

// =============================================================================
// H3: Stale-while-revalidate hides recompute latency from readers
//
// Hypothesis: With a grace window at least as long as the recompute latency,
// only the requests of the very first (cold) window wait on the backend. Every
// later expiry is refreshed in the background while readers get the stale
// value at cache latency, so the tail response time collapses to the cache
// latency, whereas the unmitigated tail is the full recompute latency.
//
// Refuted if: the swr p95 response time exceeds the cache latency, or the
// unmitigated p95 is not at least the recompute latency.
//
// Independent variable: policy (none vs stale-while-revalidate)
// Controlled variables: rate 10/s constant, one key, ttl 5s, latency 350ms,
// cache latency 1ms, 60s horizon
// Dependent variable: p95 response time
// =============================================================================

func TestH3_StaleWhileRevalidateHidesLatency(t *testing.T) {
	base := hotKey(10, 5*time.Second, 350*time.Millisecond)
	base.CacheLatency = time.Millisecond

	none := run(t, base)

	swrCfg := base
	swrCfg.Policy = sim.PolicyStaleWhileRevalidate
	swrCfg.StaleGrace = 5 * time.Second
	swr := run(t, swrCfg)

	t.Logf("none: p95=%.1fms miss-recompute=%d", none.Summary().ResponseTime.P95, none.MissRecompute)
	t.Logf("swr:  p95=%.1fms miss-recompute=%d served-stale=%d", swr.Summary().ResponseTime.P95, swr.MissRecompute, swr.ServedStale)

	if p95 := none.Summary().ResponseTime.P95; p95 < 350 {
		t.Errorf("none: p95 %.1fms, want at least the 350ms recompute", p95)
	}
	if p95 := swr.Summary().ResponseTime.P95; p95 > 1 {
		t.Errorf("swr: p95 %.1fms, want the 1ms cache latency", p95)
	}
	if swr.MissRecompute != 1 {
		t.Errorf("swr: %d foreground recomputes, want only the cold one", swr.MissRecompute)
	}
}
