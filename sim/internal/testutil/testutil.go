// Package testutil provides shared test infrastructure for the cache simulator.
// It consolidates config builders, fixed request sources and assertion helpers
// used across sim/ and its sub-package tests.
package testutil

import (
	"math"
	"testing"
	"time"

	"github.com/cachestudy/cachesim/sim"
)

// ConfigBuilder adjusts sim.DefaultConfig field by field.
type ConfigBuilder struct {
	cfg sim.Config
}

// Config starts a builder from the default parameter set.
func Config() *ConfigBuilder {
	return &ConfigBuilder{cfg: sim.DefaultConfig()}
}

func (b *ConfigBuilder) Seed(seed int64) *ConfigBuilder           { b.cfg.Seed = seed; return b }
func (b *ConfigBuilder) Duration(d time.Duration) *ConfigBuilder  { b.cfg.Duration = d; return b }
func (b *ConfigBuilder) Rate(rate float64) *ConfigBuilder         { b.cfg.Rate = rate; return b }
func (b *ConfigBuilder) Arrival(process string) *ConfigBuilder    { b.cfg.Arrival = process; return b }
func (b *ConfigBuilder) Population(n int) *ConfigBuilder          { b.cfg.Population = n; return b }
func (b *ConfigBuilder) Keys(dist string) *ConfigBuilder          { b.cfg.KeyDistribution = dist; return b }
func (b *ConfigBuilder) TTL(ttl time.Duration) *ConfigBuilder     { b.cfg.TTL = ttl; return b }
func (b *ConfigBuilder) Policy(policy string) *ConfigBuilder      { b.cfg.Policy = policy; return b }
func (b *ConfigBuilder) Grace(grace time.Duration) *ConfigBuilder { b.cfg.StaleGrace = grace; return b }
func (b *ConfigBuilder) Prefill() *ConfigBuilder                  { b.cfg.Prefill = true; return b }

// Extension enables dynamic TTL extension with probability 1.
func (b *ConfigBuilder) Extension(increment, maxTTL time.Duration) *ConfigBuilder {
	b.cfg.TTLExtension = sim.TTLExtension{Enabled: true, Increment: increment, Max: maxTTL, Probability: 1}
	return b
}

// FixedLatency makes every backend recompute take exactly d.
func (b *ConfigBuilder) FixedLatency(d time.Duration) *ConfigBuilder {
	b.cfg.Backend.LatencyMin = 0
	b.cfg.Backend.LatencyMean = d
	b.cfg.Backend.LatencySigma = 0
	return b
}

// Backend limits backend concurrency and queueing time.
func (b *ConfigBuilder) Backend(capacity int, timeout time.Duration) *ConfigBuilder {
	b.cfg.Backend.Capacity = capacity
	b.cfg.Backend.Timeout = timeout
	return b
}

// HotKey concentrates all traffic on a single key with evenly spaced arrivals.
func (b *ConfigBuilder) HotKey() *ConfigBuilder {
	b.cfg.Population = 1
	b.cfg.KeyDistribution = sim.KeysUniform
	return b
}

// Build returns the config.
func (b *ConfigBuilder) Build() sim.Config {
	return b.cfg
}

// MustParams validates cfg, failing the test on error.
func MustParams(t *testing.T, cfg sim.Config) sim.Params {
	t.Helper()
	p, err := sim.NewParams(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return p
}

// SliceSource replays a fixed request list.
type SliceSource struct {
	Requests []sim.Request
	next     int
}

// Next implements sim.RequestSource.
func (s *SliceSource) Next() (sim.Request, bool) {
	if s.next >= len(s.Requests) {
		return sim.Request{}, false
	}
	r := s.Requests[s.next]
	s.next++
	return r, true
}

// Requests builds requests for key at the given arrival times (ticks), with
// sequential IDs.
func Requests(key int, arrivals ...int64) []sim.Request {
	out := make([]sim.Request, len(arrivals))
	for i, t := range arrivals {
		out[i] = sim.Request{ID: int64(i + 1), Key: key, ArrivalTime: t}
	}
	return out
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
