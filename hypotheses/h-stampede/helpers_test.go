package stampede

import (
	"testing"
	"time"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/workload"
)

// hotKey is a single key read at a constant rate with a constant backend
// latency, so every window is identical and outcomes are exact.
func hotKey(rate float64, ttl, latency time.Duration) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Rate = rate
	cfg.Arrival = sim.ArrivalConstant
	cfg.Population = 1
	cfg.KeyDistribution = sim.KeysUniform
	cfg.TTL = ttl
	cfg.Backend.LatencyMin = 0
	cfg.Backend.LatencyMean = latency
	cfg.Backend.LatencySigma = 0
	return cfg
}

func run(t *testing.T, cfg sim.Config) *sim.Result {
	t.Helper()
	p, err := sim.NewParams(cfg)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	gen, err := workload.NewGenerator(p)
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	return sim.NewSimulator(p, gen).Run()
}
