package workload

import (
	"github.com/sirupsen/logrus"

	"github.com/cachestudy/cachesim/sim"
)

// Generator lazily produces the request sequence of a run: arrivals in
// non-decreasing order up to (excluding) the horizon, keys drawn from the
// configured popularity model. Deterministic given the same Params.
type Generator struct {
	arrivals ArrivalSampler
	keys     KeySampler
	horizon  int64
	clock    int64
	nextID   int64
	done     bool
}

// NewGenerator creates a generator for p. Arrivals and keys draw from separate
// RNG subsystems, so changing the key model never shifts arrival times.
func NewGenerator(p sim.Params) (*Generator, error) {
	if !(p.Rate() > 0) {
		return nil, sim.ConfigurationErrorf("rate must be positive, got %v", p.Rate())
	}
	if p.Horizon() <= 0 {
		return nil, sim.ConfigurationErrorf("duration must be positive, got %d ticks", p.Horizon())
	}
	if p.Population() < 1 {
		return nil, sim.ConfigurationErrorf("population must be at least 1, got %d", p.Population())
	}

	rng := sim.NewPartitionedRNG(p.Seed())
	g := &Generator{
		arrivals: NewArrivalSampler(p.Arrival(), p.Rate(), p.ArrivalCV(), rng.ForSubsystem(sim.SubsystemArrivals)),
		keys:     NewKeySampler(p, rng.ForSubsystem(sim.SubsystemKeys)),
		horizon:  p.Horizon(),
	}
	logrus.Debugf("Generator: %s arrivals at %.3f req/s, %s keys over %d", p.Arrival(), p.Rate(), p.KeyDistribution(), p.Population())
	return g, nil
}

// Next returns the next request, or false once the horizon is reached.
func (g *Generator) Next() (sim.Request, bool) {
	if g.done {
		return sim.Request{}, false
	}
	// Compared as a gap so huge samples cannot overflow the clock.
	iat := g.arrivals.SampleIAT()
	if iat >= g.horizon-g.clock {
		g.done = true
		return sim.Request{}, false
	}
	t := g.clock + iat
	g.clock = t
	g.nextID++
	return sim.Request{
		ID:          g.nextID,
		Key:         g.keys.SampleKey(),
		ArrivalTime: t,
	}, true
}

// Collect drains src into a slice.
func Collect(src sim.RequestSource) []sim.Request {
	var out []sim.Request
	for {
		req, ok := src.Next()
		if !ok {
			return out
		}
		out = append(out, req)
	}
}
