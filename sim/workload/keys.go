package workload

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cachestudy/cachesim/sim"
)

// KeySampler picks the key of each request.
type KeySampler interface {
	// SampleKey returns a key in [0, population).
	SampleKey() int
}

// UniformKeys picks every key with equal probability.
type UniformKeys struct {
	population int
	rng        *rand.Rand
}

func (k *UniformKeys) SampleKey() int {
	return k.rng.IntN(k.population)
}

// ZipfKeys picks key i with probability proportional to 1/(i+1)^s.
type ZipfKeys struct {
	zipf *rand.Zipf
}

func (k *ZipfKeys) SampleKey() int {
	return int(k.zipf.Uint64())
}

// ParetoKeys maps a Lomax (Pareto II) draw onto the key space:
// key = floor(x * scale) mod population. Small alphas concentrate traffic on
// the first keys while keeping a long tail.
type ParetoKeys struct {
	dist       distuv.Pareto
	scale      float64
	population int
}

func (k *ParetoKeys) SampleKey() int {
	// Pareto with Xm = 1 shifted by one is Lomax
	x := (k.dist.Rand() - 1) * k.scale
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return 0
	}
	return int(math.Mod(math.Floor(x), float64(k.population)))
}

// HotspotKeys sends a fixed share of traffic to key 0 and spreads the rest
// uniformly over the other keys.
type HotspotKeys struct {
	share      float64
	population int
	rng        *rand.Rand
}

func (k *HotspotKeys) SampleKey() int {
	if k.population == 1 || k.rng.Float64() < k.share {
		return 0
	}
	return 1 + k.rng.IntN(k.population-1)
}

// NewKeySampler creates the key sampler configured in p.
func NewKeySampler(p sim.Params, rng *rand.Rand) KeySampler {
	n := p.Population()
	switch p.KeyDistribution() {
	case sim.KeysZipf:
		return &ZipfKeys{zipf: rand.NewZipf(rng, p.ZipfS(), 1, uint64(n-1))}
	case sim.KeysPareto:
		return &ParetoKeys{
			dist:       distuv.Pareto{Xm: 1, Alpha: p.ParetoAlpha(), Src: rng},
			scale:      p.ParetoScale(),
			population: n,
		}
	case sim.KeysHotspot:
		return &HotspotKeys{share: p.HotShare(), population: n, rng: rng}
	default:
		return &UniformKeys{population: n, rng: rng}
	}
}
