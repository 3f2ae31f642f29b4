package sim

import (
	"hash/fnv"
	"math/rand/v2"
)

// RNG subsystems. Each draws from its own stream so that, for example, adding a
// TTL-extension coin flip never shifts the arrival sequence of a run.
const (
	SubsystemArrivals = "arrivals"
	SubsystemKeys     = "keys"
	SubsystemBackend  = "backend"
	SubsystemCache    = "cache"
	SubsystemPrefill  = "prefill"
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation: the PCG stream for a subsystem is seeded with
// (masterSeed, fnv1a64(subsystemName)), so streams are independent of the order
// in which subsystems are first requested.
//
// Thread-safety: NOT thread-safe. Must be called from a single goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG for the named subsystem. The same name always
// returns the same *rand.Rand instance. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewPCG(uint64(p.seed), fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
