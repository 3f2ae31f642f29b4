package workload

import (
	"math"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cachestudy/cachesim/sim"
)

// ArrivalSampler generates inter-arrival times.
type ArrivalSampler interface {
	// SampleIAT returns the next inter-arrival time in ticks.
	// Always returns a positive value (>= 1).
	SampleIAT() int64
}

// clampIAT rounds a sampled gap to ticks, mapping NaN and sub-tick gaps to 1
// and gaps past the int64 range (including +Inf) to math.MaxInt64.
func clampIAT(sample float64) int64 {
	if !(sample >= 1) {
		return 1
	}
	if sample >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(sample))
}

// PoissonSampler generates exponentially-distributed inter-arrival times (CV=1).
type PoissonSampler struct {
	dist distuv.Exponential
}

func (s *PoissonSampler) SampleIAT() int64 {
	return clampIAT(s.dist.Rand())
}

// UniformSampler draws inter-arrival times uniformly from [0, 2/rate], which
// keeps the mean rate while bounding gaps.
type UniformSampler struct {
	dist distuv.Uniform
}

func (s *UniformSampler) SampleIAT() int64 {
	return clampIAT(s.dist.Rand())
}

// ConstantSampler emits requests exactly 1/rate apart.
type ConstantSampler struct {
	iat int64
}

func (s *ConstantSampler) SampleIAT() int64 {
	return s.iat
}

// GammaSampler generates Gamma-distributed inter-arrival times.
// CV > 1 produces bursty arrivals that pile concurrent misses onto hot keys.
type GammaSampler struct {
	dist distuv.Gamma
}

func (s *GammaSampler) SampleIAT() int64 {
	return clampIAT(s.dist.Rand())
}

// WeibullSampler generates Weibull-distributed inter-arrival times.
type WeibullSampler struct {
	dist distuv.Weibull
}

func (s *WeibullSampler) SampleIAT() int64 {
	return clampIAT(s.dist.Rand())
}

// NewArrivalSampler creates an ArrivalSampler for the named process.
// rate is in requests per second; cv is used by gamma and weibull only.
func NewArrivalSampler(process string, rate, cv float64, rng *rand.Rand) ArrivalSampler {
	// ticks per request at the mean rate
	mean := sim.TicksPerSecond / rate
	switch process {
	case sim.ArrivalUniform:
		return &UniformSampler{dist: distuv.Uniform{Min: 0, Max: 2 * mean, Src: rng}}

	case sim.ArrivalConstant:
		return &ConstantSampler{iat: clampIAT(mean)}

	case sim.ArrivalGamma:
		if cv <= 0 {
			cv = 1.0
		}
		// shape = 1/CV², scale = mean * CV², distuv takes rate = 1/scale
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{dist: distuv.Exponential{Rate: 1 / mean, Src: rng}}
		}
		return &GammaSampler{dist: distuv.Gamma{Alpha: shape, Beta: 1 / (mean * cv * cv), Src: rng}}

	case sim.ArrivalWeibull:
		if cv <= 0 {
			cv = 1.0
		}
		k := weibullShapeFromCV(cv)
		// scale = mean / Γ(1 + 1/k)
		return &WeibullSampler{dist: distuv.Weibull{K: k, Lambda: mean / math.Gamma(1.0+1.0/k), Src: rng}}

	default:
		return &PoissonSampler{dist: distuv.Exponential{Rate: 1 / mean, Src: rng}}
	}
}

// weibullShapeFromCV finds Weibull shape parameter k such that
// CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, using bisection.
// Range: k ∈ [0.1, 100], tolerance: |CV_computed - CV_target| < 0.001.
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

// weibullCV computes the coefficient of variation for Weibull(k).
func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}
