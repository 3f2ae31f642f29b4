package workload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/internal/testutil"
)

func TestGenerator_SameSeed_IdenticalSequence(t *testing.T) {
	// GIVEN two generators built from the same parameters
	p := testutil.MustParams(t, testutil.Config().Seed(7).Duration(10*time.Second).Build())
	g1, err := NewGenerator(p)
	require.NoError(t, err)
	g2, err := NewGenerator(p)
	require.NoError(t, err)

	// WHEN both are drained
	a, b := Collect(g1), Collect(g2)

	// THEN the sequences are identical
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestGenerator_DifferentSeed_DifferentSequence(t *testing.T) {
	p1 := testutil.MustParams(t, testutil.Config().Seed(1).Build())
	p2 := testutil.MustParams(t, testutil.Config().Seed(2).Build())
	g1, err := NewGenerator(p1)
	require.NoError(t, err)
	g2, err := NewGenerator(p2)
	require.NoError(t, err)

	assert.NotEqual(t, Collect(g1), Collect(g2))
}

func TestGenerator_ArrivalsOrderedWithinHorizon(t *testing.T) {
	// GIVEN a bursty gamma workload
	cfg := testutil.Config().Duration(30 * time.Second).Build()
	cfg.Arrival = sim.ArrivalGamma
	cfg.ArrivalCV = 3
	g, err := NewGenerator(testutil.MustParams(t, cfg))
	require.NoError(t, err)

	// WHEN drained
	reqs := Collect(g)

	// THEN arrivals are non-decreasing, inside [0, horizon), with sequential IDs
	require.NotEmpty(t, reqs)
	horizon := sim.Ticks(30 * time.Second)
	for i, r := range reqs {
		assert.Equal(t, int64(i+1), r.ID)
		assert.Less(t, r.ArrivalTime, horizon)
		if i > 0 {
			assert.GreaterOrEqual(t, r.ArrivalTime, reqs[i-1].ArrivalTime)
		}
	}
}

func TestGenerator_ConstantRate_ExactCount(t *testing.T) {
	// GIVEN 10 req/s constant arrivals over 60s
	cfg := testutil.Config().Rate(10).Arrival(sim.ArrivalConstant).Duration(60 * time.Second).Build()
	g, err := NewGenerator(testutil.MustParams(t, cfg))
	require.NoError(t, err)

	// WHEN drained
	reqs := Collect(g)

	// THEN arrivals fall at 0.1s, 0.2s, ... 59.9s
	require.Len(t, reqs, 599)
	assert.Equal(t, int64(100_000), reqs[0].ArrivalTime)
	assert.Equal(t, int64(59_900_000), reqs[len(reqs)-1].ArrivalTime)
}

func TestGenerator_TinyRate_NoArrivals(t *testing.T) {
	// GIVEN a rate so low the first gap exceeds the int64 tick range
	cfg := testutil.Config().Rate(1e-20).Duration(60 * time.Second).Build()
	g, err := NewGenerator(testutil.MustParams(t, cfg))
	require.NoError(t, err)

	// WHEN drained
	reqs := Collect(g)

	// THEN nothing arrives within the horizon
	assert.Empty(t, reqs)
}

func TestGenerator_KeyModelDoesNotShiftArrivals(t *testing.T) {
	// GIVEN two runs differing only in key popularity
	uniform := testutil.Config().Keys(sim.KeysUniform).Build()
	zipf := testutil.Config().Keys(sim.KeysZipf).Build()
	g1, err := NewGenerator(testutil.MustParams(t, uniform))
	require.NoError(t, err)
	g2, err := NewGenerator(testutil.MustParams(t, zipf))
	require.NoError(t, err)

	// WHEN drained
	a, b := Collect(g1), Collect(g2)

	// THEN arrival times are identical
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ArrivalTime, b[i].ArrivalTime)
	}
}

func TestGenerator_ZeroParams_ConfigurationError(t *testing.T) {
	// GIVEN an unvalidated zero Params (rate and duration are zero)
	// WHEN a generator is requested
	g, err := NewGenerator(sim.Params{})

	// THEN it fails with a configuration error
	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, sim.IsConfigurationError(err))
}

func TestGenerator_ExhaustedStaysExhausted(t *testing.T) {
	g, err := NewGenerator(testutil.MustParams(t, testutil.Config().Duration(time.Second).Build()))
	require.NoError(t, err)
	Collect(g)

	_, ok := g.Next()
	assert.False(t, ok)
}
