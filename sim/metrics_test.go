package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDistribution_Empty(t *testing.T) {
	assert.Equal(t, Distribution{}, NewDistribution(nil))
}

func TestNewDistribution_SingleValue(t *testing.T) {
	d := NewDistribution([]float64{3})
	assert.Equal(t, Distribution{Mean: 3, P50: 3, P95: 3, P99: 3, Min: 3, Max: 3, Count: 1}, d)
}

func TestNewDistribution_LinearInterpolation(t *testing.T) {
	// GIVEN 1..5 in shuffled order
	d := NewDistribution([]float64{5, 1, 4, 2, 3})

	// THEN percentiles interpolate on the empirical CDF (p·n, between neighbours)
	assert.InDelta(t, 3.0, d.Mean, 1e-9)
	assert.InDelta(t, 2.5, d.P50, 1e-9)
	assert.InDelta(t, 4.75, d.P95, 1e-9)
	assert.InDelta(t, 4.95, d.P99, 1e-9)
	assert.Equal(t, 1.0, d.Min)
	assert.Equal(t, 5.0, d.Max)
	assert.Equal(t, 5, d.Count)
}

func TestPercentile_Bounds(t *testing.T) {
	sorted := []float64{10, 20, 30, 40}
	assert.Equal(t, 10.0, percentile(sorted, 0))
	assert.Equal(t, 40.0, percentile(sorted, 100))
	assert.InDelta(t, 20.0, percentile(sorted, 50), 1e-9)
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func TestNewDistribution_DoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	NewDistribution(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestTicksToMillis(t *testing.T) {
	assert.Equal(t, []float64{1, 0.5, 1500}, ticksToMillis([]int64{1000, 500, 1_500_000}))
}
