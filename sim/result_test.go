package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResult_BucketsCoverHorizon(t *testing.T) {
	// GIVEN a 2.5s horizon with 1s buckets
	r := newResult(2_500_000, 1_000_000)

	// THEN three buckets start at 0, 1s and 2s
	require.Len(t, r.Series, 3)
	assert.Equal(t, int64(2_000_000), r.Series[2].Start)

	// THEN samples land in their bucket and the horizon itself lands in the last
	assert.Same(t, &r.Series[1], r.sample(1_999_999))
	assert.Same(t, &r.Series[2], r.sample(2_500_000))
}

func TestNewResult_SingleBucket(t *testing.T) {
	r := newResult(500, 1000)
	require.Len(t, r.Series, 1)
	assert.Same(t, &r.Series[0], r.sample(499))
}

func TestCounters_HitRate(t *testing.T) {
	assert.Equal(t, 0.0, Counters{}.HitRate())
	assert.Equal(t, 0.25, Counters{Requests: 4, Hits: 1}.HitRate())
	assert.Equal(t, 0.5, Sample{Requests: 2, Hits: 1}.HitRate())
}

func TestSample_ResponseTime(t *testing.T) {
	// GIVEN a bucket with four answered requests of 1, 1, 1 and 351 ms
	s := Sample{ResponseTimes: []int64{1000, 1000, 351_000, 1000}}

	// WHEN summarized
	d := s.ResponseTime()

	// THEN the median stays at the cache latency and the tail shows the recompute
	assert.Equal(t, 4, d.Count)
	assert.InDelta(t, 1.0, d.P50, 1e-9)
	assert.InDelta(t, 337.0, d.P99, 1e-6)
	assert.Equal(t, Distribution{}, Sample{}.ResponseTime())
}

func TestResult_Summary_HotKeysOrdered(t *testing.T) {
	// GIVEN per-key counters for 12 keys, key 11 the most requested
	r := newResult(1000, 1000)
	for k := 0; k < 12; k++ {
		r.key(k).Requests = 1
	}
	r.key(11).Requests = 5
	r.Requests = 16
	r.Hits = 4
	r.ResponseTimes = []int64{1000, 3000}

	// WHEN summarized
	s := r.Summary()

	// THEN the top ten keys are listed, ties broken by key
	require.Len(t, s.HotKeys, topKeys)
	assert.Equal(t, 11, s.HotKeys[0].Key)
	assert.Equal(t, 0, s.HotKeys[1].Key)
	assert.Equal(t, 8, s.HotKeys[9].Key)
	assert.Equal(t, 0.25, s.HitRate)
	assert.Equal(t, 2.0, s.ResponseTime.Mean)
}

func TestSummary_YAML_FlatCounters(t *testing.T) {
	r := newResult(1000, 1000)
	r.Requests = 3
	r.key(0).Requests = 3

	out, err := r.Summary().YAML()

	require.NoError(t, err)
	assert.Contains(t, string(out), "requests: 3\n")
	assert.Contains(t, string(out), "response_time_ms:")
	assert.Contains(t, string(out), "- key: 0\n")
}
