package workload

import (
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/internal/testutil"
)

func TestLoadReplay_RecordsFormat(t *testing.T) {
	// GIVEN a records file as written by a previous run
	fsys := memfs.New()
	csv := "timestamp,result,response_time,key\n" +
		"0.000000,miss-recompute,0.351000,0\n" +
		"0.100000,miss-waited,0.251000,3\n" +
		"0.100000,failed,,7\n"
	require.NoError(t, util.WriteFile(fsys, "run.csv", []byte(csv), 0o644))

	// WHEN replayed
	r, err := LoadReplay(fsys, "run.csv")
	require.NoError(t, err)

	// THEN arrivals and keys come back in order with fresh IDs
	got := Collect(r)
	assert.Equal(t, []sim.Request{
		{ID: 1, Key: 0, ArrivalTime: 0},
		{ID: 2, Key: 3, ArrivalTime: 100_000},
		{ID: 3, Key: 7, ArrivalTime: 100_000},
	}, got)
}

func TestLoadReplay_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing key column", "timestamp,result\n0.1,hit\n"},
		{"bad timestamp", "timestamp,key\nsoon,1\n"},
		{"negative key", "timestamp,key\n0.1,-1\n"},
		{"out of order", "timestamp,key\n0.2,1\n0.1,1\n"},
		{"NaN timestamp", "timestamp,result,response_time,key\nNaN,hit,0.001,3\n"},
		{"infinite timestamp", "timestamp,key\n+Inf,3\n"},
		{"timestamp beyond tick range", "timestamp,key\n1e20,3\n"},
		{"empty", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fsys := memfs.New()
			require.NoError(t, util.WriteFile(fsys, "r.csv", []byte(tc.data), 0o644))
			_, err := LoadReplay(fsys, "r.csv")
			assert.Error(t, err)
		})
	}
}

func TestReplay_ReproducesGeneratedRun(t *testing.T) {
	// GIVEN the generated requests of a run
	p := testutil.MustParams(t, testutil.Config().Duration(10*time.Second).Build())
	gen, err := NewGenerator(p)
	require.NoError(t, err)
	requests := Collect(gen)

	// WHEN the same requests are replayed through a fresh simulator
	replay, err := NewReplay(requests)
	require.NoError(t, err)
	gen2, err := NewGenerator(p)
	require.NoError(t, err)

	// THEN the results are identical
	assert.Equal(t, sim.NewSimulator(p, gen2).Run().Summary(), sim.NewSimulator(p, replay).Run().Summary())
	assert.Equal(t, len(requests), replay.Len())
}
