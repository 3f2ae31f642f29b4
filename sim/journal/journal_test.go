package journal

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/internal/testutil"
	"github.com/cachestudy/cachesim/sim/workload"
)

func runEntry(t *testing.T, cfg sim.Config) Entry {
	t.Helper()
	p := testutil.MustParams(t, cfg)
	gen, err := workload.NewGenerator(p)
	require.NoError(t, err)
	r := sim.NewSimulator(p, gen).Run()
	return NewEntry(p, r, time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC), 1500*time.Millisecond)
}

func TestAppend_NRuns_NBlocksRoundTrip(t *testing.T) {
	// GIVEN three runs with different parameter sets
	fsys := memfs.New()
	configs := []sim.Config{
		testutil.Config().Seed(1).Duration(5 * time.Second).Build(),
		testutil.Config().Seed(2).Duration(5 * time.Second).Policy(sim.PolicyWait).Build(),
		testutil.Config().Seed(3).Duration(5*time.Second).Policy(sim.PolicyStaleWhileRevalidate).Grace(time.Second).
			Extension(time.Second, 20*time.Second).Build(),
	}
	var written []Entry

	// WHEN each run is appended to the same journal
	for _, cfg := range configs {
		e := runEntry(t, cfg)
		written = append(written, e)
		require.NoError(t, Append(fsys, "out/runs.journal", e))
	}

	// THEN the journal holds exactly three blocks, each parsing back to its run
	data, err := util.ReadFile(fsys, "out/runs.journal")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), Marker+"\n"))

	entries, err := Read(fsys, "out/runs.journal")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, configs[i], e.Config, "block %d", i)
		assert.Equal(t, written[i].ID, e.ID)
		assert.True(t, written[i].Timestamp.Equal(e.Timestamp))
		assert.Equal(t, 1500*time.Millisecond, e.Elapsed)
		assert.Equal(t, written[i].Summary, e.Summary)
	}
}

func TestAppend_NeverRewritesEarlierBlocks(t *testing.T) {
	// GIVEN a journal with one block
	fsys := memfs.New()
	first := runEntry(t, testutil.Config().Duration(2*time.Second).Build())
	require.NoError(t, Append(fsys, "runs.journal", first))
	before, err := util.ReadFile(fsys, "runs.journal")
	require.NoError(t, err)

	// WHEN another run is appended
	require.NoError(t, Append(fsys, "runs.journal", runEntry(t, testutil.Config().Seed(9).Duration(2*time.Second).Build())))

	// THEN the original bytes are an untouched prefix
	after, err := util.ReadFile(fsys, "runs.journal")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)))
	assert.Greater(t, len(after), len(before))
}

func TestEncode_HeaderIsCommented(t *testing.T) {
	// GIVEN an entry
	e := runEntry(t, testutil.Config().Duration(time.Second).Build())

	// WHEN encoded
	block, err := Encode(e)
	require.NoError(t, err)

	// THEN the header lines are comments carrying id, ISO-8601 timestamp and params
	lines := strings.Split(string(block), "\n")
	assert.Equal(t, Marker, lines[0])
	assert.Equal(t, "# id: "+e.ID, lines[1])
	assert.Equal(t, "# timestamp: 2026-10-17T09:30:00Z", lines[2])
	assert.Contains(t, string(block), "# params:\n")
	assert.Contains(t, string(block), "#     seed: 42\n")
	assert.Contains(t, string(block), "\nrequests: ")
}

func TestAppend_UnwritableDestination_JournalWriteError(t *testing.T) {
	// GIVEN a read-only filesystem
	fsys := readOnlyFS{memfs.New()}

	// WHEN appending
	err := Append(fsys, "runs.journal", runEntry(t, testutil.Config().Duration(time.Second).Build()))

	// THEN the failure is a journal write error
	require.Error(t, err)
	assert.True(t, sim.IsJournalWriteError(err))
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"content before marker", "hello\n" + Marker + "\n"},
		{"unknown header field", Marker + "\n# id: x\n# colour: red\nrequests: 1\n"},
		{"missing id", Marker + "\n# timestamp: 2026-10-17T09:30:00Z\nrequests: 1\n"},
		{"missing summary", Marker + "\n# id: x\n"},
		{"unknown summary field", Marker + "\n# id: x\nbogus: 1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestParse_EmptyJournal(t *testing.T) {
	entries, err := Parse([]byte("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read(memfs.New(), "nope.journal")
	assert.Error(t, err)
}
