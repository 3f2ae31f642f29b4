package journal

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/trace"
)

// RecordsHeader is the column layout of the per-request CSV.
var RecordsHeader = []string{"timestamp", "result", "response_time", "key"}

// WriteRecords writes one CSV row per traced request to name, replacing any
// previous file. Times are in seconds; unresolved requests have an empty
// response_time and failed ones the result "failed".
func WriteRecords(fsys billy.Filesystem, name string, st *trace.SimulationTrace) error {
	if !st.RecordsRequests() {
		return sim.JournalWriteError(fmt.Errorf("trace does not record requests"), name)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(RecordsHeader); err != nil {
		return sim.JournalWriteError(err, name)
	}
	for _, r := range st.Requests {
		result, rt := r.Outcome, ""
		if r.Resolved() {
			rt = seconds(r.ResponseTime)
		}
		if r.Failed {
			result = "failed"
		}
		row := []string{seconds(r.Arrival), result, rt, strconv.Itoa(r.Key)}
		if err := w.Write(row); err != nil {
			return sim.JournalWriteError(err, name)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return sim.JournalWriteError(err, name)
	}

	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := fsys.MkdirAll(dir, 0o755); err != nil {
			return sim.JournalWriteError(err, name)
		}
	}
	return sim.JournalWriteError(util.WriteFile(fsys, name, buf.Bytes(), 0o644), name)
}

func seconds(ticks int64) string {
	return strconv.FormatFloat(float64(ticks)/sim.TicksPerSecond, 'f', 6, 64)
}
