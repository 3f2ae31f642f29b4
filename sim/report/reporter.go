package report

import (
	"errors"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/sirupsen/logrus"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/journal"
	"github.com/cachestudy/cachesim/sim/trace"
)

// Run is a finished simulation ready to be published.
type Run struct {
	Params   sim.Params
	Result   *sim.Result
	Trace    *trace.SimulationTrace // may be nil
	Finished time.Time
	Elapsed  time.Duration
}

// Reporter publishes runs to the filesystem. Empty paths disable the
// corresponding output.
type Reporter struct {
	FS          billy.Filesystem
	JournalPath string
	PlotPath    string
	RecordsPath string
}

// Publish appends the journal entry first, then writes the records and the
// plot. A failing output never prevents the others; every failure is
// returned, joined.
func (rp Reporter) Publish(run Run) (journal.Entry, error) {
	var errs []error
	entry := journal.NewEntry(run.Params, run.Result, run.Finished, run.Elapsed)

	if rp.JournalPath != "" {
		if err := journal.Append(rp.FS, rp.JournalPath, entry); err != nil {
			logrus.Errorf("Journal append failed: %v", err)
			errs = append(errs, err)
		} else {
			logrus.Infof("Run %s appended to journal %s", entry.ID, rp.JournalPath)
		}
	}

	if rp.RecordsPath != "" {
		if err := journal.WriteRecords(rp.FS, rp.RecordsPath, run.Trace); err != nil {
			logrus.Errorf("Writing request records failed: %v", err)
			errs = append(errs, err)
		} else {
			logrus.Infof("Request records written to %s", rp.RecordsPath)
		}
	}

	if rp.PlotPath != "" {
		if err := RenderPlot(rp.FS, rp.PlotPath, run.Params, run.Result); err != nil {
			logrus.Errorf("Plot rendering failed: %v", err)
			errs = append(errs, err)
		} else {
			logrus.Infof("Plot written to %s", rp.PlotPath)
		}
	}

	return entry, errors.Join(errs...)
}
