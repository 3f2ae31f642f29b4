package cmd

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/report"
	"github.com/cachestudy/cachesim/sim/trace"
	"github.com/cachestudy/cachesim/sim/workload"
)

// DefaultJournalPath is where runs are journaled unless --journal says otherwise.
const DefaultJournalPath = "cachesim.journal"

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "cachesim",
	Short:         "Discrete-event simulator for cache stampedes and their mitigations",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogLevel()
	},
}

// runCmd executes one simulation using parameters from the config file and flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one cache simulation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSimulation(cmd.Flags(), cmd.OutOrStdout())
	},
}

func runSimulation(fs *pflag.FlagSet, out io.Writer) error {
	cfg, err := resolveConfig(fs)
	if err != nil {
		return err
	}
	p, err := sim.NewParams(cfg)
	if err != nil {
		return err
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return sim.ConfigurationErrorf("unknown trace level %q; valid: none, windows, requests", traceLevel)
	}
	level := trace.TraceLevel(traceLevel)
	if recordsPath != "" && level != trace.TraceLevelRequests {
		logrus.Infof("--records needs request tracing; raising trace level from %s to %s", level, trace.TraceLevelRequests)
		level = trace.TraceLevelRequests
	}

	var src sim.RequestSource
	if replayPath != "" {
		abs, err := filepath.Abs(replayPath)
		if err != nil {
			return err
		}
		replay, err := workload.LoadReplay(osfs.New("/"), abs)
		if err != nil {
			return sim.ConfigurationErrorf("loading replay: %v", err)
		}
		logrus.Infof("Replaying %d requests from %s", replay.Len(), replayPath)
		src = replay
	}

	run, err := simulateFrom(p, src, level)
	if err != nil {
		return err
	}
	report.PrintSummary(out, p, run.Result)
	if run.Trace != nil {
		ts := trace.Summarize(run.Trace)
		logrus.Infof("Trace: %d windows (%d open) on %d keys, largest window %d requests, mean window %.1fms",
			ts.TotalWindows, ts.OpenWindows, ts.KeysAffected, ts.MaxWindowSize, ts.MeanWindowTicks/1000)
	}

	rp, err := newReporter(journalPath, plotPath, recordsPath)
	if err != nil {
		return err
	}
	if _, err := rp.Publish(run); err != nil {
		return err
	}
	logrus.Info("Simulation complete.")
	return nil
}

// simulate runs one parameter set to completion on generated requests.
func simulate(p sim.Params, level trace.TraceLevel) (report.Run, error) {
	return simulateFrom(p, nil, level)
}

// simulateFrom runs p on src, or on the generator for p when src is nil.
func simulateFrom(p sim.Params, src sim.RequestSource, level trace.TraceLevel) (report.Run, error) {
	start := time.Now()
	if src == nil {
		gen, err := workload.NewGenerator(p)
		if err != nil {
			return report.Run{}, err
		}
		src = gen
	}
	var (
		opts []sim.Option
		st   *trace.SimulationTrace
	)
	if level != trace.TraceLevelNone {
		st = trace.NewSimulationTrace(trace.TraceConfig{Level: level})
		opts = append(opts, sim.WithTrace(st))
	}
	r := sim.NewSimulator(p, src, opts...).Run()
	return report.Run{Params: p, Result: r, Trace: st, Finished: time.Now(), Elapsed: time.Since(start)}, nil
}

// newReporter publishes to the host filesystem. Paths are made absolute so
// they resolve against the working directory.
func newReporter(journal, plot, records string) (report.Reporter, error) {
	rp := report.Reporter{FS: osfs.New("/")}
	for _, p := range []struct {
		in  string
		out *string
	}{{journal, &rp.JournalPath}, {plot, &rp.PlotPath}, {records, &rp.RecordsPath}} {
		if p.in == "" {
			continue
		}
		abs, err := filepath.Abs(p.in)
		if err != nil {
			return rp, err
		}
		*p.out = abs
	}
	return rp, nil
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if sim.IsConfigurationError(err) {
		return 2
	}
	return 1
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(exitCode(err))
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return sim.ConfigurationErrorf("%v", err)
	})

	registerParamFlags(runCmd.Flags())
	runCmd.Flags().StringVar(&journalPath, "journal", DefaultJournalPath, "Append-only run journal, empty to disable")
	runCmd.Flags().StringVar(&plotPath, "plot", "", "Write a PNG plot of the run to this path")
	runCmd.Flags().StringVar(&recordsPath, "records", "", "Write one CSV row per request to this path")
	runCmd.Flags().StringVar(&replayPath, "replay", "", "Replay the requests of a --records file instead of generating them")
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Trace level (none, windows, requests)")

	rootCmd.AddCommand(runCmd)
}
