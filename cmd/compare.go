package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/cachestudy/cachesim/sim"
	"github.com/cachestudy/cachesim/sim/report"
	"github.com/cachestudy/cachesim/sim/trace"
)

// variant is one mitigation applied to the shared workload.
type variant struct {
	Name   string
	Config sim.Config
}

// comparisonVariants derives the baseline and one variant per mitigation from
// base. Mitigation settings left unset in base get values scaled to the ttl.
func comparisonVariants(base sim.Config) []variant {
	baseline := base
	baseline.Policy = sim.PolicyNone
	baseline.TTLExtension.Enabled = false

	wait := baseline
	wait.Policy = sim.PolicyWait

	swr := baseline
	swr.Policy = sim.PolicyStaleWhileRevalidate
	if swr.StaleGrace <= 0 {
		swr.StaleGrace = base.TTL
	}

	ext := baseline
	ext.TTLExtension.Enabled = true
	if ext.TTLExtension.Increment <= 0 {
		ext.TTLExtension.Increment = base.TTL
	}
	if ext.TTLExtension.Max < base.TTL {
		ext.TTLExtension.Max = 4 * base.TTL
	}
	if !(ext.TTLExtension.Probability > 0) {
		ext.TTLExtension.Probability = 1
	}

	return []variant{
		{Name: sim.PolicyNone, Config: baseline},
		{Name: sim.PolicyWait, Config: wait},
		{Name: sim.PolicyStaleWhileRevalidate, Config: swr},
		{Name: "ttl-extension", Config: ext},
	}
}

// runVariants simulates every variant in parallel. Simulations share no
// state; results keep the order of variants.
func runVariants(ctx context.Context, variants []variant) ([]report.Run, error) {
	params := make([]sim.Params, len(variants))
	for i, v := range variants {
		p, err := sim.NewParams(v.Config)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Name, err)
		}
		params[i] = p
	}

	runs := make([]report.Run, len(variants))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i := range variants {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			run, err := simulate(params[i], trace.TraceLevelNone)
			if err != nil {
				return fmt.Errorf("variant %s: %w", variants[i].Name, err)
			}
			logrus.Debugf("Variant %s finished in %s", variants[i].Name, run.Elapsed)
			runs[i] = run
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

func runComparison(ctx context.Context, fs *pflag.FlagSet, out io.Writer) error {
	cfg, err := resolveConfig(fs)
	if err != nil {
		return err
	}
	variants := comparisonVariants(cfg)
	logrus.Infof("Comparing %d variants", len(variants))
	runs, err := runVariants(ctx, variants)
	if err != nil {
		return err
	}

	names := make([]string, len(runs))
	results := make([]*sim.Result, len(runs))
	for i, run := range runs {
		names[i] = variants[i].Name
		results[i] = run.Result
	}
	report.PrintComparison(out, names, results)

	rp, err := newReporter(journalPath, "", "")
	if err != nil {
		return err
	}
	for _, run := range runs {
		if _, err := rp.Publish(run); err != nil {
			return err
		}
	}
	return nil
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the same workload without mitigation and under each mitigation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runComparison(cmd.Context(), cmd.Flags(), cmd.OutOrStdout())
	},
}

func init() {
	registerParamFlags(compareCmd.Flags())
	compareCmd.Flags().StringVar(&journalPath, "journal", DefaultJournalPath, "Append-only run journal, empty to disable")

	rootCmd.AddCommand(compareCmd)
}
