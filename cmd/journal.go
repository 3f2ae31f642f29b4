package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/cachestudy/cachesim/sim/journal"
)

// listJournal prints one line per journaled run.
func listJournal(fsys billy.Filesystem, path string, out io.Writer) error {
	entries, err := journal.Read(fsys, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-36s %-20s %-24s %9s %8s %11s %9s\n",
		"id", "timestamp", "policy", "requests", "hit%", "concurrent", "elapsed")
	for _, e := range entries {
		policy := e.Config.Policy
		if e.Config.TTLExtension.Enabled {
			policy += "+ext"
		}
		fmt.Fprintf(out, "%-36s %-20s %-24s %9d %8.2f %11d %9s\n",
			e.ID, e.Timestamp.Format(time.RFC3339), policy,
			e.Summary.Requests, 100*e.Summary.HitRate, e.Summary.ConcurrentMisses, e.Elapsed)
	}
	return nil
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List the runs recorded in a journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(journalPath)
		if err != nil {
			return err
		}
		return listJournal(osfs.New("/"), path, cmd.OutOrStdout())
	},
}

func init() {
	journalCmd.Flags().StringVar(&journalPath, "journal", DefaultJournalPath, "Journal to read")

	rootCmd.AddCommand(journalCmd)
}
