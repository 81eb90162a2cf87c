package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pragma-notes/pragma/internal/loadtest"
)

var (
	loadtestWriters int
	loadtestNotes   int
	loadtestPollers int
	loadtestPolls   int
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Run a write/poll load test against a throwaway database",
	Long: `Push concurrent writers and sync pollers through the full storage stack
and report latency percentiles. Uses a temporary database; the configured
DATABASE_URL is not touched.`,
	Run: func(cmd *cobra.Command, args []string) {
		tmpDir, err := os.MkdirTemp("", "pragma-loadtest-*")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating temp dir: %v\n", err)
			os.Exit(1)
		}
		defer os.RemoveAll(tmpDir)

		result, err := loadtest.Run(cmd.Context(), filepath.Join(tmpDir, "load.db"), loadtest.Options{
			Writers:        loadtestWriters,
			NotesPerWriter: loadtestNotes,
			Pollers:        loadtestPollers,
			PollsPerPoller: loadtestPolls,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running load test: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Completed in %v\n", result.Duration)
		fmt.Printf("  writes: %s\n", result.Writes)
		fmt.Printf("  polls:  %s\n", result.Polls)
	},
}

func init() {
	loadtestCmd.Flags().IntVar(&loadtestWriters, "writers", 10, "concurrent note writers")
	loadtestCmd.Flags().IntVar(&loadtestNotes, "notes", 50, "notes per writer")
	loadtestCmd.Flags().IntVar(&loadtestPollers, "pollers", 5, "concurrent delta pollers")
	loadtestCmd.Flags().IntVar(&loadtestPolls, "polls", 20, "polls per poller")
	rootCmd.AddCommand(loadtestCmd)
}
