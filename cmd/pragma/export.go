package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pragma-notes/pragma/internal/config"
	"github.com/pragma-notes/pragma/internal/export"
	"github.com/pragma-notes/pragma/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.jsonl>",
	Short: "Export the database to a JSONL file",
	Long: `Write every notebook, note, content block and deletion marker to a
JSONL file, one record per line. The file is written atomically.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
			os.Exit(1)
		}

		result, err := export.ExportFile(cmd.Context(), db, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Exported %d records to %s (%d notebooks, %d notes, %d content blocks, %d deletions)\n",
			result.Total(), args[0],
			result.Notebooks, result.Notes, result.ContentBlocks, result.Deletions)
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import a JSONL export into the database",
	Long: `Replay a JSONL export into the configured database, preserving ids and
client timestamps. Intended for fresh databases; importing over existing
rows with the same ids fails.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
			os.Exit(1)
		}

		result, err := export.ImportFile(cmd.Context(), db, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error importing: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Imported %d records from %s\n", result.Total(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
