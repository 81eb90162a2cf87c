package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pragma-notes/pragma/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pragma %s (%s)\n", buildinfo.Version, buildinfo.Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
