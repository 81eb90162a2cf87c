// Command pragma runs the note sync server and its maintenance tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pragma",
	Short: "Self-hosted note sync server",
	Long: `Pragma is a self-hosted sync server for notebooks, notes and content
blocks. Clients keep a local copy of the data and pull deltas with a
revision cursor; deletions propagate through tombstones.

Configuration comes from the environment:
  PORT          listen port (default 8000)
  LISTEN_HOST   bind address (default 127.0.0.1)
  DATABASE_URL  SQLite file path (default pragma.db)
  AUTH_TOKEN    shared bearer token (random if unset)
  LOG_FILE      rotating log file (stderr if unset)`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
