// Package cli implements the backupctl command-line interface: a thin
// cobra wrapper around internal/backup's Backup and Restore.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgbtools/walletvault/internal/log"
)

// Version is set by Execute from the value main.go passes in.
var Version = "dev"

var (
	verbose bool
	logFile string
)

var rootCmd = &cobra.Command{
	Use:   "backupctl",
	Short: "Encrypted wallet backup and restore",
	Long: `backupctl folds a wallet directory into a single portable,
password-protected, tamper-evident backup file, and restores one back
onto disk:
  - scrypt for password-based key derivation
  - XChaCha20-Poly1305 in a streaming STREAM/BE32 construction
  - Zstandard-compressed zip containers for both archive layers`,
	Version:           Version,
	PersistentPreRunE: setUpLogging,
}

// setUpLogging wires the --verbose and --log-file flags into
// internal/log before any subcommand runs. Neither flag is set by
// default: the backup/restore pipeline is silent unless asked
// otherwise, matching internal/log's zero-overhead null-logger default.
func setUpLogging(cmd *cobra.Command, args []string) error {
	switch {
	case logFile != "":
		if err := log.EnableFileLogging(logFile, log.LevelDebug); err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
	case verbose:
		log.EnableDebugLogging()
	}
	return nil
}

// Execute runs the CLI application and returns its exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log phase-by-phase progress to stderr")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append phase-by-phase progress to this file instead of stderr")
}
