package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgbtools/walletvault/internal/backup"
)

func init() {
	restoreCmd.SilenceErrors = true
	restoreCmd.SilenceUsage = true
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file> <target-dir>",
	Short: "Restore a wallet directory from an encrypted backup",
	Long: `Unpack an encrypted backup produced by "backup" back onto disk.
The target directory is created if it does not already exist.

Examples:
  # Interactive password prompt (no confirmation on restore)
  backupctl restore wallet.backup ~/.mywallet-restored

  # Password on the command line
  backupctl restore wallet.backup ~/.mywallet-restored -p "hunter2"

  # Password piped from a script
  echo "hunter2" | backupctl restore wallet.backup ~/.mywallet-restored -P

  # Password from the environment (cron jobs, CI — never in argv)
  BACKUPCTL_PASSWORD="hunter2" backupctl restore wallet.backup ~/.mywallet-restored`,
	Args: cobra.ExactArgs(2),
	RunE: runRestore,
}

var (
	restorePassword      string
	restorePasswordStdin bool
)

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().StringVarP(&restorePassword, "password", "p", "", "Backup password")
	restoreCmd.Flags().BoolVarP(&restorePasswordStdin, "password-stdin", "P", false, "Read password from stdin")
}

func runRestore(cmd *cobra.Command, args []string) error {
	backupFile, targetDir := args[0], args[1]

	if _, err := os.Stat(backupFile); err != nil {
		return fmt.Errorf("backup file: %w", err)
	}

	password, err := resolvePassword(restorePassword, restorePasswordStdin, false)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Restoring %s to %s\n", backupFile, targetDir)
	if err := backup.Restore(backupFile, password, targetDir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Restore complete: %s\n", targetDir)
	return nil
}
