package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rgbtools/walletvault/internal/backup"
)

func init() {
	backupCmd.SilenceErrors = true
	backupCmd.SilenceUsage = true
}

var backupCmd = &cobra.Command{
	Use:   "backup <wallet-dir> <output-file>",
	Short: "Create an encrypted backup of a wallet directory",
	Long: `Fold a wallet directory into a single encrypted, portable backup
file. The output path must not already exist: backups are write-once.

Examples:
  # Interactive password prompt (with confirmation)
  backupctl backup ~/.mywallet wallet.backup

  # Password on the command line (visible in shell history)
  backupctl backup ~/.mywallet wallet.backup -p "hunter2"

  # Password piped from a script
  echo "hunter2" | backupctl backup ~/.mywallet wallet.backup -P

  # Password from the environment (cron jobs, CI — never in argv)
  BACKUPCTL_PASSWORD="hunter2" backupctl backup ~/.mywallet wallet.backup

  # Override the scrypt cost parameter
  backupctl backup ~/.mywallet wallet.backup --log-n 18`,
	Args: cobra.ExactArgs(2),
	RunE: runBackup,
}

var (
	backupPassword      string
	backupPasswordStdin bool
	backupLogN          uint8
	backupR             uint32
	backupP             uint32
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupPassword, "password", "p", "", "Backup password")
	backupCmd.Flags().BoolVarP(&backupPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	backupCmd.Flags().Uint8Var(&backupLogN, "log-n", 0, "Override the scrypt log_n cost parameter (default 17)")
	backupCmd.Flags().Uint32Var(&backupR, "r", 0, "Override the scrypt r parameter (default 8)")
	backupCmd.Flags().Uint32Var(&backupP, "p-param", 0, "Override the scrypt p parameter (default 1)")
}

func runBackup(cmd *cobra.Command, args []string) error {
	walletDir, outputFile := args[0], args[1]

	if _, err := os.Stat(walletDir); err != nil {
		return fmt.Errorf("wallet directory: %w", err)
	}

	password, err := resolvePassword(backupPassword, backupPasswordStdin, true)
	if err != nil {
		return err
	}

	opts := backup.Options{}
	if backupLogN != 0 {
		opts.LogN = &backupLogN
	}
	if backupR != 0 {
		opts.R = &backupR
	}
	if backupP != 0 {
		opts.P = &backupP
	}

	fmt.Fprintf(os.Stderr, "Backing up %s to %s\n", walletDir, outputFile)
	if err := backup.Backup(walletDir, outputFile, password, opts); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Backup complete: %s\n", outputFile)
	return nil
}

// resolvePassword applies the same precedence every subcommand uses:
// an explicit -p flag wins, then the BACKUPCTL_PASSWORD environment
// variable, then -P/stdin, then an interactive prompt.
func resolvePassword(flagValue string, fromStdin, confirm bool) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if envValue, ok := readPasswordFromEnv(); ok {
		return envValue, nil
	}
	if fromStdin {
		return readPasswordFromStdin()
	}
	return readPasswordInteractive(confirm)
}
