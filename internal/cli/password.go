package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrPasswordEmpty    = errors.New("password cannot be empty")
)

// passwordEnvVar lets scripted backup/restore invocations (cron jobs,
// CI pipelines) supply a password without it ever appearing in argv,
// where it would be visible to anyone on the box via `ps`.
const passwordEnvVar = "BACKUPCTL_PASSWORD"

// maxConfirmAttempts bounds how many times readPasswordInteractive
// will re-prompt after a confirmation mismatch before giving up. A
// single-shot mismatch on a backup password is exactly the kind of fat
// finger that locks a user out of their own wallet forever, so this
// module gives a few more tries instead of failing the whole backup
// over one bad keystroke.
const maxConfirmAttempts = 3

// isTerminal returns true if stdin is a terminal (not piped/redirected).
func isTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// readPasswordSecure reads a password from stdin without echo.
// Falls back to buffered read if stdin is not a terminal.
func readPasswordSecure(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if !isTerminal() {
		reader := bufio.NewReader(os.Stdin)
		pw, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(pw, "\r\n"), nil
	}

	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// readPasswordInteractive prompts for a password. When confirm is
// true (creating a backup), it re-prompts for confirmation up to
// maxConfirmAttempts times on a mismatch before giving up with
// ErrPasswordMismatch, rather than failing the entire backup run on
// the first typo.
func readPasswordInteractive(confirm bool) (string, error) {
	password, err := readPasswordSecure("Password: ")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if !confirm {
		return password, nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxConfirmAttempts; attempt++ {
		confirmation, err := readPasswordSecure("Confirm password: ")
		if err != nil {
			return "", err
		}
		if password == confirmation {
			return password, nil
		}
		lastErr = ErrPasswordMismatch
		if attempt < maxConfirmAttempts {
			fmt.Fprintln(os.Stderr, "Passwords did not match, try again.")
		}
	}
	return "", lastErr
}

// readPasswordFromStdin reads a password from stdin for piped input
// (the -P flag on both subcommands).
func readPasswordFromStdin() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	pw, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password from stdin: %w", err)
	}
	return strings.TrimRight(pw, "\r\n"), nil
}

// readPasswordFromEnv returns the password in BACKUPCTL_PASSWORD, if
// set. The second return value is false when the variable is unset,
// distinguishing that from a (legal, if unusual) empty password.
func readPasswordFromEnv() (string, bool) {
	return os.LookupEnv(passwordEnvVar)
}
