// Command backupctl folds a wallet directory into a single encrypted,
// portable backup file, and restores one back onto disk:
//   - scrypt for password-based key derivation
//   - XChaCha20-Poly1305 in a streaming STREAM/BE32 construction
//   - Zstandard-compressed zip containers for both archive layers
package main

import (
	"os"

	"github.com/rgbtools/walletvault/internal/cli"
)

// version is the application version reported by `backupctl --version`.
const version = "v1.00"

func main() {
	os.Exit(cli.Execute(version))
}
