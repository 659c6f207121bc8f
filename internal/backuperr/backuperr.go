// Package backuperr provides the typed error taxonomy for the wallet
// backup vault. Every error the core returns carries a Kind so callers
// can branch on it with errors.As instead of string matching.
package backuperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy from the backup/restore contract.
// Exactly these seven kinds are produced by the core; nothing else
// escapes internal/backup, internal/archivecodec, internal/kdf, or
// internal/streamaead. internal/kdfparams returns plain errors, which
// its callers tag.
type Kind int

const (
	// FileAlreadyExists is returned when backup's target path exists.
	// Recoverable: the caller can choose a different path.
	FileAlreadyExists Kind = iota
	// IO covers filesystem read/write/stat failures.
	// Maybe recoverable, depending on the underlying cause.
	IO
	// Internal covers malformed archives, missing parents, path
	// traversal, and any other fault that should never reach a user
	// in detail. Not recoverable.
	Internal
	// InvalidParams is returned when the KDF rejects (log_n, r, p, len).
	// Not recoverable.
	InvalidParams
	// NoPasswordHash is returned when the KDF produced no output.
	// Not recoverable.
	NoPasswordHash
	// UnsupportedBackupVersion is returned when the stored version byte
	// does not match the version this build understands. Not
	// recoverable without a newer build.
	UnsupportedBackupVersion
	// WrongPassword is returned when AEAD tag verification fails on any
	// segment. Recoverable: the caller can retype the password.
	WrongPassword
)

func (k Kind) String() string {
	switch k {
	case FileAlreadyExists:
		return "file already exists"
	case IO:
		return "io"
	case Internal:
		return "internal"
	case InvalidParams:
		return "invalid params"
	case NoPasswordHash:
		return "no password hash"
	case UnsupportedBackupVersion:
		return "unsupported backup version"
	case WrongPassword:
		return "wrong password"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by this module. Op names
// the operation that failed (e.g. "archivecodec.ZipDir", "kdf.DeriveKey");
// Err, if present, is the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Err     error
	Version uint8 // populated only for UnsupportedBackupVersion
}

func (e *Error) Error() string {
	switch {
	case e.Kind == UnsupportedBackupVersion:
		return fmt.Sprintf("%s: %s: got version %d", e.Op, e.Kind, e.Version)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind for operation op, wrapping err
// (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NewUnsupportedVersion creates the one kind that carries a payload: the
// version byte actually found in the backup container.
func NewUnsupportedVersion(op string, version uint8) *Error {
	return &Error{Kind: UnsupportedBackupVersion, Op: op, Version: version}
}

// Is reports whether err is (or wraps) an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Wrap wraps err with additional operation context without changing its
// Kind, if err is already a tagged *Error; otherwise it is wrapped as
// Internal, since an untagged error escaping this module's boundary is
// itself a bug in the boundary.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Op: op + ": " + e.Op, Err: e.Err, Version: e.Version}
	}
	return New(Internal, op, err)
}
