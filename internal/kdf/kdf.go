// Package kdf derives the per-backup encryption key from a user
// password and a stored kdfparams.KdfParams using scrypt. This is
// AUDIT-CRITICAL code: the parameters and the salt-decoding step are
// wire-format commitments, not tunables — see kdfparams.DecodeSalt.
package kdf

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/rgbtools/walletvault/internal/backuperr"
	"github.com/rgbtools/walletvault/internal/kdfparams"
)

// maxLogN bounds the cost parameter so that 1<<logN stays a positive
// Go int (log_n at most 62). This is one below the upstream scrypt
// parameter validator's ceiling of log_n < 64.
const maxLogN = 63

// DeriveKey runs scrypt over password and params, returning a key of
// params.Len bytes. It validates params the way the reference
// implementation's scrypt::Params::new does, so a corrupted or
// hand-edited backup.scrypt_params fails fast with InvalidParams
// instead of silently deriving a useless key.
//
// DeriveKey itself cannot tell a wrong password from a right one — both
// produce a 32-byte key, just not the same one. Wrong-password
// detection happens downstream, the first time the derived key fails
// to open an AEAD segment (see internal/streamaead).
func DeriveKey(password string, params *kdfparams.KdfParams) ([]byte, error) {
	const op = "kdf.DeriveKey"

	if err := validate(params); err != nil {
		return nil, backuperr.New(backuperr.InvalidParams, op, err)
	}

	salt, err := kdfparams.DecodeSalt(params.Salt)
	if err != nil {
		return nil, backuperr.New(backuperr.InvalidParams, op, err)
	}

	n := uint64(1) << params.LogN
	key, err := scrypt.Key([]byte(password), salt, int(n), int(params.R), int(params.P), int(params.Len))
	if err != nil {
		return nil, backuperr.New(backuperr.InvalidParams, op, err)
	}

	if bytes.Equal(key, make([]byte, len(key))) {
		return nil, backuperr.New(backuperr.NoPasswordHash, op, nil)
	}

	return key, nil
}

// validate mirrors scrypt::Params::new's own checks: log_n must leave
// N representable, and r*p must stay under 2^30 to keep scrypt's
// internal block indexing within a 32-bit range. len is pinned to
// kdfparams.KeyLen because nothing in this format ever asks scrypt for
// a different output size.
func validate(params *kdfparams.KdfParams) error {
	if params == nil {
		return fmt.Errorf("nil kdf params")
	}
	if params.LogN >= maxLogN {
		return fmt.Errorf("log_n %d exceeds maximum %d", params.LogN, maxLogN-1)
	}
	if params.R == 0 || params.P == 0 {
		return fmt.Errorf("r and p must be non-zero (got r=%d, p=%d)", params.R, params.P)
	}
	if uint64(params.R)*uint64(params.P) >= (1 << 30) {
		return fmt.Errorf("r*p must be less than 2^30 (got r=%d, p=%d)", params.R, params.P)
	}
	if params.Len != kdfparams.KeyLen {
		return fmt.Errorf("len must be %d (got %d)", kdfparams.KeyLen, params.Len)
	}
	if params.Salt == "" {
		return fmt.Errorf("salt must not be empty")
	}
	return nil
}
