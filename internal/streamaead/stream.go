package streamaead

import (
	"crypto/cipher"
	"encoding/binary"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/rgbtools/walletvault/internal/backuperr"
)

// PlaintextSegmentSize is the plaintext byte count of every non-final
// segment. This is a public format commitment (see kdfparams.NonceLength
// for the sibling 19-byte choice): segments of a different
// size are not interoperable with this container format.
const PlaintextSegmentSize = 239

// CiphertextSegmentSize is PlaintextSegmentSize plus the Poly1305 tag.
const CiphertextSegmentSize = PlaintextSegmentSize + chacha20poly1305.Overhead

// nonceFieldLength is the width of the per-backup nonce field stored
// in the container (backup.nonce). It is 5 bytes short of XChaCha20's
// 24-byte nonce: those 5 bytes are the STREAM construction's internal
// 4-byte big-endian counter plus 1-byte last-segment flag.
const nonceFieldLength = 19

const lastSegmentFlag = 0x01

// buildNonce composes the full 24-byte XChaCha20 nonce from the fixed
// 19-byte per-backup field, a 32-bit big-endian segment counter, and a
// trailing last-segment flag — the STREAM (BE32) construction named in
// the container format.
func buildNonce(fixed []byte, counter uint32, last bool) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	copy(nonce, fixed)
	binary.BigEndian.PutUint32(nonce[nonceFieldLength:nonceFieldLength+4], counter)
	if last {
		nonce[nonceFieldLength+4] = lastSegmentFlag
	}
	return nonce
}

// Encryptor encrypts an ordered sequence of plaintext segments under a
// single key and nonce, using the STREAM BE32 construction over
// XChaCha20-Poly1305. Call EncryptNext for every full 239-byte segment
// and EncryptLast exactly once, for the final (possibly empty, always
// < 239 byte) segment.
type Encryptor struct {
	aead    cipher.AEAD
	fixed   []byte
	counter uint32
	done    bool
}

// NewEncryptor builds an Encryptor from a 32-byte key and the 19-byte
// ASCII nonce field read from (or freshly generated for) the backup
// container.
func NewEncryptor(key, nonceField []byte) (*Encryptor, error) {
	if len(nonceField) != nonceFieldLength {
		return nil, backuperr.New(backuperr.Internal, "streamaead.NewEncryptor", nil)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, backuperr.New(backuperr.Internal, "streamaead.NewEncryptor", err)
	}
	fixed := make([]byte, nonceFieldLength)
	copy(fixed, nonceField)
	return &Encryptor{aead: aead, fixed: fixed}, nil
}

// EncryptNext seals one full 239-byte plaintext segment, returning its
// 255-byte on-disk form. It panics if called after EncryptLast or with
// a segment that is not exactly PlaintextSegmentSize bytes — both are
// caller bugs, not data errors.
func (e *Encryptor) EncryptNext(segment []byte) []byte {
	if e.done {
		panic("streamaead: EncryptNext called after EncryptLast")
	}
	if len(segment) != PlaintextSegmentSize {
		panic("streamaead: EncryptNext requires exactly PlaintextSegmentSize bytes")
	}
	nonce := buildNonce(e.fixed, e.counter, false)
	e.counter++
	return e.aead.Seal(nil, nonce, segment, nil)
}

// EncryptLast seals the final segment (0 to 238 plaintext bytes) and
// marks the Encryptor done. An empty slice is valid and required when
// the plaintext length is an exact multiple of PlaintextSegmentSize.
func (e *Encryptor) EncryptLast(segment []byte) []byte {
	if e.done {
		panic("streamaead: EncryptLast called twice")
	}
	if len(segment) >= PlaintextSegmentSize {
		panic("streamaead: EncryptLast requires fewer than PlaintextSegmentSize bytes")
	}
	nonce := buildNonce(e.fixed, e.counter, true)
	e.done = true
	return e.aead.Seal(nil, nonce, segment, nil)
}

// Decryptor reverses Encryptor. AEAD authentication failure at any
// segment is the sole user-visible wrong-password signal for this
// format; callers get backuperr.WrongPassword rather than a generic
// crypto error.
type Decryptor struct {
	aead    cipher.AEAD
	fixed   []byte
	counter uint32
	done    bool
}

// NewDecryptor mirrors NewEncryptor.
func NewDecryptor(key, nonceField []byte) (*Decryptor, error) {
	if len(nonceField) != nonceFieldLength {
		return nil, backuperr.New(backuperr.Internal, "streamaead.NewDecryptor", nil)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, backuperr.New(backuperr.Internal, "streamaead.NewDecryptor", err)
	}
	fixed := make([]byte, nonceFieldLength)
	copy(fixed, nonceField)
	return &Decryptor{aead: aead, fixed: fixed}, nil
}

// DecryptNext opens one full 255-byte on-disk segment, returning its
// 239-byte plaintext. AEAD tag failure returns backuperr.WrongPassword.
func (d *Decryptor) DecryptNext(segment []byte) ([]byte, error) {
	const op = "streamaead.DecryptNext"
	if d.done {
		return nil, backuperr.New(backuperr.Internal, op, nil)
	}
	if len(segment) != CiphertextSegmentSize {
		return nil, backuperr.New(backuperr.Internal, op, nil)
	}
	nonce := buildNonce(d.fixed, d.counter, false)
	plaintext, err := d.aead.Open(nil, nonce, segment, nil)
	if err != nil {
		return nil, backuperr.New(backuperr.WrongPassword, op, nil)
	}
	d.counter++
	return plaintext, nil
}

// DecryptLast opens the final on-disk segment (from 16 bytes, tag only,
// up to CiphertextSegmentSize-1 total) and marks the Decryptor done. AEAD tag failure returns backuperr.WrongPassword.
func (d *Decryptor) DecryptLast(segment []byte) ([]byte, error) {
	const op = "streamaead.DecryptLast"
	if d.done {
		return nil, backuperr.New(backuperr.Internal, op, nil)
	}
	if len(segment) >= CiphertextSegmentSize {
		return nil, backuperr.New(backuperr.Internal, op, nil)
	}
	nonce := buildNonce(d.fixed, d.counter, true)
	plaintext, err := d.aead.Open(nil, nonce, segment, nil)
	if err != nil {
		return nil, backuperr.New(backuperr.WrongPassword, op, nil)
	}
	d.done = true
	return plaintext, nil
}
