package backup

import (
	"io"
	"os"

	"github.com/rgbtools/walletvault/internal/backuperr"
	"github.com/rgbtools/walletvault/internal/streamaead"
)

// encryptFile streams src through a streamaead.Encryptor into dst,
// reading PlaintextSegmentSize bytes at a time and writing a segment
// per read the way the loop in §4.D of the format spec describes: a
// short (or empty) final read always goes through EncryptLast, even
// when src's length is an exact multiple of the segment size.
func encryptFile(src, dst string, key, nonceField []byte) error {
	const op = "backup.encryptFile"

	enc, err := streamaead.NewEncryptor(key, nonceField)
	if err != nil {
		return backuperr.Wrap(op, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}

	buf := make([]byte, streamaead.PlaintextSegmentSize)
	for {
		n, readErr := io.ReadFull(in, buf)
		if readErr == nil {
			if _, err := out.Write(enc.EncryptNext(buf)); err != nil {
				_ = out.Close()
				return backuperr.New(backuperr.IO, op, err)
			}
			continue
		}
		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			if _, err := out.Write(enc.EncryptLast(buf[:n])); err != nil {
				_ = out.Close()
				return backuperr.New(backuperr.IO, op, err)
			}
			break
		}
		_ = out.Close()
		return backuperr.New(backuperr.IO, op, readErr)
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		return backuperr.New(backuperr.IO, op, err)
	}
	if err := out.Close(); err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}
	return nil
}

// decryptFile reverses encryptFile. AEAD authentication failure at any
// segment surfaces as backuperr.WrongPassword, propagated unchanged
// from streamaead.
func decryptFile(src, dst string, key, nonceField []byte) error {
	const op = "backup.decryptFile"

	dec, err := streamaead.NewDecryptor(key, nonceField)
	if err != nil {
		return backuperr.Wrap(op, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}

	buf := make([]byte, streamaead.CiphertextSegmentSize)
	for {
		n, readErr := io.ReadFull(in, buf)
		if readErr == nil {
			plaintext, err := dec.DecryptNext(buf)
			if err != nil {
				_ = out.Close()
				return err
			}
			if _, err := out.Write(plaintext); err != nil {
				_ = out.Close()
				return backuperr.New(backuperr.IO, op, err)
			}
			continue
		}
		if readErr == io.EOF && n == 0 {
			// A zero-byte read ends the loop without a final segment:
			// the stream stopped right after a full non-final segment,
			// or the file is empty. Output of encryptFile never gets
			// here, because its final segment (16 bytes minimum, tag
			// only) is consumed by the ErrUnexpectedEOF branch below,
			// which ends the loop itself.
			break
		}
		if readErr == io.ErrUnexpectedEOF || readErr == io.EOF {
			plaintext, err := dec.DecryptLast(buf[:n])
			if err != nil {
				_ = out.Close()
				return err
			}
			if _, err := out.Write(plaintext); err != nil {
				_ = out.Close()
				return backuperr.New(backuperr.IO, op, err)
			}
			break
		}
		_ = out.Close()
		return backuperr.New(backuperr.IO, op, readErr)
	}

	if err := out.Sync(); err != nil {
		_ = out.Close()
		return backuperr.New(backuperr.IO, op, err)
	}
	if err := out.Close(); err != nil {
		return backuperr.New(backuperr.IO, op, err)
	}
	return nil
}
