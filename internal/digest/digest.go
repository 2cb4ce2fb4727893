// Package digest provides SHA-256 digest values and their canonical
// hexadecimal encoding.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/pkg/errors"

	apperrors "assetcache/internal/errors"
)

const (
	// Size is the number of raw digest bytes.
	Size = sha256.Size

	// HexLen is the length of the canonical hexadecimal form.
	HexLen = 2 * Size
)

// Digest is a raw SHA-256 checksum value.
type Digest [Size]byte

// ParseHex decodes a 64-character hexadecimal string into a Digest. Mixed
// case input is accepted; any other shape is rejected as a validation error.
func ParseHex(s string) (Digest, error) {
	var d Digest

	if len(s) != HexLen {
		return d, apperrors.ValidationError(
			apperrors.CodeHashFormat,
			"hash must be 64 hexadecimal characters",
			nil,
		).WithFields(apperrors.Metadata{"input": s, "length": len(s)})
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return d, apperrors.ValidationError(
			apperrors.CodeHashFormat,
			"hash contains non-hexadecimal characters",
			err,
		).WithField("input", s)
	}

	copy(d[:], decoded)
	return d, nil
}

// FromBytes builds a Digest from a raw 32-byte slice.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, apperrors.ValidationError(
			apperrors.CodeHashFormat,
			"raw digest must be 32 bytes",
			nil,
		).WithField("length", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Sum computes the digest of the provided data.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// SumReader computes the digest of everything readable from r and reports
// the number of bytes consumed.
func SumReader(r io.Reader) (Digest, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Digest{}, n, errors.Wrap(err, "failed to read data for checksum")
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, n, nil
}

// Hex renders the canonical lowercase hexadecimal form.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String implements fmt.Stringer.
func (d Digest) String() string {
	return d.Hex()
}

// Bytes returns a copy of the raw digest bytes.
func (d Digest) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, d[:])
	return out
}
