// Package revocation implements the bitstring-encoded status list an
// issuer maintains and publishes as a signed RevocationList2020 credential,
// and which holders/verifiers decode to check a credential's live status.
package revocation

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
)

// DefaultSize is the default bitstring length in bits: 131072 bits (16 KiB),
// the minimum spec.md requires.
const DefaultSize = 131072

// Bitstring is a fixed-size, big-endian-packed bit vector.
type Bitstring struct {
	bits []byte
	size int
}

// NewBitstring allocates a zeroed bitstring of size bits. size <= 0 falls
// back to DefaultSize.
func NewBitstring(size int) *Bitstring {
	if size <= 0 {
		size = DefaultSize
	}
	return &Bitstring{bits: make([]byte, (size+7)/8), size: size}
}

// Len returns the bitstring's length in bits.
func (b *Bitstring) Len() int { return b.size }

// Set sets bit i to 1.
func (b *Bitstring) Set(i int) error {
	if i < 0 || i >= b.size {
		return fmt.Errorf("revocation: index %d out of range [0, %d)", i, b.size)
	}
	b.bits[i/8] |= 1 << (7 - uint(i%8))
	return nil
}

// IsSet reports whether bit i is 1. Out-of-range indices report false.
func (b *Bitstring) IsSet(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.bits[i/8]&(1<<(7-uint(i%8))) != 0
}

// Encode renders the bitstring as base64url(gzip(bits)), the
// RevocationList2020 subject's encodedList format.
func (b *Bitstring) Encode() (string, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(b.bits); err != nil {
		return "", fmt.Errorf("revocation: gzip write: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("revocation: gzip close: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeBitstring inverts Encode. A malformed input yields an error rather
// than a zero-value bitstring.
func DecodeBitstring(encoded string) (*Bitstring, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("revocation: base64 decode: %w", err)
	}
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("revocation: gzip reader: %w", err)
	}
	defer gz.Close()

	bits, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("revocation: gzip read: %w", err)
	}

	return &Bitstring{bits: bits, size: len(bits) * 8}, nil
}
