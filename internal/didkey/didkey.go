// Package didkey resolves and generates did:key identifiers for P-256
// (ES256) public keys, the subset of the did:key method this module's JWS
// codec needs. Grounded on the multicodec/multibase decoding approach used
// by the teacher's DID resolver.
package didkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
)

// p256MulticodecPrefix is the multicodec varint identifying a P-256
// elliptic-curve public key, per the multicodec table.
const p256MulticodecPrefix = 0x1200

// Prefix is the did:key method prefix.
const Prefix = "did:key:"

// Encode produces a did:key identifier for an ECDSA P-256 public key, using
// the SEC1-compressed point encoding wrapped in the multicodec/multibase
// envelope.
func Encode(pub *ecdsa.PublicKey) (string, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return "", fmt.Errorf("didkey: only P-256 public keys are supported")
	}

	compressed := elliptic.MarshalCompressed(elliptic.P256(), pub.X, pub.Y)

	varint := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(varint, p256MulticodecPrefix)

	payload := append(varint[:n], compressed...)

	encoded, err := multibase.Encode(multibase.Base58BTC, payload)
	if err != nil {
		return "", fmt.Errorf("didkey: encode multibase: %w", err)
	}

	return Prefix + encoded, nil
}

// Decode extracts an ECDSA P-256 public key from a did:key identifier,
// ignoring any "#fragment" suffix.
func Decode(didKey string) (*ecdsa.PublicKey, error) {
	if !strings.HasPrefix(didKey, Prefix) {
		return nil, fmt.Errorf("didkey: not a did:key identifier: %s", didKey)
	}

	withoutPrefix := strings.TrimPrefix(didKey, Prefix)
	multikey := strings.SplitN(withoutPrefix, "#", 2)[0]

	_, decoded, err := multibase.Decode(multikey)
	if err != nil {
		return nil, fmt.Errorf("didkey: decode multibase: %w", err)
	}

	codec, n := binary.Uvarint(decoded)
	if n <= 0 {
		return nil, fmt.Errorf("didkey: invalid multicodec varint")
	}
	if codec != p256MulticodecPrefix {
		return nil, fmt.Errorf("didkey: unsupported multicodec 0x%x, expected P-256 (0x%x)", codec, p256MulticodecPrefix)
	}

	x, y := elliptic.UnmarshalCompressed(elliptic.P256(), decoded[n:])
	if x == nil {
		return nil, fmt.Errorf("didkey: invalid compressed point")
	}

	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

// IsDidKey reports whether the identifier is a self-contained did:key value
// resolvable without a network call, the same "local" classification the
// teacher's key resolver uses for routing.
func IsDidKey(id string) bool {
	return strings.HasPrefix(id, Prefix)
}
