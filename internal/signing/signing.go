// Package signing defines the CryptoService / VerifierCryptoService
// contracts this module treats as external collaborators (per spec — real
// ECDSA signing, key storage and platform keystore bindings live outside
// this core), plus a software-backed implementation suitable for tests and
// for any caller that does not need a hardware-backed signer.
package signing

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/oid4vc/vclib/internal/didkey"
	"github.com/oid4vc/vclib/internal/vcerrors"
)

// CryptoService is the signing-side contract an agent depends on. It never
// crosses an agent boundary; each agent owns exactly one.
type CryptoService interface {
	// Sign signs data and returns a raw, algorithm-native signature (for
	// ECDSA: the fixed-width r||s encoding expected by JWS).
	Sign(ctx context.Context, data []byte) ([]byte, error)

	// Identifier returns this service's key id: both a JWS kid and a
	// routing identifier, derivable from the public key.
	Identifier() string

	// JWSAlgorithm returns the JWS "alg" value this service signs with.
	JWSAlgorithm() string

	// ToJSONWebKey returns the public key as a JWK, for embedding in a JWS
	// header or a client_metadata.jwks document.
	ToJSONWebKey() (jwk.Key, error)
}

// VerifierCryptoService is the verification-side contract. It holds no
// back-reference to any CryptoService; it receives whatever key material a
// caller (or a resolved header) hands it.
type VerifierCryptoService interface {
	// Verify reports whether signature is a valid signature over input
	// under alg, using key (an *ecdsa.PublicKey for the ES* family).
	Verify(input, signature []byte, alg string, key any) (bool, error)
}

// KidStrategy controls how a SoftwareCryptoService derives its Identifier.
type KidStrategy int

const (
	// KidThumbprint derives the identifier as an RFC 7638 JWK thumbprint
	// URN: "urn:ietf:params:oauth:jwk-thumbprint:sha-256:<b64url>".
	KidThumbprint KidStrategy = iota
	// KidDidKey derives the identifier as a did:key URI.
	KidDidKey
)

// SoftwareCryptoService implements CryptoService with an in-memory ECDSA
// P-256 key pair. Grounded on the teacher's SoftwareSigner, generalized to
// the subset of key types (P-256/ES256) this module's JWS whitelist needs.
type SoftwareCryptoService struct {
	private *ecdsa.PrivateKey
	kid     string
}

// NewSoftwareCryptoService builds a SoftwareCryptoService from an ECDSA
// P-256 private key, deriving its identifier per strategy.
func NewSoftwareCryptoService(private *ecdsa.PrivateKey, strategy KidStrategy) (*SoftwareCryptoService, error) {
	if private == nil {
		return nil, fmt.Errorf("signing: private key is nil")
	}
	if private.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing: only P-256 keys are supported, got curve %s", private.Curve.Params().Name)
	}

	var kid string
	var err error
	switch strategy {
	case KidDidKey:
		kid, err = didkey.Encode(&private.PublicKey)
	default:
		kid, err = JWKThumbprintURN(&private.PublicKey)
	}
	if err != nil {
		return nil, err
	}

	return &SoftwareCryptoService{private: private, kid: kid}, nil
}

// GenerateSoftwareCryptoService generates a fresh P-256 key pair and wraps
// it in a SoftwareCryptoService. Convenient for tests and examples.
func GenerateSoftwareCryptoService(strategy KidStrategy) (*SoftwareCryptoService, error) {
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return NewSoftwareCryptoService(private, strategy)
}

// Sign signs data with ECDSA P-256 / SHA-256, returning the fixed-width
// r||s encoding JWS expects (RFC 7518 §3.4), not ASN.1 DER.
func (s *SoftwareCryptoService) Sign(_ context.Context, data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, sVal, err := ecdsa.Sign(rand.Reader, s.private, digest[:])
	if err != nil {
		return nil, err
	}

	keyBytes := (s.private.Curve.Params().BitSize + 7) / 8
	sig := make([]byte, 2*keyBytes)
	rBytes := r.Bytes()
	sBytes := sVal.Bytes()
	copy(sig[keyBytes-len(rBytes):keyBytes], rBytes)
	copy(sig[2*keyBytes-len(sBytes):], sBytes)
	return sig, nil
}

// Identifier returns the derived kid/routing identifier.
func (s *SoftwareCryptoService) Identifier() string { return s.kid }

// JWSAlgorithm always returns ES256, the only algorithm this software
// service implements.
func (s *SoftwareCryptoService) JWSAlgorithm() string { return "ES256" }

// PublicKey exposes the raw public key, e.g. for seeding a jws.KeyResolver
// in tests.
func (s *SoftwareCryptoService) PublicKey() *ecdsa.PublicKey { return &s.private.PublicKey }

// ToJSONWebKey returns the public key as a JWK.
func (s *SoftwareCryptoService) ToJSONWebKey() (jwk.Key, error) {
	key, err := jwk.PublicKeyOf(s.private)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, s.kid); err != nil {
		return nil, err
	}
	return key, nil
}

// JWKThumbprintURN computes the RFC 7638 JWK thumbprint of an ECDSA public
// key and formats it as the urn:ietf:params:oauth:jwk-thumbprint URI scheme
// this module uses as a stable key identifier.
func JWKThumbprintURN(pub *ecdsa.PublicKey) (string, error) {
	key, err := jwk.PublicKeyOf(pub)
	if err != nil {
		return "", err
	}
	thumb, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", err
	}
	return "urn:ietf:params:oauth:jwk-thumbprint:sha-256:" + base64.RawURLEncoding.EncodeToString(thumb), nil
}

// SoftwareVerifierCryptoService implements VerifierCryptoService using
// crypto/ecdsa directly, with no secret material.
type SoftwareVerifierCryptoService struct{}

// NewSoftwareVerifierCryptoService constructs a stateless verifier service.
func NewSoftwareVerifierCryptoService() *SoftwareVerifierCryptoService {
	return &SoftwareVerifierCryptoService{}
}

// Verify verifies an ES256 signature. Other algorithms are rejected since
// this module's JWS whitelist (spec §4.1) only requires ES256.
func (SoftwareVerifierCryptoService) Verify(input, signature []byte, alg string, key any) (bool, error) {
	if alg != "ES256" {
		return false, fmt.Errorf("signing: unsupported algorithm %q", alg)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("signing: %w: expected *ecdsa.PublicKey, got %T", vcerrors.ErrUnsupportedKeyType, key)
	}

	keyBytes := (pub.Curve.Params().BitSize + 7) / 8
	if len(signature) != 2*keyBytes {
		return false, nil
	}

	digest := sha256.Sum256(input)
	r := new(big.Int).SetBytes(signature[:keyBytes])
	s := new(big.Int).SetBytes(signature[keyBytes:])
	return ecdsa.Verify(pub, digest[:], r, s), nil
}
