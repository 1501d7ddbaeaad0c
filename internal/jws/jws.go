// Package jws implements the compact JWS (JSON Web Signature) codec this
// module's credential lifecycle is built on: parsing, signing, and
// signature verification with header-driven key resolution. Payload bytes
// are treated as opaque at this layer — callers (vc, revocation, siop)
// interpret them as JWT claims.
package jws

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/oid4vc/vclib/internal/didkey"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/internal/vcerrors"
)

// ErrInvalidStructure is returned by Parse when the input is not a
// well-formed compact JWS: wrong segment count, bad base64url, bad header
// JSON, or an "alg" outside the whitelist.
var ErrInvalidStructure = errors.New("jws: invalid structure")

// ErrInvalidSignature is returned by Verify when the signature does not
// verify, or the verification key could not be resolved.
var ErrInvalidSignature = errors.New("jws: invalid signature")

// allowedAlgorithms whitelists the "alg" values this codec accepts, per
// spec: minimally ES256.
var allowedAlgorithms = map[string]bool{
	"ES256": true,
}

// JWK is a minimal JSON Web Key representation, grounded on the teacher's
// cryptohelpers.JWK: enough fields to carry an embedded EC public key or an
// X.509 certificate chain in a JWS header.
type JWK struct {
	Kty string   `json:"kty,omitempty"`
	Crv string   `json:"crv,omitempty"`
	X   string   `json:"x,omitempty"`
	Y   string   `json:"y,omitempty"`
	Kid string   `json:"kid,omitempty"`
	Use string   `json:"use,omitempty"`
	Alg string   `json:"alg,omitempty"`
	X5C []string `json:"x5c,omitempty"`
}

// ECDSAPublicKey extracts an ECDSA P-256 public key from the JWK, the only
// key shape this codec's ES256 whitelist requires.
func (j *JWK) ECDSAPublicKey() (*ecdsa.PublicKey, error) {
	if j.Kty != "EC" || j.Crv != "P-256" {
		return nil, fmt.Errorf("jws: unsupported jwk kty/crv: %s/%s", j.Kty, j.Crv)
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, fmt.Errorf("jws: decode jwk.x: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(j.Y)
	if err != nil {
		return nil, fmt.Errorf("jws: decode jwk.y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// JWKFromECDSAPublicKey builds a JWK for an ECDSA P-256 public key.
func JWKFromECDSAPublicKey(pub *ecdsa.PublicKey, kid string) *JWK {
	size := (pub.Curve.Params().BitSize + 7) / 8
	xBytes := pub.X.FillBytes(make([]byte, size))
	yBytes := pub.Y.FillBytes(make([]byte, size))
	return &JWK{
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(xBytes),
		Y:   base64.RawURLEncoding.EncodeToString(yBytes),
		Kid: kid,
		Alg: "ES256",
	}
}

// Header is the JWS protected header (RFC 7515 §4).
type Header struct {
	Alg string   `json:"alg"`
	Typ string   `json:"typ,omitempty"`
	Kid string   `json:"kid,omitempty"`
	JWK *JWK     `json:"jwk,omitempty"`
	X5C []string `json:"x5c,omitempty"`
}

// Signed is a parsed compact JWS: header, payload and signature, plus the
// original base64url-encoded segments needed to reproduce the signing
// input exactly.
type Signed struct {
	Header           Header
	HeaderEncoded    string
	Payload          []byte
	PayloadEncoded   string
	Signature        []byte
	SignatureEncoded string
}

// SigningInput returns "base64url(header).base64url(payload)", the bytes
// that were (or must be) signed.
func (s *Signed) SigningInput() []byte {
	return []byte(s.HeaderEncoded + "." + s.PayloadEncoded)
}

// Compact renders the full three-segment compact serialization.
func (s *Signed) Compact() string {
	return s.HeaderEncoded + "." + s.PayloadEncoded + "." + s.SignatureEncoded
}

// Parse splits and decodes a compact JWS string, validating structure and
// header shape but not the signature.
func Parse(compact string) (*Signed, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrInvalidStructure, len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header base64: %s", ErrInvalidStructure, err)
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload base64: %s", ErrInvalidStructure, err)
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature base64: %s", ErrInvalidStructure, err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("%w: header json: %s", ErrInvalidStructure, err)
	}
	if !allowedAlgorithms[header.Alg] {
		return nil, fmt.Errorf("%w: unsupported alg %q", ErrInvalidStructure, header.Alg)
	}

	return &Signed{
		Header:           header,
		HeaderEncoded:    parts[0],
		Payload:          payloadBytes,
		PayloadEncoded:   parts[1],
		Signature:        sigBytes,
		SignatureEncoded: parts[2],
	}, nil
}

// SignOptions controls which key material gets embedded in the produced
// header, beyond the mandatory alg/typ.
type SignOptions struct {
	// IncludeKid embeds crypto.Identifier() as the header "kid".
	IncludeKid bool
	// IncludeJWK embeds the full public JWK as the header "jwk" (only
	// meaningful when crypto exposes an ECDSA public key).
	IncludeJWK bool
	// Typ sets the header "typ". Defaults to "JWT" if empty.
	Typ string
}

// ecdsaPublicKeySource is implemented by CryptoService implementations
// that can hand back their raw public key, used to embed a "jwk" header.
type ecdsaPublicKeySource interface {
	PublicKey() *ecdsa.PublicKey
}

// Sign serializes header and payload, computes the signing input, and asks
// crypto to sign it, returning the compact JWS string.
func Sign(ctx context.Context, header Header, payload []byte, crypto signing.CryptoService, opts SignOptions) (string, error) {
	header.Alg = crypto.JWSAlgorithm()
	if header.Typ == "" {
		if opts.Typ != "" {
			header.Typ = opts.Typ
		} else {
			header.Typ = "JWT"
		}
	}
	if opts.IncludeKid {
		header.Kid = crypto.Identifier()
	}
	if opts.IncludeJWK {
		if src, ok := crypto.(ecdsaPublicKeySource); ok {
			header.JWK = JWKFromECDSAPublicKey(src.PublicKey(), crypto.Identifier())
		}
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("jws: marshal header: %w", err)
	}
	headerEncoded := base64.RawURLEncoding.EncodeToString(headerBytes)
	payloadEncoded := base64.RawURLEncoding.EncodeToString(payload)

	signingInput := []byte(headerEncoded + "." + payloadEncoded)
	signature, err := crypto.Sign(ctx, signingInput)
	if err != nil {
		return "", fmt.Errorf("jws: sign: %w", err)
	}

	return headerEncoded + "." + payloadEncoded + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// KeyResolver resolves a "kid" (or other key identifier string) to
// verification key material. Implementations typically handle did:key
// locally and delegate everything else to a lookup table or network call.
type KeyResolver interface {
	Resolve(kid string) (any, error)
}

// KeyResolverFunc adapts a function to KeyResolver.
type KeyResolverFunc func(kid string) (any, error)

// Resolve calls f.
func (f KeyResolverFunc) Resolve(kid string) (any, error) { return f(kid) }

// DidKeyResolver resolves did:key identifiers locally; anything else is
// rejected. Compose with a remote resolver via FallbackResolver for
// non-self-contained identifiers.
var DidKeyResolver KeyResolverFunc = func(kid string) (any, error) {
	if !didkey.IsDidKey(kid) {
		return nil, fmt.Errorf("jws: not a did:key identifier: %s", kid)
	}
	return didkey.Decode(kid)
}

// FallbackResolver tries each resolver in order, returning the first
// successful resolution.
func FallbackResolver(resolvers ...KeyResolver) KeyResolverFunc {
	return func(kid string) (any, error) {
		var lastErr error
		for _, r := range resolvers {
			key, err := r.Resolve(kid)
			if err == nil {
				return key, nil
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fmt.Errorf("jws: no resolvers configured")
		}
		return nil, lastErr
	}
}

// Verify resolves a verification key — in priority order: expectedKey (if
// non-nil), header.JWK, header.X5C[0], then header.Kid via resolver — and
// asks verifier to check the signature over s's signing input.
func Verify(s *Signed, expectedKey any, resolver KeyResolver, verifier signing.VerifierCryptoService) (bool, error) {
	key, err := resolveKey(s, expectedKey, resolver)
	if err != nil {
		return false, fmt.Errorf("%w: %w: %s", ErrInvalidSignature, vcerrors.ErrKeyUnresolvable, err)
	}

	ok, err := verifier.Verify(s.SigningInput(), s.Signature, s.Header.Alg, key)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if !ok {
		return false, ErrInvalidSignature
	}
	return true, nil
}

func resolveKey(s *Signed, expectedKey any, resolver KeyResolver) (any, error) {
	if expectedKey != nil {
		return expectedKey, nil
	}
	if s.Header.JWK != nil {
		return s.Header.JWK.ECDSAPublicKey()
	}
	if len(s.Header.X5C) > 0 {
		return publicKeyFromCert(s.Header.X5C[0])
	}
	if s.Header.Kid != "" {
		if resolver == nil {
			return nil, fmt.Errorf("jws: kid %q present but no resolver configured", s.Header.Kid)
		}
		return resolver.Resolve(s.Header.Kid)
	}
	return nil, fmt.Errorf("jws: no key material in header and no expected key supplied")
}

func publicKeyFromCert(b64cert string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64cert)
	if err != nil {
		return nil, fmt.Errorf("jws: decode x5c: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("jws: parse x5c certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("jws: x5c certificate key is not ECDSA")
	}
	return pub, nil
}
