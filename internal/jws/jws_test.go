package jws_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCryptoService(t *testing.T) *signing.SoftwareCryptoService {
	t.Helper()
	crypto, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	return crypto
}

func TestSignParseVerifyWithKidResolver(t *testing.T) {
	crypto := newCryptoService(t)
	verifier := signing.NewSoftwareVerifierCryptoService()

	compact, err := jws.Sign(context.Background(), jws.Header{}, []byte(`{"hello":"world"}`), crypto, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)

	signed, err := jws.Parse(compact)
	require.NoError(t, err)
	assert.Equal(t, "ES256", signed.Header.Alg)
	assert.Equal(t, crypto.Identifier(), signed.Header.Kid)
	assert.Equal(t, []byte(`{"hello":"world"}`), signed.Payload)

	resolver := jws.KeyResolverFunc(func(kid string) (any, error) {
		if kid == crypto.Identifier() {
			return crypto.PublicKey(), nil
		}
		return nil, assertNotFound(kid)
	})

	ok, err := jws.Verify(signed, nil, resolver, verifier)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyWithEmbeddedJWK(t *testing.T) {
	crypto := newCryptoService(t)
	verifier := signing.NewSoftwareVerifierCryptoService()

	compact, err := jws.Sign(context.Background(), jws.Header{}, []byte("payload"), crypto, jws.SignOptions{IncludeJWK: true})
	require.NoError(t, err)

	signed, err := jws.Parse(compact)
	require.NoError(t, err)
	require.NotNil(t, signed.Header.JWK)

	ok, err := jws.Verify(signed, nil, nil, verifier)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyPrefersExpectedKeyOverHeader(t *testing.T) {
	crypto := newCryptoService(t)
	other := newCryptoService(t)
	verifier := signing.NewSoftwareVerifierCryptoService()

	compact, err := jws.Sign(context.Background(), jws.Header{}, []byte("payload"), crypto, jws.SignOptions{IncludeJWK: true})
	require.NoError(t, err)
	signed, err := jws.Parse(compact)
	require.NoError(t, err)

	_, err = jws.Verify(signed, other.PublicKey(), nil, verifier)
	assert.ErrorIs(t, err, jws.ErrInvalidSignature)
}

func TestVerifyTamperedSignatureFails(t *testing.T) {
	crypto := newCryptoService(t)
	verifier := signing.NewSoftwareVerifierCryptoService()

	compact, err := jws.Sign(context.Background(), jws.Header{}, []byte("payload"), crypto, jws.SignOptions{IncludeJWK: true})
	require.NoError(t, err)
	tampered := compact[:len(compact)-2] + "AA"

	signed, err := jws.Parse(tampered)
	require.NoError(t, err)
	ok, err := jws.Verify(signed, nil, nil, verifier)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestParseRejectsMalformedStructure(t *testing.T) {
	_, err := jws.Parse("not.a.valid.jws")
	assert.ErrorIs(t, err, jws.ErrInvalidStructure)

	_, err = jws.Parse("only-one-segment")
	assert.ErrorIs(t, err, jws.ErrInvalidStructure)
}

func TestParseRejectsUnsupportedAlgorithm(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte("{}"))
	sig := base64.RawURLEncoding.EncodeToString([]byte("sig"))
	_, err := jws.Parse(header + "." + payload + "." + sig)
	assert.ErrorIs(t, err, jws.ErrInvalidStructure)
}

func TestVerifyRejectsKidWithoutResolver(t *testing.T) {
	crypto := newCryptoService(t)
	verifier := signing.NewSoftwareVerifierCryptoService()

	compact, err := jws.Sign(context.Background(), jws.Header{}, []byte("payload"), crypto, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	signed, err := jws.Parse(compact)
	require.NoError(t, err)

	_, err = jws.Verify(signed, nil, nil, verifier)
	assert.Error(t, err)
}

func TestFallbackResolverTriesEachInOrder(t *testing.T) {
	first := jws.KeyResolverFunc(func(kid string) (any, error) { return nil, assertNotFound(kid) })
	crypto := newCryptoService(t)
	second := jws.KeyResolverFunc(func(kid string) (any, error) { return crypto.PublicKey(), nil })

	resolver := jws.FallbackResolver(first, second)
	key, err := resolver.Resolve("anything")
	require.NoError(t, err)
	assert.Equal(t, crypto.PublicKey(), key)
}

type notFoundError struct{ kid string }

func (e *notFoundError) Error() string { return "not found: " + e.kid }

func assertNotFound(kid string) error { return &notFoundError{kid} }
