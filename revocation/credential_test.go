package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	ctx := context.Background()
	crypto, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	verifier := signing.NewSoftwareVerifierCryptoService()
	resolver := jws.KeyResolverFunc(func(kid string) (any, error) {
		if kid == crypto.Identifier() {
			return crypto.PublicKey(), nil
		}
		return nil, errors.New("unknown kid")
	})

	list := NewList(1024, "2026-Q1")
	revokedIndex, err := list.AllocateIndex()
	require.NoError(t, err)
	require.NoError(t, list.Revoke(revokedIndex))

	issuance := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiration := issuance.Add(90 * 24 * time.Hour)

	compact, err := Issue(ctx, list, crypto, "revocation-list:2026-Q1", issuance, expiration)
	require.NoError(t, err)

	decodedList, credential, err := Parse(compact, verifier, resolver, nil)
	require.NoError(t, err)

	assert.Equal(t, vc.RevocationListConcreteType, credential.ConcreteType())
	assert.True(t, decodedList.IsRevoked(revokedIndex))
	assert.False(t, decodedList.IsRevoked((revokedIndex+1)%1024))
}

func TestParseRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	crypto, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	other, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	verifier := signing.NewSoftwareVerifierCryptoService()
	resolver := jws.KeyResolverFunc(func(kid string) (any, error) {
		if kid == crypto.Identifier() {
			return other.PublicKey(), nil
		}
		return nil, errors.New("unknown kid")
	})

	list := NewList(256, "2026-Q1")
	compact, err := Issue(ctx, list, crypto, "revocation-list:2026-Q1", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, _, err = Parse(compact, verifier, resolver, nil)
	assert.Error(t, err)
}
