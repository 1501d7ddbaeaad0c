package didkey_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/oid4vc/vclib/internal/didkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateP256(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return private
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	private := generateP256(t)

	encoded, err := didkey.Encode(&private.PublicKey)
	require.NoError(t, err)
	assert.True(t, didkey.IsDidKey(encoded))

	decoded, err := didkey.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, private.PublicKey.X, decoded.X)
	assert.Equal(t, private.PublicKey.Y, decoded.Y)
}

func TestDecodeIgnoresFragment(t *testing.T) {
	private := generateP256(t)
	encoded, err := didkey.Encode(&private.PublicKey)
	require.NoError(t, err)

	decoded, err := didkey.Decode(encoded + "#key-1")
	require.NoError(t, err)
	assert.Equal(t, private.PublicKey.X, decoded.X)
}

func TestDecodeRejectsNonDidKeyPrefix(t *testing.T) {
	_, err := didkey.Decode("did:web:example.com")
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedMultibase(t *testing.T) {
	_, err := didkey.Decode("did:key:not-valid-multibase!!!")
	assert.Error(t, err)
}

func TestEncodeRejectsNonP256Key(t *testing.T) {
	private, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	_, err = didkey.Encode(&private.PublicKey)
	assert.Error(t, err)
}

func TestIsDidKey(t *testing.T) {
	assert.True(t, didkey.IsDidKey("did:key:zSomething"))
	assert.False(t, didkey.IsDidKey("did:web:example.com"))
	assert.False(t, didkey.IsDidKey("https://example.com"))
}
