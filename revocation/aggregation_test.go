package revocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregationDocCBORRoundTrip(t *testing.T) {
	doc := NewAggregationDoc("AtomicAttribute2023", []string{
		"https://issuer.example/status/2026-Q1",
		"https://issuer.example/status/2026-Q2",
	})

	encoded, err := EncodeCBOR(doc)
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)

	decoded, err := DecodeAggregationDocCBOR(encoded)
	require.NoError(t, err)
	assert.Equal(t, doc, *decoded)
}

func TestNewAggregationDocNilUrls(t *testing.T) {
	doc := NewAggregationDoc("AtomicAttribute2023", nil)
	assert.NotNil(t, doc.StatusListCredentialUrls)
	assert.Empty(t, doc.StatusListCredentialUrls)
}
