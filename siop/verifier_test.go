package siop

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"
	"time"

	"github.com/oid4vc/vclib/holder"
	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/validator"
	"github.com/oid4vc/vclib/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	issuer        *signing.SoftwareCryptoService
	holderCrypto  *signing.SoftwareCryptoService
	clock         time.Time
	validator     *validator.Validator
	verifierCrypto signing.VerifierCryptoService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	issuer, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	holderCrypto, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)

	keys := map[string]any{
		issuer.Identifier():       issuer.PublicKey(),
		holderCrypto.Identifier(): holderCrypto.PublicKey(),
	}
	resolver := jws.KeyResolverFunc(func(kid string) (any, error) {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		return nil, assertUnknownKid(kid)
	})

	clock := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	verifierCrypto := signing.NewSoftwareVerifierCryptoService()
	v := validator.New(verifierCrypto, resolver, validator.WithClock(func() time.Time { return clock }))

	return &harness{
		issuer:         issuer,
		holderCrypto:   holderCrypto,
		clock:          clock,
		validator:      v,
		verifierCrypto: verifierCrypto,
	}
}

func assertUnknownKid(kid string) error { return &unknownKidError{kid} }

type unknownKidError struct{ kid string }

func (e *unknownKidError) Error() string { return "unknown kid: " + e.kid }

func (h *harness) issueVcJws(t *testing.T, name, value string) string {
	t.Helper()
	credential := vc.VerifiableCredential{
		ID:             vc.NewCredentialID(),
		Type:           []string{vc.TypeVerifiableCredential, vc.AtomicAttributeConcreteType},
		Issuer:         h.issuer.Identifier(),
		IssuanceDate:   h.clock.Add(-time.Hour),
		ExpirationDate: h.clock.Add(time.Hour),
		CredentialSubject: vc.AtomicAttribute{
			ID:    h.holderCrypto.Identifier(),
			Name:  name,
			Value: value,
		},
	}
	claims := vc.NewVCJWSClaims(credential, h.holderCrypto.Identifier())
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	compact, err := jws.Sign(context.Background(), jws.Header{}, payload, h.issuer, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return compact
}

func (h *harness) newHolderAgent() *holder.Agent {
	return holder.NewAgent(h.holderCrypto.Identifier(), h.holderCrypto, h.validator, holder.WithClock(func() time.Time { return h.clock }))
}

func TestCreateAuthnRequestUrlFragmentDefault(t *testing.T) {
	h := newHarness(t)
	verifier := New("did:key:zVerifier", h.validator, h.verifierCrypto)
	defer verifier.Stop()

	requestUrl, err := verifier.CreateAuthnRequestUrl("https://wallet.example/authorize", CreateAuthnRequestOptions{
		AttributeTypes: []string{vc.AtomicAttributeConcreteType},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(requestUrl)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "id_token vp_token", query.Get("response_type"))
	assert.Equal(t, "did:key:zVerifier", query.Get("client_id"))
	assert.Equal(t, "did:key:zVerifier", query.Get("redirect_uri"))
	assert.Equal(t, ResponseModeFragment, query.Get("response_mode"))
	assert.NotEmpty(t, query.Get("nonce"))
	assert.NotEmpty(t, query.Get("state"))
	assert.NotEmpty(t, query.Get("client_metadata"))
}

func TestFullSiopRoundTripFragmentMode(t *testing.T) {
	h := newHarness(t)
	verifierIdentifier := "did:key:zVerifier"
	verifier := New(verifierIdentifier, h.validator, h.verifierCrypto)
	defer verifier.Stop()

	holderAgent := h.newHolderAgent()
	vcJws := h.issueVcJws(t, "given_name", "Alice")
	require.True(t, holderAgent.StoreValidatedCredentials([]holder.Input{{VcJws: vcJws}}))
	wallet := NewWallet(holderAgent, h.holderCrypto, WithWalletClock(func() time.Time { return h.clock }))

	requestUrl, err := verifier.CreateAuthnRequestUrl("https://wallet.example/authorize", CreateAuthnRequestOptions{
		AttributeTypes: []string{vc.AtomicAttributeConcreteType},
	})
	require.NoError(t, err)

	response, err := wallet.CreateAuthnResponse(context.Background(), requestUrl)
	require.NoError(t, err)
	require.True(t, response.IsRedirect())

	redirect, err := url.Parse(response.URL())
	require.NoError(t, err)
	fragment, err := url.ParseQuery(redirect.Fragment)
	require.NoError(t, err)

	result := verifier.ValidateAuthnResponse(fragment)
	require.True(t, result.Success())
	assert.Len(t, result.VerifiedPresentation().VerifiableCredentials(), 1)
}

func TestValidateAuthnResponseUnknownStateFails(t *testing.T) {
	h := newHarness(t)
	verifier := New("did:key:zVerifier", h.validator, h.verifierCrypto)
	defer verifier.Stop()

	params := url.Values{}
	params.Set("state", "unknown-state")
	params.Set("id_token", "x")
	params.Set("vp_token", "y")

	result := verifier.ValidateAuthnResponse(params)
	assert.False(t, result.Success())
	assert.Error(t, result.Err())
}
