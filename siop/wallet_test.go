package siop

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/oid4vc/vclib/holder"
	"github.com/oid4vc/vclib/internal/oidcerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAuthnResponseQueryMode(t *testing.T) {
	h := newHarness(t)
	verifier := New("did:key:zVerifier", h.validator, h.verifierCrypto)
	defer verifier.Stop()

	holderAgent := h.newHolderAgent()
	vcJws := h.issueVcJws(t, "given_name", "Alice")
	require.True(t, holderAgent.StoreValidatedCredentials([]holder.Input{{VcJws: vcJws}}))
	wallet := NewWallet(holderAgent, h.holderCrypto, WithWalletClock(func() time.Time { return h.clock }))

	requestUrl, err := verifier.CreateAuthnRequestUrl("https://wallet.example/authorize", CreateAuthnRequestOptions{
		ResponseMode:   ResponseModeQuery,
		AttributeTypes: []string{"AtomicAttribute2023"},
	})
	require.NoError(t, err)

	response, err := wallet.CreateAuthnResponse(context.Background(), requestUrl)
	require.NoError(t, err)
	require.True(t, response.IsRedirect())

	redirect, err := url.Parse(response.URL())
	require.NoError(t, err)
	query := redirect.Query()
	assert.NotEmpty(t, query.Get("id_token"))
	assert.NotEmpty(t, query.Get("vp_token"))

	result := verifier.ValidateAuthnResponse(query)
	assert.True(t, result.Success())
}

func TestCreateAuthnResponsePostMode(t *testing.T) {
	h := newHarness(t)
	verifier := New("did:key:zVerifier", h.validator, h.verifierCrypto)
	defer verifier.Stop()

	holderAgent := h.newHolderAgent()
	vcJws := h.issueVcJws(t, "given_name", "Alice")
	require.True(t, holderAgent.StoreValidatedCredentials([]holder.Input{{VcJws: vcJws}}))
	wallet := NewWallet(holderAgent, h.holderCrypto, WithWalletClock(func() time.Time { return h.clock }))

	requestUrl, err := verifier.CreateAuthnRequestUrl("https://wallet.example/authorize", CreateAuthnRequestOptions{
		ResponseMode:   ResponseModePost,
		AttributeTypes: []string{"AtomicAttribute2023"},
	})
	require.NoError(t, err)

	response, err := wallet.CreateAuthnResponse(context.Background(), requestUrl)
	require.NoError(t, err)
	require.True(t, response.IsPost())
	assert.Equal(t, "did:key:zVerifier", response.URL())
	assert.NotEmpty(t, response.FormBody().Get("id_token"))
	assert.NotEmpty(t, response.FormBody().Get("vp_token"))
	assert.NotEmpty(t, response.FormBody().Get("presentation_submission"))

	result := verifier.ValidateAuthnResponse(response.FormBody())
	assert.True(t, result.Success())
}

func TestCreateAuthnResponseNoMatchingCredentialsFails(t *testing.T) {
	h := newHarness(t)
	verifier := New("did:key:zVerifier", h.validator, h.verifierCrypto)
	defer verifier.Stop()

	holderAgent := h.newHolderAgent()
	wallet := NewWallet(holderAgent, h.holderCrypto, WithWalletClock(func() time.Time { return h.clock }))

	requestUrl, err := verifier.CreateAuthnRequestUrl("https://wallet.example/authorize", CreateAuthnRequestOptions{
		AttributeTypes: []string{"AtomicAttribute2023"},
	})
	require.NoError(t, err)

	_, err = wallet.CreateAuthnResponse(context.Background(), requestUrl)
	require.Error(t, err)
	exception, ok := err.(*oidcerrors.OAuth2Exception)
	require.True(t, ok)
	assert.Equal(t, oidcerrors.ErrorAccessDenied, exception.Code)
}

func TestParseAndValidateRequestRejectsMissingState(t *testing.T) {
	params := url.Values{}
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "did:key:zVerifier")
	params.Set("response_type", "id_token vp_token")
	params.Set("nonce", "n1")

	_, err := parseAndValidateRequest(params)
	require.Error(t, err)
}

func TestParseAndValidateRequestRejectsClientIDMismatch(t *testing.T) {
	params := url.Values{}
	params.Set("state", "s1")
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "https://elsewhere.example")
	params.Set("response_type", "id_token vp_token")
	params.Set("nonce", "n1")

	_, err := parseAndValidateRequest(params)
	require.Error(t, err)
}

func TestParseAndValidateRequestRejectsMissingVpTokenOrPresentationDefinition(t *testing.T) {
	params := url.Values{}
	params.Set("state", "s1")
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "did:key:zVerifier")
	params.Set("response_type", "id_token")
	params.Set("nonce", "n1")

	_, err := parseAndValidateRequest(params)
	require.Error(t, err)
}

func TestParseAndValidateRequestRejectsMissingClientMetadata(t *testing.T) {
	params := url.Values{}
	params.Set("state", "s1")
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "did:key:zVerifier")
	params.Set("response_type", "id_token vp_token")
	params.Set("nonce", "n1")

	_, err := parseAndValidateRequest(params)
	require.Error(t, err)
	exception, ok := err.(*oidcerrors.OAuth2Exception)
	require.True(t, ok)
	assert.Equal(t, oidcerrors.ErrorInvalidRequest, exception.Code)
}

func TestParseAndValidateRequestRejectsUnsupportedClientMetadata(t *testing.T) {
	params := url.Values{}
	params.Set("state", "s1")
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "did:key:zVerifier")
	params.Set("response_type", "id_token vp_token")
	params.Set("nonce", "n1")
	params.Set("client_metadata", `{"vp_formats":{"jwt_vp":{"alg":["RS256"]}},"subject_syntax_types_supported":["urn:ietf:params:oauth:jwk-thumbprint"]}`)

	_, err := parseAndValidateRequest(params)
	require.Error(t, err)
	exception, ok := err.(*oidcerrors.OAuth2Exception)
	require.True(t, ok)
	assert.Equal(t, oidcerrors.ErrorRegistrationValueNotSupported, exception.Code)
}

func TestParseAndValidateRequestAcceptsSupportedClientMetadata(t *testing.T) {
	params := url.Values{}
	params.Set("state", "s1")
	params.Set("client_id", "did:key:zVerifier")
	params.Set("redirect_uri", "did:key:zVerifier")
	params.Set("response_type", "id_token vp_token")
	params.Set("nonce", "n1")
	params.Set("client_metadata", `{"vp_formats":{"jwt_vp":{"alg":["ES256"]}},"subject_syntax_types_supported":["urn:ietf:params:oauth:jwk-thumbprint"]}`)

	request, err := parseAndValidateRequest(params)
	require.NoError(t, err)
	require.NotNil(t, request.ClientMetadata)
}
