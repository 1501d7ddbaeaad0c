package siop

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	internalJws "github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/internal/oidcerrors"
	"github.com/oid4vc/vclib/internal/signing"
	vcvalidator "github.com/oid4vc/vclib/validator"
)

var structValidate = validator.New()

// Verifier is the relying-party side of the SIOPv2/OID4VP exchange:
// OidcSiopVerifier per spec.md §4.7.
type Verifier struct {
	identifier string
	validator  *vcvalidator.Validator
	crypto     signing.VerifierCryptoService
	states     *stateCache
	log        *logger.Log
}

// Option configures a Verifier at construction time.
type Option func(*Verifier)

// WithLogger attaches a logger.
func WithLogger(log *logger.Log) Option {
	return func(v *Verifier) { v.log = log }
}

// New builds a Verifier addressed to identifier, delegating VP-JWS
// verification to v and self-issued id_token signature verification to
// crypto.
func New(identifier string, v *vcvalidator.Validator, crypto signing.VerifierCryptoService, opts ...Option) *Verifier {
	verifier := &Verifier{
		identifier: identifier,
		validator:  v,
		crypto:     crypto,
		states:     newStateCache(DefaultStateTTL),
		log:        logger.NewSimple("siop"),
	}
	for _, opt := range opts {
		opt(verifier)
	}
	return verifier
}

// Identifier returns this verifier's key id.
func (v *Verifier) Identifier() string { return v.identifier }

// Stop releases the verifier's background state-expiry goroutine.
func (v *Verifier) Stop() { v.states.stop() }

// CreateAuthnRequestOptions configures an authentication request beyond
// the mandatory wallet URL.
type CreateAuthnRequestOptions struct {
	// ResponseMode selects fragment (default), query, post or
	// direct_post.
	ResponseMode string
	// AttributeTypes, when non-empty, builds a PresentationDefinition
	// with one input descriptor per type.
	AttributeTypes []string
	// Scope is passed through verbatim; the wallet may derive
	// AttributeTypes from it when no PresentationDefinition is present.
	Scope string
}

// CreateAuthnRequestUrl builds the SIOPv2/OID4VP authentication request
// URL a verifier hands to a wallet, per spec.md §4.7 step 1. client_id and
// redirect_uri are both set to this verifier's own identifier, per the
// spec's "client_id=relyingPartyUrl" and the wallet's audience binding
// requiring client_id to double as the relying party's addressable
// identifier. A fresh nonce is generated and stored server-side under a
// fresh state.
func (v *Verifier) CreateAuthnRequestUrl(walletUrl string, opts CreateAuthnRequestOptions) (string, error) {
	base, err := url.Parse(walletUrl)
	if err != nil {
		return "", fmt.Errorf("siop: parse wallet url: %w", err)
	}

	state := uuid.NewString()
	nonce := uuid.NewString()
	v.states.put(state, nonce)

	responseMode := opts.ResponseMode
	if responseMode == "" {
		responseMode = ResponseModeFragment
	}

	request := AuthnRequest{
		ResponseType: "id_token vp_token",
		ClientID:     v.identifier,
		RedirectURI:  v.identifier,
		Scope:        opts.Scope,
		Nonce:        nonce,
		State:        state,
		ResponseMode: responseMode,
		ClientMetadata: &ClientMetadata{
			SubjectSyntaxTypesSupported: []string{jwkThumbprintSyntaxType},
		},
	}
	request.ClientMetadata.VPFormats.JwtVP.Algorithms = []string{"ES256"}

	if len(opts.AttributeTypes) > 0 {
		request.PresentationDefinition = &PresentationDefinition{
			ID: uuid.NewString(),
			InputDescriptors: []InputDescriptor{
				{ID: uuid.NewString(), AttributeTypes: opts.AttributeTypes},
			},
		}
	}

	if err := structValidate.Struct(request); err != nil {
		return "", fmt.Errorf("siop: invalid authn request: %w", err)
	}

	clientMetadataJSON, err := json.Marshal(request.ClientMetadata)
	if err != nil {
		return "", fmt.Errorf("siop: encode client_metadata: %w", err)
	}

	query := base.Query()
	query.Set("response_type", request.ResponseType)
	query.Set("client_id", request.ClientID)
	query.Set("redirect_uri", request.RedirectURI)
	query.Set("nonce", request.Nonce)
	query.Set("state", request.State)
	query.Set("response_mode", request.ResponseMode)
	query.Set("client_metadata", string(clientMetadataJSON))
	if request.Scope != "" {
		query.Set("scope", request.Scope)
	}
	if request.PresentationDefinition != nil {
		descriptorTypes := strings.Join(request.PresentationDefinition.InputDescriptors[0].AttributeTypes, ",")
		query.Set("presentation_definition_id", request.PresentationDefinition.ID)
		query.Set("presentation_definition_types", descriptorTypes)
	}

	base.RawQuery = query.Encode()
	return base.String(), nil
}

// ValidateAuthnResponse parses and verifies the wallet's response: the
// id_token JWS's signature, nonce and aud, and the vp_token VP-JWS via the
// wrapped Validator with challenge=nonce, audience=this verifier's
// identifier. The id_token's iat and exp claims are not checked.
func (v *Verifier) ValidateAuthnResponse(params url.Values) ValidateAuthnResponseResult {
	state := params.Get("state")
	if state == "" {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, "missing state"))
	}
	nonce, ok := v.states.nonceFor(state)
	if !ok {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, "unknown or expired state"))
	}

	idTokenJws := params.Get("id_token")
	vpToken := params.Get("vp_token")
	if idTokenJws == "" || vpToken == "" {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, "missing id_token or vp_token"))
	}

	idToken, err := v.verifyIdToken(idTokenJws)
	if err != nil {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, err.Error()))
	}
	if idToken.Nonce != nonce {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, "nonce mismatch"))
	}
	if idToken.Audience != v.identifier {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorInvalidRequest, "aud mismatch"))
	}

	vpResult := v.validator.VerifyVpJws(vpToken, nonce, v.identifier)
	if !vpResult.Success() {
		return validateFailure(oidcerrors.New(oidcerrors.ErrorAccessDenied, "vp_token did not verify"))
	}

	v.log.Info("authn response validated", "state", state)
	return validateSuccess(idToken, vpResult)
}

// verifyIdToken parses idTokenJws, decodes its claims to recover the
// self-issued subjectJwk, and verifies the signature against that key: a
// SIOPv2 self-issued id_token carries its own verification key in its
// payload rather than a resolvable kid.
func (v *Verifier) verifyIdToken(idTokenJws string) (IdToken, error) {
	signed, err := internalJws.Parse(idTokenJws)
	if err != nil {
		return IdToken{}, fmt.Errorf("siop: parse id_token: %w", err)
	}

	var token IdToken
	if err := json.Unmarshal(signed.Payload, &token); err != nil {
		return IdToken{}, fmt.Errorf("siop: decode id_token claims: %w", err)
	}
	if token.SubjectJwk == nil {
		return IdToken{}, fmt.Errorf("siop: id_token missing sub_jwk")
	}
	if token.Issuer != token.Subject {
		return IdToken{}, fmt.Errorf("siop: id_token iss/sub mismatch")
	}

	key, err := token.SubjectJwk.ECDSAPublicKey()
	if err != nil {
		return IdToken{}, fmt.Errorf("siop: decode sub_jwk: %w", err)
	}

	ok, err := v.crypto.Verify(signed.SigningInput(), signed.Signature, signed.Header.Alg, key)
	if err != nil || !ok {
		return IdToken{}, fmt.Errorf("siop: id_token signature invalid")
	}

	return token, nil
}
