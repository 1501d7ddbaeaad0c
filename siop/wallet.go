package siop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oid4vc/vclib/holder"
	internalJws "github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/internal/oidcerrors"
	"github.com/oid4vc/vclib/internal/signing"
)

// Wallet is the holder side of the SIOPv2/OID4VP exchange: OidcSiopWallet
// per spec.md §4.7.
type Wallet struct {
	holder *holder.Agent
	crypto signing.CryptoService
	clock  func() time.Time
	log    *logger.Log
}

// WalletOption configures a Wallet at construction time.
type WalletOption func(*Wallet)

// WithWalletClock overrides the time source used for id_token iat/exp.
func WithWalletClock(clock func() time.Time) WalletOption {
	return func(w *Wallet) { w.clock = clock }
}

// WithWalletLogger attaches a logger.
func WithWalletLogger(log *logger.Log) WalletOption {
	return func(w *Wallet) { w.log = log }
}

// NewWallet builds a Wallet wrapping h, signing id_tokens with crypto.
func NewWallet(h *holder.Agent, crypto signing.CryptoService, opts ...WalletOption) *Wallet {
	w := &Wallet{holder: h, crypto: crypto, clock: time.Now, log: logger.NewSimple("siop")}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// idTokenValidity is the SIOPv2 self-issued id_token lifetime, per spec.md
// §4.7 step 2's "exp=iat+60s".
const idTokenValidity = 60 * time.Second

// CreateAuthnResponse parses requestUrl, validates it per spec.md §4.7
// step 2's checklist, builds a presentation over the requested attribute
// types, and returns the response shaped for the request's response mode.
func (w *Wallet) CreateAuthnResponse(ctx context.Context, requestUrl string) (AuthnResponse, error) {
	parsed, err := url.Parse(requestUrl)
	if err != nil {
		return AuthnResponse{}, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "malformed request url")
	}
	params := parsed.Query()

	request, err := parseAndValidateRequest(params)
	if err != nil {
		return AuthnResponse{}, err
	}

	attributeTypes := attributeTypesFor(request)
	vpJws, ok := w.holder.CreatePresentation(ctx, request.Nonce, w.audience(request), attributeTypes)
	if !ok {
		return AuthnResponse{}, oidcerrors.New(oidcerrors.ErrorAccessDenied, "no matching credentials to present")
	}

	idTokenJws, err := w.signIdToken(ctx, request)
	if err != nil {
		return AuthnResponse{}, fmt.Errorf("siop: sign id_token: %w", err)
	}

	submission := buildPresentationSubmission(request)

	switch request.ResponseMode {
	case ResponseModePost, ResponseModeDirectPost:
		form := url.Values{}
		form.Set("id_token", idTokenJws)
		form.Set("vp_token", vpJws)
		form.Set("state", request.State)
		if submissionJSON, err := json.Marshal(submission); err == nil {
			form.Set("presentation_submission", string(submissionJSON))
		}
		return postResponse(request.RedirectURI, form), nil
	case ResponseModeQuery:
		query := url.Values{}
		query.Set("id_token", idTokenJws)
		query.Set("vp_token", vpJws)
		query.Set("state", request.State)
		redirect, _ := url.Parse(request.RedirectURI)
		redirect.RawQuery = query.Encode()
		return redirectResponse(redirect.String()), nil
	default: // fragment
		fragment := url.Values{}
		fragment.Set("id_token", idTokenJws)
		fragment.Set("vp_token", vpJws)
		fragment.Set("state", request.State)
		redirect, _ := url.Parse(request.RedirectURI)
		redirect.Fragment = fragment.Encode()
		return redirectResponse(redirect.String()), nil
	}
}

// audience returns the relying party key id the presentation should be
// scoped to, drawn from the request's client_metadata.jwks_uri when present,
// falling back to client_id.
func (w *Wallet) audience(request *AuthnRequest) string {
	if request.ClientMetadata != nil && request.ClientMetadata.JWKSUrl != "" {
		return request.ClientMetadata.JWKSUrl
	}
	return request.ClientID
}

func (w *Wallet) signIdToken(ctx context.Context, request *AuthnRequest) (string, error) {
	subjectJwk, err := w.crypto.ToJSONWebKey()
	if err != nil {
		return "", err
	}
	subjectJwkJSON, err := json.Marshal(subjectJwk)
	if err != nil {
		return "", err
	}
	var jwk internalJws.JWK
	if err := json.Unmarshal(subjectJwkJSON, &jwk); err != nil {
		return "", err
	}

	now := w.clock()
	claims := IdToken{
		Issuer:     w.crypto.Identifier(),
		Subject:    w.crypto.Identifier(),
		Audience:   request.RedirectURI,
		IssuedAt:   now.Unix(),
		Expiry:     now.Add(idTokenValidity).Unix(),
		Nonce:      request.Nonce,
		SubjectJwk: &jwk,
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return internalJws.Sign(ctx, internalJws.Header{}, payload, w.crypto, internalJws.SignOptions{})
}

func parseAndValidateRequest(params url.Values) (*AuthnRequest, error) {
	state := params.Get("state")
	if state == "" {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "missing state")
	}
	clientID := params.Get("client_id")
	redirectURI := params.Get("redirect_uri")
	if clientID == "" || clientID != redirectURI {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "client_id must equal redirect_uri")
	}
	responseType := params.Get("response_type")
	if !strings.Contains(responseType, "id_token") {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "response_type must contain id_token")
	}
	nonce := params.Get("nonce")
	if nonce == "" {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "missing nonce")
	}

	presentationDefinitionID := params.Get("presentation_definition_id")
	presentationDefinitionTypes := params.Get("presentation_definition_types")
	hasPresentationDefinition := presentationDefinitionID != ""
	if !strings.Contains(responseType, "vp_token") && !hasPresentationDefinition {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "response_type must contain vp_token or presentation_definition must be present")
	}

	request := &AuthnRequest{
		ResponseType: responseType,
		ClientID:     clientID,
		RedirectURI:  redirectURI,
		Scope:        params.Get("scope"),
		Nonce:        nonce,
		State:        state,
		ResponseMode: params.Get("response_mode"),
	}
	if hasPresentationDefinition {
		request.PresentationDefinition = &PresentationDefinition{
			ID: presentationDefinitionID,
			InputDescriptors: []InputDescriptor{
				{ID: uuid.NewString(), AttributeTypes: splitNonEmpty(presentationDefinitionTypes, ",")},
			},
		}
	}
	if rawQuery := params.Get("dcql_query"); rawQuery != "" {
		var query DCQLQuery
		if err := json.Unmarshal([]byte(rawQuery), &query); err != nil {
			return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "malformed dcql_query")
		}
		request.DCQLQuery = &query
	}

	raw := params.Get("client_metadata")
	if raw == "" {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "missing client_metadata")
	}
	var metadata ClientMetadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, oidcerrors.New(oidcerrors.ErrorInvalidRequest, "malformed client_metadata")
	}
	if !contains(metadata.VPFormats.JwtVP.Algorithms, "ES256") {
		return nil, oidcerrors.New(oidcerrors.ErrorRegistrationValueNotSupported, "client_metadata.vp_formats.jwt_vp.algorithms must include ES256")
	}
	if !contains(metadata.SubjectSyntaxTypesSupported, jwkThumbprintSyntaxType) {
		return nil, oidcerrors.New(oidcerrors.ErrorSubjectSyntaxTypesNotSupported, "subject_syntax_types_supported must include "+jwkThumbprintSyntaxType)
	}
	request.ClientMetadata = &metadata

	return request, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func attributeTypesFor(request *AuthnRequest) []string {
	if request.PresentationDefinition != nil {
		var types []string
		for _, descriptor := range request.PresentationDefinition.InputDescriptors {
			types = append(types, descriptor.AttributeTypes...)
		}
		return types
	}
	if request.DCQLQuery != nil {
		var types []string
		for _, query := range request.DCQLQuery.Credentials {
			types = append(types, query.Types...)
		}
		return types
	}
	return splitNonEmpty(request.Scope, " ")
}

func buildPresentationSubmission(request *AuthnRequest) PresentationSubmission {
	submission := PresentationSubmission{ID: uuid.NewString()}
	if request.PresentationDefinition == nil {
		return submission
	}
	submission.DefinitionID = request.PresentationDefinition.ID
	for _, descriptor := range request.PresentationDefinition.InputDescriptors {
		submission.DescriptorMap = append(submission.DescriptorMap, jwtVcDescriptor(descriptor.ID))
	}
	return submission
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
