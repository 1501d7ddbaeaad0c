package siop

import (
	"net/url"

	"github.com/oid4vc/vclib/validator"
)

type authnResponseKind int

const (
	authnResponseKindRedirect authnResponseKind = iota
	authnResponseKindPost
)

// AuthnResponse is the closed set of shapes Wallet.CreateAuthnResponse can
// return (spec.md §4.7 step 2's "Returns one of: Redirect(...), Post(...)").
type AuthnResponse struct {
	kind     authnResponseKind
	url      string
	formBody url.Values
}

func redirectResponse(redirectURL string) AuthnResponse {
	return AuthnResponse{kind: authnResponseKindRedirect, url: redirectURL}
}

func postResponse(postURL string, formBody url.Values) AuthnResponse {
	return AuthnResponse{kind: authnResponseKindPost, url: postURL, formBody: formBody}
}

// IsRedirect reports whether the response is a browser redirect (fragment
// or query response mode).
func (r AuthnResponse) IsRedirect() bool { return r.kind == authnResponseKindRedirect }

// IsPost reports whether the response must be submitted as a form POST
// (post or direct_post response mode).
func (r AuthnResponse) IsPost() bool { return r.kind == authnResponseKindPost }

// URL returns the redirect target (IsRedirect) or the POST target
// (IsPost).
func (r AuthnResponse) URL() string { return r.url }

// FormBody returns the form-encoded response parameters for a Post
// response; empty for a Redirect response.
func (r AuthnResponse) FormBody() url.Values { return r.formBody }

type validateResultKind int

const (
	validateResultKindSuccess validateResultKind = iota
	validateResultKindFailure
)

// ValidateAuthnResponseResult is the closed set of outcomes
// Verifier.ValidateAuthnResponse can produce.
type ValidateAuthnResponseResult struct {
	kind    validateResultKind
	idToken IdToken
	vp      validator.VerifyVpResult
	err     error
}

func validateSuccess(idToken IdToken, vp validator.VerifyVpResult) ValidateAuthnResponseResult {
	return ValidateAuthnResponseResult{kind: validateResultKindSuccess, idToken: idToken, vp: vp}
}

func validateFailure(err error) ValidateAuthnResponseResult {
	return ValidateAuthnResponseResult{kind: validateResultKindFailure, err: err}
}

// Success reports whether the id_token and vp_token both verified.
func (r ValidateAuthnResponseResult) Success() bool { return r.kind == validateResultKindSuccess }

// IdToken returns the verified id_token claims, on Success.
func (r ValidateAuthnResponseResult) IdToken() IdToken { return r.idToken }

// VerifiedPresentation returns the underlying VP verification result, on
// Success.
func (r ValidateAuthnResponseResult) VerifiedPresentation() validator.VerifyVpResult { return r.vp }

// Err returns the failure reason, typically an *oidcerrors.OAuth2Exception.
func (r ValidateAuthnResponseResult) Err() error { return r.err }
