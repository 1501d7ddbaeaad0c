// Package oidcerrors defines the typed errors the SIOP/OID4VP boundary
// surfaces, grounded on the teacher's openid4vp.ErrorResponse shape.
package oidcerrors

// OAuth2Exception is an OAuth2/OpenID-style error response, returned by the
// SIOP wallet and verifier operations instead of an opaque error wherever
// the failure maps to a standard error code.
type OAuth2Exception struct {
	Code        string
	Description string
}

// Error codes the SIOP boundary produces (spec.md §4.7's "failure
// signalling" plus the OAuth2 standard codes the underlying authorization
// request/response shapes can fail on).
const (
	ErrorInvalidRequest                    = "invalid_request"
	ErrorUserCancelled                     = "user_cancelled"
	ErrorRegistrationValueNotSupported     = "registration_value_not_supported"
	ErrorSubjectSyntaxTypesNotSupported    = "subject_syntax_types_not_supported"
	ErrorInvalidScope                      = "invalid_scope"
	ErrorInvalidClient                     = "invalid_client"
	ErrorAccessDenied                      = "access_denied"
	ErrorVPFormatsNotSupported             = "vp_formats_not_supported"
)

// New builds an OAuth2Exception.
func New(code, description string) *OAuth2Exception {
	return &OAuth2Exception{Code: code, Description: description}
}

// Error implements error.
func (e *OAuth2Exception) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}
