// Package siop implements the SIOPv2 / OpenID4VP authentication-response
// state machine: a verifier-side request builder and response validator
// (OidcSiopVerifier) and a wallet-side response builder (OidcSiopWallet),
// wrapping a Verifiable Presentation into an OpenID authentication
// response per spec.md §4.7.
package siop

import "github.com/oid4vc/vclib/internal/jws"

// InputDescriptor is one entry of a PresentationDefinition's
// input_descriptors array, grounded on the teacher's
// openid4vp.PresentationDefinitionParameter / InputDescriptor shapes,
// trimmed to the fields this module's attributeType-based filtering uses.
type InputDescriptor struct {
	ID             string   `json:"id" validate:"required"`
	Name           string   `json:"name,omitempty"`
	AttributeTypes []string `json:"attribute_types" validate:"required,min=1"`
}

// PresentationDefinition requests one or more credential types from the
// wallet, per spec.md §4.7 step 1's "optional presentation_definition".
type PresentationDefinition struct {
	ID               string             `json:"id" validate:"required"`
	InputDescriptors []InputDescriptor  `json:"input_descriptors" validate:"required,min=1,dive"`
}

// DCQLQuery is the supplementary DCQL-shaped alternative to
// PresentationDefinition (SPEC_FULL.md's supplemented module 3), grounded
// on dc4eu-vc/pkg/openid4vp/dcql.go's credential-query shape, trimmed to
// the attribute-type matching this module supports.
type DCQLQuery struct {
	Credentials []DCQLCredentialQuery `json:"credentials" validate:"required,min=1,dive"`
}

// DCQLCredentialQuery requests credentials of one type under a DCQL query.
type DCQLCredentialQuery struct {
	ID     string   `json:"id" validate:"required"`
	Types  []string `json:"types" validate:"required,min=1"`
}

// VPFormats declares which VP serializations and algorithms the relying
// party accepts.
type VPFormats struct {
	JwtVP struct {
		Algorithms []string `json:"alg" validate:"required,min=1"`
	} `json:"jwt_vp" validate:"required"`
}

// ClientMetadata declares the relying party's supported algorithms,
// formats and subject syntax types, per spec.md §4.7 step 2's validation
// list.
type ClientMetadata struct {
	VPFormats                  VPFormats `json:"vp_formats" validate:"required"`
	SubjectSyntaxTypesSupported []string  `json:"subject_syntax_types_supported" validate:"required,min=1"`
	JWKSUrl                    string    `json:"jwks_uri,omitempty"`
}

// jwkThumbprintSyntaxType is the subject syntax type this module's
// thumbprint-URN key identifiers correspond to (spec.md §4.7 step 2).
const jwkThumbprintSyntaxType = "urn:ietf:params:oauth:jwk-thumbprint"

// AuthnRequest is the parsed SIOPv2/OID4VP authentication request, built by
// the Verifier and parsed by the Wallet.
type AuthnRequest struct {
	ResponseType            string                   `json:"response_type" validate:"required"`
	ClientID                string                   `json:"client_id" validate:"required"`
	RedirectURI             string                   `json:"redirect_uri" validate:"required"`
	Scope                   string                   `json:"scope,omitempty"`
	Nonce                   string                   `json:"nonce" validate:"required"`
	State                   string                   `json:"state" validate:"required"`
	ResponseMode            string                   `json:"response_mode,omitempty"`
	PresentationDefinition  *PresentationDefinition  `json:"presentation_definition,omitempty"`
	DCQLQuery               *DCQLQuery               `json:"dcql_query,omitempty"`
	ClientMetadata          *ClientMetadata          `json:"client_metadata,omitempty"`
}

// ResponseMode values this module supports. Fragment is the OID4VP default.
const (
	ResponseModeFragment    = "fragment"
	ResponseModeQuery       = "query"
	ResponseModePost        = "post"
	ResponseModeDirectPost  = "direct_post"
)

// IdToken is the SIOPv2 self-issued ID token claim set (spec.md §4.7 step
// 2's "Builds IdToken{...}").
type IdToken struct {
	Issuer     string   `json:"iss"`
	Subject    string   `json:"sub"`
	Audience   string   `json:"aud"`
	IssuedAt   int64    `json:"iat"`
	Expiry     int64    `json:"exp"`
	Nonce      string   `json:"nonce"`
	SubjectJwk *jws.JWK `json:"sub_jwk"`
}

// DescriptorMapEntry is one entry of a PresentationSubmission's
// descriptor_map, grounded on the teacher's PresentationSubmission shape
// (one per input descriptor, format=jwt_vp, path="$", nested jwt_vc path).
type DescriptorMapEntry struct {
	ID         string              `json:"id"`
	Format     string              `json:"format"`
	Path       string              `json:"path"`
	PathNested *DescriptorMapEntry `json:"path_nested,omitempty"`
}

// PresentationSubmission describes how the VP token's contents satisfy a
// PresentationDefinition's input descriptors.
type PresentationSubmission struct {
	ID            string                `json:"id"`
	DefinitionID  string                `json:"definition_id"`
	DescriptorMap []DescriptorMapEntry  `json:"descriptor_map"`
}

func jwtVcDescriptor(id string) DescriptorMapEntry {
	return DescriptorMapEntry{
		ID:     id,
		Format: "jwt_vp",
		Path:   "$",
		PathNested: &DescriptorMapEntry{
			ID:     id,
			Format: "jwt_vc",
			Path:   "$.verifiableCredential[0]",
		},
	}
}
