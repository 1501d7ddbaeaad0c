// Package verifieragent implements the verifier-side credential lifecycle
// operation: accepting VP-JWS and VC-JWS envelopes, delegating every
// cryptographic and temporal check to a Validator, and comparing a
// verified presentation's contents against an expected set of attributes.
package verifieragent

import (
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/validator"
	"github.com/oid4vc/vclib/vc"
)

// Agent verifies VPs and individual VCs addressed to identifier, and
// tracks whichever revocation list the wrapped Validator has loaded.
type Agent struct {
	identifier string
	validator  *validator.Validator
	log        *logger.Log
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithLogger attaches a logger.
func WithLogger(log *logger.Log) Option {
	return func(a *Agent) { a.log = log }
}

// New builds an Agent addressed to identifier (its did:key or JWK
// thumbprint URN), delegating all verification to v.
func New(identifier string, v *validator.Validator, opts ...Option) *Agent {
	a := &Agent{identifier: identifier, validator: v, log: logger.NewSimple("verifieragent")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Identifier returns this verifier's key id.
func (a *Agent) Identifier() string { return a.identifier }

// VerifyPresentation verifies vpJws, requiring its aud claim to equal this
// verifier's identifier and its nonce claim to equal challenge.
func (a *Agent) VerifyPresentation(vpJws, challenge string) validator.VerifyVpResult {
	return a.validator.VerifyVpJws(vpJws, challenge, a.identifier)
}

// VerifyVcJws verifies vcJws standalone. When expectedHolder is non-empty,
// the credential's sub claim must equal it; pass "" to skip subject
// binding entirely (spec.md §4.6's "null means do not check subject
// binding").
func (a *Agent) VerifyVcJws(vcJws, expectedHolder string) validator.VerifyVcResult {
	return a.validator.VerifyVcJws(vcJws, expectedHolder)
}

// SetRevocationList delegates to the wrapped Validator.
func (a *Agent) SetRevocationList(revocationJws string) bool {
	return a.validator.SetRevocationList(revocationJws)
}

// VerifyPresentationContainsAttributes reports whether the ordered list of
// atomic attribute names carried by the subjects of credentials (typically
// the VerifiableCredentials of vp's verification result) equals names
// exactly. Subjects that are not AtomicAttribute are skipped; vp itself is
// not inspected.
func (a *Agent) VerifyPresentationContainsAttributes(vp vc.VerifiablePresentation, credentials []vc.VerifiableCredential, names []string) bool {
	var actual []string
	for _, credential := range credentials {
		attribute, ok := credential.CredentialSubject.(vc.AtomicAttribute)
		if !ok {
			continue
		}
		actual = append(actual, attribute.Name)
	}

	if len(actual) != len(names) {
		return false
	}
	for i, name := range names {
		if actual[i] != name {
			return false
		}
	}
	return true
}
