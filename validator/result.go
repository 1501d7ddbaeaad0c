// Package validator verifies VC-JWS and VP-JWS envelopes against
// cryptographic, temporal, subject-binding and revocation predicates,
// returning closed result types for each expected verification outcome
// instead of errors (spec.md §7: expected outcomes are never exceptional).
package validator

import "github.com/oid4vc/vclib/vc"

type vcResultKind int

const (
	vcKindSuccess vcResultKind = iota
	vcKindInvalidStructure
	vcKindRevoked
	vcKindSubjectMismatch
	vcKindExpired
	vcKindNotYetValid
)

// VerifyVcResult is the closed set of outcomes VerifyVcJws can produce.
type VerifyVcResult struct {
	kind       vcResultKind
	credential vc.VerifiableCredential
	err        error
}

func vcSuccess(c vc.VerifiableCredential) VerifyVcResult {
	return VerifyVcResult{kind: vcKindSuccess, credential: c}
}

func vcInvalidStructure(err error) VerifyVcResult {
	return VerifyVcResult{kind: vcKindInvalidStructure, err: err}
}

func vcRevoked(c vc.VerifiableCredential) VerifyVcResult {
	return VerifyVcResult{kind: vcKindRevoked, credential: c}
}

func vcSubjectMismatch(c vc.VerifiableCredential) VerifyVcResult {
	return VerifyVcResult{kind: vcKindSubjectMismatch, credential: c}
}

func vcExpired(c vc.VerifiableCredential) VerifyVcResult {
	return VerifyVcResult{kind: vcKindExpired, credential: c}
}

func vcNotYetValid(c vc.VerifiableCredential) VerifyVcResult {
	return VerifyVcResult{kind: vcKindNotYetValid, credential: c}
}

// Success reports whether verification fully succeeded.
func (r VerifyVcResult) Success() bool { return r.kind == vcKindSuccess }

// IsInvalidStructure reports a malformed JWS, unresolvable key, bad
// signature, or malformed claims.
func (r VerifyVcResult) IsInvalidStructure() bool { return r.kind == vcKindInvalidStructure }

// IsRevoked reports that the credential verified but is revoked.
func (r VerifyVcResult) IsRevoked() bool { return r.kind == vcKindRevoked }

// IsSubjectMismatch reports that the credential's sub claim does not match
// the caller's expected subject key id.
func (r VerifyVcResult) IsSubjectMismatch() bool { return r.kind == vcKindSubjectMismatch }

// IsExpired reports that now is after the credential's exp claim.
func (r VerifyVcResult) IsExpired() bool { return r.kind == vcKindExpired }

// IsNotYetValid reports that now is before the credential's nbf claim.
func (r VerifyVcResult) IsNotYetValid() bool { return r.kind == vcKindNotYetValid }

// Credential returns the parsed credential and true, for every outcome
// that reached claim parsing (everything but InvalidStructure).
func (r VerifyVcResult) Credential() (vc.VerifiableCredential, bool) {
	return r.credential, r.kind != vcKindInvalidStructure
}

// Err returns the underlying error for an InvalidStructure result, or nil.
func (r VerifyVcResult) Err() error { return r.err }

type vpResultKind int

const (
	vpKindSuccess vpResultKind = iota
	vpKindInvalidStructure
	vpKindExpired
	vpKindNotYetValid
)

// VerifyVpResult is the closed set of outcomes VerifyVpJws can produce.
type VerifyVpResult struct {
	kind                         vpResultKind
	presentation                 vc.VerifiablePresentation
	verifiableCredentials        []vc.VerifiableCredential
	revokedVerifiableCredentials []vc.VerifiableCredential
	err                          error
}

func vpSuccess(p vc.VerifiablePresentation, verified, revoked []vc.VerifiableCredential) VerifyVpResult {
	if verified == nil {
		verified = []vc.VerifiableCredential{}
	}
	if revoked == nil {
		revoked = []vc.VerifiableCredential{}
	}
	return VerifyVpResult{
		kind:                         vpKindSuccess,
		presentation:                 p,
		verifiableCredentials:        verified,
		revokedVerifiableCredentials: revoked,
	}
}

func vpInvalidStructure(err error) VerifyVpResult {
	return VerifyVpResult{kind: vpKindInvalidStructure, err: err}
}

func vpExpired(p vc.VerifiablePresentation) VerifyVpResult {
	return VerifyVpResult{kind: vpKindExpired, presentation: p}
}

func vpNotYetValid(p vc.VerifiablePresentation) VerifyVpResult {
	return VerifyVpResult{kind: vpKindNotYetValid, presentation: p}
}

// Success reports whether the presentation's own signature, audience,
// nonce and temporal bounds all checked out (individual contained VCs may
// still be revoked — see RevokedVerifiableCredentials).
func (r VerifyVpResult) Success() bool { return r.kind == vpKindSuccess }

// IsInvalidStructure reports a malformed JWS, bad signature, audience
// mismatch, or nonce mismatch.
func (r VerifyVpResult) IsInvalidStructure() bool { return r.kind == vpKindInvalidStructure }

// IsExpired reports that now is after the presentation's exp claim.
func (r VerifyVpResult) IsExpired() bool { return r.kind == vpKindExpired }

// IsNotYetValid reports that now is before the presentation's nbf claim.
func (r VerifyVpResult) IsNotYetValid() bool { return r.kind == vpKindNotYetValid }

// Presentation returns the parsed VP and true for any outcome that reached
// claim parsing.
func (r VerifyVpResult) Presentation() (vc.VerifiablePresentation, bool) {
	return r.presentation, r.kind != vpKindInvalidStructure
}

// VerifiableCredentials returns the contained VC-JWS entries that verified
// successfully, on Success.
func (r VerifyVpResult) VerifiableCredentials() []vc.VerifiableCredential {
	return r.verifiableCredentials
}

// RevokedVerifiableCredentials returns the contained VC-JWS entries that
// verified but were found revoked, on Success.
func (r VerifyVpResult) RevokedVerifiableCredentials() []vc.VerifiableCredential {
	return r.revokedVerifiableCredentials
}

// Err returns the underlying error for an InvalidStructure result, or nil.
func (r VerifyVpResult) Err() error { return r.err }

// RevocationStatus is the outcome of checking a single credential's index
// against whatever revocation lists the Validator has loaded.
type RevocationStatus int

const (
	// StatusValid means the index was looked up in a loaded list and found
	// unset.
	StatusValid RevocationStatus = iota
	// StatusRevoked means the index was looked up in a loaded list and
	// found set.
	StatusRevoked
	// StatusUnknown means no list has been loaded for the credential's
	// statusListCredentialUrl, or the credential carries no
	// credentialStatus at all.
	StatusUnknown
)

// String renders the status for logging.
func (s RevocationStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}
