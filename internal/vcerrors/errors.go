// Package vcerrors holds the sentinel errors for programmer/structural
// failures across the module. Expected verification outcomes are never
// represented as errors — see the result types in validator and siop.
package vcerrors

import "errors"

var (
	// ErrNotFound is returned when a lookup by id finds nothing.
	ErrNotFound = errors.New("NOT_FOUND")

	// ErrKeyUnresolvable is returned when a JWS header's key material
	// cannot be resolved to a verification key.
	ErrKeyUnresolvable = errors.New("KEY_UNRESOLVABLE")

	// ErrAlreadyRevoked is returned when revoking a credential that the
	// issuer store has already marked revoked.
	ErrAlreadyRevoked = errors.New("ALREADY_REVOKED")

	// ErrIndexSpaceExhausted is returned when a revocation list period has
	// no unused indices left to allocate.
	ErrIndexSpaceExhausted = errors.New("INDEX_SPACE_EXHAUSTED")

	// ErrNoCredentialsSelected names the condition of a presentation
	// selection that is empty after filtering. holder.Agent's
	// CreatePresentation reports that case with ok=false and does not
	// return this error.
	ErrNoCredentialsSelected = errors.New("NO_CREDENTIALS_SELECTED")

	// ErrUnsupportedKeyType is returned by key material helpers when given
	// a key of a type they do not implement.
	ErrUnsupportedKeyType = errors.New("UNSUPPORTED_KEY_TYPE")
)
