package vc

import "github.com/google/uuid"

// NewCredentialID generates a fresh URN-style identifier suitable for a VC
// or VP's id field.
func NewCredentialID() string {
	return "urn:uuid:" + uuid.New().String()
}
