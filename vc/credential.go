// Package vc implements the Verifiable Credential / Verifiable Presentation
// data model: the VC and VP document shapes, their JWS-envelope claim sets,
// and the closed-but-extensible set of credentialSubject variants.
package vc

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeVerifiableCredential is the mandatory first entry of every VC's Type
// list.
const TypeVerifiableCredential = "VerifiableCredential"

// TypeVerifiablePresentation is the mandatory entry of every VP's Type list.
const TypeVerifiablePresentation = "VerifiablePresentation"

// CredentialStatus points a VC at the revocation-list bit that carries its
// live/revoked state.
type CredentialStatus struct {
	StatusListIndex         int    `json:"statusListIndex"`
	StatusListCredentialUrl string `json:"statusListCredentialUrl"`
	StatusPurpose           string `json:"statusPurpose"`
}

// VerifiableCredential is an issuer's signed assertion about a subject.
type VerifiableCredential struct {
	ID               string             `json:"id"`
	Type             []string           `json:"type"`
	Issuer           string             `json:"issuer"`
	IssuanceDate     time.Time          `json:"issuanceDate"`
	ExpirationDate   time.Time          `json:"expirationDate"`
	CredentialStatus *CredentialStatus  `json:"credentialStatus,omitempty"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// credentialWire mirrors VerifiableCredential but carries CredentialSubject
// as raw JSON, letting UnmarshalJSON resolve the concrete subject variant
// before decoding it.
type credentialWire struct {
	ID               string            `json:"id"`
	Type             []string          `json:"type"`
	Issuer           string            `json:"issuer"`
	IssuanceDate     time.Time         `json:"issuanceDate"`
	ExpirationDate   time.Time         `json:"expirationDate"`
	CredentialStatus *CredentialStatus `json:"credentialStatus,omitempty"`
	CredentialSubject json.RawMessage  `json:"credentialSubject"`
}

// MarshalJSON renders the credential with its concrete subject variant
// inlined.
func (c VerifiableCredential) MarshalJSON() ([]byte, error) {
	subjectBytes, err := json.Marshal(c.CredentialSubject)
	if err != nil {
		return nil, fmt.Errorf("vc: marshal credentialSubject: %w", err)
	}
	wire := credentialWire{
		ID:                c.ID,
		Type:              c.Type,
		Issuer:            c.Issuer,
		IssuanceDate:      c.IssuanceDate,
		ExpirationDate:    c.ExpirationDate,
		CredentialStatus:  c.CredentialStatus,
		CredentialSubject: subjectBytes,
	}
	return json.Marshal(wire)
}

// UnmarshalJSON resolves the concrete credentialSubject variant using the
// credential's Type list against the subject registry (see subject.go)
// before decoding the rest of the document.
func (c *VerifiableCredential) UnmarshalJSON(data []byte) error {
	var wire credentialWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("vc: unmarshal credential: %w", err)
	}

	subject, err := decodeSubject(wire.Type, wire.CredentialSubject)
	if err != nil {
		return err
	}

	c.ID = wire.ID
	c.Type = wire.Type
	c.Issuer = wire.Issuer
	c.IssuanceDate = wire.IssuanceDate
	c.ExpirationDate = wire.ExpirationDate
	c.CredentialStatus = wire.CredentialStatus
	c.CredentialSubject = subject
	return nil
}

// Validate checks the structural invariants spec.md assigns to every VC:
// a non-empty type list led by VerifiableCredential, and a strictly later
// expiration than issuance date.
func (c VerifiableCredential) Validate() error {
	if len(c.Type) == 0 || c.Type[0] != TypeVerifiableCredential {
		return fmt.Errorf("vc: type[0] must be %q, got %v", TypeVerifiableCredential, c.Type)
	}
	if c.Issuer == "" {
		return fmt.Errorf("vc: issuer is required")
	}
	if c.CredentialSubject == nil {
		return fmt.Errorf("vc: credentialSubject is required")
	}
	if !c.ExpirationDate.After(c.IssuanceDate) {
		return fmt.Errorf("vc: expirationDate (%s) must be after issuanceDate (%s)", c.ExpirationDate, c.IssuanceDate)
	}
	return nil
}

// ConcreteType returns the credential's most specific type tag: the first
// entry of Type after "VerifiableCredential", or "" if none is present.
func (c VerifiableCredential) ConcreteType() string {
	for _, t := range c.Type {
		if t != TypeVerifiableCredential {
			return t
		}
	}
	return ""
}

// VerifiablePresentation wraps an ordered set of raw VC-JWS strings under a
// holder's signature.
type VerifiablePresentation struct {
	ID                   string   `json:"id"`
	Type                 []string `json:"type"`
	Holder               string   `json:"holder"`
	VerifiableCredential []string `json:"verifiableCredential"`
}

// NewVerifiablePresentation builds a VP wrapping the given raw VC-JWS
// strings.
func NewVerifiablePresentation(id, holder string, vcJwsList []string) VerifiablePresentation {
	if vcJwsList == nil {
		vcJwsList = []string{}
	}
	return VerifiablePresentation{
		ID:                   id,
		Type:                 []string{TypeVerifiablePresentation},
		Holder:               holder,
		VerifiableCredential: vcJwsList,
	}
}
