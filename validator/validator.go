package validator

import (
	"fmt"
	"sync"
	"time"

	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/revocation"
	"github.com/oid4vc/vclib/vc"
)

// Validator verifies VC-JWS and VP-JWS envelopes. It owns no key material
// of its own; it receives a VerifierCryptoService and a key resolver and
// never reaches back into any agent's crypto service.
type Validator struct {
	verifier signing.VerifierCryptoService
	resolver jws.KeyResolver
	clock    func() time.Time
	log      *logger.Log

	mu    sync.RWMutex
	lists map[string]*revocation.List
}

// Option configures a Validator at construction time.
type Option func(*Validator)

// WithClock overrides the time source used for nbf/exp comparisons.
// Defaults to time.Now; tests inject a fixed clock to avoid flakiness.
func WithClock(clock func() time.Time) Option {
	return func(v *Validator) { v.clock = clock }
}

// WithLogger attaches a logger. Defaults to a no-op-named logger.
func WithLogger(log *logger.Log) Option {
	return func(v *Validator) { v.log = log }
}

// New builds a Validator.
func New(verifier signing.VerifierCryptoService, resolver jws.KeyResolver, opts ...Option) *Validator {
	v := &Validator{
		verifier: verifier,
		resolver: resolver,
		clock:    time.Now,
		log:      logger.NewSimple("validator"),
		lists:    make(map[string]*revocation.List),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) now() time.Time { return v.clock() }

// VerifyVcJws verifies a VC-JWS. expectedSubjectKeyId, when non-empty, must
// match the credential's sub claim or the result is SubjectMismatch; pass
// "" to skip subject binding (spec.md §4.6's "do not check subject
// binding" mode).
func (v *Validator) VerifyVcJws(vcJws string, expectedSubjectKeyId string) VerifyVcResult {
	v.log.Debug("verifying vc-jws")

	signed, err := jws.Parse(vcJws)
	if err != nil {
		return vcInvalidStructure(err)
	}
	if ok, err := jws.Verify(signed, nil, v.resolver, v.verifier); err != nil || !ok {
		if err == nil {
			err = jws.ErrInvalidSignature
		}
		return vcInvalidStructure(err)
	}

	claims, err := vc.ParseVCJWSClaims(signed.Payload)
	if err != nil {
		return vcInvalidStructure(err)
	}
	credential := claims.Credential

	now := v.now()
	if now.Before(claims.NotBefore) {
		return vcNotYetValid(credential)
	}
	if now.After(claims.Expiry) {
		return vcExpired(credential)
	}

	if expectedSubjectKeyId != "" && claims.Subject != expectedSubjectKeyId {
		v.log.Info("vc-jws subject mismatch", "jti", claims.JTI)
		return vcSubjectMismatch(credential)
	}

	if v.CheckRevocationStatus(credential) == StatusRevoked {
		v.log.Info("vc-jws revoked", "jti", claims.JTI)
		return vcRevoked(credential)
	}

	return vcSuccess(credential)
}

// VerifyVpJws verifies a VP-JWS, then recursively verifies each contained
// VC-JWS with expectedSubjectKeyId = the VP's own issuer (the holder).
// A revoked contained credential does not fail the VP as a whole; it is
// partitioned into RevokedVerifiableCredentials.
func (v *Validator) VerifyVpJws(vpJws string, expectedChallenge, expectedAudienceKeyId string) VerifyVpResult {
	v.log.Debug("verifying vp-jws")

	signed, err := jws.Parse(vpJws)
	if err != nil {
		return vpInvalidStructure(err)
	}
	if ok, err := jws.Verify(signed, nil, v.resolver, v.verifier); err != nil || !ok {
		if err == nil {
			err = jws.ErrInvalidSignature
		}
		return vpInvalidStructure(err)
	}

	claims, err := vc.ParseVPJWSClaims(signed.Payload)
	if err != nil {
		return vpInvalidStructure(err)
	}

	if claims.Audience != expectedAudienceKeyId {
		return vpInvalidStructure(fmt.Errorf("validator: aud %q does not match expected %q", claims.Audience, expectedAudienceKeyId))
	}
	if claims.Nonce != expectedChallenge {
		return vpInvalidStructure(fmt.Errorf("validator: nonce mismatch"))
	}

	now := v.now()
	if now.Before(claims.NotBefore) {
		return vpNotYetValid(claims.Presentation)
	}
	if now.After(claims.Expiry) {
		return vpExpired(claims.Presentation)
	}

	var verified, revoked []vc.VerifiableCredential
	for _, raw := range claims.Presentation.VerifiableCredential {
		inner := v.VerifyVcJws(raw, claims.Issuer)
		switch {
		case inner.Success():
			credential, _ := inner.Credential()
			verified = append(verified, credential)
		case inner.IsRevoked():
			credential, _ := inner.Credential()
			revoked = append(revoked, credential)
		default:
			return vpInvalidStructure(fmt.Errorf("validator: contained vc-jws failed verification: %w", inner.Err()))
		}
	}

	return vpSuccess(claims.Presentation, verified, revoked)
}

// SetRevocationList verifies jws as a RevocationList2020Credential VC-JWS
// and, on success, stores its decoded bitstring keyed by the subject's id
// (the same string issuers publish as credentialStatus.statusListCredentialUrl).
// Returns false on any verification or decoding failure.
func (v *Validator) SetRevocationList(revocationJws string) bool {
	list, credential, err := revocation.Parse(revocationJws, v.verifier, v.resolver, nil)
	if err != nil {
		v.log.Debug("rejected revocation list", "error", err.Error())
		return false
	}
	subject, ok := credential.CredentialSubject.(vc.RevocationListSubject)
	if !ok {
		return false
	}

	v.mu.Lock()
	v.lists[subject.ID] = list
	v.mu.Unlock()

	v.log.Info("loaded revocation list", "id", subject.ID, "period", list.TimePeriod())
	return true
}

// CheckRevocationStatus looks up c's credentialStatus index in whatever
// list has been loaded for its statusListCredentialUrl. Returns
// StatusUnknown if c has no credentialStatus, or no matching list has been
// loaded yet.
func (v *Validator) CheckRevocationStatus(c vc.VerifiableCredential) RevocationStatus {
	if c.CredentialStatus == nil {
		return StatusUnknown
	}

	v.mu.RLock()
	list, ok := v.lists[c.CredentialStatus.StatusListCredentialUrl]
	v.mu.RUnlock()
	if !ok {
		return StatusUnknown
	}

	if list.IsRevoked(c.CredentialStatus.StatusListIndex) {
		return StatusRevoked
	}
	return StatusValid
}
