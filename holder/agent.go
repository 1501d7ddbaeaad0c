package holder

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/oid4vc/vclib/dataprovider"
	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/validator"
	"github.com/oid4vc/vclib/vc"
)

// Input is one credential to store, with its optional opaque attachments.
type Input struct {
	VcJws       string
	Attachments []dataprovider.Attachment
}

// StoredCredential is one successfully stored credential.
type StoredCredential struct {
	VcJws       string
	Credential  vc.VerifiableCredential
	Attachments []dataprovider.Attachment
}

// StoreCredentialsResult partitions a storeCredentials call's per-input
// outcomes (spec.md §4.5).
type StoreCredentialsResult struct {
	Accepted    []StoredCredential
	Rejected    []string
	NotVerified []string
}

// CredentialView is one entry returned by GetCredentials: the stored
// credential plus its current, freshly computed revocation status.
type CredentialView struct {
	VcJws      string
	Credential vc.VerifiableCredential
	Status     validator.RevocationStatus
}

// Agent stores credentials, enforces revocation at store and present time,
// and builds Verifiable Presentations. It owns exactly one CryptoService,
// one CredentialStore, and a reference to a Validator it does not own
// (spec.md §9's "no cycles at the ownership level").
type Agent struct {
	mu sync.Mutex

	identifier string
	crypto     signing.CryptoService
	validator  *validator.Validator
	store      *CredentialStore
	clock      func() time.Time
	log        *logger.Log
}

// Option configures an Agent at construction time.
type Option func(*Agent)

// WithClock overrides the time source for VP-JWS nbf/iat/exp.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) { a.clock = clock }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Log) Option {
	return func(a *Agent) { a.log = log }
}

// NewAgent builds an Agent. identifier must be derivable from crypto's
// public key (spec.md §9's agent-identifier rule); callers typically pass
// crypto.Identifier().
func NewAgent(identifier string, crypto signing.CryptoService, v *validator.Validator, opts ...Option) *Agent {
	a := &Agent{
		identifier: identifier,
		crypto:     crypto,
		validator:  v,
		store:      NewCredentialStore(),
		clock:      time.Now,
		log:        logger.NewSimple("holder"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Identifier returns this holder's key id.
func (a *Agent) Identifier() string { return a.identifier }

// StoreCredentials verifies each input against the Validator, requiring
// the credential's sub claim to match this holder's identifier, and
// classifies each independently: verified credentials are persisted and
// reported in Accepted; revoked ones in Rejected; everything else
// (malformed, subject mismatch, expired, not yet valid) in NotVerified.
func (a *Agent) StoreCredentials(inputs []Input) StoreCredentialsResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	var result StoreCredentialsResult
	for _, input := range inputs {
		outcome := a.validator.VerifyVcJws(input.VcJws, a.identifier)
		switch {
		case outcome.Success():
			credential, _ := outcome.Credential()
			a.store.Put(Entry{VcJws: input.VcJws, Credential: credential, Attachments: input.Attachments})
			result.Accepted = append(result.Accepted, StoredCredential{
				VcJws:       input.VcJws,
				Credential:  credential,
				Attachments: input.Attachments,
			})
		case outcome.IsRevoked():
			result.Rejected = append(result.Rejected, input.VcJws)
		default:
			result.NotVerified = append(result.NotVerified, input.VcJws)
		}
	}

	a.log.Info("stored credentials", "accepted", len(result.Accepted), "rejected", len(result.Rejected), "notVerified", len(result.NotVerified))
	return result
}

// StoreValidatedCredentials persists inputs without verification, trusting
// the caller's assertion of validity. Returns false if any input cannot
// even be parsed into a VC-JWS.
func (a *Agent) StoreValidatedCredentials(inputs []Input) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	parsed := make([]Entry, 0, len(inputs))
	for _, input := range inputs {
		signed, err := jws.Parse(input.VcJws)
		if err != nil {
			return false
		}
		claims, err := vc.ParseVCJWSClaims(signed.Payload)
		if err != nil {
			return false
		}
		parsed = append(parsed, Entry{VcJws: input.VcJws, Credential: claims.Credential, Attachments: input.Attachments})
	}

	for _, entry := range parsed {
		a.store.Put(entry)
	}
	return true
}

// SetRevocationList delegates to the Validator. A subsequent
// StoreCredentials call observes the just-set list.
func (a *Agent) SetRevocationList(revocationJws string) bool {
	return a.validator.SetRevocationList(revocationJws)
}

// GetCredentials returns every stored credential whose type list overlaps
// attributeTypes (any-match; spec.md §9's Open Question (b)), or every
// stored credential if attributeTypes is empty. Status is computed fresh
// against the Validator at call time, never cached.
func (a *Agent) GetCredentials(attributeTypes []string) []CredentialView {
	var out []CredentialView
	for _, entry := range a.store.All() {
		if len(attributeTypes) > 0 && !typesOverlap(entry.Credential.Type, attributeTypes) {
			continue
		}
		out = append(out, CredentialView{
			VcJws:      entry.VcJws,
			Credential: entry.Credential,
			Status:     a.validator.CheckRevocationStatus(entry.Credential),
		})
	}
	return out
}

func typesOverlap(have, want []string) bool {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	for _, h := range have {
		if wantSet[h] {
			return true
		}
	}
	return false
}

// CreatePresentation selects stored credentials whose status is Valid or
// Unknown (never Revoked) and whose type overlaps attributeTypes (or every
// non-revoked credential if attributeTypes is empty), wraps them in a VP,
// and signs a VP-JWS. Returns ok=false if the selection is empty.
func (a *Agent) CreatePresentation(ctx context.Context, challenge, audienceKeyID string, attributeTypes []string) (string, bool) {
	var selected []string
	for _, view := range a.GetCredentials(attributeTypes) {
		if view.Status != validator.StatusRevoked {
			selected = append(selected, view.VcJws)
		}
	}
	if len(selected) == 0 {
		return "", false
	}
	return a.signPresentation(ctx, selected, challenge, audienceKeyID)
}

// CreatePresentationFromCredentials is the overload that trusts the caller
// to supply only valid, unrevoked serialized VC-JWS strings.
func (a *Agent) CreatePresentationFromCredentials(ctx context.Context, validCredentials []string, challenge, audienceKeyID string) (string, bool) {
	if len(validCredentials) == 0 {
		return "", false
	}
	return a.signPresentation(ctx, validCredentials, challenge, audienceKeyID)
}

func (a *Agent) signPresentation(ctx context.Context, vcJwsList []string, challenge, audienceKeyID string) (string, bool) {
	presentation := vc.NewVerifiablePresentation(vc.NewCredentialID(), a.identifier, vcJwsList)
	now := a.clock()
	claims := vc.NewVPJWSClaims(presentation, audienceKeyID, challenge, now, now.Add(time.Minute))

	payload, err := json.Marshal(claims)
	if err != nil {
		a.log.Debug("createPresentation: marshal failed", "error", err.Error())
		return "", false
	}

	compact, err := jws.Sign(ctx, jws.Header{}, payload, a.crypto, jws.SignOptions{IncludeKid: true})
	if err != nil {
		a.log.Debug("createPresentation: sign failed", "error", err.Error())
		return "", false
	}
	return compact, true
}
