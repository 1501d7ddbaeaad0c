package issuer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/oid4vc/vclib/dataprovider"
	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/logger"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/internal/vcerrors"
	"github.com/oid4vc/vclib/revocation"
	"github.com/oid4vc/vclib/vc"
)

// defaultListCacheTTL bounds how long a time period's in-memory
// revocation.List (the Fisher-Yates index-allocation bookkeeping, not the
// published revocation-list credential itself) is kept once idle, so a
// long-running issuer does not accumulate one List per period forever.
const defaultListCacheTTL = 48 * time.Hour

// IssuedCredential is one successfully issued credential.
type IssuedCredential struct {
	VcJws       string
	Credential  vc.VerifiableCredential
	Attachments []dataprovider.Attachment
}

// FailureReason classifies a single credential type that could not be
// issued.
type FailureReason struct {
	CredentialType string
	Err            error
}

// IssuedCredentialResult partitions an issueCredentialWithTypes call's
// per-type outcomes. Partial success is normal (spec.md §7).
type IssuedCredentialResult struct {
	Successful []IssuedCredential
	Failed     []FailureReason
}

// Agent issues credentials, revokes them, and publishes revocation-list
// credentials. It owns exactly one CryptoService and one CredentialStore;
// issueCredentialWithTypes and revokeCredentials are serialized per spec.md
// §4.4's concurrency note.
type Agent struct {
	mu sync.Mutex

	crypto       signing.CryptoService
	dataProvider dataprovider.DataProvider
	store        *CredentialStore

	lists      *gocache.Cache
	listSize   int
	listTTL    time.Duration
	timePeriod string

	validityWindow time.Duration
	statusListURL  func(timePeriod string) string
	clock          func() time.Time
	log            *logger.Log
}

// AgentOption configures an Agent at construction time.
type AgentOption func(*Agent)

// WithListSize overrides the revocation bitstring size per period.
// Defaults to revocation.DefaultSize.
func WithListSize(size int) AgentOption {
	return func(a *Agent) { a.listSize = size }
}

// WithListCacheTTL overrides how long an idle period's in-memory
// revocation.List bookkeeping is retained before eviction. Defaults to 48h.
func WithListCacheTTL(ttl time.Duration) AgentOption {
	return func(a *Agent) { a.listTTL = ttl }
}

// WithValidityWindow overrides how long an issued credential (and a
// published revocation list) remains valid from issuance. Defaults to 30
// days.
func WithValidityWindow(d time.Duration) AgentOption {
	return func(a *Agent) { a.validityWindow = d }
}

// WithTimePeriod sets the initial active revocation-list time period.
// Defaults to "default".
func WithTimePeriod(period string) AgentOption {
	return func(a *Agent) { a.timePeriod = period }
}

// WithStatusListURLFunc overrides how a time period is rendered into the
// statusListCredentialUrl stamped onto issued credentials. Defaults to
// "urn:revocation-list:<issuer-kid>:<period>".
func WithStatusListURLFunc(f func(timePeriod string) string) AgentOption {
	return func(a *Agent) { a.statusListURL = f }
}

// WithClock overrides the time source for issuanceDate/expirationDate.
func WithClock(clock func() time.Time) AgentOption {
	return func(a *Agent) { a.clock = clock }
}

// WithLogger attaches a logger.
func WithLogger(log *logger.Log) AgentOption {
	return func(a *Agent) { a.log = log }
}

// NewAgent builds an Agent.
func NewAgent(crypto signing.CryptoService, dataProvider dataprovider.DataProvider, opts ...AgentOption) *Agent {
	a := &Agent{
		crypto:         crypto,
		dataProvider:   dataProvider,
		store:          NewCredentialStore(),
		listSize:       revocation.DefaultSize,
		listTTL:        defaultListCacheTTL,
		timePeriod:     "default",
		validityWindow: 30 * 24 * time.Hour,
		clock:          time.Now,
		log:            logger.NewSimple("issuer"),
	}
	a.statusListURL = func(period string) string {
		return fmt.Sprintf("urn:revocation-list:%s:%s", crypto.Identifier(), period)
	}
	for _, opt := range opts {
		opt(a)
	}
	a.lists = gocache.New(a.listTTL, a.listTTL/2)
	return a
}

// Store exposes the underlying CredentialStore, e.g. for inspection in
// tests.
func (a *Agent) Store() *CredentialStore { return a.store }

// listFor returns (creating if necessary) the revocation list for period.
// Callers must hold a.mu. The returned List is refreshed in the cache on
// every access so an actively-issuing period never expires mid-use.
func (a *Agent) listFor(period string) *revocation.List {
	if cached, ok := a.lists.Get(period); ok {
		list := cached.(*revocation.List)
		a.lists.Set(period, list, gocache.DefaultExpiration)
		return list
	}
	list := revocation.NewList(a.listSize, period)
	a.lists.Set(period, list, gocache.DefaultExpiration)
	return list
}

// IssueCredentialWithTypes issues one credential per entry in types,
// sourcing subject claims from the configured DataProvider, allocating a
// revocation index, and signing a VC-JWS. Each type is classified
// independently; a failure on one does not prevent the others from
// succeeding.
func (a *Agent) IssueCredentialWithTypes(ctx context.Context, subjectKeyID string, types []string) IssuedCredentialResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := IssuedCredentialResult{}

	for _, credentialType := range types {
		credential, compact, attachments, err := a.issueOne(ctx, subjectKeyID, credentialType)
		if err != nil {
			a.log.Debug("issue failed", "type", credentialType, "error", err.Error())
			result.Failed = append(result.Failed, FailureReason{CredentialType: credentialType, Err: err})
			continue
		}
		result.Successful = append(result.Successful, IssuedCredential{
			VcJws:       compact,
			Credential:  credential,
			Attachments: attachments,
		})
	}

	a.log.Info("issued credentials", "subject", subjectKeyID, "successful", len(result.Successful), "failed", len(result.Failed))
	return result
}

func (a *Agent) issueOne(ctx context.Context, subjectKeyID, credentialType string) (vc.VerifiableCredential, string, []dataprovider.Attachment, error) {
	claims, attachments, err := a.dataProvider.GetCredential(subjectKeyID, credentialType)
	if err != nil {
		return vc.VerifiableCredential{}, "", nil, err
	}

	list := a.listFor(a.timePeriod)
	index, err := list.AllocateIndex()
	if err != nil {
		return vc.VerifiableCredential{}, "", nil, err
	}

	now := a.clock()
	credential := vc.VerifiableCredential{
		ID:             vc.NewCredentialID(),
		Type:           []string{vc.TypeVerifiableCredential, credentialType},
		Issuer:         a.crypto.Identifier(),
		IssuanceDate:   now,
		ExpirationDate: now.Add(a.validityWindow),
		CredentialStatus: &vc.CredentialStatus{
			StatusListIndex:         index,
			StatusListCredentialUrl: a.statusListURL(a.timePeriod),
			StatusPurpose:           "revocation",
		},
		CredentialSubject: claims.Subject,
	}

	payload, err := json.Marshal(vc.NewVCJWSClaims(credential, subjectKeyID))
	if err != nil {
		return vc.VerifiableCredential{}, "", nil, fmt.Errorf("issuer: marshal claims: %w", err)
	}

	compact, err := jws.Sign(ctx, jws.Header{}, payload, a.crypto, jws.SignOptions{IncludeKid: true})
	if err != nil {
		return vc.VerifiableCredential{}, "", nil, fmt.Errorf("issuer: sign vc-jws: %w", err)
	}

	a.store.Put(StoreEntry{
		VcId:            credential.ID,
		StatusListIndex: index,
		CredentialType:  credentialType,
		IssuanceDate:    now,
		ExpirationDate:  credential.ExpirationDate,
		TimePeriod:      a.timePeriod,
	})

	return credential, compact, attachments, nil
}

// RevokeCredentials parses each VC-JWS, looks it up by jti in the store,
// and revokes it. Returns true iff every listed credential was found and
// revoked (a credential already revoked still counts as revoked).
func (a *Agent) RevokeCredentials(vcJwsList []string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	allRevoked := true
	for _, raw := range vcJwsList {
		if !a.revokeOne(raw) {
			allRevoked = false
		}
	}
	return allRevoked
}

func (a *Agent) revokeOne(raw string) bool {
	signed, err := jws.Parse(raw)
	if err != nil {
		a.log.Debug("revoke: unparseable vc-jws", "error", err.Error())
		return false
	}
	claims, err := vc.ParseVCJWSClaims(signed.Payload)
	if err != nil {
		a.log.Debug("revoke: unparseable claims", "error", err.Error())
		return false
	}

	entry, ok := a.store.Get(claims.JTI)
	if !ok {
		a.log.Debug("revoke: unknown vc id", "jti", claims.JTI)
		return false
	}

	list := a.listFor(entry.TimePeriod)
	if err := list.Revoke(entry.StatusListIndex); err != nil {
		a.log.Debug("revoke: bitstring set failed", "error", err.Error())
		return false
	}

	if err := a.store.MarkRevoked(entry.VcId); err != nil && !errors.Is(err, vcerrors.ErrAlreadyRevoked) {
		a.log.Debug("revoke: store update failed", "error", err.Error())
		return false
	}

	a.log.Info("revoked credential", "jti", entry.VcId)
	return true
}

// AggregationDocument builds the status-list discovery document for
// credentialType, listing the statusListCredentialUrl of every time period
// a credential of that type has been issued under.
func (a *Agent) AggregationDocument(credentialType string) revocation.AggregationDoc {
	periods := a.store.TimePeriodsForType(credentialType)
	urls := make([]string, 0, len(periods))
	for _, period := range periods {
		urls = append(urls, a.statusListURL(period))
	}
	return revocation.NewAggregationDoc(credentialType, urls)
}

// IssueRevocationListCredential builds and signs the RevocationList2020Credential
// VC-JWS reflecting the current bitstring for timePeriod. Always emits a
// list, including an all-zero one for a period with no allocations yet —
// see DESIGN.md for the rationale.
func (a *Agent) IssueRevocationListCredential(ctx context.Context, timePeriod string) (string, error) {
	a.mu.Lock()
	list := a.listFor(timePeriod)
	a.mu.Unlock()

	now := a.clock()
	subjectID := a.statusListURL(timePeriod)
	return revocation.Issue(ctx, list, a.crypto, subjectID, now, now.Add(a.validityWindow))
}
