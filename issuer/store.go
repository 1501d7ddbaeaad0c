// Package issuer implements the issuer-side credential lifecycle: the
// IssuerCredentialStore bookkeeping and the IssuerAgent that issues,
// revokes, and publishes revocation-list credentials.
package issuer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oid4vc/vclib/internal/vcerrors"
)

// StoreEntry is one issued credential's lifecycle record (spec.md §3).
type StoreEntry struct {
	VcId            string
	StatusListIndex int
	CredentialType  string
	IssuanceDate    time.Time
	ExpirationDate  time.Time
	Revoked         bool
	TimePeriod      string
}

// CredentialStore is the issuer's in-memory record of every credential it
// has issued, keyed by VC id. Created on issue, mutated only by revoke.
type CredentialStore struct {
	mu      sync.Mutex
	entries map[string]*StoreEntry
}

// NewCredentialStore builds an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{entries: make(map[string]*StoreEntry)}
}

// Put records a freshly issued credential. Overwrites any existing entry
// with the same VcId.
func (s *CredentialStore) Put(entry StoreEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := entry
	s.entries[entry.VcId] = &copied
}

// Get returns the entry for vcId, if any.
func (s *CredentialStore) Get(vcId string) (StoreEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[vcId]
	if !ok {
		return StoreEntry{}, false
	}
	return *entry, true
}

// MarkRevoked sets Revoked=true on the entry for vcId. Returns
// vcerrors.ErrNotFound if no such entry exists, or vcerrors.ErrAlreadyRevoked
// if the entry is already revoked (the bit is already set; this is not
// treated as fatal by callers).
func (s *CredentialStore) MarkRevoked(vcId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[vcId]
	if !ok {
		return fmt.Errorf("issuer: %w: %s", vcerrors.ErrNotFound, vcId)
	}
	if entry.Revoked {
		return fmt.Errorf("issuer: %w: %s", vcerrors.ErrAlreadyRevoked, vcId)
	}
	entry.Revoked = true
	return nil
}

// TimePeriodsForType returns the distinct time periods a credential of
// credentialType has ever been issued under, sorted for determinism.
func (s *CredentialStore) TimePeriodsForType(credentialType string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{})
	for _, entry := range s.entries {
		if entry.CredentialType == credentialType {
			seen[entry.TimePeriod] = struct{}{}
		}
	}
	periods := make([]string, 0, len(seen))
	for period := range seen {
		periods = append(periods, period)
	}
	sort.Strings(periods)
	return periods
}
