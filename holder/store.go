// Package holder implements the holder-side credential lifecycle: storing
// verified credentials, tracking their live revocation status, and
// building Verifiable Presentations over a selected subset.
package holder

import (
	"sync"

	"github.com/oid4vc/vclib/dataprovider"
	"github.com/oid4vc/vclib/vc"
)

// Entry is a stored, previously verified credential. Created on store;
// never mutated (spec.md §3).
type Entry struct {
	VcJws       string
	Credential  vc.VerifiableCredential
	Attachments []dataprovider.Attachment
}

// CredentialStore is the holder's in-memory record of stored credentials,
// keyed by VC id.
type CredentialStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCredentialStore builds an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{entries: make(map[string]Entry)}
}

// Put records entry, keyed by its credential's id.
func (s *CredentialStore) Put(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Credential.ID] = entry
}

// All returns every stored entry, in no particular order.
func (s *CredentialStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	return out
}
