// Package dataprovider defines the external-collaborator boundary an
// IssuerAgent calls through to obtain subject claims for a credential type,
// plus a simple in-memory implementation for tests and small deployments.
package dataprovider

import (
	"fmt"
	"sync"

	"github.com/oid4vc/vclib/internal/vcerrors"
	"github.com/oid4vc/vclib/vc"
)

// Attachment is an opaque named byte blob bundled with an issued
// credential (e.g. a portrait photo, a supporting document scan).
type Attachment struct {
	Name string
	Data []byte
}

// CredentialClaims is the subject-side content a DataProvider hands back
// for one (subjectKeyId, credentialType) pair.
type CredentialClaims struct {
	Subject vc.AtomicAttribute
}

// DataProvider resolves subject claims for a credential type. Treated as
// an external collaborator: no concrete implementation here does more than
// serve tests and simple deployments.
type DataProvider interface {
	GetCredential(subjectKeyID, credentialType string) (CredentialClaims, []Attachment, error)
}

// InMemoryDataProvider is a DataProvider backed by an in-process registry,
// populated ahead of time via Register.
type InMemoryDataProvider struct {
	mu          sync.RWMutex
	claims      map[string]CredentialClaims
	attachments map[string][]Attachment
}

// NewInMemoryDataProvider builds an empty registry.
func NewInMemoryDataProvider() *InMemoryDataProvider {
	return &InMemoryDataProvider{
		claims:      make(map[string]CredentialClaims),
		attachments: make(map[string][]Attachment),
	}
}

func key(subjectKeyID, credentialType string) string {
	return subjectKeyID + "\x00" + credentialType
}

// Register associates claims (and optional attachments) with a
// (subjectKeyID, credentialType) pair for later retrieval.
func (p *InMemoryDataProvider) Register(subjectKeyID, credentialType string, claims CredentialClaims, attachments ...Attachment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.claims[key(subjectKeyID, credentialType)] = claims
	if len(attachments) > 0 {
		p.attachments[key(subjectKeyID, credentialType)] = attachments
	}
}

// GetCredential implements DataProvider.
func (p *InMemoryDataProvider) GetCredential(subjectKeyID, credentialType string) (CredentialClaims, []Attachment, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	claims, ok := p.claims[key(subjectKeyID, credentialType)]
	if !ok {
		return CredentialClaims{}, nil, fmt.Errorf("dataprovider: %w: no claims registered for subject %q type %q", vcerrors.ErrNotFound, subjectKeyID, credentialType)
	}
	return claims, p.attachments[key(subjectKeyID, credentialType)], nil
}
