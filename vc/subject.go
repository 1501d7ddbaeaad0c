package vc

import (
	"encoding/json"
	"fmt"
	"sync"
)

// CredentialSubject is the closed-but-extensible union of credentialSubject
// shapes this module understands. The unexported marker method keeps the
// union closed to this package's own variants (AtomicAttribute,
// RevocationListSubject) plus whatever extension variants are registered
// through RegisterSubjectType before LibraryInitializer is called.
type CredentialSubject interface {
	isCredentialSubject()
}

// AtomicAttribute is the default, most common credentialSubject variant:
// a single named claim about the subject.
type AtomicAttribute struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	MimeType string `json:"mimeType"`
}

func (AtomicAttribute) isCredentialSubject() {}

// RevocationListSubject is the credentialSubject of a RevocationList2020
// credential: the gzip+base64url-encoded bitstring.
type RevocationListSubject struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	EncodedList string `json:"encodedList"`
}

func (RevocationListSubject) isCredentialSubject() {}

// AtomicAttributeConcreteType is the conventional concrete VC type tag a
// credential carrying an AtomicAttribute subject uses.
const AtomicAttributeConcreteType = "AtomicAttribute2023"

// RevocationListConcreteType is the concrete VC type tag of a
// RevocationList2020 credential.
const RevocationListConcreteType = "RevocationList2020Credential"

// SubjectFactory decodes a credentialSubject variant's raw JSON bytes.
type SubjectFactory func(data []byte) (CredentialSubject, error)

var subjectRegistry = struct {
	mu     sync.RWMutex
	byType map[string]SubjectFactory
	locked bool
}{
	byType: map[string]SubjectFactory{
		AtomicAttributeConcreteType: func(data []byte) (CredentialSubject, error) {
			var a AtomicAttribute
			if err := json.Unmarshal(data, &a); err != nil {
				return nil, err
			}
			return a, nil
		},
		RevocationListConcreteType: func(data []byte) (CredentialSubject, error) {
			var r RevocationListSubject
			if err := json.Unmarshal(data, &r); err != nil {
				return nil, err
			}
			return r, nil
		},
	},
}

// RegisterSubjectType registers an additional credentialSubject variant
// keyed by the concrete VC type tag that carries it. Must be called before
// LibraryInitializer; panics if the registry has already been locked, or if
// typeTag is already registered.
func RegisterSubjectType(typeTag string, factory SubjectFactory) {
	subjectRegistry.mu.Lock()
	defer subjectRegistry.mu.Unlock()

	if subjectRegistry.locked {
		panic("vc: RegisterSubjectType called after LibraryInitializer")
	}
	if _, exists := subjectRegistry.byType[typeTag]; exists {
		panic(fmt.Sprintf("vc: subject type %q already registered", typeTag))
	}
	subjectRegistry.byType[typeTag] = factory
}

// LibraryInitializer locks the subject registry. Call once at process
// start after any RegisterSubjectType calls; subsequent registration
// attempts panic. Safe to call multiple times.
func LibraryInitializer() {
	subjectRegistry.mu.Lock()
	defer subjectRegistry.mu.Unlock()
	subjectRegistry.locked = true
}

// decodeSubject resolves the first type tag in types with a registered
// factory and decodes data with it.
func decodeSubject(types []string, data []byte) (CredentialSubject, error) {
	subjectRegistry.mu.RLock()
	defer subjectRegistry.mu.RUnlock()

	for _, t := range types {
		if factory, ok := subjectRegistry.byType[t]; ok {
			subject, err := factory(data)
			if err != nil {
				return nil, fmt.Errorf("vc: decode credentialSubject as %q: %w", t, err)
			}
			return subject, nil
		}
	}
	return nil, fmt.Errorf("vc: no registered credentialSubject variant matches type list %v", types)
}
