package revocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/vc"
)

// SubjectType is the RevocationList2020 subject's own "type" field, per
// spec.md §6's RevocationList VC format.
const SubjectType = "RevocationList2020"

// NewCredential builds the RevocationList2020Credential VC wrapping list's
// current bitstring.
func NewCredential(list *List, issuerKeyID, subjectID string, issuanceDate, expirationDate time.Time) (vc.VerifiableCredential, error) {
	encoded, err := list.Encode()
	if err != nil {
		return vc.VerifiableCredential{}, fmt.Errorf("revocation: encode bitstring: %w", err)
	}

	return vc.VerifiableCredential{
		ID:             vc.NewCredentialID(),
		Type:           []string{vc.TypeVerifiableCredential, vc.RevocationListConcreteType},
		Issuer:         issuerKeyID,
		IssuanceDate:   issuanceDate,
		ExpirationDate: expirationDate,
		CredentialSubject: vc.RevocationListSubject{
			ID:          subjectID,
			Type:        SubjectType,
			EncodedList: encoded,
		},
	}, nil
}

// Issue builds and signs a RevocationList2020Credential VC-JWS for list.
func Issue(ctx context.Context, list *List, crypto signing.CryptoService, subjectID string, issuanceDate, expirationDate time.Time) (string, error) {
	credential, err := NewCredential(list, crypto.Identifier(), subjectID, issuanceDate, expirationDate)
	if err != nil {
		return "", err
	}

	claims := vc.NewVCJWSClaims(credential, subjectID)
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("revocation: marshal claims: %w", err)
	}

	return jws.Sign(ctx, jws.Header{}, payload, crypto, jws.SignOptions{IncludeKid: true})
}

// Parse verifies a RevocationList2020Credential VC-JWS and decodes its
// embedded bitstring into a read-only List.
func Parse(compact string, verifier signing.VerifierCryptoService, resolver jws.KeyResolver, expectedKey any) (*List, vc.VerifiableCredential, error) {
	signed, err := jws.Parse(compact)
	if err != nil {
		return nil, vc.VerifiableCredential{}, err
	}
	if ok, err := jws.Verify(signed, expectedKey, resolver, verifier); err != nil || !ok {
		if err == nil {
			err = jws.ErrInvalidSignature
		}
		return nil, vc.VerifiableCredential{}, err
	}

	claims, err := vc.ParseVCJWSClaims(signed.Payload)
	if err != nil {
		return nil, vc.VerifiableCredential{}, err
	}
	credential := claims.Credential

	if !hasType(credential.Type, vc.RevocationListConcreteType) {
		return nil, credential, fmt.Errorf("revocation: credential type %v does not include %s", credential.Type, vc.RevocationListConcreteType)
	}
	subject, ok := credential.CredentialSubject.(vc.RevocationListSubject)
	if !ok {
		return nil, credential, fmt.Errorf("revocation: credentialSubject is %T, not RevocationListSubject", credential.CredentialSubject)
	}

	list, err := DecodeList(subject.EncodedList, credential.ID)
	if err != nil {
		return nil, credential, err
	}
	return list, credential, nil
}

func hasType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
