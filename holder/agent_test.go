package holder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oid4vc/vclib/internal/jws"
	"github.com/oid4vc/vclib/internal/signing"
	"github.com/oid4vc/vclib/revocation"
	"github.com/oid4vc/vclib/validator"
	"github.com/oid4vc/vclib/vc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statusListURL = "https://issuer.example/status/2026-Q1"

type harness struct {
	issuer        *signing.SoftwareCryptoService
	holder        *signing.SoftwareCryptoService
	verifierKeyID string
	clock         time.Time
	validator     *validator.Validator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	issuer, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)
	holder, err := signing.GenerateSoftwareCryptoService(signing.KidThumbprint)
	require.NoError(t, err)

	keys := map[string]any{
		issuer.Identifier(): issuer.PublicKey(),
		holder.Identifier(): holder.PublicKey(),
	}
	resolver := jws.KeyResolverFunc(func(kid string) (any, error) {
		if key, ok := keys[kid]; ok {
			return key, nil
		}
		return nil, assertUnknownKid(kid)
	})

	clock := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	v := validator.New(signing.NewSoftwareVerifierCryptoService(), resolver, validator.WithClock(func() time.Time { return clock }))

	return &harness{
		issuer:        issuer,
		holder:        holder,
		verifierKeyID: "did:key:zVerifier",
		clock:         clock,
		validator:     v,
	}
}

func assertUnknownKid(kid string) error {
	return &unknownKidError{kid}
}

type unknownKidError struct{ kid string }

func (e *unknownKidError) Error() string { return "unknown kid: " + e.kid }

func (h *harness) issueVcJws(t *testing.T, statusIndex int) string {
	t.Helper()
	credential := vc.VerifiableCredential{
		ID:             vc.NewCredentialID(),
		Type:           []string{vc.TypeVerifiableCredential, vc.AtomicAttributeConcreteType},
		Issuer:         h.issuer.Identifier(),
		IssuanceDate:   h.clock.Add(-time.Hour),
		ExpirationDate: h.clock.Add(time.Hour),
		CredentialStatus: &vc.CredentialStatus{
			StatusListIndex:         statusIndex,
			StatusListCredentialUrl: statusListURL,
			StatusPurpose:           "revocation",
		},
		CredentialSubject: vc.AtomicAttribute{
			ID:    h.holder.Identifier(),
			Name:  "given_name",
			Value: "Alice",
		},
	}

	claims := vc.NewVCJWSClaims(credential, h.holder.Identifier())
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	compact, err := jws.Sign(context.Background(), jws.Header{}, payload, h.issuer, jws.SignOptions{IncludeKid: true})
	require.NoError(t, err)
	return compact
}

func (h *harness) newAgent() *Agent {
	return NewAgent(h.holder.Identifier(), h.holder, h.validator, WithClock(func() time.Time { return h.clock }))
}

func TestStoreCredentialsAccepted(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	compact := h.issueVcJws(t, 1)
	result := agent.StoreCredentials([]Input{{VcJws: compact}})

	require.Len(t, result.Accepted, 1)
	assert.Empty(t, result.Rejected)
	assert.Empty(t, result.NotVerified)
	assert.Len(t, agent.GetCredentials(nil), 1)
}

func TestStoreCredentialsNotVerifiedOnSubjectMismatch(t *testing.T) {
	h := newHarness(t)
	agent := NewAgent("did:key:zSomeoneElse", h.holder, h.validator, WithClock(func() time.Time { return h.clock }))

	compact := h.issueVcJws(t, 2)
	result := agent.StoreCredentials([]Input{{VcJws: compact}})

	assert.Empty(t, result.Accepted)
	assert.Empty(t, result.Rejected)
	assert.Len(t, result.NotVerified, 1)
}

func TestStoreCredentialsRejectedWhenRevoked(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	list := revocation.NewList(1024, "2026-Q1")
	index, err := list.AllocateIndex()
	require.NoError(t, err)
	require.NoError(t, list.Revoke(index))
	revocationCompact, err := revocation.Issue(context.Background(), list, h.issuer, statusListURL, h.clock.Add(-time.Hour), h.clock.Add(24*time.Hour))
	require.NoError(t, err)
	require.True(t, agent.SetRevocationList(revocationCompact))

	compact := h.issueVcJws(t, index)
	result := agent.StoreCredentials([]Input{{VcJws: compact}})

	assert.Empty(t, result.Accepted)
	require.Len(t, result.Rejected, 1)
	assert.Empty(t, result.NotVerified)
}

func TestStoreValidatedCredentialsBypassesVerification(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	compact := h.issueVcJws(t, 3)
	ok := agent.StoreValidatedCredentials([]Input{{VcJws: compact}})

	assert.True(t, ok)
	assert.Len(t, agent.GetCredentials(nil), 1)
}

func TestStoreValidatedCredentialsFailsOnGarbage(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	ok := agent.StoreValidatedCredentials([]Input{{VcJws: "not-a-jws"}})
	assert.False(t, ok)
}

func TestGetCredentialsFiltersByType(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	compact := h.issueVcJws(t, 4)
	agent.StoreCredentials([]Input{{VcJws: compact}})

	assert.Len(t, agent.GetCredentials([]string{vc.AtomicAttributeConcreteType}), 1)
	assert.Empty(t, agent.GetCredentials([]string{"SomeOtherType"}))
}

func TestCreatePresentationSelectsUnrevokedAndSigns(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	compact := h.issueVcJws(t, 5)
	agent.StoreCredentials([]Input{{VcJws: compact}})

	vpJws, ok := agent.CreatePresentation(context.Background(), "challenge-1", h.verifierKeyID, nil)
	require.True(t, ok)

	result := h.validator.VerifyVpJws(vpJws, "challenge-1", h.verifierKeyID)
	require.True(t, result.Success())
	assert.Len(t, result.VerifiableCredentials(), 1)
}

func TestCreatePresentationEmptySelectionFails(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	_, ok := agent.CreatePresentation(context.Background(), "challenge-1", h.verifierKeyID, nil)
	assert.False(t, ok)
}

func TestCreatePresentationExcludesRevoked(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	list := revocation.NewList(1024, "2026-Q1")
	index, err := list.AllocateIndex()
	require.NoError(t, err)
	require.NoError(t, list.Revoke(index))
	revocationCompact, err := revocation.Issue(context.Background(), list, h.issuer, statusListURL, h.clock.Add(-time.Hour), h.clock.Add(24*time.Hour))
	require.NoError(t, err)

	compact := h.issueVcJws(t, index)
	require.True(t, agent.StoreValidatedCredentials([]Input{{VcJws: compact}}))
	require.True(t, agent.SetRevocationList(revocationCompact))

	_, ok := agent.CreatePresentation(context.Background(), "challenge-1", h.verifierKeyID, nil)
	assert.False(t, ok)
}

func TestCreatePresentationFromCredentials(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	compact := h.issueVcJws(t, 6)
	vpJws, ok := agent.CreatePresentationFromCredentials(context.Background(), []string{compact}, "challenge-2", h.verifierKeyID)
	require.True(t, ok)

	result := h.validator.VerifyVpJws(vpJws, "challenge-2", h.verifierKeyID)
	require.True(t, result.Success())
}

func TestCreatePresentationFromCredentialsEmptyFails(t *testing.T) {
	h := newHarness(t)
	agent := h.newAgent()

	_, ok := agent.CreatePresentationFromCredentials(context.Background(), nil, "challenge-2", h.verifierKeyID)
	assert.False(t, ok)
}
