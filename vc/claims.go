package vc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VCJWSClaims is the parsed JWT claim set of a VerifiableCredentialJws
// envelope (spec.md §3): iss/jti/sub/nbf/exp plus the embedded vc object.
type VCJWSClaims struct {
	Issuer         string
	JTI            string
	Subject        string
	NotBefore      time.Time
	Expiry         time.Time
	Credential     VerifiableCredential
}

// NewVCJWSClaims assembles the jwt.MapClaims body for signing a VC-JWS,
// mirroring the teacher's MakeJWT(header, body jwt.MapClaims, ...) shape.
func NewVCJWSClaims(c VerifiableCredential, subjectKeyID string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss": c.Issuer,
		"jti": c.ID,
		"sub": subjectKeyID,
		"nbf": c.IssuanceDate.Unix(),
		"exp": c.ExpirationDate.Unix(),
		"vc":  c,
	}
}

// ParseVCJWSClaims decodes raw VC-JWS payload bytes into VCJWSClaims.
func ParseVCJWSClaims(payload []byte) (*VCJWSClaims, error) {
	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("vc: unmarshal vc-jws claims: %w", err)
	}

	iss, _ := raw["iss"].(string)
	jti, _ := raw["jti"].(string)
	sub, _ := raw["sub"].(string)
	nbf, err := numericClaim(raw, "nbf")
	if err != nil {
		return nil, err
	}
	exp, err := numericClaim(raw, "exp")
	if err != nil {
		return nil, err
	}

	vcRaw, ok := raw["vc"]
	if !ok {
		return nil, fmt.Errorf("vc: vc-jws claims missing \"vc\"")
	}
	vcBytes, err := json.Marshal(vcRaw)
	if err != nil {
		return nil, fmt.Errorf("vc: remarshal vc claim: %w", err)
	}
	var credential VerifiableCredential
	if err := json.Unmarshal(vcBytes, &credential); err != nil {
		return nil, fmt.Errorf("vc: decode vc claim: %w", err)
	}

	return &VCJWSClaims{
		Issuer:     iss,
		JTI:        jti,
		Subject:    sub,
		NotBefore:  time.Unix(nbf, 0).UTC(),
		Expiry:     time.Unix(exp, 0).UTC(),
		Credential: credential,
	}, nil
}

// VPJWSClaims is the parsed JWT claim set of a VerifiablePresentationJws
// envelope (spec.md §3).
type VPJWSClaims struct {
	Issuer       string
	Audience     string
	JTI          string
	NotBefore    time.Time
	Expiry       time.Time
	Nonce        string
	Presentation VerifiablePresentation
}

// NewVPJWSClaims assembles the jwt.MapClaims body for signing a VP-JWS.
func NewVPJWSClaims(p VerifiablePresentation, audienceKeyID, nonce string, notBefore, expiry time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   p.Holder,
		"sub":   p.Holder,
		"aud":   audienceKeyID,
		"jti":   p.ID,
		"nbf":   notBefore.Unix(),
		"iat":   notBefore.Unix(),
		"exp":   expiry.Unix(),
		"nonce": nonce,
		"vp":    p,
	}
}

// ParseVPJWSClaims decodes raw VP-JWS payload bytes into VPJWSClaims.
func ParseVPJWSClaims(payload []byte) (*VPJWSClaims, error) {
	var raw jwt.MapClaims
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("vc: unmarshal vp-jws claims: %w", err)
	}

	iss, _ := raw["iss"].(string)
	aud, _ := raw["aud"].(string)
	jti, _ := raw["jti"].(string)
	nonce, _ := raw["nonce"].(string)
	nbf, err := numericClaim(raw, "nbf")
	if err != nil {
		return nil, err
	}
	exp, err := numericClaim(raw, "exp")
	if err != nil {
		return nil, err
	}

	vpRaw, ok := raw["vp"]
	if !ok {
		return nil, fmt.Errorf("vc: vp-jws claims missing \"vp\"")
	}
	vpBytes, err := json.Marshal(vpRaw)
	if err != nil {
		return nil, fmt.Errorf("vc: remarshal vp claim: %w", err)
	}
	var presentation VerifiablePresentation
	if err := json.Unmarshal(vpBytes, &presentation); err != nil {
		return nil, fmt.Errorf("vc: decode vp claim: %w", err)
	}

	return &VPJWSClaims{
		Issuer:       iss,
		Audience:     aud,
		JTI:          jti,
		NotBefore:    time.Unix(nbf, 0).UTC(),
		Expiry:       time.Unix(exp, 0).UTC(),
		Nonce:        nonce,
		Presentation: presentation,
	}, nil
}

func numericClaim(claims jwt.MapClaims, key string) (int64, error) {
	v, ok := claims[key]
	if !ok {
		return 0, fmt.Errorf("vc: claims missing %q", key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("vc: claim %q is not numeric: %T", key, v)
	}
	return int64(f), nil
}
