package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
)

var (
	ErrParse                   = errors.New("parsing of request failed")
	ErrIssuerInvalid           = errors.New("issuer does not match")
	ErrAudience                = errors.New("audience is not valid")
	ErrSignatureMissing        = errors.New("token does not contain a signature")
	ErrSignatureMultiple       = errors.New("token contains multiple signatures")
	ErrSignatureUnsupportedAlg = errors.New("signature algorithm not supported")
	ErrSignatureInvalid        = errors.New("signature does not match any key")
	ErrExpired                 = errors.New("token has expired")
	ErrNotYetValid             = errors.New("token is not valid yet")
)

// VerifySignedJWT checks the signature of the compact JWS token against keys
// and returns the verified payload. An empty supportedAlgs allows RS256 only.
func VerifySignedJWT(token string, keys *jose.JSONWebKeySet, supportedAlgs ...string) ([]byte, error) {
	jws, err := jose.ParseSigned(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(jws.Signatures) == 0 {
		return nil, ErrSignatureMissing
	}
	if len(jws.Signatures) > 1 {
		return nil, ErrSignatureMultiple
	}
	header := jws.Signatures[0].Header
	if len(supportedAlgs) == 0 {
		supportedAlgs = []string{string(jose.RS256)}
	}
	if !contains(supportedAlgs, header.Algorithm) {
		return nil, fmt.Errorf("%w: %s", ErrSignatureUnsupportedAlg, header.Algorithm)
	}
	if keys == nil {
		return nil, ErrSignatureInvalid
	}
	candidates := keys.Keys
	if header.KeyID != "" {
		candidates = keys.Key(header.KeyID)
	}
	for _, key := range candidates {
		if key.Use != "" && key.Use != "sig" {
			continue
		}
		if payload, err := jws.Verify(key); err == nil {
			return payload, nil
		}
	}
	return nil, ErrSignatureInvalid
}

// ParseClaims unmarshals a verified payload into claims.
func ParseClaims(payload []byte, claims any) error {
	if err := json.Unmarshal(payload, claims); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

func CheckIssuer(expected, actual string) error {
	if expected != actual {
		return fmt.Errorf("%w: expected %s got %s", ErrIssuerInvalid, expected, actual)
	}
	return nil
}

func CheckAudience(audience Audience, expected string) error {
	if !audience.Contains(expected) {
		return fmt.Errorf("%w: %s not in %v", ErrAudience, expected, audience)
	}
	return nil
}

// CheckExpiration fails if exp is set and not after now, allowing offset of clock skew.
func CheckExpiration(exp Time, now time.Time, offset time.Duration) error {
	if exp == 0 {
		return nil
	}
	if !now.Add(-offset).Before(exp.AsTime()) {
		return fmt.Errorf("%w: %s", ErrExpired, exp.AsTime().UTC())
	}
	return nil
}

func CheckNotBefore(nbf Time, now time.Time, offset time.Duration) error {
	if nbf == 0 {
		return nil
	}
	if now.Add(offset).Before(nbf.AsTime()) {
		return fmt.Errorf("%w: %s", ErrNotYetValid, nbf.AsTime().UTC())
	}
	return nil
}

func contains(list []string, needle string) bool {
	for _, item := range list {
		if item == needle {
			return true
		}
	}
	return false
}
