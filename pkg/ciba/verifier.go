package ciba

import (
	"context"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"

	"github.com/zitadel/ciba/pkg/oidc"
)

// HintVerifier verifies the signed hints of an authentication request.
type HintVerifier interface {
	// VerifyIDTokenHint returns the subject of an id_token previously issued by the server.
	VerifyIDTokenHint(ctx context.Context, idTokenHint string) (string, error)
	VerifyLoginHintToken(ctx context.Context, client Client, loginHintToken string) (*oidc.LoginHintSubject, error)
}

// KeySetFunc returns the public keys of the server.
type KeySetFunc func(ctx context.Context) (*jose.JSONWebKeySet, error)

// JWTVerifier verifies hints and request objects signed as JWS.
type JWTVerifier struct {
	issuer        string
	serverKeys    KeySetFunc
	supportedAlgs []string
	maxAgeOffset  time.Duration
	nowFunc       func() time.Time
}

func NewJWTVerifier(issuer string, serverKeys KeySetFunc, supportedAlgs []string) *JWTVerifier {
	return &JWTVerifier{
		issuer:        issuer,
		serverKeys:    serverKeys,
		supportedAlgs: supportedAlgs,
		maxAgeOffset:  10 * time.Second,
		nowFunc:       time.Now,
	}
}

// VerifyIDTokenHint accepts expired id_tokens, as the hint only identifies the user.
func (v *JWTVerifier) VerifyIDTokenHint(ctx context.Context, idTokenHint string) (string, error) {
	keys, err := v.serverKeys(ctx)
	if err != nil {
		return "", err
	}
	payload, err := oidc.VerifySignedJWT(idTokenHint, keys, v.supportedAlgs...)
	if err != nil {
		return "", err
	}
	var claims struct {
		Issuer  string `json:"iss"`
		Subject string `json:"sub"`
	}
	if err := oidc.ParseClaims(payload, &claims); err != nil {
		return "", err
	}
	if err := oidc.CheckIssuer(v.issuer, claims.Issuer); err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (v *JWTVerifier) VerifyLoginHintToken(ctx context.Context, client Client, loginHintToken string) (*oidc.LoginHintSubject, error) {
	keys, err := client.KeySet(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := oidc.VerifySignedJWT(loginHintToken, keys, v.supportedAlgs...)
	if err != nil {
		return nil, err
	}
	var claims oidc.LoginHintToken
	if err := oidc.ParseClaims(payload, &claims); err != nil {
		return nil, err
	}
	if claims.Subject.SubjectType == "" || claims.Subject.Value() == "" {
		return nil, fmt.Errorf("%w: login_hint_token without subject", oidc.ErrParse)
	}
	return &claims.Subject, nil
}

// VerifyRequestObject verifies a signed authentication request of the client.
// The request object must be issued by the client for the server and must not be expired.
func (v *JWTVerifier) VerifyRequestObject(ctx context.Context, client Client, request string) (*oidc.BackchannelRequestObject, error) {
	keys, err := client.KeySet(ctx)
	if err != nil {
		return nil, err
	}
	algs := v.supportedAlgs
	if alg := client.RequestSigningAlg(); alg != "" {
		algs = []string{alg}
	}
	payload, err := oidc.VerifySignedJWT(request, keys, algs...)
	if err != nil {
		return nil, err
	}
	claims := new(oidc.BackchannelRequestObject)
	if err := oidc.ParseClaims(payload, claims); err != nil {
		return nil, err
	}
	if err := oidc.CheckIssuer(client.GetID(), claims.Issuer); err != nil {
		return nil, err
	}
	if err := oidc.CheckAudience(claims.Audience, v.issuer); err != nil {
		return nil, err
	}
	now := v.nowFunc()
	if err := oidc.CheckExpiration(claims.Expiration, now, v.maxAgeOffset); err != nil {
		return nil, err
	}
	if err := oidc.CheckNotBefore(claims.NotBefore, now, v.maxAgeOffset); err != nil {
		return nil, err
	}
	return claims, nil
}
