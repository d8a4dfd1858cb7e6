package ciba

import (
	"context"

	"github.com/go-jose/go-jose/v3"

	"github.com/zitadel/ciba/pkg/oidc"
)

// Client is a registered client as seen by the backchannel authentication endpoint.
type Client interface {
	GetID() string

	// DeliveryMode is empty if the client did not register for
	// backchannel authentication.
	DeliveryMode() oidc.DeliveryMode
	NotificationEndpoint() string
	RequestSigningAlg() string
	UserCodeRequired() bool
	GrantTypes() []oidc.GrantType

	// KeySet verifies signed request objects and login hint tokens of the client.
	KeySet(ctx context.Context) (*jose.JSONWebKeySet, error)
}

// User is an end-user found through one of the hints.
type User struct {
	ID       string
	UserCode string

	// DeviceToken addresses the user's authentication device
	// at the push message transport.
	DeviceToken string
	Locale      string
}

// UserDirectory resolves the end-user of an authentication request.
// Implementations return ErrNotFound for unknown users.
type UserDirectory interface {
	UserByLoginHint(ctx context.Context, loginHint string) (*User, error)

	// UserByIDTokenHint is called with the verified subject of the id_token_hint.
	UserByIDTokenHint(ctx context.Context, subject string) (*User, error)

	// UserByLoginHintToken is called with the subject of the verified login_hint_token.
	UserByLoginHintToken(ctx context.Context, subject oidc.LoginHintSubject) (*User, error)
}
