package op

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

var (
	ErrInvalidAuthHeader   = errors.New("invalid basic auth header")
	ErrNoClientCredentials = errors.New("no client credentials provided")
	ErrMissingClientID     = errors.New("client_id missing from request")
)

// Storage gives access to the registered clients.
type Storage interface {
	// GetClientByClientID returns ciba.ErrNotFound for unknown clients.
	GetClientByClientID(ctx context.Context, clientID string) (ciba.Client, error)
	AuthorizeClientIDSecret(ctx context.Context, clientID, clientSecret string) error
}

type ClientProvider interface {
	Decoder() httphelper.Decoder
	Storage() Storage
}

// ClientCredentials of client_secret_post, decoded from the form.
type ClientCredentials struct {
	ClientID     string `schema:"client_id"`
	ClientSecret string `schema:"client_secret"`
}

// ClientBasicAuth authenticates the client of a request using client_secret_basic.
func ClientBasicAuth(r *http.Request, storage Storage) (clientID string, err error) {
	clientID, clientSecret, ok := r.BasicAuth()
	if !ok {
		return "", ErrNoClientCredentials
	}
	clientID, err = url.QueryUnescape(clientID)
	if err != nil {
		return "", ErrInvalidAuthHeader
	}
	clientSecret, err = url.QueryUnescape(clientSecret)
	if err != nil {
		return "", ErrInvalidAuthHeader
	}
	if err := storage.AuthorizeClientIDSecret(r.Context(), clientID, clientSecret); err != nil {
		return "", err
	}
	return clientID, nil
}

// ClientIDFromRequest parses the form and returns the client_id of the request.
// authenticated is true when a client secret was sent and verified,
// either through basic auth or in the form.
func ClientIDFromRequest(r *http.Request, p ClientProvider) (clientID string, authenticated bool, err error) {
	if err := r.ParseForm(); err != nil {
		return "", false, oidc.ErrInvalidRequest().WithDescription("cannot parse form").WithParent(err)
	}

	clientID, err = ClientBasicAuth(r, p.Storage())
	if err == nil {
		return clientID, true, nil
	}
	if !errors.Is(err, ErrNoClientCredentials) {
		return "", false, oidc.ErrInvalidClient().WithDescription("invalid client credentials").WithParent(err)
	}

	cc := new(ClientCredentials)
	if err := p.Decoder().Decode(cc, r.PostForm); err != nil {
		return "", false, oidc.ErrInvalidRequest().WithDescription("cannot decode client credentials").WithParent(err)
	}
	if cc.ClientID == "" {
		return "", false, oidc.ErrInvalidClient().WithParent(ErrMissingClientID)
	}
	if cc.ClientSecret == "" {
		return cc.ClientID, false, nil
	}
	if err := p.Storage().AuthorizeClientIDSecret(r.Context(), cc.ClientID, cc.ClientSecret); err != nil {
		return "", false, oidc.ErrInvalidClient().WithDescription("invalid client credentials").WithParent(err)
	}
	return cc.ClientID, true, nil
}

// AuthenticatedClient returns the registered client of a request.
// Backchannel authentication is only available to authenticated clients.
func AuthenticatedClient(r *http.Request, p ClientProvider) (ciba.Client, error) {
	clientID, authenticated, err := ClientIDFromRequest(r, p)
	if err != nil {
		return nil, err
	}
	if !authenticated {
		return nil, oidc.ErrInvalidClient().WithParent(ErrNoClientCredentials).
			WithDescription("client must authenticate")
	}
	client, err := p.Storage().GetClientByClientID(r.Context(), clientID)
	if errors.Is(err, ciba.ErrNotFound) {
		return nil, oidc.ErrInvalidClient().WithDescription("unknown client")
	}
	if err != nil {
		return nil, oidc.ErrServerError().WithParent(err)
	}
	return client, nil
}
