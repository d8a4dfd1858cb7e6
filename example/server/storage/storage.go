package storage

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zitadel/ciba/pkg/ciba"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

const DefaultAccessTokenLifetime = 5 * time.Minute

var errWrongSecret = errors.New("invalid client secret")

// Storage holds the clients and users of the example server
// and issues opaque tokens for approved requests.
// typically you would implement this as a layer on top of your database
// for simplicity this example keeps everything in-memory
type Storage struct {
	lock      sync.Mutex
	clients   map[string]*Client
	userStore UserStore
	tokens    map[string]*Token

	accessTokenLifetime time.Duration
	nowFunc             func() time.Time
}

// Token is an issued access token.
type Token struct {
	ID             string
	ApplicationID  string
	Subject        string
	Scopes         []string
	Expiration     time.Time
	RefreshTokenID string
}

type Option func(*Storage)

func WithAccessTokenLifetime(lifetime time.Duration) Option {
	return func(s *Storage) {
		if lifetime > 0 {
			s.accessTokenLifetime = lifetime
		}
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Storage) {
		s.nowFunc = now
	}
}

// NewStorage registers the clients after validating their backchannel metadata.
// httpClient fetches the jwks_uri of clients and may be nil.
func NewStorage(ctx context.Context, userStore UserStore, validator *ciba.RegistrationValidator, httpClient *http.Client, clients []ClientConfig, opts ...Option) (*Storage, error) {
	if httpClient == nil {
		httpClient = httphelper.DefaultHTTPClient
	}
	s := &Storage{
		clients:             make(map[string]*Client, len(clients)),
		userStore:           userStore,
		tokens:              make(map[string]*Token),
		accessTokenLifetime: DefaultAccessTokenLifetime,
		nowFunc:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range clients {
		config := &clients[i]
		if _, ok := s.clients[config.ID]; ok {
			return nil, fmt.Errorf("client %s is registered twice", config.ID)
		}
		ok, userCode := validator.ValidateParams(ctx, config.Metadata())
		if !ok {
			return nil, fmt.Errorf("client %s: invalid backchannel registration", config.ID)
		}
		client, err := newClient(config, userCode, httpClient)
		if err != nil {
			return nil, err
		}
		s.clients[config.ID] = client
	}
	return s, nil
}

// Users returns the directory the end-users of requests are resolved in.
func (s *Storage) Users() ciba.UserDirectory {
	return s.userStore
}

// GetClientByClientID implements the op.Storage interface
func (s *Storage) GetClientByClientID(_ context.Context, clientID string) (ciba.Client, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	client, ok := s.clients[clientID]
	if !ok {
		return nil, ciba.ErrNotFound
	}
	return client, nil
}

// AuthorizeClientIDSecret implements the op.Storage interface
func (s *Storage) AuthorizeClientIDSecret(_ context.Context, clientID, clientSecret string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	client, ok := s.clients[clientID]
	if !ok {
		return fmt.Errorf("client not found")
	}
	// for this example we directly check the secret
	// obviously you would not have the secret in plain text, but rather hashed and salted (e.g. using bcrypt)
	if subtle.ConstantTimeCompare([]byte(client.secret), []byte(clientSecret)) != 1 {
		return errWrongSecret
	}
	return nil
}

// CreateTokens implements the op.TokenIssuer interface.
// The tokens are opaque; a refresh token is only issued
// to clients allowed to use the refresh_token grant.
func (s *Storage) CreateTokens(_ context.Context, req *ciba.AuthenticationRequest) (*ciba.Tokens, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	client, ok := s.clients[req.ClientID]
	if !ok {
		return nil, fmt.Errorf("client %s not found", req.ClientID)
	}
	token := &Token{
		ID:            uuid.NewString(),
		ApplicationID: req.ClientID,
		Subject:       req.UserID,
		Scopes:        req.Scopes,
		Expiration:    s.nowFunc().Add(s.accessTokenLifetime),
	}
	for _, g := range client.grantTypes {
		if g == oidc.GrantTypeRefreshToken {
			token.RefreshTokenID = uuid.NewString()
			break
		}
	}
	s.tokens[token.ID] = token
	return &ciba.Tokens{
		AccessToken:  token.ID,
		TokenType:    oidc.BearerToken,
		RefreshToken: token.RefreshTokenID,
		ExpiresIn:    uint64(s.accessTokenLifetime / time.Second),
	}, nil
}

// TokenByID returns an issued access token which has not expired.
func (s *Storage) TokenByID(id string) (*Token, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	token, ok := s.tokens[id]
	if !ok || !s.nowFunc().Before(token.Expiration) {
		return nil, false
	}
	return token, true
}
