// Package client implements the client side of the Client Initiated Backchannel
// Authentication flow: discovery, the authentication request and redeeming the
// auth_req_id at the token endpoint.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/google/uuid"
	"github.com/zitadel/schema"
	"golang.org/x/oauth2"

	"github.com/zitadel/ciba/pkg/crypto"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// RequestObjectLifetime is the validity of signed authentication requests.
const RequestObjectLifetime = 5 * time.Minute

var Encoder = newEncoder()

func newEncoder() httphelper.Encoder {
	e := schema.NewEncoder()
	e.RegisterEncoder(oidc.SpaceDelimitedArray{}, func(v reflect.Value) string {
		return v.Interface().(oidc.SpaceDelimitedArray).String()
	})
	return e
}

// Discover calls the discovery endpoint of the provided issuer and returns its configuration.
// It accepts an optional argument "wellKnownURL" which can be used to override the discovery endpoint url.
func Discover(ctx context.Context, issuer string, httpClient *http.Client, wellKnownURL ...string) (*oidc.DiscoveryConfiguration, error) {
	wellKnown := strings.TrimSuffix(issuer, "/") + oidc.DiscoveryEndpoint
	if len(wellKnownURL) == 1 && wellKnownURL[0] != "" {
		wellKnown = wellKnownURL[0]
	}
	discoveryConfig := new(oidc.DiscoveryConfiguration)
	if err := httphelper.GetJSON(ctx, httpClient, wellKnown, discoveryConfig); err != nil {
		return nil, err
	}
	if discoveryConfig.Issuer != issuer {
		return nil, oidc.ErrIssuerInvalid
	}
	if discoveryConfig.BackchannelAuthenticationEndpoint == "" {
		return nil, errors.New("issuer does not support backchannel authentication")
	}
	return discoveryConfig, nil
}

// Client authenticates end-users through the backchannel of an OpenID Provider.
type Client struct {
	clientID     string
	clientSecret string
	authMethod   oidc.AuthMethod
	signer       jose.Signer

	issuer              string
	backchannelEndpoint string
	tokenEndpoint       string
	httpClient          *http.Client
	nowFunc             func() time.Time
}

type Option func(*Client)

// WithHTTPClient sets the client used for all calls to the OpenID Provider.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithAuthMethod switches between client_secret_basic (default) and client_secret_post.
func WithAuthMethod(method oidc.AuthMethod) Option {
	return func(c *Client) {
		c.authMethod = method
	}
}

// WithRequestSigner sends the authentication request as signed request object.
func WithRequestSigner(signer jose.Signer) Option {
	return func(c *Client) {
		c.signer = signer
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

func New(discovery *oidc.DiscoveryConfiguration, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		clientID:            clientID,
		clientSecret:        clientSecret,
		authMethod:          oidc.AuthMethodBasic,
		issuer:              discovery.Issuer,
		backchannelEndpoint: discovery.BackchannelAuthenticationEndpoint,
		tokenEndpoint:       discovery.TokenEndpoint,
		httpClient:          httphelper.DefaultHTTPClient,
		nowFunc:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromIssuer discovers the endpoints of issuer and returns a Client using them.
func NewFromIssuer(ctx context.Context, issuer, clientID, clientSecret string, opts ...Option) (*Client, error) {
	c := New(&oidc.DiscoveryConfiguration{}, clientID, clientSecret, opts...)
	discovery, err := Discover(ctx, issuer, c.httpClient)
	if err != nil {
		return nil, err
	}
	c.issuer = discovery.Issuer
	c.backchannelEndpoint = discovery.BackchannelAuthenticationEndpoint
	c.tokenEndpoint = discovery.TokenEndpoint
	return c, nil
}

func (c *Client) authFn() any {
	if c.authMethod == oidc.AuthMethodPost {
		return httphelper.FormAuthorization(func(values url.Values) {
			values.Set("client_id", c.clientID)
			values.Set("client_secret", c.clientSecret)
		})
	}
	return httphelper.AuthorizeBasic(c.clientID, c.clientSecret)
}

// Authenticate sends the backchannel authentication request.
// Client credentials set on request are ignored in favour of the configured ones.
func (c *Client) Authenticate(ctx context.Context, request *oidc.BackchannelAuthenticationRequest) (*oidc.BackchannelAuthenticationResponse, error) {
	r := *request
	r.ClientID, r.ClientSecret = "", ""
	if c.signer != nil {
		signed, err := c.signRequest(&r)
		if err != nil {
			return nil, err
		}
		r = oidc.BackchannelAuthenticationRequest{Request: signed}
	}
	req, err := httphelper.FormRequest(ctx, c.backchannelEndpoint, &r, Encoder, c.authFn())
	if err != nil {
		return nil, err
	}
	resp := new(oidc.BackchannelAuthenticationResponse)
	if err := httphelper.HttpRequest(c.httpClient, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) signRequest(r *oidc.BackchannelAuthenticationRequest) (string, error) {
	now := c.nowFunc()
	return crypto.Sign(&oidc.BackchannelRequestObject{
		Issuer:                  c.clientID,
		Audience:                oidc.Audience{c.issuer},
		Expiration:              oidc.FromTime(now.Add(RequestObjectLifetime)),
		IssuedAt:                oidc.FromTime(now),
		NotBefore:               oidc.FromTime(now),
		JWTID:                   uuid.NewString(),
		Scopes:                  r.Scopes,
		ClientNotificationToken: r.ClientNotificationToken,
		ACRValues:               r.ACRValues,
		LoginHintToken:          r.LoginHintToken,
		IDTokenHint:             r.IDTokenHint,
		LoginHint:               r.LoginHint,
		BindingMessage:          r.BindingMessage,
		UserCode:                r.UserCode,
		RequestedExpiry:         r.RequestedExpiry,
	}, c.signer)
}

// Token redeems authReqID once. While the end-user has not decided yet
// the returned error is an *oidc.Error of type authorization_pending.
func (c *Client) Token(ctx context.Context, authReqID string) (*oauth2.Token, error) {
	request := &oidc.BackchannelTokenRequest{
		GrantType: oidc.GrantTypeCIBA,
		AuthReqID: authReqID,
	}
	req, err := httphelper.FormRequest(ctx, c.tokenEndpoint, request, Encoder, c.authFn())
	if err != nil {
		return nil, err
	}
	tokenRes := new(oidc.AccessTokenResponse)
	if err := httphelper.HttpRequest(c.httpClient, req, tokenRes); err != nil {
		return nil, err
	}
	token := &oauth2.Token{
		AccessToken:  tokenRes.AccessToken,
		TokenType:    tokenRes.TokenType,
		RefreshToken: tokenRes.RefreshToken,
	}
	if tokenRes.ExpiresIn > 0 {
		token.Expiry = c.nowFunc().UTC().Add(time.Duration(tokenRes.ExpiresIn) * time.Second)
	}
	if tokenRes.IDToken != "" {
		token = token.WithExtra(map[string]any{
			"id_token": tokenRes.IDToken,
		})
	}
	return token, nil
}

// PollToken polls the token endpoint at the interval of the authentication
// response until tokens are issued, the request is finally rejected or ctx is done.
// A slow_down answer increases the interval by 5 seconds.
func (c *Client) PollToken(ctx context.Context, auth *oidc.BackchannelAuthenticationResponse) (*oauth2.Token, error) {
	interval := 5 * time.Second
	if auth.Interval != nil {
		interval = time.Duration(*auth.Interval) * time.Second
	}
	if auth.ExpiresIn > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(auth.ExpiresIn)*time.Second)
		defer cancel()
	}
	for {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		token, err := c.Token(ctx, auth.AuthReqID)
		if err == nil {
			return token, nil
		}
		var target *oidc.Error
		if !errors.As(err, &target) {
			return nil, err
		}
		switch target.ErrorType {
		case oidc.AuthorizationPending:
			continue
		case oidc.SlowDown:
			interval += 5 * time.Second
			continue
		default:
			return nil, err
		}
	}
}
