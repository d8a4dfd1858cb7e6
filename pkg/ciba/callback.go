package ciba

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/oauth2"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// CallbackDispatcher calls the client notification endpoint.
// Every call is made once, failures are not retried.
type CallbackDispatcher interface {
	Ping(ctx context.Context, endpoint, clientNotificationToken, authReqID string) error
	PushToken(ctx context.Context, endpoint, clientNotificationToken, authReqID string, tokens *Tokens) error
	PushError(ctx context.Context, endpoint, clientNotificationToken, authReqID string, oidcErr *oidc.Error) error
}

const (
	callbackPing      = "ping"
	callbackPushToken = "push_token"
	callbackPushError = "push_error"
)

// HTTPCallbackDispatcher posts JSON to the client notification endpoint,
// authenticated by the client notification token as bearer token.
type HTTPCallbackDispatcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type CallbackOption func(*HTTPCallbackDispatcher)

func WithCallbackHTTPClient(client *http.Client) CallbackOption {
	return func(d *HTTPCallbackDispatcher) {
		d.client = client
	}
}

func WithCallbackTimeout(timeout time.Duration) CallbackOption {
	return func(d *HTTPCallbackDispatcher) {
		d.timeout = timeout
	}
}

func WithCallbackLogger(logger *slog.Logger) CallbackOption {
	return func(d *HTTPCallbackDispatcher) {
		d.logger = logger
	}
}

func WithCallbackMetrics(metrics *Metrics) CallbackOption {
	return func(d *HTTPCallbackDispatcher) {
		d.metrics = metrics
	}
}

func NewHTTPCallbackDispatcher(opts ...CallbackOption) *HTTPCallbackDispatcher {
	d := &HTTPCallbackDispatcher{
		client:  httphelper.DefaultHTTPClient,
		timeout: 10 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *HTTPCallbackDispatcher) Ping(ctx context.Context, endpoint, clientNotificationToken, authReqID string) error {
	return d.send(ctx, callbackPing, endpoint, clientNotificationToken, &oidc.PingCallback{
		AuthReqID: authReqID,
	})
}

func (d *HTTPCallbackDispatcher) PushToken(ctx context.Context, endpoint, clientNotificationToken, authReqID string, tokens *Tokens) error {
	return d.send(ctx, callbackPushToken, endpoint, clientNotificationToken, &oidc.PushTokenCallback{
		AuthReqID:    authReqID,
		AccessToken:  tokens.AccessToken,
		TokenType:    tokens.TokenType,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		IDToken:      tokens.IDToken,
	})
}

func (d *HTTPCallbackDispatcher) PushError(ctx context.Context, endpoint, clientNotificationToken, authReqID string, oidcErr *oidc.Error) error {
	return d.send(ctx, callbackPushError, endpoint, clientNotificationToken, &oidc.PushErrorCallback{
		AuthReqID:        authReqID,
		Error:            oidcErr.Type(),
		ErrorDescription: oidcErr.Description,
	})
}

func (d *HTTPCallbackDispatcher) send(ctx context.Context, kind, endpoint, clientNotificationToken string, payload any) (err error) {
	ctx, span := tracer.Start(ctx, "CallbackDispatcher."+kind)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		d.metrics.callback(kind, err)
		if err != nil {
			d.logger.WarnContext(ctx, "client notification failed", "kind", kind, "endpoint", endpoint, "error", err)
			return
		}
		d.logger.DebugContext(ctx, "client notified", "kind", kind, "endpoint", endpoint)
	}()

	req, err := httphelper.JSONRequest(ctx, endpoint, payload, nil)
	if err != nil {
		return err
	}
	return httphelper.Deliver(d.bearerClient(ctx, clientNotificationToken), req)
}

// bearerClient authenticates every request with the client notification token.
func (d *HTTPCallbackDispatcher) bearerClient(ctx context.Context, clientNotificationToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.client)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: clientNotificationToken,
		TokenType:   oidc.BearerToken,
	}))
}
