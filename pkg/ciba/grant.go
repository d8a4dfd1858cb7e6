package ciba

import (
	"context"
	"errors"
	"time"

	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/pkg/oidc"
)

const maxUpdateAttempts = 3

// GrantAdapter answers token requests for an auth_req_id and
// records the decision of the end-user.
type GrantAdapter struct {
	store      Store
	dispatcher CallbackDispatcher
	logger     *slog.Logger
	nowFunc    func() time.Time
}

type GrantOption func(*GrantAdapter)

func WithGrantLogger(logger *slog.Logger) GrantOption {
	return func(g *GrantAdapter) {
		g.logger = logger
	}
}

func WithGrantNowFunc(now func() time.Time) GrantOption {
	return func(g *GrantAdapter) {
		g.nowFunc = now
	}
}

func NewGrantAdapter(store Store, dispatcher CallbackDispatcher, opts ...GrantOption) *GrantAdapter {
	g := &GrantAdapter{
		store:      store,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		nowFunc:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve returns the grant of a request the end-user approved, exactly once.
// Otherwise it returns *oidc.Error with
// authorization_pending, slow_down, access_denied or expired_token.
func (g *GrantAdapter) Resolve(ctx context.Context, clientID, authReqID string) (*Grant, error) {
	ctx, span := tracer.Start(ctx, "GrantAdapter.Resolve")
	defer span.End()

	req, err := g.store.Get(ctx, authReqID)
	if errors.Is(err, ErrNotFound) {
		return nil, oidc.ErrExpiredToken()
	}
	if err != nil {
		return nil, oidc.ErrServerError().WithParent(err)
	}
	if req.ClientID != clientID {
		return nil, oidc.ErrExpiredToken()
	}
	now := g.nowFunc()
	if req.IsExpired(now) {
		return nil, oidc.ErrExpiredToken()
	}
	if req.DeliveryMode == oidc.DeliveryModePush {
		return nil, oidc.ErrInvalidGrant().WithDescription("Clients using the push mode must not call the token endpoint.")
	}
	if !req.Resolved() {
		return nil, g.pending(ctx, req, now)
	}

	won, err := g.store.UpdateStatus(ctx, IndexEntry{AuthReqID: req.AuthReqID, Status: StatusInProcess, ExpiresAt: req.ExpiresAt()}, StatusExpired)
	if err != nil {
		return nil, oidc.ErrServerError().WithParent(err)
	}
	if !won {
		return nil, oidc.ErrExpiredToken()
	}
	if err := g.store.RemoveByKey(ctx, req.AuthReqID); err != nil {
		g.logger.WarnContext(ctx, "could not remove redeemed request", "auth_req_id", req.AuthReqID, "error", err)
	}
	if req.Denied {
		return nil, oidc.ErrAccessDenied()
	}
	return &Grant{
		AuthReqID:       req.AuthReqID,
		ClientID:        req.ClientID,
		UserID:          req.UserID,
		Scopes:          req.Scopes,
		Tokens:          *req.Tokens,
		TokensDelivered: true,
	}, nil
}

// pending records the poll and tells the client to wait.
func (g *GrantAdapter) pending(ctx context.Context, req *AuthenticationRequest, now time.Time) *oidc.Error {
	tooFast := req.Interval != nil && !req.LastPolledAt.IsZero() &&
		now.Sub(req.LastPolledAt) < time.Duration(*req.Interval)*time.Second
	req.LastPolledAt = now
	err := g.store.Update(ctx, req)
	if err != nil && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrNotFound) {
		g.logger.WarnContext(ctx, "could not record poll", "auth_req_id", req.AuthReqID, "error", err)
	}
	if tooFast {
		return oidc.ErrSlowDown()
	}
	return oidc.ErrAuthorizationPending()
}

// Pending returns a request the end-user has not decided on yet,
// so tokens can be issued for it before calling Complete.
func (g *GrantAdapter) Pending(ctx context.Context, authReqID string) (*AuthenticationRequest, error) {
	req, err := g.store.Get(ctx, authReqID)
	if errors.Is(err, ErrNotFound) {
		return nil, oidc.ErrExpiredToken()
	}
	if err != nil {
		return nil, oidc.ErrServerError().WithParent(err)
	}
	if req.IsExpired(g.nowFunc()) || req.Status != StatusPending {
		return nil, oidc.ErrExpiredToken()
	}
	return req, nil
}

// Complete records the tokens of an approved request and delivers them
// according to the delivery mode. It fails with expired_token if
// the request is unknown, expired or already decided.
func (g *GrantAdapter) Complete(ctx context.Context, authReqID string, tokens *Tokens) error {
	ctx, span := tracer.Start(ctx, "GrantAdapter.Complete")
	defer span.End()

	return g.decide(ctx, authReqID, func(req *AuthenticationRequest) error {
		if req.DeliveryMode == oidc.DeliveryModePush {
			_ = g.dispatcher.PushToken(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, req.AuthReqID, tokens)
			return nil
		}
		return g.record(ctx, req, func(r *AuthenticationRequest) {
			r.Tokens = tokens
		})
	})
}

// Deny records that the end-user rejected the request.
// The client receives access_denied.
func (g *GrantAdapter) Deny(ctx context.Context, authReqID string) error {
	ctx, span := tracer.Start(ctx, "GrantAdapter.Deny")
	defer span.End()

	return g.decide(ctx, authReqID, func(req *AuthenticationRequest) error {
		if req.DeliveryMode == oidc.DeliveryModePush {
			_ = g.dispatcher.PushError(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, req.AuthReqID, oidc.ErrAccessDenied())
			return nil
		}
		return g.record(ctx, req, func(r *AuthenticationRequest) {
			r.Denied = true
		})
	})
}

// decide takes the request out of PENDING and runs deliver.
// Push requests are removed before deliver runs.
func (g *GrantAdapter) decide(ctx context.Context, authReqID string, deliver func(*AuthenticationRequest) error) error {
	req, err := g.store.Get(ctx, authReqID)
	if errors.Is(err, ErrNotFound) {
		return oidc.ErrExpiredToken()
	}
	if err != nil {
		return oidc.ErrServerError().WithParent(err)
	}
	if req.IsExpired(g.nowFunc()) || req.Status != StatusPending {
		return oidc.ErrExpiredToken()
	}
	won, err := g.store.UpdateStatus(ctx, req.IndexEntry(), StatusInProcess)
	if err != nil {
		return oidc.ErrServerError().WithParent(err)
	}
	if !won {
		return oidc.ErrExpiredToken()
	}
	if req.DeliveryMode == oidc.DeliveryModePush {
		if err := g.store.RemoveByKey(ctx, req.AuthReqID); err != nil {
			g.logger.WarnContext(ctx, "could not remove decided request", "auth_req_id", req.AuthReqID, "error", err)
		}
	}
	return deliver(req)
}

// record stores the decision on the payload, retrying on concurrent polls,
// and pings the client in ping mode.
func (g *GrantAdapter) record(ctx context.Context, req *AuthenticationRequest, apply func(*AuthenticationRequest)) error {
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		if attempt > 0 {
			req, err = g.store.Get(ctx, req.AuthReqID)
			if err != nil {
				break
			}
		}
		apply(req)
		req.Status = StatusInProcess
		if err = g.store.Update(ctx, req); !errors.Is(err, ErrConflict) {
			break
		}
	}
	if errors.Is(err, ErrNotFound) {
		return oidc.ErrExpiredToken()
	}
	if err != nil {
		return oidc.ErrServerError().WithParent(err)
	}
	if req.DeliveryMode == oidc.DeliveryModePing {
		_ = g.dispatcher.Ping(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, req.AuthReqID)
	}
	return nil
}
