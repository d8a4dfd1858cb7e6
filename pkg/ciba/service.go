package ciba

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muhlemmer/gu"
	"github.com/zitadel/logging"
	"golang.org/x/exp/slog"

	"github.com/zitadel/ciba/internal/otel"
	"github.com/zitadel/ciba/pkg/oidc"
)

var tracer = otel.Tracer("pkg/ciba")

// Service admits backchannel authentication requests.
type Service struct {
	config    Config
	store     Store
	validator *RequestValidator
	users     UserDirectory
	hints     HintVerifier
	notifier  Notifier
	logger    *slog.Logger
	metrics   *Metrics
	nowFunc   func() time.Time

	notifications sync.WaitGroup
}

type ServiceOption func(*Service)

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(config Config, store Store, users UserDirectory, hints HintVerifier, notifier Notifier, opts ...ServiceOption) (*Service, error) {
	validator, err := NewRequestValidator(config)
	if err != nil {
		return nil, err
	}
	s := &Service{
		config:    config,
		store:     store,
		validator: validator,
		users:     users,
		hints:     hints,
		notifier:  notifier,
		logger:    slog.Default(),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Config() *Config {
	return &s.config
}

// Logger returns the request scoped logger from ctx,
// falling back to the logger of the service.
func (s *Service) Logger(ctx context.Context) *slog.Logger {
	if logger, ok := logging.FromContext(ctx); ok {
		return logger
	}
	return s.logger
}

// Authenticate validates the request of an authenticated client, persists it
// and prompts the end-user. signed reports whether the parameters came from
// a verified request object. Errors are *oidc.Error.
func (s *Service) Authenticate(ctx context.Context, client Client, req *oidc.BackchannelAuthenticationRequest, signed bool) (*oidc.BackchannelAuthenticationResponse, error) {
	ctx, span := tracer.Start(ctx, "Service.Authenticate")
	defer span.End()

	if !s.config.Enabled {
		return nil, oidc.ErrInvalidRequest().WithDescription("Backchannel authentication is disabled.")
	}
	if err := s.checkCompatibility(client); err != nil {
		return nil, err
	}
	if s.config.FAPI && !signed {
		return nil, oidc.ErrInvalidRequest().WithDescription("A signed authentication request is required.")
	}

	params := &ValidationParams{
		Scopes:                  req.Scopes,
		ClientNotificationToken: req.ClientNotificationToken,
		DeliveryMode:            client.DeliveryMode(),
		LoginHintToken:          req.LoginHintToken,
		IDTokenHint:             req.IDTokenHint,
		LoginHint:               req.LoginHint,
		BindingMessage:          req.BindingMessage,
		UserCode:                req.UserCode,
		RequestedExpiry:         req.RequestedExpiry,
	}
	// user code and expiry are checked once the user is known
	if err := s.validator.ValidateRequest(params); err != nil {
		return nil, err
	}
	user, err := s.resolveUser(ctx, client, req)
	if err != nil {
		return nil, err
	}
	params.UserCodeRequired = client.UserCodeRequired()
	params.ExpectedUserCode = user.UserCode
	if err := s.validator.Validate(params); err != nil {
		return nil, err
	}
	if user.DeviceToken == "" {
		return nil, oidc.ErrUnauthorizedEndUserDevice().WithDescription("The end-user has no registered authentication device.")
	}

	authReq := &AuthenticationRequest{
		ClientID:                   client.GetID(),
		UserID:                     user.ID,
		Scopes:                     req.Scopes,
		DeliveryMode:               client.DeliveryMode(),
		ClientNotificationToken:    req.ClientNotificationToken,
		ClientNotificationEndpoint: client.NotificationEndpoint(),
		BindingMessage:             req.BindingMessage,
		ACRValues:                  req.ACRValues,
		CreatedAt:                  s.nowFunc(),
		ExpiresIn:                  s.config.ExpiresIn(req.RequestedExpiry),
		Status:                     StatusPending,
	}
	if authReq.DeliveryMode != oidc.DeliveryModePush {
		authReq.Interval = gu.Ptr(s.config.Interval)
	}
	ttl := time.Duration(authReq.ExpiresIn)*time.Second + s.config.PayloadGrace
	if err := s.store.Save(ctx, authReq, ttl); err != nil {
		return nil, oidc.ErrServerError().WithDescription("The authentication request could not be stored.").WithParent(err)
	}
	s.metrics.requestAdmitted(string(authReq.DeliveryMode))

	s.Logger(ctx).DebugContext(ctx, "backchannel authentication request admitted",
		"auth_req_id", authReq.AuthReqID, "client_id", authReq.ClientID, "mode", authReq.DeliveryMode)

	// the client gets its response without waiting for the device
	notifyCtx := context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		s.notifier.Notify(notifyCtx, authReq.Scopes, authReq.ACRValues, authReq.AuthReqID, user.DeviceToken, user.Locale)
	}()

	return &oidc.BackchannelAuthenticationResponse{
		AuthReqID: authReq.AuthReqID,
		ExpiresIn: authReq.ExpiresIn,
		Interval:  authReq.Interval,
	}, nil
}

// checkCompatibility rejects clients which registered a delivery mode
// they cannot use. Clients without a mode are rejected by the validator.
func (s *Service) checkCompatibility(client Client) error {
	mode := client.DeliveryMode()
	if mode == "" {
		return nil
	}
	if !s.config.SupportsDeliveryMode(mode) {
		return oidc.ErrInvalidRequest().WithDescription("The delivery mode %s of the client is not supported.", mode)
	}
	if mode != oidc.DeliveryModePush && !containsGrantType(client.GrantTypes(), oidc.GrantTypeCIBA) {
		return oidc.ErrInvalidRequest().WithDescription("The client is not allowed to use the grant type %s.", oidc.GrantTypeCIBA)
	}
	if mode.RequiresNotificationEndpoint() && client.NotificationEndpoint() == "" {
		return oidc.ErrInvalidRequest().WithDescription("The client has no notification endpoint registered.")
	}
	return nil
}

func (s *Service) resolveUser(ctx context.Context, client Client, req *oidc.BackchannelAuthenticationRequest) (*User, error) {
	var (
		user *User
		err  error
	)
	switch {
	case !isBlank(req.LoginHint):
		user, err = s.users.UserByLoginHint(ctx, req.LoginHint)
	case !isBlank(req.IDTokenHint):
		var subject string
		subject, err = s.hints.VerifyIDTokenHint(ctx, req.IDTokenHint)
		if err != nil {
			return nil, oidc.ErrUnknownUserID().WithDescription("The id_token_hint is invalid.").WithParent(err)
		}
		user, err = s.users.UserByIDTokenHint(ctx, subject)
	case !isBlank(req.LoginHintToken):
		var subject *oidc.LoginHintSubject
		subject, err = s.hints.VerifyLoginHintToken(ctx, client, req.LoginHintToken)
		if err != nil {
			return nil, oidc.ErrUnknownUserID().WithDescription("The login_hint_token is invalid.").WithParent(err)
		}
		user, err = s.users.UserByLoginHintToken(ctx, *subject)
	}
	if errors.Is(err, ErrNotFound) || (err == nil && user == nil) {
		return nil, oidc.ErrUnknownUserID().WithDescription("The end-user could not be identified.")
	}
	if err != nil {
		return nil, oidc.ErrServerError().WithParent(fmt.Errorf("user lookup: %w", err))
	}
	return user, nil
}

// Wait blocks until the end-user notifications of admitted requests are sent.
func (s *Service) Wait() {
	s.notifications.Wait()
}

// Health reports whether the store is reachable.
func (s *Service) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}
