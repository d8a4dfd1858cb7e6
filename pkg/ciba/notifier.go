package ciba

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/zitadel/ciba/pkg/crypto"
	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// Notifier prompts the end-user on the authentication device.
// Failures are logged, the request then expires through the sweeper.
type Notifier interface {
	Notify(ctx context.Context, scope, acrValues []string, authReqID, deviceToken, locale string)
}

// Notification is passed to a NotificationHook.
type Notification struct {
	Scope       []string
	ACRValues   []string
	AuthReqID   string
	DeviceToken string
	Locale      string
}

// NotificationHook replaces the built-in push message transport.
type NotificationHook interface {
	NotifyEndUser(ctx context.Context, n *Notification) error
}

type noopHook struct{}

func (noopHook) NotifyEndUser(context.Context, *Notification) error { return nil }

// NoopNotificationHook discards every notification.
var NoopNotificationHook NotificationHook = noopHook{}

// PushMessage is sent to the authentication device through a PushTransport.
type PushMessage struct {
	To          string
	Title       string
	Body        string
	ClickAction string
}

type PushTransport interface {
	Send(ctx context.Context, msg *PushMessage) error
}

// FCMTransport sends push messages through the Firebase Cloud Messaging HTTP API.
type FCMTransport struct {
	url       string
	serverKey string
	client    *http.Client
}

func NewFCMTransport(url, serverKey string, client *http.Client) *FCMTransport {
	if client == nil {
		client = httphelper.DefaultHTTPClient
	}
	return &FCMTransport{
		url:       url,
		serverKey: serverKey,
		client:    client,
	}
}

type fcmRequest struct {
	To           string          `json:"to"`
	Priority     string          `json:"priority"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ClickAction string `json:"click_action"`
}

func (t *FCMTransport) Send(ctx context.Context, msg *PushMessage) error {
	req, err := httphelper.JSONRequest(ctx, t.url, &fcmRequest{
		To:       msg.To,
		Priority: "high",
		Notification: fcmNotification{
			Title:       msg.Title,
			Body:        msg.Body,
			ClickAction: msg.ClickAction,
		},
	}, func(r *http.Request) {
		r.Header.Set("Authorization", "key="+t.serverKey)
	})
	if err != nil {
		return err
	}
	return httphelper.Deliver(t.client, req)
}

const (
	msgTitle = "notification.title"
	msgBody  = "notification.body"

	// ContextParam is the query parameter of the deep link
	// carrying the signed request context.
	ContextParam = "ciba_ctx"
)

var notificationLanguages = []language.Tag{language.English, language.German, language.French, language.Spanish}

func notificationCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, title, body string) {
		_ = b.SetString(tag, msgTitle, title)
		_ = b.SetString(tag, msgBody, body)
	}
	set(language.English, "Authentication Request", "Client Initiated Backchannel Authentication (CIBA)")
	set(language.German, "Anmeldeanfrage", "Vom Client initiierte Backchannel-Authentifizierung (CIBA)")
	set(language.French, "Demande d'authentification", "Authentification backchannel initiée par le client (CIBA)")
	set(language.Spanish, "Solicitud de autenticación", "Autenticación backchannel iniciada por el cliente (CIBA)")
	return b
}

// EndUserNotifier delegates to a NotificationHook if one is set,
// else it sends a push message with a deep link to the authorization endpoint.
type EndUserNotifier struct {
	hook      NotificationHook
	transport PushTransport
	config    NotificationConfig
	signer    *httphelper.SignedValues
	matcher   language.Matcher
	catalog   catalog.Catalog
	logger    *slog.Logger
	metrics   *Metrics
}

type NotifierOption func(*EndUserNotifier)

func WithNotificationHook(hook NotificationHook) NotifierOption {
	return func(n *EndUserNotifier) {
		n.hook = hook
	}
}

func WithPushTransport(transport PushTransport) NotifierOption {
	return func(n *EndUserNotifier) {
		n.transport = transport
	}
}

func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *EndUserNotifier) {
		n.logger = logger
	}
}

func WithNotifierMetrics(metrics *Metrics) NotifierOption {
	return func(n *EndUserNotifier) {
		n.metrics = metrics
	}
}

// NewEndUserNotifier creates the FCM transport from config unless
// a hook or transport is passed. The server key is decrypted here.
func NewEndUserNotifier(config NotificationConfig, opts ...NotifierOption) (*EndUserNotifier, error) {
	n := &EndUserNotifier{
		config:  config,
		matcher: language.NewMatcher(notificationLanguages),
		catalog: notificationCatalog(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if config.ContextHashKey != "" {
		var signerOpts []httphelper.SignedValuesOpt
		if config.ContextMaxAge > 0 {
			signerOpts = append(signerOpts, httphelper.WithMaxAge(config.ContextMaxAge))
		}
		n.signer = httphelper.NewSignedValues([]byte(config.ContextHashKey), nil, signerOpts...)
	}
	if n.hook != nil || n.transport != nil || config.URL == "" {
		return n, nil
	}
	serverKey := config.ServerKey
	if serverKey != "" {
		var err error
		serverKey, err = crypto.DecryptAES(serverKey, config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("ciba: decrypt notification server key: %w", err)
		}
	}
	n.transport = NewFCMTransport(config.URL, serverKey, nil)
	return n, nil
}

func (n *EndUserNotifier) Notify(ctx context.Context, scope, acrValues []string, authReqID, deviceToken, locale string) {
	ctx, span := tracer.Start(ctx, "EndUserNotifier.Notify")
	defer span.End()

	logger := n.logger.With("auth_req_id", authReqID)
	err := n.notify(ctx, scope, acrValues, authReqID, deviceToken, locale)
	n.metrics.notification(err)
	if err != nil {
		logger.WarnContext(ctx, "end-user notification failed", "error", err)
		return
	}
	logger.DebugContext(ctx, "end-user notified")
}

func (n *EndUserNotifier) notify(ctx context.Context, scope, acrValues []string, authReqID, deviceToken, locale string) error {
	if n.hook != nil {
		return n.hook.NotifyEndUser(ctx, &Notification{
			Scope:       scope,
			ACRValues:   acrValues,
			AuthReqID:   authReqID,
			DeviceToken: deviceToken,
			Locale:      locale,
		})
	}
	if n.transport == nil {
		return errNotificationDisabled
	}
	if deviceToken == "" {
		return errNoDeviceToken
	}
	link, err := n.deepLink(scope, acrValues, authReqID)
	if err != nil {
		return err
	}
	printer := message.NewPrinter(n.language(locale), message.Catalog(n.catalog))
	return n.transport.Send(ctx, &PushMessage{
		To:          deviceToken,
		Title:       printer.Sprintf(msgTitle),
		Body:        printer.Sprintf(msgBody),
		ClickAction: link,
	})
}

var (
	errNotificationDisabled = errors.New("no notification transport configured")
	errNoDeviceToken        = errors.New("user has no registered device")
)

func (n *EndUserNotifier) language(locale string) language.Tag {
	tag, _ := language.MatchStrings(n.matcher, locale)
	base, _ := tag.Base()
	return language.Make(base.String())
}

// deepLink points the authentication device to the authorization endpoint.
func (n *EndUserNotifier) deepLink(scope, acrValues []string, authReqID string) (string, error) {
	u, err := url.Parse(n.config.AuthorizationEndpoint)
	if err != nil {
		return "", fmt.Errorf("authorization endpoint: %w", err)
	}
	query := u.Query()
	query.Set("client_id", n.config.ClientID)
	query.Set("response_type", "id_token")
	query.Set("scope", strings.Join(scope, " "))
	if len(acrValues) > 0 {
		query.Set("acr_values", strings.Join(acrValues, " "))
	}
	query.Set("redirect_uri", n.config.RedirectURI)
	query.Set("state", uuid.NewString())
	query.Set("nonce", uuid.NewString())
	query.Set("prompt", "consent")
	query.Set("auth_req_id", authReqID)
	if n.signer != nil {
		signed, err := n.signer.Encode(ContextParam, &DeepLinkContext{AuthReqID: authReqID, Scope: oidc.SpaceDelimitedArray(scope).String()})
		if err != nil {
			return "", fmt.Errorf("sign deep link context: %w", err)
		}
		query.Set(ContextParam, signed)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// DeepLinkContext is signed into the ciba_ctx parameter of the deep link,
// so the authorization endpoint can trust the auth_req_id it receives.
type DeepLinkContext struct {
	AuthReqID string
	Scope     string
}

// VerifyDeepLinkContext decodes a ciba_ctx parameter.
func (n *EndUserNotifier) VerifyDeepLinkContext(encoded string) (*DeepLinkContext, error) {
	if n.signer == nil {
		return nil, errNotificationDisabled
	}
	dlc := new(DeepLinkContext)
	if err := n.signer.Decode(ContextParam, encoded, dlc); err != nil {
		return nil, err
	}
	return dlc, nil
}
