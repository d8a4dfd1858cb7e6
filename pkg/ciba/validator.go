package ciba

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zitadel/ciba/pkg/oidc"
)

// ValidationParams are the inputs of an authentication request
// after client authentication and user lookup.
type ValidationParams struct {
	Scopes                  []string
	ClientNotificationToken string

	// DeliveryMode of the client registration, empty if the client
	// did not register for backchannel authentication.
	DeliveryMode oidc.DeliveryMode

	LoginHintToken string
	IDTokenHint    string
	LoginHint      string
	BindingMessage string

	UserCodeRequired bool
	UserCode         string
	ExpectedUserCode string

	RequestedExpiry *int
}

// RequestValidator checks authentication requests against the server policy.
// It has no side effects.
type RequestValidator struct {
	maxExpiresIn   int
	bindingMessage *regexp.Regexp
}

func NewRequestValidator(config Config) (*RequestValidator, error) {
	pattern, err := regexp.Compile(config.BindingMessagePattern)
	if err != nil {
		return nil, fmt.Errorf("ciba: binding message pattern: %w", err)
	}
	return &RequestValidator{
		maxExpiresIn:   config.MaxExpiresIn,
		bindingMessage: pattern,
	}, nil
}

// Validate returns the first violated rule as *oidc.Error, or nil.
func (v *RequestValidator) Validate(p *ValidationParams) error {
	if err := v.ValidateRequest(p); err != nil {
		return err
	}
	if p.UserCodeRequired {
		switch {
		case isBlank(p.UserCode):
			return oidc.ErrInvalidUserCode().WithDescription("The user code is required.")
		case isBlank(p.ExpectedUserCode):
			return oidc.ErrInvalidUserCode().WithDescription("The user code is not set.")
		case p.UserCode != p.ExpectedUserCode:
			return oidc.ErrInvalidUserCode().WithDescription("The user code is not valid.")
		}
	}
	if p.RequestedExpiry != nil && (*p.RequestedExpiry < 1 || *p.RequestedExpiry > v.maxExpiresIn) {
		return oidc.ErrInvalidRequest().WithDescription("Requested expiry is not allowed.")
	}
	return nil
}

// ValidateRequest checks the rules which do not depend on the end-user,
// everything up to the binding message.
func (v *RequestValidator) ValidateRequest(p *ValidationParams) error {
	if p.DeliveryMode == "" {
		return oidc.ErrUnauthorizedClient().WithDescription("Clients registering to use CIBA must indicate a token delivery mode.")
	}
	if !containsString(p.Scopes, oidc.ScopeOpenID) {
		return oidc.ErrInvalidScope().WithDescription("CIBA authentication requests must contain the openid scope value.")
	}
	if !exactlyOneNotBlank(p.LoginHintToken, p.IDTokenHint, p.LoginHint) {
		return oidc.ErrInvalidRequest().WithDescription("It is required that the Client provides one (and only one) of the hints in the authentication request, " +
			"that is login_hint_token, id_token_hint or login_hint.")
	}
	if p.DeliveryMode.RequiresNotificationEndpoint() && isBlank(p.ClientNotificationToken) {
		return oidc.ErrInvalidRequest().WithDescription("The client notification token is required if the Client is registered to use Ping or Push modes.")
	}
	if p.BindingMessage != "" && !v.bindingMessage.MatchString(p.BindingMessage) {
		return oidc.ErrInvalidBindingMessage().WithDescription("The provided binding message is unacceptable. It must match the pattern: %s", v.bindingMessage.String())
	}
	return nil
}

func exactlyOneNotBlank(values ...string) bool {
	var n int
	for _, v := range values {
		if !isBlank(v) {
			n++
		}
	}
	return n == 1
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func containsString(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}
