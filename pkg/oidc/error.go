package oidc

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slog"
)

type errorType string

const (
	InvalidRequest       errorType = "invalid_request"
	InvalidScope         errorType = "invalid_scope"
	InvalidClient        errorType = "invalid_client"
	InvalidGrant         errorType = "invalid_grant"
	UnauthorizedClient   errorType = "unauthorized_client"
	UnsupportedGrantType errorType = "unsupported_grant_type"
	ServerError          errorType = "server_error"
	AccessDenied         errorType = "access_denied"
	RequestNotSupported  errorType = "request_not_supported"

	// CIBA Core 1.0, section 13 (authentication error response)
	InvalidBindingMessage     errorType = "invalid_binding_message"
	InvalidUserCode           errorType = "invalid_user_code"
	UnknownUserID             errorType = "unknown_user_id"
	UnauthorizedEndUserDevice errorType = "unauthorized_end_user_device"
	TransactionFailed         errorType = "transaction_failed"

	// CIBA Core 1.0, section 11 (token error response)
	AuthorizationPending errorType = "authorization_pending"
	SlowDown             errorType = "slow_down"
	ExpiredToken         errorType = "expired_token"
)

var (
	ErrInvalidRequest = func() *Error {
		return &Error{
			ErrorType: InvalidRequest,
		}
	}
	ErrInvalidScope = func() *Error {
		return &Error{
			ErrorType: InvalidScope,
		}
	}
	ErrInvalidClient = func() *Error {
		return &Error{
			ErrorType: InvalidClient,
		}
	}
	ErrInvalidGrant = func() *Error {
		return &Error{
			ErrorType: InvalidGrant,
		}
	}
	ErrUnauthorizedClient = func() *Error {
		return &Error{
			ErrorType: UnauthorizedClient,
		}
	}
	ErrUnsupportedGrantType = func() *Error {
		return &Error{
			ErrorType: UnsupportedGrantType,
		}
	}
	ErrServerError = func() *Error {
		return &Error{
			ErrorType: ServerError,
		}
	}
	ErrAccessDenied = func() *Error {
		return &Error{
			ErrorType:   AccessDenied,
			Description: "The authorization request was denied.",
		}
	}
	ErrRequestNotSupported = func() *Error {
		return &Error{
			ErrorType: RequestNotSupported,
		}
	}
	ErrInvalidBindingMessage = func() *Error {
		return &Error{
			ErrorType: InvalidBindingMessage,
		}
	}
	ErrInvalidUserCode = func() *Error {
		return &Error{
			ErrorType: InvalidUserCode,
		}
	}
	ErrUnknownUserID = func() *Error {
		return &Error{
			ErrorType: UnknownUserID,
		}
	}
	ErrUnauthorizedEndUserDevice = func() *Error {
		return &Error{
			ErrorType: UnauthorizedEndUserDevice,
		}
	}
	ErrTransactionFailed = func() *Error {
		return &Error{
			ErrorType: TransactionFailed,
		}
	}

	// ErrAuthorizationPending is returned while the end-user has not
	// acted on the backchannel authentication request yet.
	ErrAuthorizationPending = func() *Error {
		return &Error{
			ErrorType:   AuthorizationPending,
			Description: "The authorization request is still pending.",
		}
	}

	// ErrSlowDown is returned when the client polls the token endpoint
	// more often than the interval it received.
	ErrSlowDown = func() *Error {
		return &Error{
			ErrorType:   SlowDown,
			Description: "Polling should happen less frequently.",
		}
	}

	// ErrExpiredToken is returned when the auth_req_id has expired,
	// was already redeemed or is unknown.
	ErrExpiredToken = func() *Error {
		return &Error{
			ErrorType:   ExpiredToken,
			Description: "The auth_req_id has expired.",
		}
	}
)

type Error struct {
	Parent      error     `json:"-" schema:"-"`
	ErrorType   errorType `json:"error" schema:"error"`
	Description string    `json:"error_description,omitempty" schema:"error_description,omitempty"`
	State       string    `json:"state,omitempty" schema:"state,omitempty"`
}

func (e *Error) Error() string {
	message := "ErrorType=" + string(e.ErrorType)
	if e.Description != "" {
		message += " Description=" + e.Description
	}
	if e.Parent != nil {
		message += " Parent=" + e.Parent.Error()
	}
	return message
}

func (e *Error) Unwrap() error {
	return e.Parent
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.ErrorType == t.ErrorType &&
		(e.Description == t.Description || t.Description == "") &&
		(e.State == t.State || t.State == "")
}

func (e *Error) WithParent(err error) *Error {
	e.Parent = err
	return e
}

func (e *Error) WithDescription(desc string, args ...any) *Error {
	e.Description = fmt.Sprintf(desc, args...)
	return e
}

// Type returns the OAuth error code, as sent in the `error` field.
func (e *Error) Type() string {
	return string(e.ErrorType)
}

// DefaultToServerError checks if the error is an Error
// if not the provided error will be wrapped into a ServerError
func DefaultToServerError(err error, description string) *Error {
	oauth := new(Error)
	if ok := errors.As(err, &oauth); !ok {
		oauth.ErrorType = ServerError
		oauth.Description = description
		oauth.Parent = err
	}
	return oauth
}

func (e *Error) LogLevel() slog.Level {
	level := slog.LevelWarn
	switch e.ErrorType {
	case ServerError, TransactionFailed:
		level = slog.LevelError
	case AuthorizationPending, SlowDown:
		level = slog.LevelInfo
	}
	return level
}

func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4)
	if e.Parent != nil {
		attrs = append(attrs, slog.Any("parent", e.Parent))
	}
	if e.Description != "" {
		attrs = append(attrs, slog.String("description", e.Description))
	}
	if e.ErrorType != "" {
		attrs = append(attrs, slog.String("type", string(e.ErrorType)))
	}
	if e.State != "" {
		attrs = append(attrs, slog.String("state", e.State))
	}
	return slog.GroupValue(attrs...)
}
