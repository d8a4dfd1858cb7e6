// Package ciba implements the lifecycle of backchannel authentication requests
// (OpenID Connect Client-Initiated Backchannel Authentication Flow - Core 1.0):
// admission, storage, end-user notification, expiry sweeping
// and the delivery of the outcome to the client in poll, ping or push mode.
package ciba

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/zitadel/ciba/pkg/oidc"
)

// Status of a request in the index.
// A request moves out of PENDING exactly once.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInProcess Status = "IN_PROCESS"
	StatusExpired   Status = "EXPIRED"
)

// RecommendedAuthReqIDBytes is the number of random bytes of an auth_req_id.
// CIBA Core 1.0, section 7.3 requires at least 128 bits of entropy.
const RecommendedAuthReqIDBytes = 32

// NewAuthReqID returns a new random auth_req_id.
func NewAuthReqID(nBytes int) (string, error) {
	return newAuthReqID(rand.Reader, nBytes)
}

func newAuthReqID(r io.Reader, nBytes int) (string, error) {
	bytes := make([]byte, nBytes)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return "", fmt.Errorf("ciba: auth_req_id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// Tokens are issued by the authorization server once the end-user
// approved the request.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    uint64 `json:"expires_in"`
	IDToken      string `json:"id_token,omitempty"`
}

// AuthenticationRequest is one backchannel authentication attempt.
type AuthenticationRequest struct {
	AuthReqID string   `json:"auth_req_id"`
	ClientID  string   `json:"client_id"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`

	// DeliveryMode and ClientNotificationEndpoint are copied from
	// the client registration at admission and never change.
	DeliveryMode               oidc.DeliveryMode `json:"delivery_mode"`
	ClientNotificationToken    string            `json:"client_notification_token,omitempty"`
	ClientNotificationEndpoint string            `json:"client_notification_endpoint,omitempty"`

	BindingMessage string   `json:"binding_message,omitempty"`
	ACRValues      []string `json:"acr_values,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresIn int       `json:"expires_in"`
	Status    Status    `json:"status"`

	// Interval is nil for push mode.
	Interval     *int      `json:"interval,omitempty"`
	LastPolledAt time.Time `json:"last_polled_at,omitempty"`

	Tokens          *Tokens `json:"tokens,omitempty"`
	Denied          bool    `json:"denied,omitempty"`
	TokensDelivered bool    `json:"tokens_delivered,omitempty"`

	// Version is maintained by the Store for optimistic updates.
	Version int64 `json:"version"`
}

func (r *AuthenticationRequest) ExpiresAt() time.Time {
	return r.CreatedAt.Add(time.Duration(r.ExpiresIn) * time.Second)
}

func (r *AuthenticationRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

// Resolved reports whether the end-user acted on the request.
func (r *AuthenticationRequest) Resolved() bool {
	return r.Tokens != nil || r.Denied
}

func (r *AuthenticationRequest) IndexEntry() IndexEntry {
	return IndexEntry{
		AuthReqID: r.AuthReqID,
		Status:    r.Status,
		ExpiresAt: r.ExpiresAt(),
	}
}

// IndexEntry is the lightweight record the sweeper scans
// without loading the full request.
type IndexEntry struct {
	AuthReqID string
	Status    Status
	ExpiresAt time.Time
}

// Grant is the view of a resolved request handed to the token endpoint.
type Grant struct {
	AuthReqID       string
	ClientID        string
	UserID          string
	Scopes          []string
	Tokens          Tokens
	TokensDelivered bool
}
