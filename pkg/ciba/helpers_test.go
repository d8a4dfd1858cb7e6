package ciba_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/muhlemmer/gu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/ciba/storage/memory"
	"github.com/zitadel/ciba/pkg/ciba/storage/storetest"
	"github.com/zitadel/ciba/pkg/oidc"
)

const (
	testEndpoint = "https://client.example.com/cb"
	testToken    = "notification-token"
)

type pushedError struct {
	AuthReqID   string
	Type        string
	Description string
}

// recordingDispatcher records every callback instead of calling the client.
type recordingDispatcher struct {
	mu     sync.Mutex
	pings  []string
	tokens map[string]*ciba.Tokens
	errors []pushedError
	calls  int
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{tokens: make(map[string]*ciba.Tokens)}
}

func (d *recordingDispatcher) Ping(_ context.Context, endpoint, token, authReqID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.pings = append(d.pings, authReqID)
	return nil
}

func (d *recordingDispatcher) PushToken(_ context.Context, endpoint, token, authReqID string, tokens *ciba.Tokens) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.tokens[authReqID] = tokens
	return nil
}

func (d *recordingDispatcher) PushError(_ context.Context, endpoint, token, authReqID string, oidcErr *oidc.Error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.errors = append(d.errors, pushedError{AuthReqID: authReqID, Type: oidcErr.Type(), Description: oidcErr.Description})
	return nil
}

func (d *recordingDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *recordingDispatcher) pushedErrors() []pushedError {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]pushedError(nil), d.errors...)
}

func (d *recordingDispatcher) pinged() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.pings...)
}

// saveRequest stores a pending request created now.
func saveRequest(t *testing.T, store ciba.Store, clock *storetest.Clock, mode oidc.DeliveryMode, expiresIn int) *ciba.AuthenticationRequest {
	t.Helper()
	req := &ciba.AuthenticationRequest{
		ClientID:     "client",
		UserID:       "user",
		Scopes:       []string{"openid"},
		DeliveryMode: mode,
		CreatedAt:    clock.Now(),
		ExpiresIn:    expiresIn,
		Status:       ciba.StatusPending,
	}
	if mode != oidc.DeliveryModePoll {
		req.ClientNotificationEndpoint = testEndpoint
		req.ClientNotificationToken = testToken
	}
	if mode != oidc.DeliveryModePush {
		req.Interval = gu.Ptr(2)
	}
	ttl := time.Duration(expiresIn)*time.Second + ciba.DefaultPayloadGrace
	require.NoError(t, store.Save(context.Background(), req, ttl))
	return req
}

func newMemoryStore(clock *storetest.Clock) *memory.Store {
	return memory.New(memory.WithNowFunc(clock.Now))
}

func assertOIDCError(t *testing.T, err error, want string) {
	t.Helper()
	var oidcErr *oidc.Error
	if assert.ErrorAs(t, err, &oidcErr) {
		assert.Equal(t, want, oidcErr.Type())
	}
}
