package ciba_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/ciba/mock"
	"github.com/zitadel/ciba/pkg/ciba/storage/storetest"
	"github.com/zitadel/ciba/pkg/oidc"
)

var testTokens = &ciba.Tokens{
	AccessToken: "access-token",
	TokenType:   oidc.BearerToken,
	ExpiresIn:   3600,
	IDToken:     "id-token",
}

type grantFixture struct {
	clock      *storetest.Clock
	store      ciba.Store
	dispatcher *recordingDispatcher
	grants     *ciba.GrantAdapter
}

func newGrantFixture() *grantFixture {
	f := &grantFixture{
		clock:      storetest.NewClock(),
		dispatcher: newRecordingDispatcher(),
	}
	f.store = newMemoryStore(f.clock)
	f.grants = ciba.NewGrantAdapter(f.store, f.dispatcher, ciba.WithGrantNowFunc(f.clock.Now))
	return f
}

func TestGrantAdapter_Poll(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePoll, 120)

	_, err := f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.AuthorizationPending))

	stored, err := f.store.Get(ctx, req.AuthReqID)
	require.NoError(t, err)
	assert.True(t, stored.LastPolledAt.Equal(f.clock.Now()))

	f.clock.Advance(time.Second)
	_, err = f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.SlowDown))

	f.clock.Advance(2 * time.Second)
	_, err = f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.AuthorizationPending))

	require.NoError(t, f.grants.Complete(ctx, req.AuthReqID, testTokens))
	assert.Zero(t, f.dispatcher.callCount(), "poll clients are not called back")

	f.clock.Advance(2 * time.Second)
	grant, err := f.grants.Resolve(ctx, "client", req.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, &ciba.Grant{
		AuthReqID:       req.AuthReqID,
		ClientID:        "client",
		UserID:          "user",
		Scopes:          []string{"openid"},
		Tokens:          *testTokens,
		TokensDelivered: true,
	}, grant)

	// exactly once
	_, err = f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.ExpiredToken))
	_, err = f.store.Get(ctx, req.AuthReqID)
	assert.ErrorIs(t, err, ciba.ErrNotFound)
}

func TestGrantAdapter_Deny(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePoll, 120)

	require.NoError(t, f.grants.Deny(ctx, req.AuthReqID))
	assertOIDCError(t, f.grants.Complete(ctx, req.AuthReqID, testTokens), string(oidc.ExpiredToken))

	_, err := f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.AccessDenied))
	_, err = f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.ExpiredToken))
}

func TestGrantAdapter_Resolve_Expired(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		prepare  func(f *grantFixture, req *ciba.AuthenticationRequest)
		authReq  string
	}{
		{
			name:     "unknown",
			clientID: "client",
			authReq:  "unknown",
		},
		{
			name:     "foreign client",
			clientID: "other-client",
		},
		{
			name:     "expired while pending",
			clientID: "client",
			prepare: func(f *grantFixture, _ *ciba.AuthenticationRequest) {
				f.clock.Advance(121 * time.Second)
			},
		},
		{
			name:     "expired after approval",
			clientID: "client",
			prepare: func(f *grantFixture, req *ciba.AuthenticationRequest) {
				require.NoError(t, f.grants.Complete(context.Background(), req.AuthReqID, testTokens))
				f.clock.Advance(120 * time.Second)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGrantFixture()
			req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePoll, 120)
			if tt.prepare != nil {
				tt.prepare(f, req)
			}
			id := req.AuthReqID
			if tt.authReq != "" {
				id = tt.authReq
			}
			_, err := f.grants.Resolve(context.Background(), tt.clientID, id)
			assertOIDCError(t, err, string(oidc.ExpiredToken))
		})
	}
}

func TestGrantAdapter_Push(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePush, 120)

	_, err := f.grants.Resolve(ctx, "client", req.AuthReqID)
	assertOIDCError(t, err, string(oidc.InvalidGrant))

	require.NoError(t, f.grants.Complete(ctx, req.AuthReqID, testTokens))
	assert.Equal(t, testTokens, f.dispatcher.tokens[req.AuthReqID])
	assert.Equal(t, 1, f.dispatcher.callCount())

	// removed before delivery, a second decision is rejected
	_, err = f.store.Get(ctx, req.AuthReqID)
	assert.ErrorIs(t, err, ciba.ErrNotFound)
	assertOIDCError(t, f.grants.Deny(ctx, req.AuthReqID), string(oidc.ExpiredToken))
	assert.Equal(t, 1, f.dispatcher.callCount())
}

func TestGrantAdapter_PushDeny(t *testing.T) {
	f := newGrantFixture()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePush, 120)

	require.NoError(t, f.grants.Deny(context.Background(), req.AuthReqID))
	assert.Equal(t, []pushedError{{
		AuthReqID:   req.AuthReqID,
		Type:        string(oidc.AccessDenied),
		Description: "The authorization request was denied.",
	}}, f.dispatcher.pushedErrors())
}

func TestGrantAdapter_Ping(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePing, 120)

	require.NoError(t, f.grants.Complete(ctx, req.AuthReqID, testTokens))
	assert.Equal(t, []string{req.AuthReqID}, f.dispatcher.pinged())

	grant, err := f.grants.Resolve(ctx, "client", req.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, *testTokens, grant.Tokens)
}

func TestGrantAdapter_Complete_Expired(t *testing.T) {
	f := newGrantFixture()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePing, 10)
	f.clock.Advance(10 * time.Second)

	assertOIDCError(t, f.grants.Complete(context.Background(), req.AuthReqID, testTokens), string(oidc.ExpiredToken))
	assertOIDCError(t, f.grants.Complete(context.Background(), "unknown", testTokens), string(oidc.ExpiredToken))
	assert.Zero(t, f.dispatcher.callCount())
}

func TestGrantAdapter_ResolveConcurrent(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePoll, 120)
	require.NoError(t, f.grants.Complete(ctx, req.AuthReqID, testTokens))

	var (
		wg     sync.WaitGroup
		grants atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if grant, err := f.grants.Resolve(ctx, "client", req.AuthReqID); err == nil && grant != nil {
				grants.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, grants.Load())
}

func TestGrantAdapter_CompleteRetriesOnConflict(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	clock := storetest.NewClock()
	dispatcher := newRecordingDispatcher()
	grants := ciba.NewGrantAdapter(store, dispatcher, ciba.WithGrantNowFunc(clock.Now))

	pending := func(version int64) *ciba.AuthenticationRequest {
		return &ciba.AuthenticationRequest{
			AuthReqID:    "id",
			ClientID:     "client",
			DeliveryMode: oidc.DeliveryModePing,
			CreatedAt:    clock.Now(),
			ExpiresIn:    120,
			Status:       ciba.StatusPending,
			Version:      version,
		}
	}
	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), "id").Return(pending(1), nil),
		store.EXPECT().UpdateStatus(gomock.Any(), pending(1).IndexEntry(), ciba.StatusInProcess).Return(true, nil),
		// a concurrent poll updated the payload
		store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(ciba.ErrConflict),
		store.EXPECT().Get(gomock.Any(), "id").Return(pending(2), nil),
		store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, req *ciba.AuthenticationRequest) error {
			assert.EqualValues(t, 2, req.Version)
			assert.Equal(t, testTokens, req.Tokens)
			assert.Equal(t, ciba.StatusInProcess, req.Status)
			return nil
		}),
	)

	require.NoError(t, grants.Complete(context.Background(), "id", testTokens))
	assert.Equal(t, []string{"id"}, dispatcher.pinged())
}

func TestGrantAdapter_CompleteLostRace(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mock.NewMockStore(ctrl)
	clock := storetest.NewClock()
	dispatcher := newRecordingDispatcher()
	grants := ciba.NewGrantAdapter(store, dispatcher, ciba.WithGrantNowFunc(clock.Now))

	req := &ciba.AuthenticationRequest{
		AuthReqID:    "id",
		ClientID:     "client",
		DeliveryMode: oidc.DeliveryModePush,
		CreatedAt:    clock.Now(),
		ExpiresIn:    120,
		Status:       ciba.StatusPending,
	}
	store.EXPECT().Get(gomock.Any(), "id").Return(req, nil)
	// the sweeper won
	store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), ciba.StatusInProcess).Return(false, nil)

	assertOIDCError(t, grants.Complete(context.Background(), "id", testTokens), string(oidc.ExpiredToken))
	assert.Zero(t, dispatcher.callCount())
}

func TestGrantAdapter_Pending(t *testing.T) {
	f := newGrantFixture()
	ctx := context.Background()
	req := saveRequest(t, f.store, f.clock, oidc.DeliveryModePoll, 120)

	got, err := f.grants.Pending(ctx, req.AuthReqID)
	require.NoError(t, err)
	assert.Equal(t, req.AuthReqID, got.AuthReqID)
	assert.Equal(t, "user", got.UserID)

	require.NoError(t, f.grants.Deny(ctx, req.AuthReqID))
	_, err = f.grants.Pending(ctx, req.AuthReqID)
	assertOIDCError(t, err, string(oidc.ExpiredToken))

	_, err = f.grants.Pending(ctx, "unknown")
	assertOIDCError(t, err, string(oidc.ExpiredToken))

	other := saveRequest(t, f.store, f.clock, oidc.DeliveryModePing, 60)
	f.clock.Advance(61 * time.Second)
	_, err = f.grants.Pending(ctx, other.AuthReqID)
	assertOIDCError(t, err, string(oidc.ExpiredToken))
}
