// Package storetest contains the behaviour every ciba.Store must provide.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muhlemmer/gu"
	"github.com/stretchr/testify/suite"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Suite runs against the store returned by Setup, which must use clock
// as its time source. The returned advance func is called whenever
// the clock moves and may be nil.
type Suite struct {
	suite.Suite
	Setup func(t *testing.T, clock *Clock) (store ciba.Store, advance func(time.Duration))

	ctx     context.Context
	clock   *Clock
	store   ciba.Store
	advance func(time.Duration)
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.clock = NewClock()
	s.store, s.advance = s.Setup(s.T(), s.clock)
}

func (s *Suite) forward(d time.Duration) {
	s.clock.Advance(d)
	if s.advance != nil {
		s.advance(d)
	}
}

func (s *Suite) newRequest(expiresIn int) *ciba.AuthenticationRequest {
	return &ciba.AuthenticationRequest{
		ClientID:                   "client",
		UserID:                     "user",
		Scopes:                     []string{"openid", "profile"},
		DeliveryMode:               oidc.DeliveryModePing,
		ClientNotificationToken:    "notification-token",
		ClientNotificationEndpoint: "https://client.example.com/cb",
		BindingMessage:             "W4SCT",
		CreatedAt:                  s.clock.Now(),
		ExpiresIn:                  expiresIn,
		Status:                     ciba.StatusPending,
		Interval:                   gu.Ptr(2),
	}
}

func (s *Suite) save(expiresIn int) *ciba.AuthenticationRequest {
	req := s.newRequest(expiresIn)
	s.Require().NoError(s.store.Save(s.ctx, req, time.Duration(expiresIn)*time.Second+time.Minute))
	return req
}

func (s *Suite) TestSaveGeneratesID() {
	req := s.save(60)
	s.NotEmpty(req.AuthReqID)
	s.EqualValues(1, req.Version)

	other := s.save(60)
	s.NotEqual(req.AuthReqID, other.AuthReqID)
}

func (s *Suite) TestSaveKeepsID() {
	req := s.newRequest(60)
	req.AuthReqID = "fixed-id"
	s.Require().NoError(s.store.Save(s.ctx, req, time.Hour))

	got, err := s.store.Get(s.ctx, "fixed-id")
	s.Require().NoError(err)
	s.Equal("fixed-id", got.AuthReqID)
}

func (s *Suite) TestGet() {
	req := s.save(60)

	got, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)
	s.Equal(req.AuthReqID, got.AuthReqID)
	s.Equal(req.ClientID, got.ClientID)
	s.Equal(req.UserID, got.UserID)
	s.Equal(req.Scopes, got.Scopes)
	s.Equal(req.DeliveryMode, got.DeliveryMode)
	s.Equal(req.ClientNotificationToken, got.ClientNotificationToken)
	s.Equal(req.ClientNotificationEndpoint, got.ClientNotificationEndpoint)
	s.Equal(req.BindingMessage, got.BindingMessage)
	s.True(req.CreatedAt.Equal(got.CreatedAt))
	s.Equal(req.ExpiresIn, got.ExpiresIn)
	s.Equal(ciba.StatusPending, got.Status)
	s.Equal(req.Interval, got.Interval)
	s.Nil(got.Tokens)
	s.EqualValues(1, got.Version)
}

func (s *Suite) TestGetNotFound() {
	_, err := s.store.Get(s.ctx, "unknown")
	s.ErrorIs(err, ciba.ErrNotFound)
}

func (s *Suite) TestPayloadTTL() {
	req := s.newRequest(10)
	s.Require().NoError(s.store.Save(s.ctx, req, 20*time.Second))

	s.forward(15 * time.Second)
	_, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)

	s.forward(10 * time.Second)
	_, err = s.store.Get(s.ctx, req.AuthReqID)
	s.ErrorIs(err, ciba.ErrNotFound)

	// the index entry outlives the payload until it is removed
	entries, err := s.store.LoadExpiredByStatus(s.ctx, ciba.StatusPending, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(req.AuthReqID, entries[0].AuthReqID)
}

func (s *Suite) TestUpdate() {
	req := s.save(60)

	got, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)
	got.LastPolledAt = s.clock.Now()
	got.Tokens = &ciba.Tokens{AccessToken: "at", TokenType: oidc.BearerToken, ExpiresIn: 300}
	s.Require().NoError(s.store.Update(s.ctx, got))
	s.EqualValues(2, got.Version)

	updated, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)
	s.EqualValues(2, updated.Version)
	s.True(got.LastPolledAt.Equal(updated.LastPolledAt))
	s.Equal(got.Tokens, updated.Tokens)
}

func (s *Suite) TestUpdateConflict() {
	req := s.save(60)

	first, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)
	second, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)

	first.Denied = true
	s.Require().NoError(s.store.Update(s.ctx, first))

	second.LastPolledAt = s.clock.Now()
	s.ErrorIs(s.store.Update(s.ctx, second), ciba.ErrConflict)

	got, err := s.store.Get(s.ctx, req.AuthReqID)
	s.Require().NoError(err)
	s.True(got.Denied)
}

func (s *Suite) TestUpdateNotFound() {
	req := s.newRequest(60)
	req.AuthReqID = "unknown"
	req.Version = 1
	s.ErrorIs(s.store.Update(s.ctx, req), ciba.ErrNotFound)
}

func (s *Suite) TestUpdateStatus() {
	req := s.save(60)
	entry := req.IndexEntry()

	ok, err := s.store.UpdateStatus(s.ctx, entry, ciba.StatusInProcess)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.UpdateStatus(s.ctx, entry, ciba.StatusInProcess)
	s.Require().NoError(err)
	s.False(ok, "status must only leave PENDING once")

	entry.Status = ciba.StatusInProcess
	ok, err = s.store.UpdateStatus(s.ctx, entry, ciba.StatusExpired)
	s.Require().NoError(err)
	s.True(ok)
}

func (s *Suite) TestUpdateStatusUnknown() {
	ok, err := s.store.UpdateStatus(s.ctx, ciba.IndexEntry{AuthReqID: "unknown", Status: ciba.StatusPending}, ciba.StatusInProcess)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *Suite) TestUpdateStatusConcurrent() {
	req := s.save(60)
	entry := req.IndexEntry()

	const actors = 16
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < actors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.store.UpdateStatus(s.ctx, entry, ciba.StatusInProcess)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.EqualValues(1, wins.Load())
}

func (s *Suite) TestLoadExpiredByStatus() {
	late := s.save(30)
	early := s.save(10)
	s.save(300)
	taken := s.save(20)

	ok, err := s.store.UpdateStatus(s.ctx, taken.IndexEntry(), ciba.StatusInProcess)
	s.Require().NoError(err)
	s.Require().True(ok)

	entries, err := s.store.LoadExpiredByStatus(s.ctx, ciba.StatusPending, 10)
	s.Require().NoError(err)
	s.Empty(entries)

	s.forward(60 * time.Second)

	entries, err = s.store.LoadExpiredByStatus(s.ctx, ciba.StatusPending, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(early.AuthReqID, entries[0].AuthReqID)
	s.Equal(late.AuthReqID, entries[1].AuthReqID)
	s.Equal(ciba.StatusPending, entries[0].Status)
	s.WithinDuration(early.ExpiresAt(), entries[0].ExpiresAt, time.Millisecond)

	entries, err = s.store.LoadExpiredByStatus(s.ctx, ciba.StatusPending, 1)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(early.AuthReqID, entries[0].AuthReqID)

	entries, err = s.store.LoadExpiredByStatus(s.ctx, ciba.StatusInProcess, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(taken.AuthReqID, entries[0].AuthReqID)
	s.Equal(ciba.StatusInProcess, entries[0].Status)
}

func (s *Suite) TestRemove() {
	req := s.save(10)
	other := s.save(10)
	s.forward(time.Minute)

	s.Require().NoError(s.store.Remove(s.ctx, req.IndexEntry()))
	s.Require().NoError(s.store.RemoveByKey(s.ctx, "unknown"))

	_, err := s.store.Get(s.ctx, req.AuthReqID)
	s.ErrorIs(err, ciba.ErrNotFound)
	ok, err := s.store.UpdateStatus(s.ctx, req.IndexEntry(), ciba.StatusInProcess)
	s.Require().NoError(err)
	s.False(ok)

	entries, err := s.store.LoadExpiredByStatus(s.ctx, ciba.StatusPending, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(other.AuthReqID, entries[0].AuthReqID)
}

func (s *Suite) TestHealth() {
	s.NoError(s.store.Health(s.ctx))
}
