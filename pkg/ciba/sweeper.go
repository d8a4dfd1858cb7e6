package ciba

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/errgroup"

	"github.com/zitadel/ciba/pkg/oidc"
)

// ErrSweeperStopped is returned by RunOnce after Stop.
var ErrSweeperStopped = errors.New("ciba: sweeper stopped")

const expiredDescription = "Request has expired and there was no answer from the end user."

// Sweeper finalizes expired requests. It moves each expired PENDING request
// to IN_PROCESS, removes it from the store and notifies ping and push clients.
// Several sweepers may run against the same store.
type Sweeper struct {
	store      Store
	dispatcher CallbackDispatcher
	config     SweeperConfig
	logger     *slog.Logger
	metrics    *Metrics
	nowFunc    func() time.Time

	running      atomic.Bool
	lastFinished atomic.Int64

	mu      sync.RWMutex
	stopped bool
	jobs    chan sweepJob
	workers errgroup.Group

	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

type sweepJob struct {
	ctx   context.Context
	req   *AuthenticationRequest
	entry IndexEntry
	done  func()
}

type SweeperOption func(*Sweeper)

func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithSweeperMetrics(metrics *Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = metrics
	}
}

func WithSweeperNowFunc(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.nowFunc = now
	}
}

// NewSweeper starts the worker pool right away. Stop must be called to release it.
func NewSweeper(store Store, dispatcher CallbackDispatcher, config SweeperConfig, opts ...SweeperOption) *Sweeper {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	s := &Sweeper{
		store:      store,
		dispatcher: dispatcher,
		config:     config,
		logger:     slog.Default(),
		nowFunc:    time.Now,
		jobs:       make(chan sweepJob, config.ChunkSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := 0; i < config.Workers; i++ {
		s.workers.Go(func() error {
			for job := range s.jobs {
				s.finalize(job.ctx, job.req, job.entry)
				job.done()
			}
			return nil
		})
	}
	return s
}

// Start runs the sweeper every configured interval until ctx is done or Stop is called.
// A negative interval disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) {
	if s.config.Interval < 0 {
		s.logger.InfoContext(ctx, "backchannel authentication sweeper disabled")
		return
	}
	interval := s.config.effectiveInterval()
	ctx, cancel := context.WithCancel(ctx)
	s.loopCancel = cancel
	s.loopDone = make(chan struct{})

	go func() {
		defer close(s.loopDone)
		// ticking faster than the interval keeps the gap between passes close to it
		tickEvery := interval / 4
		if tickEvery <= 0 {
			tickEvery = interval
		}
		ticker := time.NewTicker(tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx, interval)
			}
		}
	}()
}

// Stop ends the ticker loop and waits for the worker pool to drain.
func (s *Sweeper) Stop() {
	if s.loopCancel != nil {
		s.loopCancel()
		<-s.loopDone
	}
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.jobs)
	}
	s.mu.Unlock()
	_ = s.workers.Wait()
}

func (s *Sweeper) tick(ctx context.Context, interval time.Duration) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.DebugContext(ctx, "sweeper still running, skipping tick")
		return
	}
	defer s.running.Store(false)

	if last := s.lastFinished.Load(); last != 0 && s.nowFunc().Sub(time.Unix(0, last)) < interval {
		return
	}
	if _, err := s.run(ctx, nil); err != nil {
		s.logger.ErrorContext(ctx, "sweeper run failed", "error", err)
	}
	s.lastFinished.Store(s.nowFunc().UnixNano())
}

// RunOnce performs a single pass and waits until the dispatched requests are finalized.
// It returns the number of requests it finalized.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer s.running.Store(false)

	var wg sync.WaitGroup
	n, err := s.run(ctx, &wg)
	wg.Wait()
	s.lastFinished.Store(s.nowFunc().UnixNano())
	return n, err
}

func (s *Sweeper) run(ctx context.Context, wg *sync.WaitGroup) (int, error) {
	ctx, span := tracer.Start(ctx, "Sweeper.run")
	defer span.End()

	entries, err := s.store.LoadExpiredByStatus(ctx, StatusPending, s.config.ChunkSize)
	if err != nil {
		return 0, err
	}
	var dispatched int
	submitted := make(map[string]bool, len(entries))
	for _, entry := range entries {
		ok, err := s.store.UpdateStatus(ctx, entry, StatusInProcess)
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper status update failed", "auth_req_id", entry.AuthReqID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		entry.Status = StatusInProcess
		req, err := s.store.Get(ctx, entry.AuthReqID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper could not load request", "auth_req_id", entry.AuthReqID, "error", err)
			continue
		}
		if err := s.submit(ctx, req, entry, wg); err != nil {
			s.release(ctx, entry)
			return dispatched, err
		}
		submitted[entry.AuthReqID] = true
		dispatched++
	}
	s.housekeeping(ctx, wg, submitted)
	return dispatched, nil
}

// release hands an entry the sweeper could not dispatch back to PENDING
// so the next pass or another instance picks it up.
func (s *Sweeper) release(ctx context.Context, entry IndexEntry) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.store.UpdateStatus(ctx, entry, StatusPending); err != nil {
		s.logger.WarnContext(ctx, "could not release request", "auth_req_id", entry.AuthReqID, "error", err)
	}
}

func (s *Sweeper) submit(ctx context.Context, req *AuthenticationRequest, entry IndexEntry, wg *sync.WaitGroup) error {
	done := func() {}
	if wg != nil {
		wg.Add(1)
		done = wg.Done
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		done()
		return ErrSweeperStopped
	}
	select {
	case s.jobs <- sweepJob{ctx: context.WithoutCancel(ctx), req: req, entry: entry, done: done}:
		return nil
	case <-ctx.Done():
		done()
		return ctx.Err()
	}
}

// finalize removes the request before calling the client,
// so no other actor can deliver an outcome for it.
func (s *Sweeper) finalize(ctx context.Context, req *AuthenticationRequest, entry IndexEntry) {
	s.metrics.workerStarted()
	defer s.metrics.workerDone()

	logger := s.logger.With("auth_req_id", req.AuthReqID, "mode", req.DeliveryMode)
	if req.Status != StatusPending || req.Resolved() {
		logger.DebugContext(ctx, "request already owned by another actor")
		return
	}
	claim := *req
	claim.Status = StatusInProcess
	if err := s.store.Update(ctx, &claim); err != nil {
		logger.DebugContext(ctx, "request claimed by another actor", "error", err)
		return
	}
	if err := s.store.Remove(ctx, entry); err != nil {
		logger.WarnContext(ctx, "could not remove expired request", "error", err)
	}
	s.metrics.requestReaped(string(req.DeliveryMode))

	switch req.DeliveryMode {
	case oidc.DeliveryModePush:
		_ = s.dispatcher.PushError(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, req.AuthReqID,
			oidc.ErrExpiredToken().WithDescription(expiredDescription))
	case oidc.DeliveryModePing:
		_ = s.dispatcher.Ping(ctx, req.ClientNotificationEndpoint, req.ClientNotificationToken, req.AuthReqID)
	}
	logger.DebugContext(ctx, "expired request finalized")
}

// housekeeping removes index entries which lost their payload
// after they left PENDING, e.g. because an instance died in between.
// IN_PROCESS entries whose payload is still undecided and expired for
// longer than one sweep interval are finalized again.
func (s *Sweeper) housekeeping(ctx context.Context, wg *sync.WaitGroup, submitted map[string]bool) {
	stale := s.nowFunc().Add(-s.interval())
	for _, status := range []Status{StatusInProcess, StatusExpired} {
		entries, err := s.store.LoadExpiredByStatus(ctx, status, s.config.ChunkSize)
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper housekeeping failed", "status", status, "error", err)
			return
		}
		for _, entry := range entries {
			if submitted[entry.AuthReqID] {
				continue
			}
			req, err := s.store.Get(ctx, entry.AuthReqID)
			if err == nil {
				if status == StatusInProcess && req.Status == StatusPending && !req.Resolved() && entry.ExpiresAt.Before(stale) {
					s.logger.InfoContext(ctx, "reclaiming abandoned request", "auth_req_id", entry.AuthReqID)
					if err := s.submit(ctx, req, entry, wg); err != nil {
						return
					}
				}
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				continue
			}
			if err := s.store.Remove(ctx, entry); err != nil {
				s.logger.WarnContext(ctx, "could not remove orphaned index entry", "auth_req_id", entry.AuthReqID, "error", err)
			}
		}
	}
}

func (s *Sweeper) interval() time.Duration {
	if interval := s.config.effectiveInterval(); interval > 0 {
		return interval
	}
	return DefaultSweepInterval
}
