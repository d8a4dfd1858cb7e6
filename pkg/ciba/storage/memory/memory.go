// Package memory provides a ciba.Store for a single server instance and tests.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/zitadel/ciba/pkg/ciba"
)

type payload struct {
	data      []byte
	version   int64
	expiresAt time.Time
}

// Store keeps requests in maps guarded by a mutex.
// Payloads are stored serialized, so callers never share state with the store.
type Store struct {
	mu       sync.Mutex
	payloads map[string]*payload
	index    map[string]ciba.IndexEntry
	nowFunc  func() time.Time
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		payloads: make(map[string]*payload),
		index:    make(map[string]ciba.IndexEntry),
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Save(_ context.Context, req *ciba.AuthenticationRequest, ttl time.Duration) error {
	if req.AuthReqID == "" {
		id, err := ciba.NewAuthReqID(ciba.RecommendedAuthReqIDBytes)
		if err != nil {
			return ciba.NewStoreError("save", err)
		}
		req.AuthReqID = id
	}
	req.Version = 1
	data, err := json.Marshal(req)
	if err != nil {
		return ciba.NewStoreError("save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[req.AuthReqID]; ok {
		return ciba.NewStoreError("save", errDuplicate)
	}
	s.payloads[req.AuthReqID] = &payload{
		data:      data,
		version:   req.Version,
		expiresAt: s.nowFunc().Add(ttl),
	}
	s.index[req.AuthReqID] = req.IndexEntry()
	return nil
}

func (s *Store) Get(_ context.Context, authReqID string) (*ciba.AuthenticationRequest, error) {
	s.mu.Lock()
	p, err := s.payload(authReqID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	req := new(ciba.AuthenticationRequest)
	if err := json.Unmarshal(p.data, req); err != nil {
		return nil, ciba.NewStoreError("get", err)
	}
	req.Version = p.version
	return req, nil
}

// payload must be called with s.mu held.
func (s *Store) payload(authReqID string) (*payload, error) {
	p, ok := s.payloads[authReqID]
	if !ok {
		return nil, ciba.ErrNotFound
	}
	if !s.nowFunc().Before(p.expiresAt) {
		delete(s.payloads, authReqID)
		return nil, ciba.ErrNotFound
	}
	return p, nil
}

func (s *Store) Update(_ context.Context, req *ciba.AuthenticationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return ciba.NewStoreError("update", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.payload(req.AuthReqID)
	if err != nil {
		return err
	}
	if p.version != req.Version {
		return ciba.ErrConflict
	}
	p.data = data
	p.version++
	req.Version = p.version
	return nil
}

func (s *Store) UpdateStatus(_ context.Context, entry ciba.IndexEntry, status ciba.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.index[entry.AuthReqID]
	if !ok || current.Status != entry.Status {
		return false, nil
	}
	current.Status = status
	s.index[entry.AuthReqID] = current
	return true, nil
}

func (s *Store) LoadExpiredByStatus(_ context.Context, status ciba.Status, limit int) ([]ciba.IndexEntry, error) {
	now := s.nowFunc()

	s.mu.Lock()
	entries := make([]ciba.IndexEntry, 0, limit)
	for _, entry := range s.index {
		if entry.Status == status && !entry.ExpiresAt.After(now) {
			entries = append(entries, entry)
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ExpiresAt.Equal(entries[j].ExpiresAt) {
			return entries[i].AuthReqID < entries[j].AuthReqID
		}
		return entries[i].ExpiresAt.Before(entries[j].ExpiresAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) Remove(ctx context.Context, entry ciba.IndexEntry) error {
	return s.RemoveByKey(ctx, entry.AuthReqID)
}

func (s *Store) RemoveByKey(_ context.Context, authReqID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.payloads, authReqID)
	delete(s.index, authReqID)
	return nil
}

func (s *Store) Health(context.Context) error {
	return nil
}

// Len returns the number of index entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}
