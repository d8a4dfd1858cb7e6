package ciba

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a request does not exist,
	// was removed or its payload outlived its TTL.
	ErrNotFound = errors.New("ciba: authentication request not found")

	// ErrConflict is returned by Store.Update when the stored
	// request was modified since it was read.
	ErrConflict = errors.New("ciba: authentication request was modified concurrently")
)

// StoreError wraps failures of the storage backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "ciba: store " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns nil if err is nil, so backends can wrap unconditionally.
// ErrNotFound and ErrConflict are returned unwrapped.
func NewStoreError(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Store keeps in-flight authentication requests together with
// their index entries. All coordination between server instances,
// the sweeper and the token endpoint goes through UpdateStatus.
type Store interface {
	// Save persists the request and its index entry atomically.
	// An empty AuthReqID is generated. The payload lives for ttl,
	// the index entry until it is removed.
	Save(ctx context.Context, req *AuthenticationRequest, ttl time.Duration) error

	// Get returns ErrNotFound for unknown, removed or timed out requests.
	Get(ctx context.Context, authReqID string) (*AuthenticationRequest, error)

	// Update overwrites the payload keeping its TTL.
	// It fails with ErrConflict if req.Version is outdated and
	// increments req.Version on success.
	Update(ctx context.Context, req *AuthenticationRequest) error

	// UpdateStatus sets the status of the index entry to status
	// if it is still entry.Status. It reports whether it did.
	UpdateStatus(ctx context.Context, entry IndexEntry, status Status) (bool, error)

	// LoadExpiredByStatus returns up to limit index entries with the given status
	// which expired, oldest first.
	LoadExpiredByStatus(ctx context.Context, status Status, limit int) ([]IndexEntry, error)

	// Remove deletes the payload and the index entry.
	Remove(ctx context.Context, entry IndexEntry) error
	RemoveByKey(ctx context.Context, authReqID string) error

	Health(ctx context.Context) error
}
