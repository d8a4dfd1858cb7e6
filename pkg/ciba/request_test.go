package ciba

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errors.New("read failed")
}

func TestNewAuthReqID(t *testing.T) {
	id, err := NewAuthReqID(RecommendedAuthReqIDBytes)
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(id)
	require.NoError(t, err)
	assert.Len(t, raw, RecommendedAuthReqIDBytes)

	other, err := NewAuthReqID(RecommendedAuthReqIDBytes)
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func Test_newAuthReqID(t *testing.T) {
	id, err := newAuthReqID(bytes.NewReader([]byte{0xfb, 0xff, 0x00}), 3)
	require.NoError(t, err)
	assert.Equal(t, "-_8A", id)

	_, err = newAuthReqID(errReader{}, 16)
	assert.Error(t, err)

	_, err = newAuthReqID(bytes.NewReader([]byte{1}), 16)
	assert.Error(t, err)
}

func TestAuthenticationRequest_Expiry(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	req := &AuthenticationRequest{
		AuthReqID: "id",
		CreatedAt: created,
		ExpiresIn: 120,
		Status:    StatusPending,
	}
	assert.Equal(t, created.Add(2*time.Minute), req.ExpiresAt())
	assert.False(t, req.IsExpired(created.Add(119*time.Second)))
	assert.True(t, req.IsExpired(created.Add(120*time.Second)))

	entry := req.IndexEntry()
	assert.Equal(t, IndexEntry{AuthReqID: "id", Status: StatusPending, ExpiresAt: created.Add(2 * time.Minute)}, entry)
}

func TestAuthenticationRequest_Resolved(t *testing.T) {
	assert.False(t, (&AuthenticationRequest{}).Resolved())
	assert.True(t, (&AuthenticationRequest{Denied: true}).Resolved())
	assert.True(t, (&AuthenticationRequest{Tokens: &Tokens{AccessToken: "at"}}).Resolved())
}

func TestNewStoreError(t *testing.T) {
	assert.NoError(t, NewStoreError("get", nil))
	assert.Equal(t, ErrNotFound, NewStoreError("get", ErrNotFound))
	assert.Equal(t, ErrConflict, NewStoreError("update", ErrConflict))

	cause := errors.New("connection refused")
	err := NewStoreError("save", cause)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "ciba: store save: connection refused")
}
