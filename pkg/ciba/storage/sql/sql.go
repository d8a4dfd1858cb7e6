// Package sql provides a ciba.Store on a relational database through gorm.
package sql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zitadel/ciba/pkg/ciba"
)

// request holds the serialized payload. Timestamps are unix milliseconds.
type request struct {
	AuthReqID        string `gorm:"primaryKey;size:128"`
	Payload          []byte `gorm:"not null"`
	Version          int64  `gorm:"not null"`
	PayloadExpiresAt int64  `gorm:"not null;index"`
}

func (request) TableName() string {
	return "ciba_requests"
}

type indexEntry struct {
	AuthReqID string `gorm:"primaryKey;size:128"`
	Status    string `gorm:"size:16;not null;index:idx_ciba_status_expiry,priority:1"`
	ExpiresAt int64  `gorm:"not null;index:idx_ciba_status_expiry,priority:2"`
}

func (indexEntry) TableName() string {
	return "ciba_request_index"
}

type Store struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// Open opens a sqlite database, e.g. "file::memory:?cache=shared" for tests.
func Open(dsn string, opts ...Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return New(db, opts...)
}

// New migrates the tables of the store.
func New(db *gorm.DB, opts ...Option) (*Store, error) {
	if err := db.AutoMigrate(&request{}, &indexEntry{}); err != nil {
		return nil, ciba.NewStoreError("migrate", err)
	}
	s := &Store{
		db:      db,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) now() int64 {
	return s.nowFunc().UnixMilli()
}

func (s *Store) Save(ctx context.Context, req *ciba.AuthenticationRequest, ttl time.Duration) error {
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
	entry := req.IndexEntry()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&request{
			AuthReqID:        req.AuthReqID,
			Payload:          data,
			Version:          req.Version,
			PayloadExpiresAt: s.nowFunc().Add(ttl).UnixMilli(),
		}).Error; err != nil {
			return err
		}
		return tx.Create(&indexEntry{
			AuthReqID: entry.AuthReqID,
			Status:    string(entry.Status),
			ExpiresAt: entry.ExpiresAt.UnixMilli(),
		}).Error
	})
	return ciba.NewStoreError("save", err)
}

func (s *Store) Get(ctx context.Context, authReqID string) (*ciba.AuthenticationRequest, error) {
	var row request
	err := s.db.WithContext(ctx).
		Where("auth_req_id = ? AND payload_expires_at > ?", authReqID, s.now()).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ciba.ErrNotFound
	}
	if err != nil {
		return nil, ciba.NewStoreError("get", err)
	}
	req := new(ciba.AuthenticationRequest)
	if err := json.Unmarshal(row.Payload, req); err != nil {
		return nil, ciba.NewStoreError("get", err)
	}
	req.Version = row.Version
	return req, nil
}

func (s *Store) Update(ctx context.Context, req *ciba.AuthenticationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return ciba.NewStoreError("update", err)
	}
	now := s.now()
	db := s.db.WithContext(ctx)
	result := db.Model(&request{}).
		Where("auth_req_id = ? AND version = ? AND payload_expires_at > ?", req.AuthReqID, req.Version, now).
		Updates(map[string]any{"payload": data, "version": req.Version + 1})
	if result.Error != nil {
		return ciba.NewStoreError("update", result.Error)
	}
	if result.RowsAffected == 1 {
		req.Version++
		return nil
	}
	var count int64
	err = db.Model(&request{}).
		Where("auth_req_id = ? AND payload_expires_at > ?", req.AuthReqID, now).
		Count(&count).Error
	if err != nil {
		return ciba.NewStoreError("update", err)
	}
	if count == 0 {
		return ciba.ErrNotFound
	}
	return ciba.ErrConflict
}

func (s *Store) UpdateStatus(ctx context.Context, entry ciba.IndexEntry, status ciba.Status) (bool, error) {
	result := s.db.WithContext(ctx).Model(&indexEntry{}).
		Where("auth_req_id = ? AND status = ?", entry.AuthReqID, string(entry.Status)).
		Update("status", string(status))
	if result.Error != nil {
		return false, ciba.NewStoreError("update status", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s *Store) LoadExpiredByStatus(ctx context.Context, status ciba.Status, limit int) ([]ciba.IndexEntry, error) {
	var rows []indexEntry
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", string(status), s.now()).
		Order("expires_at, auth_req_id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, ciba.NewStoreError("load expired", err)
	}
	entries := make([]ciba.IndexEntry, len(rows))
	for i, row := range rows {
		entries[i] = ciba.IndexEntry{
			AuthReqID: row.AuthReqID,
			Status:    ciba.Status(row.Status),
			ExpiresAt: time.UnixMilli(row.ExpiresAt),
		}
	}
	return entries, nil
}

func (s *Store) Remove(ctx context.Context, entry ciba.IndexEntry) error {
	return s.RemoveByKey(ctx, entry.AuthReqID)
}

func (s *Store) RemoveByKey(ctx context.Context, authReqID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("auth_req_id = ?", authReqID).Delete(&request{}).Error; err != nil {
			return err
		}
		return tx.Where("auth_req_id = ?", authReqID).Delete(&indexEntry{}).Error
	})
	return ciba.NewStoreError("remove", err)
}

func (s *Store) Health(ctx context.Context) error {
	db, err := s.db.WithContext(ctx).DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
