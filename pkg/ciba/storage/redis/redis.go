// Package redis provides a ciba.Store shared by several server instances.
//
// Each request is kept in a hash holding the serialized payload and its version,
// expiring with the payload TTL. The index is a sorted set scored by the expiry
// of the request in unix milliseconds, with the statuses in a separate hash.
// All keys share one hash tag, so the transactions touching several of them
// stay in a single slot of a cluster.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zitadel/ciba/pkg/ciba"
)

const (
	DefaultKeyPrefix = "{ciba}:"

	fieldData    = "data"
	fieldVersion = "version"

	pageSize = 256
)

// Config of a standalone, sentinel or cluster connection.
type Config struct {
	Addrs      []string `yaml:"Addrs" validate:"required,min=1"`
	MasterName string   `yaml:"MasterName"`
	Username   string   `yaml:"Username"`
	Password   string   `yaml:"-"`
	DB         int      `yaml:"DB"`
	KeyPrefix  string   `yaml:"KeyPrefix"`

	DialTimeout  time.Duration `yaml:"DialTimeout"`
	ReadTimeout  time.Duration `yaml:"ReadTimeout"`
	WriteTimeout time.Duration `yaml:"WriteTimeout"`
}

type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	nowFunc   func() time.Time
	owned     bool
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// New connects to redis and checks the connection.
func New(ctx context.Context, config Config, opts ...Option) (*Store, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        config.Addrs,
		MasterName:   config.MasterName,
		Username:     config.Username,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	s := NewWithClient(client, config.KeyPrefix, opts...)
	s.owned = true
	return s, nil
}

// NewWithClient creates a Store on an existing client, which is not closed by Close.
func NewWithClient(client redis.UniversalClient, keyPrefix string, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: hashTagged(keyPrefix),
		nowFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// hashTagged wraps prefix into a hash tag unless it carries one.
func hashTagged(prefix string) string {
	if prefix == "" {
		return DefaultKeyPrefix
	}
	if strings.Contains(prefix, "{") {
		return prefix
	}
	return "{" + strings.TrimSuffix(prefix, ":") + "}:"
}

func (s *Store) requestKey(authReqID string) string {
	return s.keyPrefix + "req:" + authReqID
}

func (s *Store) indexKey() string {
	return s.keyPrefix + "index"
}

func (s *Store) statusKey() string {
	return s.keyPrefix + "status"
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
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := s.requestKey(req.AuthReqID)
		pipe.HSet(ctx, key, fieldData, data, fieldVersion, req.Version)
		pipe.PExpire(ctx, key, ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(entry.ExpiresAt.UnixMilli()), Member: entry.AuthReqID})
		pipe.HSet(ctx, s.statusKey(), entry.AuthReqID, string(entry.Status))
		return nil
	})
	return ciba.NewStoreError("save", err)
}

func (s *Store) Get(ctx context.Context, authReqID string) (*ciba.AuthenticationRequest, error) {
	values, err := s.client.HMGet(ctx, s.requestKey(authReqID), fieldData, fieldVersion).Result()
	if err != nil {
		return nil, ciba.NewStoreError("get", err)
	}
	data, ok := values[0].(string)
	if !ok {
		return nil, ciba.ErrNotFound
	}
	req := new(ciba.AuthenticationRequest)
	if err := json.Unmarshal([]byte(data), req); err != nil {
		return nil, ciba.NewStoreError("get", err)
	}
	if version, ok := values[1].(string); ok {
		if req.Version, err = strconv.ParseInt(version, 10, 64); err != nil {
			return nil, ciba.NewStoreError("get", err)
		}
	}
	return req, nil
}

// KEYS[1] = request key
// ARGV[1] = expected version
// ARGV[2] = new payload
var updateScript = redis.NewScript(`
local version = redis.call('HGET', KEYS[1], 'version')
if not version then
    return -1
end
if tonumber(version) ~= tonumber(ARGV[1]) then
    return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[2], 'version', tonumber(version) + 1)
return 1
`)

func (s *Store) Update(ctx context.Context, req *ciba.AuthenticationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return ciba.NewStoreError("update", err)
	}
	result, err := updateScript.Run(ctx, s.client, []string{s.requestKey(req.AuthReqID)}, req.Version, data).Int()
	if err != nil {
		return ciba.NewStoreError("update", err)
	}
	switch result {
	case -1:
		return ciba.ErrNotFound
	case 0:
		return ciba.ErrConflict
	}
	req.Version++
	return nil
}

// KEYS[1] = status hash
// ARGV[1] = auth_req_id
// ARGV[2] = expected status
// ARGV[3] = new status
var updateStatusScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], ARGV[1]) == ARGV[2] then
    redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
    return 1
end
return 0
`)

func (s *Store) UpdateStatus(ctx context.Context, entry ciba.IndexEntry, status ciba.Status) (bool, error) {
	result, err := updateStatusScript.Run(ctx, s.client, []string{s.statusKey()},
		entry.AuthReqID, string(entry.Status), string(status)).Int()
	if err != nil {
		return false, ciba.NewStoreError("update status", err)
	}
	return result == 1, nil
}

func (s *Store) LoadExpiredByStatus(ctx context.Context, status ciba.Status, limit int) ([]ciba.IndexEntry, error) {
	until := strconv.FormatInt(s.nowFunc().UnixMilli(), 10)
	entries := make([]ciba.IndexEntry, 0, limit)
	for offset := int64(0); len(entries) < limit; offset += pageSize {
		page, err := s.client.ZRangeByScoreWithScores(ctx, s.indexKey(), &redis.ZRangeBy{
			Min:    "-inf",
			Max:    until,
			Offset: offset,
			Count:  pageSize,
		}).Result()
		if err != nil {
			return nil, ciba.NewStoreError("load expired", err)
		}
		if len(page) == 0 {
			break
		}
		ids := make([]string, len(page))
		for i, z := range page {
			ids[i], _ = z.Member.(string)
		}
		statuses, err := s.client.HMGet(ctx, s.statusKey(), ids...).Result()
		if err != nil {
			return nil, ciba.NewStoreError("load expired", err)
		}
		for i, z := range page {
			if statuses[i] != string(status) {
				continue
			}
			entries = append(entries, ciba.IndexEntry{
				AuthReqID: ids[i],
				Status:    status,
				ExpiresAt: time.UnixMilli(int64(z.Score)),
			})
			if len(entries) == limit {
				break
			}
		}
		if len(page) < pageSize {
			break
		}
	}
	return entries, nil
}

func (s *Store) Remove(ctx context.Context, entry ciba.IndexEntry) error {
	return s.RemoveByKey(ctx, entry.AuthReqID)
}

func (s *Store) RemoveByKey(ctx context.Context, authReqID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.requestKey(authReqID))
		pipe.ZRem(ctx, s.indexKey(), authReqID)
		pipe.HDel(ctx, s.statusKey(), authReqID)
		return nil
	})
	return ciba.NewStoreError("remove", err)
}

func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client if it was created by New.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
