package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stride/internal/schedule"
	id "stride/pkg/domain"
	"stride/pkg/platform/sentinel"
)

const (
	// Redis key prefix for retained worklist views
	viewKeyPrefix = "worklist:user:"

	defaultTTL = 24 * time.Hour
)

// RedisStore is a Redis-backed snapshot store. This is the recommended
// implementation for multi-instance deployments, where the instance
// answering a degraded read may not be the one that materialized last.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisStoreOption configures a RedisStore instance.
type RedisStoreOption func(*RedisStore)

// WithTTL overrides how long a retained view stays loadable. Snapshots older
// than this are considered too stale to be worth serving.
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *RedisStore) Save(ctx context.Context, view *schedule.View) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal view: %w", err)
	}
	return s.client.Set(ctx, viewKeyPrefix+view.UserID.String(), payload, s.ttl).Err()
}

func (s *RedisStore) Load(ctx context.Context, userID id.UserID) (*schedule.View, error) {
	raw, err := s.client.Get(ctx, viewKeyPrefix+userID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var view schedule.View
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("unmarshal view: %w", err)
	}
	return &view, nil
}
