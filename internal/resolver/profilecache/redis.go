package profilecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "probate-resolver/internal/common/errors"
	"probate-resolver/internal/models"
)

// RedisStore persists profiles as JSON under "<prefix>:<source>:<reference>".
type RedisStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store; ttl of zero keeps entries forever.
func NewRedisStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "profile"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the redis key for a profile.
func (s *RedisStore) Key(key models.ProfileKey) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.Source, key.Reference)
}

func (s *RedisStore) Load(ctx context.Context, key models.ProfileKey) (*models.DetailProfile, bool, error) {
	val, err := s.client.Get(ctx, s.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}

	var p models.DetailProfile
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, false, fmt.Errorf("%w: corrupt entry %s: %v", apperrors.ErrCacheUnavailable, s.Key(key), err)
	}
	return &p, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key models.ProfileKey, profile *models.DetailProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrCacheUnavailable, err)
	}
	return nil
}
