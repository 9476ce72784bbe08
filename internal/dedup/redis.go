package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps the claimed keys of a run in a Redis set. By default the set
// belongs to one process and Reset deletes it. A Shared store lets several
// crawler processes use one run id: Reset leaves the set alone and the TTL
// removes it.
type Redis struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	shared bool
}

type RedisOption func(*Redis)

// Shared marks the set as used by other processes of the same run.
func Shared() RedisOption {
	return func(r *Redis) { r.shared = true }
}

// NewRedis stores keys under "crawl:<runID>:seen". A ttl of zero keeps the
// set until Reset.
func NewRedis(client redis.Cmdable, runID string, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		key:    fmt.Sprintf("crawl:%s:seen", runID),
		ttl:    ttl,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Key() string { return r.key }

func (r *Redis) Claim(ctx context.Context, key string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.key, key).Result()
	if err != nil {
		return false, fmt.Errorf("claim %q: %w", key, err)
	}
	if added == 1 && r.ttl > 0 {
		if err := r.client.Expire(ctx, r.key, r.ttl).Err(); err != nil {
			return true, fmt.Errorf("expire %s: %w", r.key, err)
		}
	}
	return added == 1, nil
}

func (r *Redis) Reset(ctx context.Context) error {
	if r.shared {
		return nil
	}
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("reset %s: %w", r.key, err)
	}
	return nil
}
