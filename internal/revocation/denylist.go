// Package revocation remembers logged-out token ids until the tokens would
// have expired on their own.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/coursehub/internal/cache"
	"github.com/redis/go-redis/v9"
)

type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const keyPrefix = "coursehub:revoked:"

type RedisDenylist struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisDenylist(client *redis.Client) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("empty token id")
	}

	ttl := until.Sub(d.now())
	if ttl <= 0 {
		// already expired, nothing left to deny
		return nil
	}

	if err := d.client.Set(ctx, keyPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	n, err := d.client.Exists(ctx, keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}

	return n > 0, nil
}

// MemoryDenylist is the single-process fallback when no Redis is configured.
type MemoryDenylist struct {
	entries *cache.Cache[struct{}]
	now     func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: cache.New[struct{}](time.Hour),
		now:     time.Now,
	}
}

func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	if jti == "" {
		return errors.New("empty token id")
	}

	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}

	d.entries.Sweep()
	d.entries.SetWithTTL(jti, struct{}{}, ttl)

	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := d.entries.Get(jti)
	return ok, nil
}

func (d *MemoryDenylist) Sweep() int {
	return d.entries.Sweep()
}
