package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeCache reserves active room codes in Redis so code generation can
// collision-check without scanning the battle collection. Reservations carry
// a TTL; a finished or abandoned battle's code becomes reusable once the
// reservation lapses.
type CodeCache interface {
	// Reserve claims code if it is not currently held. Returns false when
	// another live battle already holds it.
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

type codeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeCache creates a new code reservation cache.
func NewCodeCache(client *redis.Client) CodeCache {
	return &codeCache{
		client: client,
		ttl:    24 * time.Hour, // reservations expire after 24h
	}
}

func (c *codeCache) key(code string) string {
	return fmt.Sprintf("battle:code:%s", code)
}

func (c *codeCache) Reserve(ctx context.Context, code string) (bool, error) {
	return c.client.SetNX(ctx, c.key(code), 1, c.ttl).Result()
}

func (c *codeCache) Release(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

func (c *codeCache) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}
