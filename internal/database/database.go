// Package database owns the process-wide persistence handles. Connections
// are established lazily, exactly once, and reused by every request; Close
// tears both down and is the shutdown contract for main.
package database

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edubattle/internal/config"
)

const connectTimeout = 5 * time.Second

// Clients bundles the shared Mongo and Redis handles.
type Clients struct {
	Mongo *mongo.Database
	Redis *redis.Client

	mongoClient *mongo.Client
	once        sync.Once
	err         error
	cfg         *config.Config
}

// New prepares a lazy client bundle; nothing connects until Init.
func New(cfg *config.Config) *Clients {
	return &Clients{cfg: cfg}
}

// Init connects both stores on first call and is a no-op afterwards, so a
// request path can call it defensively without paying for reconnects.
func (c *Clients) Init(ctx context.Context) error {
	c.once.Do(func() {
		cctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		client, err := mongo.Connect(cctx, options.Client().ApplyURI(c.cfg.MongoURI))
		if err != nil {
			c.err = err
			return
		}
		if err := client.Ping(cctx, nil); err != nil {
			c.err = err
			return
		}
		c.mongoClient = client
		c.Mongo = client.Database(c.cfg.MongoDatabase)

		rdb := redis.NewClient(&redis.Options{Addr: c.cfg.RedisAddr})
		if _, err := rdb.Ping(cctx).Result(); err != nil {
			c.err = err
			return
		}
		c.Redis = rdb
	})
	return c.err
}

// Close releases both handles. Safe to call once at shutdown; after Close
// the bundle must not be reused.
func (c *Clients) Close(ctx context.Context) error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
