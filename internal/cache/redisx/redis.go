// Package redisx — тонкая обёртка над go-redis для кэша описаний блобов.
package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	Addr     string
	DB       int
	Password string
}

type Cache struct {
	rdb *redis.Client
	log zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	return &Cache{rdb: rdb, log: log.With().Str("component", "redis").Logger()}
}

func (c *Cache) Ping(ctx context.Context) error {
	err := c.rdb.Ping(ctx).Err()
	if err != nil {
		c.log.Warn().Err(err).Msg("PING failed")
	}
	return err
}

func (c *Cache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Get возвращает nil, nil при промахе.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Trace().Str("key", key).Msg("GET miss")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.log.Trace().Str("key", key).Int("bytes", len(b)).Msg("GET hit")
	return b, nil
}

// Set с ttl <= 0 пишет ключ без срока жизни.
func (c *Cache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err == nil {
		c.log.Trace().Strs("keys", keys).Int64("deleted", n).Msg("DEL")
	}
	return err
}
