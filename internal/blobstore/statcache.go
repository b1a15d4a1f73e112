package blobstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/models"
)

const statKeyPrefix = "blob:stat:"

// StatCache — key/value кэш (Redis) для описаний блобов. Промах: nil, nil.
type StatCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// cachedStore кэширует Stat; блоб неизменяем после коммита, поэтому инвалидировать нужно только при Delete.
type cachedStore struct {
	Store
	cache StatCache
	ttl   time.Duration
	log   zerolog.Logger
}

// WithStatCache оборачивает хранилище кэшем Stat. Ошибки кэша не ломают запрос.
func WithStatCache(st Store, cache StatCache, ttl time.Duration, log zerolog.Logger) Store {
	if cache == nil {
		return st
	}

	return &cachedStore{
		Store: st,
		cache: cache,
		ttl:   ttl,
		log:   log.With().Str("component", "statcache").Logger(),
	}
}

func (c *cachedStore) Stat(ctx context.Context, id models.BlobID) (models.BlobInfo, error) {
	key := statKeyPrefix + id.String()

	b, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	case b != nil:
		var info models.BlobInfo
		if err := json.Unmarshal(b, &info); err == nil {
			return info, nil
		}
		c.log.Warn().Str("key", key).Msg("cache entry corrupted")
	}

	info, err := c.Store.Stat(ctx, id)
	if err != nil {
		return models.BlobInfo{}, err
	}

	if b, err := json.Marshal(info); err == nil {
		if err := c.cache.Set(ctx, key, b, c.ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
		}
	}

	return info, nil
}

func (c *cachedStore) Delete(ctx context.Context, id models.BlobID) error {
	err := c.Store.Delete(ctx, id)
	if derr := c.cache.Del(ctx, statKeyPrefix+id.String()); derr != nil {
		c.log.Warn().Err(derr).Str("id", id.String()).Msg("cache del failed")
	}

	return err
}

func (c *cachedStore) Ping(ctx context.Context) error {
	if p, ok := c.Store.(Pinger); ok {
		return p.Ping(ctx)
	}

	return nil
}
