package redisx

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/blobstore"
)

var _ blobstore.StatCache = (*Cache)(nil)

// Нужен живой Redis: AUDIOSTORE_TEST_REDIS_ADDR=localhost:6379 go test ./...
func TestCache(t *testing.T) {
	addr := os.Getenv("AUDIOSTORE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AUDIOSTORE_TEST_REDIS_ADDR is not set")
	}

	ctx := context.Background()
	c := New(Config{Addr: addr}, zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(ctx))

	key := "audiostore:test:" + time.Now().Format(time.RFC3339Nano)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Set(ctx, key, []byte("payload"), time.Minute))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)

	require.NoError(t, c.Del(ctx, key))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Unreachable(t *testing.T) {
	c := New(Config{Addr: "127.0.0.1:1"}, zerolog.Nop())
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, c.Ping(ctx))
	_, err := c.Get(ctx, "k")
	assert.Error(t, err)
}
