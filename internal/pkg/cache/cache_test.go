package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "degrees", []string{"a"}))
	var out []string
	hit, err := c.Get(ctx, "degrees", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.Invalidate(ctx))
}

// Runs against a real server when REDIS_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, &redis.Options{Addr: addr, DB: 15}, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	type entry struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Set(ctx, "degree:1", entry{Name: "Civil"}))

	var got entry
	hit, err := c.Get(ctx, "degree:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Civil", got.Name)

	require.NoError(t, c.Invalidate(ctx))
	hit, err = c.Get(ctx, "degree:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
