package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "k", []string{"a", "b"}, 0))

	var got []string
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", 1, time.Minute))

	var v int
	require.NoError(t, c.Get(ctx, "k", &v))

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrMiss)
	assert.Equal(t, 0, c.Len())
}

func TestRedisCache_DisabledWithoutClient(t *testing.T) {
	ctx := context.Background()
	c := NewRedisCache(nil, "procurement")

	assert.False(t, c.Enabled())
	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrDisabled)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, time.Minute), ErrDisabled)
	assert.NoError(t, c.Delete(ctx, "k"))
}
