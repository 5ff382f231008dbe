package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLookupCache_LoadsOnceUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	lc := NewLookupCache(cache.NewMemoryCache(), time.Minute, nil)

	calls := 0
	load := func(ctx context.Context) ([]LookupItem, error) {
		calls++
		return []LookupItem{{ID: "i1", Name: "Bolt", UnitPrice: decimal.NewFromInt(3)}}, nil
	}

	first := lc.Items(ctx, "cat-1", load)
	second := lc.Items(ctx, "cat-1", load)
	require.Len(t, first, 1)
	assert.Equal(t, "Bolt", second[0].Name)
	assert.Equal(t, 1, calls)

	// 其他分类互不影响
	lc.Items(ctx, "cat-2", load)
	assert.Equal(t, 2, calls)

	lc.Invalidate(ctx, "cat-1", "cat-1", "")
	lc.Items(ctx, "cat-1", load)
	assert.Equal(t, 3, calls)
	lc.Items(ctx, "cat-2", load)
	assert.Equal(t, 3, calls)
}

func TestLookupCache_LoaderFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	lc := NewLookupCache(cache.NewMemoryCache(), time.Minute, nil)

	items := lc.Items(ctx, "cat-1", func(ctx context.Context) ([]LookupItem, error) {
		return nil, errors.New("db down")
	})
	assert.NotNil(t, items)
	assert.Empty(t, items)

	// 失败结果不缓存
	calls := 0
	lc.Items(ctx, "cat-1", func(ctx context.Context) ([]LookupItem, error) {
		calls++
		return []LookupItem{}, nil
	})
	assert.Equal(t, 1, calls)
}

func TestLookupCache_DisabledStoreAlwaysLoads(t *testing.T) {
	ctx := context.Background()
	lc := NewLookupCache(cache.NewRedisCache(nil, "test"), 0, nil)

	calls := 0
	load := func(ctx context.Context) ([]LookupItem, error) {
		calls++
		return nil, nil
	}
	assert.Empty(t, lc.Items(ctx, "cat-1", load))
	lc.Items(ctx, "cat-1", load)
	assert.Equal(t, 2, calls)
}

func TestLookupStoreFallback(t *testing.T) {
	explicit := cache.NewMemoryCache()
	assert.Same(t, explicit, lookupStore(Deps{Cache: explicit}).(*cache.MemoryCache))

	// 未配置Redis时使用进程内缓存，仍然只加载一次
	store := lookupStore(Deps{})
	require.IsType(t, &cache.MemoryCache{}, store)
	lc := NewLookupCache(store, time.Minute, nil)
	calls := 0
	load := func(ctx context.Context) ([]LookupItem, error) {
		calls++
		return []LookupItem{{ID: "i1"}}, nil
	}
	lc.Items(context.Background(), "cat-1", load)
	lc.Items(context.Background(), "cat-1", load)
	assert.Equal(t, 1, calls)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	assert.IsType(t, &cache.RedisCache{}, lookupStore(Deps{Redis: rdb}))
}
