package service

import (
	"context"
	"errors"
	"time"

	"github.com/edmark1434/Operational-Requisition-and-Procurement-Management-System-sub002/internal/shared/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LookupItem 分类下拉物料
type LookupItem struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LookupCache 分类 → 物料列表缓存，按分类显式失效
type LookupCache struct {
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

func NewLookupCache(store cache.Store, ttl time.Duration, logger *zap.Logger) *LookupCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &LookupCache{store: store, ttl: ttl, logger: logger}
}

func lookupKey(categoryID string) string {
	return "lookup:category_items:" + categoryID
}

// Items 读取分类物料，未命中时调用 load 并回填。加载失败降级为空列表
func (c *LookupCache) Items(ctx context.Context, categoryID string, load func(ctx context.Context) ([]LookupItem, error)) []LookupItem {
	var items []LookupItem
	err := c.store.Get(ctx, lookupKey(categoryID), &items)
	if err == nil {
		return items
	}
	if !errors.Is(err, cache.ErrMiss) && !errors.Is(err, cache.ErrDisabled) {
		c.logger.Warn("lookup cache read failed", zap.String("category_id", categoryID), zap.Error(err))
	}

	items, err = load(ctx)
	if err != nil {
		c.logger.Warn("category item lookup failed", zap.String("category_id", categoryID), zap.Error(err))
		return []LookupItem{}
	}
	if items == nil {
		items = []LookupItem{}
	}

	if err := c.store.Set(ctx, lookupKey(categoryID), items, c.ttl); err != nil && !errors.Is(err, cache.ErrDisabled) {
		c.logger.Warn("lookup cache write failed", zap.String("category_id", categoryID), zap.Error(err))
	}
	return items
}

// Invalidate 使分类缓存失效
func (c *LookupCache) Invalidate(ctx context.Context, categoryIDs ...string) {
	keys := make([]string, 0, len(categoryIDs))
	seen := make(map[string]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, lookupKey(id))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("lookup cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
