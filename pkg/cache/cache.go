package cache

import (
	"sync"
	"time"
)

// TTLCache 带过期时间的内存缓存。
// 用于缓存市场元数据这类短时间内重复查询的远端数据。
type TTLCache[K comparable, V any] struct {
	items      map[K]*item[V]
	mu         sync.RWMutex
	defaultTTL time.Duration
}

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache 创建缓存
func NewTTLCache[K comparable, V any](defaultTTL time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		items:      make(map[K]*item[V]),
		defaultTTL: defaultTTL,
	}
}

// Get 获取缓存值；过期视为不存在
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	it, exists := c.items[key]
	c.mu.RUnlock()

	if !exists || time.Now().After(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set 设置缓存值；ttl <= 0 时使用默认 TTL
func (c *TTLCache[K, V]) Set(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.items[key] = &item[V]{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete 删除缓存值
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Purge 清理所有已过期的缓存项
func (c *TTLCache[K, V]) Purge() {
	now := time.Now()
	c.mu.Lock()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Size 当前缓存项数量（含未清理的过期项）
func (c *TTLCache[K, V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
