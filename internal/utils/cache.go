package utils

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem 包装缓存数据和过期时间
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// Cache 进程内 LRU 缓存，条目带 TTL
type Cache struct {
	lruCache *lru.Cache[string, CacheItem]
	ttl      time.Duration
}

// NewCache 创建指定容量和默认 TTL 的缓存
func NewCache(size int, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = 500
	}
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lruCache: l, ttl: ttl}, nil
}

// Set 使用默认 TTL 写入
func (c *Cache) Set(key string, data any) {
	c.SetWithTTL(key, data, c.ttl)
}

// SetWithTTL 设置缓存，TTL 为过期时间
func (c *Cache) SetWithTTL(key string, data any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get 获取缓存，不存在或已过期返回 false
func (c *Cache) Get(key string) (any, bool) {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil, false
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil, false
	}

	return val.Data, true
}

// DeletePrefix 删除所有以 prefix 开头的键
func (c *Cache) DeletePrefix(prefix string) {
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lruCache.Remove(key)
		}
	}
}

func (c *Cache) Len() int {
	return c.lruCache.Len()
}
