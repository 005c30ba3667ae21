package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/domain/entities/configitem"
)

const DefaultConfigCacheTTL = 5 * time.Minute

// ConfigProvider yields the ordered list a pipeline step is evaluated against.
// It never returns an empty list.
type ConfigProvider interface {
	Get(ctx context.Context, kind configitem.Kind) []configitem.Entry
}

type ConfigInvalidator interface {
	Invalidate(kinds ...configitem.Kind)
}

type cachedConfig struct {
	entries  []configitem.Entry
	loadedAt time.Time
}

// ConfigCache is a read-through TTL cache over the active configuration items.
// Empty results are not cached; the compiled-in fallback is served instead.
type ConfigCache struct {
	repo  configitem.Repository
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	entries map[configitem.Kind]cachedConfig
}

func NewConfigCache(repo configitem.Repository, ttl time.Duration) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultConfigCacheTTL
	}
	return &ConfigCache{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[configitem.Kind]cachedConfig),
	}
}

func (c *ConfigCache) Get(ctx context.Context, kind configitem.Kind) []configitem.Entry {
	c.mu.RLock()
	cached, ok := c.entries[kind]
	c.mu.RUnlock()
	if ok && c.now().Sub(cached.loadedAt) <= c.ttl {
		recordCacheRequest(string(kind), "hit")
		return cloneEntries(cached.entries)
	}
	recordCacheRequest(string(kind), "miss")

	v, err, _ := c.group.Do(string(kind), func() (any, error) {
		items, err := c.repo.ListActive(ctx, kind)
		if err != nil {
			return nil, err
		}
		entries := configitem.Entries(items)
		if len(entries) > 0 {
			c.mu.Lock()
			c.entries[kind] = cachedConfig{entries: entries, loadedAt: c.now()}
			c.mu.Unlock()
		}
		return entries, nil
	})
	if err != nil {
		logWithFields(ctx, logrus.WarnLevel, "config cache reload failed", logrus.Fields{
			"kind":  kind,
			"error": err.Error(),
			"stale": ok,
		})
		if ok {
			return cloneEntries(cached.entries)
		}
		recordCacheRequest(string(kind), "fallback")
		return configitem.Fallback(kind)
	}

	entries := v.([]configitem.Entry)
	if len(entries) == 0 {
		recordCacheRequest(string(kind), "fallback")
		return configitem.Fallback(kind)
	}
	return cloneEntries(entries)
}

// Invalidate drops the given kinds, or everything when none is given.
func (c *ConfigCache) Invalidate(kinds ...configitem.Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(kinds) == 0 {
		c.entries = make(map[configitem.Kind]cachedConfig)
		recordCacheInvalidate("")
		return
	}
	for _, k := range kinds {
		delete(c.entries, k)
		recordCacheInvalidate(string(k))
	}
}

func cloneEntries(in []configitem.Entry) []configitem.Entry {
	out := make([]configitem.Entry, len(in))
	copy(out, in)
	return out
}
