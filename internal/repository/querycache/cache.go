// Package querycache stores validated query sets in a key-value store keyed by model and prompt.
package querycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/db"
	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/parser"
)

var cacheKeyPrefix = domain.KeyPrefix + "queryset:"

// store is the consumer interface for the query cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Cache is a best-effort QuerySet cache. Errors are logged, never returned.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a query cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached set for model and prompt. Sets that are not ten unique
// non-empty queries are misses.
func (c *Cache) Get(ctx context.Context, model, prompt string) (domain.QuerySet, bool) {
	key := Key(model, prompt)

	qs, ok := c.get(ctx, key)
	if !ok {
		c.incCache("miss")
		return nil, false
	}
	c.incCache("hit")
	return qs, true
}

// Put stores a complete set. Incomplete sets are ignored.
func (c *Cache) Put(ctx context.Context, model, prompt string, qs domain.QuerySet) {
	if !qs.Complete() {
		return
	}
	key := Key(model, prompt)
	data, err := json.Marshal(qs)
	if err != nil {
		c.logger.Warn("Failed to encode query set", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache query set", zap.String("key", key), zap.Error(err))
	}
}

// Key derives the cache key from model and prompt.
func Key(model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) get(ctx context.Context, key string) (domain.QuerySet, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached query set", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var qs domain.QuerySet
	if err := json.Unmarshal(data, &qs); err != nil {
		c.logger.Warn("Failed to parse cached query set", zap.String("key", key), zap.Error(err))
		c.evict(ctx, key)
		return nil, false
	}
	clean := parser.Dedupe(qs)
	if !qs.Complete() || !clean.Complete() {
		c.logger.Debug("Cached query set is incomplete",
			zap.String("key", key),
			zap.Int("size", len(qs)),
			zap.Int("unique", len(clean)),
		)
		c.evict(ctx, key)
		return nil, false
	}
	return clean, true
}

// evict drops an unusable entry so the next run regenerates it.
func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.logger.Warn("Failed to evict cached query set", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
