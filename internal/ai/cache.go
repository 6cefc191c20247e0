package ai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

// Cache stores serialised blueprints by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheKey is the cache key for a result. Identical results share copy.
func CacheKey(res assessment.Result) string {
	return "blueprint:" + res.Digest()
}

// cachingWriter serves repeated results from the cache. Cache failures are
// logged and never fail the call.
type cachingWriter struct {
	next   Writer
	cache  Cache
	logger *slog.Logger
}

// NewCachingWriter wraps next with cache.
func NewCachingWriter(next Writer, cache Cache, logger *slog.Logger) Writer {
	return &cachingWriter{next: next, cache: cache, logger: logger}
}

func (c *cachingWriter) WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error) {
	key := CacheKey(res)

	b, ok, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		c.logger.Warn("ai: cache read failed", "key", key, "error", err)
	case ok:
		var bp Blueprint
		if err := json.Unmarshal(b, &bp); err == nil {
			c.logger.Debug("ai: cache hit", "key", key, "source", bp.Source)
			return bp, nil
		}
		c.logger.Warn("ai: discarding undecodable cache entry", "key", key)
	}

	bp, err := c.next.WriteBlueprint(ctx, res)
	if err != nil {
		return Blueprint{}, err
	}

	if b, err := json.Marshal(bp); err == nil {
		if err := c.cache.Set(ctx, key, b); err != nil {
			c.logger.Warn("ai: cache write failed", "key", key, "error", err)
		}
	}
	return bp, nil
}
