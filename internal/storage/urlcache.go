package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	pkgredis "github.com/framehaus/gallery-backend/internal/pkg/redis"
)

const urlCachePrefix = "presign:"

// URLCache caches presigned download URLs in Redis so repeated views
// of the same photo do not re-sign on every request. Entries expire
// before the underlying signature does.
type URLCache struct {
	client *pkgredis.Client
	logger *zap.Logger
}

func NewURLCache(client *pkgredis.Client, logger *zap.Logger) *URLCache {
	return &URLCache{client: client, logger: logger}
}

func cacheKey(objectKey string) string {
	return urlCachePrefix + objectKey
}

// Get returns the cached URL for an object key, or "" on a miss.
// Cache failures degrade to a miss rather than failing the request.
func (c *URLCache) Get(ctx context.Context, objectKey string) string {
	url, err := c.client.Get(ctx, cacheKey(objectKey))
	if err != nil {
		if !pkgredis.IsNil(err) {
			c.logger.Warn("url cache read failed",
				zap.String("object_key", objectKey),
				zap.Error(err))
		}
		return ""
	}
	return url
}

// Put stores a presigned URL with the given TTL
func (c *URLCache) Put(ctx context.Context, objectKey, url string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, cacheKey(objectKey), url, ttl); err != nil {
		c.logger.Warn("url cache write failed",
			zap.String("object_key", objectKey),
			zap.Error(err))
	}
}

// Invalidate drops cached URLs for the given object keys
func (c *URLCache) Invalidate(ctx context.Context, objectKeys ...string) {
	if len(objectKeys) == 0 {
		return
	}

	keys := make([]string, len(objectKeys))
	for i, k := range objectKeys {
		keys[i] = cacheKey(k)
	}

	if _, err := c.client.Del(ctx, keys...); err != nil {
		c.logger.Warn("url cache invalidation failed",
			zap.Int("keys", len(keys)),
			zap.Error(err))
	}
}

// InvalidateByPrefix drops every cached URL whose object key starts
// with the given prefix, used when a whole gallery goes away
func (c *URLCache) InvalidateByPrefix(ctx context.Context, prefix string) {
	keys, err := c.client.ScanKeys(ctx, cacheKey(prefix)+"*")
	if err != nil {
		c.logger.Warn("url cache prefix scan failed",
			zap.String("prefix", prefix),
			zap.Error(err))
		return
	}

	if len(keys) == 0 {
		return
	}

	if _, err := c.client.Del(ctx, keys...); err != nil {
		c.logger.Warn("url cache prefix invalidation failed",
			zap.String("prefix", prefix),
			zap.Error(err))
	}
}
