package filestorage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedStorage wraps a BlobStore and keeps signed URLs in redis.
// Entries live for half of the requested TTL so a cached URL always has at
// least that much validity left. Writes and deletes drop the entry.
// Redis failures are logged and the call falls through to the store.
type CachedStorage struct {
	BlobStore
	rdb    redis.Cmdable
	prefix string
	logger zerolog.Logger
}

// NewCachedStorage decorates store with a redis signed-URL cache.
func NewCachedStorage(store BlobStore, rdb redis.Cmdable, prefix string, logger zerolog.Logger) *CachedStorage {
	return &CachedStorage{
		BlobStore: store,
		rdb:       rdb,
		prefix:    prefix,
		logger:    logger.With().Str("component", "urlcache").Logger(),
	}
}

func (c *CachedStorage) key(bucket, path string) string {
	return c.prefix + "signed-url:" + bucket + ":" + path
}

// SignedURL returns a cached URL or asks the wrapped store for a new one.
func (c *CachedStorage) SignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error) {
	key := c.key(bucket, path)

	cached, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn().Err(err).Str("key", key).Msg("signed url cache read failed")
	}

	signed, err := c.BlobStore.SignedURL(ctx, bucket, path, ttl)
	if err != nil {
		return "", err
	}

	if keep := ttl / 2; keep > 0 {
		if err := c.rdb.Set(ctx, key, signed, keep).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("signed url cache write failed")
		}
	}
	return signed, nil
}

// Put stores the object and drops any cached URL for it.
func (c *CachedStorage) Put(ctx context.Context, obj Object) error {
	if err := c.BlobStore.Put(ctx, obj); err != nil {
		return err
	}
	c.invalidate(ctx, obj.Bucket, obj.Path)
	return nil
}

// Delete removes the object and its cached URL.
func (c *CachedStorage) Delete(ctx context.Context, bucket, path string) error {
	c.invalidate(ctx, bucket, path)
	return c.BlobStore.Delete(ctx, bucket, path)
}

// Get is not cached.
func (c *CachedStorage) Get(ctx context.Context, bucket, path string) (io.ReadCloser, error) {
	return c.BlobStore.Get(ctx, bucket, path)
}

func (c *CachedStorage) invalidate(ctx context.Context, bucket, path string) {
	if err := c.rdb.Del(ctx, c.key(bucket, path)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("bucket", bucket).Str("path", path).Msg("signed url cache invalidation failed")
	}
}
