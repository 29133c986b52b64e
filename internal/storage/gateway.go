package storage

import (
	"bytes"
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
	pkgminio "github.com/framehaus/gallery-backend/internal/pkg/minio"
)

// Config holds the gateway settings
type Config struct {
	Bucket string
	// PresignExpiry is the signature lifetime for upload and download URLs
	PresignExpiry time.Duration
	// CacheSafetyBuffer is subtracted from PresignExpiry for the cache
	// TTL so a cached URL always expires before its signature
	CacheSafetyBuffer time.Duration
	// DeleteBatchSize caps keys per bulk delete request, at most 1000
	DeleteBatchSize int
}

// Gateway is the single entry point to the object store. It owns key
// layout, presigned URL caching and batched deletion.
type Gateway struct {
	client *pkgminio.Client
	cache  *URLCache
	config Config
	logger *zap.Logger
}

func NewGateway(client *pkgminio.Client, cache *URLCache, config Config, logger *zap.Logger) *Gateway {
	if config.DeleteBatchSize <= 0 || config.DeleteBatchSize > 1000 {
		config.DeleteBatchSize = 1000
	}
	return &Gateway{
		client: client,
		cache:  cache,
		config: config,
		logger: logger,
	}
}

// PresignUpload returns a presigned PUT URL for direct client upload
func (g *Gateway) PresignUpload(ctx context.Context, objectKey string) (string, error) {
	u, err := g.client.PresignedPutObject(ctx, g.config.Bucket, objectKey, g.config.PresignExpiry)
	if err != nil {
		return "", apperrors.NewStorageError(err, "presign upload")
	}
	return u.String(), nil
}

// PresignDownload returns a presigned GET URL, served from the cache
// when a still-valid entry exists
func (g *Gateway) PresignDownload(ctx context.Context, objectKey string) (string, error) {
	if cached := g.cache.Get(ctx, objectKey); cached != "" {
		return cached, nil
	}

	u, err := g.client.PresignedGetObject(ctx, g.config.Bucket, objectKey, g.config.PresignExpiry, nil)
	if err != nil {
		return "", apperrors.NewStorageError(err, "presign download")
	}

	url := u.String()
	g.cache.Put(ctx, objectKey, url, g.config.PresignExpiry-g.config.CacheSafetyBuffer)
	return url, nil
}

// Put uploads object bytes directly, used for generated thumbnails
func (g *Gateway) Put(ctx context.Context, objectKey string, data []byte, contentType string) error {
	_, err := g.client.PutObject(ctx, g.config.Bucket, objectKey, bytes.NewReader(data), int64(len(data)), pkgminio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.NewStorageError(err, "put object")
	}
	return nil
}

// Get downloads an object into memory. Missing objects come back as
// ErrObjectNotFound so callers can distinguish them from transient
// backend failures.
func (g *Gateway) Get(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := g.client.GetObject(ctx, g.config.Bucket, objectKey, pkgminio.GetObjectOptions{})
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return nil, apperrors.New(apperrors.ErrObjectNotFound, objectKey)
		}
		return nil, apperrors.NewStorageError(err, "get object")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return nil, apperrors.New(apperrors.ErrObjectNotFound, objectKey)
		}
		return nil, apperrors.NewStorageError(err, "read object")
	}

	return data, nil
}

// Exists reports whether an object is present in the bucket
func (g *Gateway) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := g.client.StatObject(ctx, g.config.Bucket, objectKey, pkgminio.StatObjectOptions{})
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return false, nil
		}
		return false, apperrors.NewStorageError(err, "stat object")
	}
	return true, nil
}

// Delete removes a single object and drops its cached URL
func (g *Gateway) Delete(ctx context.Context, objectKey string) error {
	if err := g.client.RemoveObject(ctx, g.config.Bucket, objectKey, pkgminio.RemoveObjectOptions{}); err != nil {
		return apperrors.NewStorageError(err, "delete object")
	}
	g.cache.Invalidate(ctx, objectKey)
	return nil
}

// DeleteBatch removes the given keys in chunks that respect the
// backend's per-request limit. It returns the number of objects
// actually deleted; per-object failures are logged and skipped.
func (g *Gateway) DeleteBatch(ctx context.Context, objectKeys []string) (int, error) {
	if len(objectKeys) == 0 {
		return 0, nil
	}

	deleted := 0
	var invalidate []string
	for _, chunk := range chunkKeys(objectKeys, g.config.DeleteBatchSize) {
		n, failures, err := g.client.RemoveObjects(ctx, g.config.Bucket, chunk)
		if err != nil {
			if len(invalidate) > 0 {
				g.cache.Invalidate(ctx, invalidate...)
			}
			return deleted, apperrors.NewStorageError(err, "batch delete")
		}
		deleted += n
		invalidate = append(invalidate, deletedKeys(chunk, failures)...)
		if len(failures) > 0 {
			g.logger.Warn("some objects were not deleted",
				zap.Int("failed", len(failures)))
		}
	}

	if len(invalidate) > 0 {
		g.cache.Invalidate(ctx, invalidate...)
	}
	return deleted, nil
}

// deletedKeys filters a delete chunk down to the keys the backend
// actually removed, so only their cached URLs get dropped
func deletedKeys(chunk []string, failures []pkgminio.RemoveResult) []string {
	if len(failures) == 0 {
		return chunk
	}

	failed := make(map[string]struct{}, len(failures))
	for _, f := range failures {
		failed[f.ObjectName] = struct{}{}
	}

	kept := make([]string, 0, len(chunk)-len(failures))
	for _, key := range chunk {
		if _, ok := failed[key]; !ok {
			kept = append(kept, key)
		}
	}
	return kept
}

// ListByPrefix returns every object key under the given prefix
func (g *Gateway) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	objCh, errCh := g.client.ListObjects(ctx, g.config.Bucket, pkgminio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var keys []string
	for obj := range objCh {
		keys = append(keys, obj.Key)
	}

	if err := <-errCh; err != nil {
		return nil, apperrors.NewStorageError(err, "list objects")
	}

	return keys, nil
}

// Rename moves an object by copy-then-delete, the only move primitive
// S3-compatible stores offer. When the copy succeeds but the delete of
// the old key fails, the rename is reported successful and the stale
// source object is left for the reconciliation sweep; losing the
// object would be worse than briefly storing it twice.
func (g *Gateway) Rename(ctx context.Context, oldKey, newKey string) error {
	_, err := g.client.CopyObject(ctx,
		pkgminio.CopyDestOptions{Bucket: g.config.Bucket, Object: newKey},
		pkgminio.CopySrcOptions{Bucket: g.config.Bucket, Object: oldKey},
	)
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return apperrors.New(apperrors.ErrObjectNotFound, oldKey)
		}
		return apperrors.NewStorageError(err, "copy object")
	}

	if err := g.client.RemoveObject(ctx, g.config.Bucket, oldKey, pkgminio.RemoveObjectOptions{}); err != nil {
		g.logger.Error("failed to remove source object after copy",
			zap.String("old_key", oldKey),
			zap.String("new_key", newKey),
			zap.Error(err))
	}

	g.cache.Invalidate(ctx, oldKey, newKey)
	return nil
}

// InvalidateCachedURLs drops cached download URLs for a gallery prefix
func (g *Gateway) InvalidateCachedURLs(ctx context.Context, prefix string) {
	g.cache.InvalidateByPrefix(ctx, prefix)
}

func chunkKeys(keys []string, size int) [][]string {
	var chunks [][]string
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}
