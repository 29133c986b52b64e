package minio

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PutObjectOptions represents options for uploading an object
type PutObjectOptions struct {
	// ContentType is the content type of the object
	ContentType string
	// UserMetadata is custom metadata for the object
	UserMetadata map[string]string
	// CacheControl sets the cache control header
	CacheControl string
	// ContentDisposition sets the content disposition header
	ContentDisposition string
}

// GetObjectOptions represents options for downloading an object
type GetObjectOptions struct {
	// VersionID specifies the version of the object to retrieve
	VersionID string
}

// StatObjectOptions represents options for getting object metadata
type StatObjectOptions struct {
	// VersionID specifies the version of the object
	VersionID string
}

// RemoveObjectOptions represents options for removing an object
type RemoveObjectOptions struct {
	// VersionID specifies the version of the object to remove
	VersionID string
	// ForceDelete forces deletion even if object is locked
	ForceDelete bool
}

// CopyDestOptions represents destination options for copying an object
type CopyDestOptions struct {
	// Bucket is the destination bucket name
	Bucket string
	// Object is the destination object name
	Object string
}

// CopySrcOptions represents source options for copying an object
type CopySrcOptions struct {
	// Bucket is the source bucket name
	Bucket string
	// Object is the source object name
	Object string
}

// UploadInfo represents information about an uploaded object
type UploadInfo struct {
	Bucket       string
	Key          string
	ETag         string
	Size         int64
	LastModified string
	Location     string
	VersionID    string
}

// RemoveResult reports a per-object failure from a batch removal
type RemoveResult struct {
	ObjectName string
	Err        error
}

// PutObject uploads an object to a bucket
func (c *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts PutObjectOptions) (UploadInfo, error) {
	if err := c.checkClosed(); err != nil {
		return UploadInfo{}, err
	}

	if bucketName == "" {
		return UploadInfo{}, WrapError("PutObject", ErrInvalidBucketName, bucketName, objectName)
	}

	if objectName == "" {
		return UploadInfo{}, WrapError("PutObject", ErrInvalidObjectName, bucketName, objectName)
	}

	minioOpts := minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		UserMetadata:       opts.UserMetadata,
		CacheControl:       opts.CacheControl,
		ContentDisposition: opts.ContentDisposition,
	}

	info, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize, minioOpts)
	if err != nil {
		return UploadInfo{}, WrapError("PutObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Debug("object uploaded",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
			zap.Int64("size", info.Size),
		)
	}

	return UploadInfo{
		Bucket:       info.Bucket,
		Key:          info.Key,
		ETag:         info.ETag,
		Size:         info.Size,
		LastModified: info.LastModified.Format("2006-01-02 15:04:05"),
		Location:     info.Location,
		VersionID:    info.VersionID,
	}, nil
}

// GetObject downloads an object from a bucket
func (c *Client) GetObject(ctx context.Context, bucketName, objectName string, opts GetObjectOptions) (*minio.Object, error) {
	if err := c.checkClosed(); err != nil {
		return nil, err
	}

	if bucketName == "" {
		return nil, WrapError("GetObject", ErrInvalidBucketName, bucketName, objectName)
	}

	if objectName == "" {
		return nil, WrapError("GetObject", ErrInvalidObjectName, bucketName, objectName)
	}

	minioOpts := minio.GetObjectOptions{}
	if opts.VersionID != "" {
		minioOpts.VersionID = opts.VersionID
	}

	object, err := c.client.GetObject(ctx, bucketName, objectName, minioOpts)
	if err != nil {
		return nil, WrapError("GetObject", err, bucketName, objectName)
	}

	return object, nil
}

// StatObject gets object metadata
func (c *Client) StatObject(ctx context.Context, bucketName, objectName string, opts StatObjectOptions) (ObjectInfo, error) {
	if err := c.checkClosed(); err != nil {
		return ObjectInfo{}, err
	}

	if bucketName == "" {
		return ObjectInfo{}, WrapError("StatObject", ErrInvalidBucketName, bucketName, objectName)
	}

	if objectName == "" {
		return ObjectInfo{}, WrapError("StatObject", ErrInvalidObjectName, bucketName, objectName)
	}

	minioOpts := minio.StatObjectOptions{}
	if opts.VersionID != "" {
		minioOpts.VersionID = opts.VersionID
	}

	info, err := c.client.StatObject(ctx, bucketName, objectName, minioOpts)
	if err != nil {
		return ObjectInfo{}, WrapError("StatObject", err, bucketName, objectName)
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified.Format("2006-01-02 15:04:05"),
		ContentType:  info.ContentType,
		Metadata:     info.UserMetadata,
	}, nil
}

// RemoveObject removes an object from a bucket
func (c *Client) RemoveObject(ctx context.Context, bucketName, objectName string, opts RemoveObjectOptions) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	if bucketName == "" {
		return WrapError("RemoveObject", ErrInvalidBucketName, bucketName, objectName)
	}

	if objectName == "" {
		return WrapError("RemoveObject", ErrInvalidObjectName, bucketName, objectName)
	}

	minioOpts := minio.RemoveObjectOptions{
		VersionID:   opts.VersionID,
		ForceDelete: opts.ForceDelete,
	}

	err := c.client.RemoveObject(ctx, bucketName, objectName, minioOpts)
	if err != nil {
		return WrapError("RemoveObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Debug("object removed",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
		)
	}

	return nil
}

// RemoveObjects removes multiple objects from a bucket in one backend call.
// It returns the number of objects deleted; per-object failures come back as
// RemoveResult entries rather than a call-level error.
func (c *Client) RemoveObjects(ctx context.Context, bucketName string, objectNames []string) (int, []RemoveResult, error) {
	if err := c.checkClosed(); err != nil {
		return 0, nil, err
	}

	if bucketName == "" {
		return 0, nil, WrapError("RemoveObjects", ErrInvalidBucketName, bucketName, "")
	}

	if len(objectNames) == 0 {
		return 0, nil, nil
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, name := range objectNames {
			select {
			case objectsCh <- minio.ObjectInfo{Key: name}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var failures []RemoveResult
	for removeErr := range c.client.RemoveObjects(ctx, bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		failures = append(failures, RemoveResult{
			ObjectName: removeErr.ObjectName,
			Err:        removeErr.Err,
		})
		if c.logger != nil {
			c.logger.Warn("object removal failed in batch",
				zap.String("bucket", bucketName),
				zap.String("object", removeErr.ObjectName),
				zap.Error(removeErr.Err),
			)
		}
	}

	deleted := len(objectNames) - len(failures)

	if c.logger != nil {
		c.logger.Debug("batch removal completed",
			zap.String("bucket", bucketName),
			zap.Int("requested", len(objectNames)),
			zap.Int("deleted", deleted),
			zap.Int("failed", len(failures)),
		)
	}

	return deleted, failures, nil
}

// CopyObject copies an object from source to destination
func (c *Client) CopyObject(ctx context.Context, dst CopyDestOptions, src CopySrcOptions) (UploadInfo, error) {
	if err := c.checkClosed(); err != nil {
		return UploadInfo{}, err
	}

	if dst.Bucket == "" || dst.Object == "" {
		return UploadInfo{}, WrapErrorWithMessage("CopyObject", ErrInvalidArgument, "destination bucket and object are required")
	}

	if src.Bucket == "" || src.Object == "" {
		return UploadInfo{}, WrapErrorWithMessage("CopyObject", ErrInvalidArgument, "source bucket and object are required")
	}

	srcOpts := minio.CopySrcOptions{
		Bucket: src.Bucket,
		Object: src.Object,
	}

	dstOpts := minio.CopyDestOptions{
		Bucket: dst.Bucket,
		Object: dst.Object,
	}

	info, err := c.client.CopyObject(ctx, dstOpts, srcOpts)
	if err != nil {
		return UploadInfo{}, WrapError("CopyObject", err, src.Bucket, src.Object)
	}

	if c.logger != nil {
		c.logger.Debug("object copied",
			zap.String("src_object", src.Object),
			zap.String("dst_object", dst.Object),
		)
	}

	return UploadInfo{
		Bucket:       info.Bucket,
		Key:          info.Key,
		ETag:         info.ETag,
		Size:         info.Size,
		LastModified: info.LastModified.Format("2006-01-02 15:04:05"),
		Location:     info.Location,
		VersionID:    info.VersionID,
	}, nil
}
