// Package objectstore wraps the MinIO client behind the small surface the
// gallery pipeline needs. One Client is constructed per process and shared;
// the underlying connection state is expensive to set up and re-creating it
// per request has proven flaky.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/onyxenersol/solarsite/internal/config"
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key     string
	Size    int64
	Created time.Time
}

// Store is the blob-store surface consumed by the downloader, the converted
// object cache and the reconciler. Implementations surface transport errors
// as returned errors so callers can branch without panics.
type Store interface {
	List(ctx context.Context) ([]ObjectInfo, error)
	DownloadBytes(ctx context.Context, key string) ([]byte, error)
	DownloadStream(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Client implements Store on top of MinIO/S3.
type Client struct {
	client *minio.Client
	bucket string
	region string
}

var _ Store = (*Client)(nil)

// New creates the shared MinIO client from the Config.
func New(cfg *config.Config) (*Client, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Client{client: client, bucket: cfg.Bucket, region: cfg.S3Region}, nil
}

// EnsureBucket makes sure the gallery bucket exists before use.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.bucket, err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
			return fmt.Errorf("make bucket %s: %w", c.bucket, err)
		}
	}
	return nil
}

// List enumerates every object in the bucket.
func (c *Client) List(ctx context.Context) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		out = append(out, ObjectInfo{Key: obj.Key, Size: obj.Size, Created: obj.LastModified})
	}
	return out, nil
}

// DownloadBytes fetches the whole object into memory in one call.
func (c *Client) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer obj.Close()
	buf, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf, nil
}

// DownloadStream opens the object for incremental reading. The caller owns
// the returned stream and must close it.
func (c *Client) DownloadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open object stream %s: %w", key, err)
	}
	// GetObject is lazy; probe so a missing key fails here, not mid-read.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}
	return obj, nil
}

// Upload stores data under key.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	if err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	return nil
}

// Delete removes the object under key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Exists probes for the object. Any probe failure reads as absence rather
// than an error so cache checks stay cheap for callers.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		return false, nil
	}
	return true, nil
}
