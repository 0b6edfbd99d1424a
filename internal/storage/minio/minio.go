package minio

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/farmbud/backend/internal/domain"
)

// Config locates the object store
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Location  string
	Secure    bool
}

// ImageArchive implements domain.ImageArchive on MinIO / S3
type ImageArchive struct {
	client *minio.Client
	bucket string
}

// NewImageArchive connects and makes sure the bucket exists
func NewImageArchive(ctx context.Context, cfg Config, log *zap.Logger) (*ImageArchive, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: failed to initialize client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Location}); err != nil {
			return nil, fmt.Errorf("minio: failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("created image bucket", zap.String("bucket", cfg.Bucket))
	}

	return &ImageArchive{client: client, bucket: cfg.Bucket}, nil
}

// Store uploads the image under key
func (a *ImageArchive) Store(ctx context.Context, key string, upload domain.ImageUpload) error {
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := a.client.PutObject(ctx, a.bucket, key,
		bytes.NewReader(upload.Data), int64(len(upload.Data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: map[string]string{"original-name": upload.Filename},
		})
	if err != nil {
		return fmt.Errorf("minio: failed to store %s: %w", key, err)
	}
	return nil
}
