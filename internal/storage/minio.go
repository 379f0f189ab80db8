package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
)

// MinIOStorage stores media in a MinIO bucket.
type MinIOStorage struct {
	client  *minio.Client
	bucket  string
	region  string
	baseURL string
}

// NewMinIOStorage builds a client for the configured endpoint. No connection is
// made until the first upload.
func NewMinIOStorage(cfg config.ObjectStoreConfig) (*MinIOStorage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("minio storage: bucket is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("minio storage: endpoint is required")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}

	return &MinIOStorage{client: client, bucket: cfg.Bucket, region: cfg.Region, baseURL: baseURL}, nil
}

// Upload sends the file at localPath to the bucket, creating the bucket on first
// use, and removes the local copy.
func (s *MinIOStorage) Upload(ctx context.Context, localPath string) (Asset, error) {
	defer removeLocal(localPath)

	if err := s.ensureBucket(ctx); err != nil {
		return Asset{}, apperr.UploadFailed(err, "media upload failed")
	}

	key := objectKey(localPath)
	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType(localPath)})
	if err != nil {
		return Asset{}, apperr.UploadFailed(fmt.Errorf("minio storage upload %s: %w", key, err), "media upload failed")
	}

	logging.FromContext(ctx).Debug("media uploaded", "bucket", s.bucket, "key", key, "size", info.Size)
	return Asset{URL: publicURL(s.baseURL, s.bucket, key), PublicID: key, Size: info.Size}, nil
}

// Delete removes the object named by publicID.
func (s *MinIOStorage) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio storage delete %s: %w", publicID, err)
	}
	return nil
}

func (s *MinIOStorage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}
