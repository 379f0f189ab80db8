package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/config"
	"github.com/vidtube/backend/internal/logging"
)

// S3Storage stores media in an S3-compatible bucket.
type S3Storage struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		client:   client,
		uploader: uploader,
		bucket:   cfg.Bucket,
		baseURL:  cfg.PublicBaseURL,
	}, nil
}

// Upload sends the file at localPath to the bucket and removes the local copy.
func (s *S3Storage) Upload(ctx context.Context, localPath string) (Asset, error) {
	defer removeLocal(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return Asset{}, apperr.UploadFailed(err, "media file could not be read")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Asset{}, apperr.UploadFailed(err, "media file could not be read")
	}

	key := objectKey(localPath)
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
		ACL:         s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return Asset{}, apperr.UploadFailed(fmt.Errorf("s3 storage upload %s: %w", key, err), "media upload failed")
	}

	logging.FromContext(ctx).Debug("media uploaded", "bucket", s.bucket, "key", key, "size", info.Size())
	return Asset{URL: publicURL(s.baseURL, s.bucket, key), PublicID: key, Size: info.Size()}, nil
}

// Delete removes the object named by publicID.
func (s *S3Storage) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 storage delete %s: %w", publicID, err)
	}
	return nil
}
