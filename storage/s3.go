package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/internal/tlsutil"
)

// S3Uploader 通过 S3 兼容 API（Cloudflare R2、MinIO 等）上传
type S3Uploader struct {
	client     *minio.Client
	bucket     string
	publicBase string
	logger     *zap.Logger
}

// NewS3Uploader 创建 S3 上传器
func NewS3Uploader(cfg config.StorageConfig, logger *zap.Logger) (*S3Uploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 storage requires endpoint and bucket")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("s3 storage requires credentials (%s / %s)",
			config.EnvR2AccessKeyID, config.EnvR2SecretKey)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: tlsutil.SecureTransport(tlsutil.WithResponseHeaderTimeout(time.Minute)),
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &S3Uploader{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		logger:     logger.With(zap.String("component", "s3_uploader")),
	}, nil
}

// Upload 实现 Uploader
func (u *S3Uploader) Upload(ctx context.Context, localPath, remotePath string) (string, error) {
	key := strings.TrimPrefix(remotePath, "/")
	info, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to %s/%s: %w", localPath, u.bucket, key, err)
	}

	u.logger.Debug("object uploaded",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size),
	)

	if u.publicBase != "" {
		return PublicURL(u.publicBase, key)
	}
	return PublicURL(u.client.EndpointURL().String(), u.bucket+"/"+key)
}
