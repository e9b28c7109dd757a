package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/config"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).CombinedOutput() //nolint:gosec
}

// RcloneOption configures the rclone uploader.
type RcloneOption func(*RcloneUploader)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(e Executor) RcloneOption {
	return func(u *RcloneUploader) {
		if e != nil {
			u.exec = e
		}
	}
}

// RcloneUploader 调用 `rclone copyto` 上传，凭证由 rclone 自身配置管理
type RcloneUploader struct {
	binary     string
	remote     string
	bucket     string
	publicBase string
	exec       Executor
	logger     *zap.Logger
}

// NewRcloneUploader 创建 rclone 上传器
func NewRcloneUploader(cfg config.StorageConfig, logger *zap.Logger, opts ...RcloneOption) (*RcloneUploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RcloneRemote == "" || cfg.Bucket == "" {
		return nil, errors.New("rclone storage requires rclone_remote and bucket")
	}
	if cfg.PublicBaseURL == "" {
		return nil, errors.New("rclone storage requires public_base_url")
	}
	binary := strings.TrimSpace(cfg.RcloneBinary)
	if binary == "" {
		binary = "rclone"
	}

	u := &RcloneUploader{
		binary:     binary,
		remote:     cfg.RcloneRemote,
		bucket:     cfg.Bucket,
		publicBase: cfg.PublicBaseURL,
		exec:       commandExecutor{},
		logger:     logger.With(zap.String("component", "rclone_uploader")),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// Upload 实现 Uploader
func (u *RcloneUploader) Upload(ctx context.Context, localPath, remotePath string) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", fmt.Errorf("upload %s: %w", localPath, err)
	}
	key := strings.TrimPrefix(remotePath, "/")
	dest := fmt.Sprintf("%s:%s/%s", u.remote, u.bucket, key)

	out, err := u.exec.Run(ctx, u.binary, []string{"copyto", localPath, dest})
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("rclone copyto %s: %w", dest, err)
		}
		return "", fmt.Errorf("rclone copyto %s: %w: %s", dest, err, msg)
	}

	u.logger.Debug("object uploaded", zap.String("dest", dest))
	return PublicURL(u.publicBase, key)
}
