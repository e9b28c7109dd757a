package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/mediagen/config"
)

// Uploader 将本地文件发布到对象存储，返回公开访问 URL
type Uploader interface {
	Upload(ctx context.Context, localPath, remotePath string) (string, error)
}

// ErrDisabled 表示配置中未启用任何存储后端
var ErrDisabled = errors.New("storage backend disabled")

// NewUploader 按配置构造上传器。backend 为 none 或空时返回 ErrDisabled。
func NewUploader(cfg config.StorageConfig, logger *zap.Logger) (Uploader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "s3":
		u, err := NewS3Uploader(cfg, logger)
		if err != nil {
			return nil, err
		}
		return u, nil
	case "rclone":
		u, err := NewRcloneUploader(cfg, logger)
		if err != nil {
			return nil, err
		}
		return u, nil
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// PublicURL 拼接公开基础 URL 与对象路径
func PublicURL(base, remotePath string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", errors.New("public base url is empty")
	}
	return url.JoinPath(base, strings.Split(strings.TrimPrefix(remotePath, "/"), "/")...)
}

// =============================================================================
// 批量上传
// =============================================================================

// Item 是一次上传任务
type Item struct {
	Local  string
	Remote string
}

// Outcome 是单个上传任务的结果，Err 非空时 URL 为空
type Outcome struct {
	Item
	URL string
	Err error
}

// UploadAll 以最多 concurrency 个并发上传 items。
// 单个失败不会中断其他任务，结果顺序与 items 一致。
func UploadAll(ctx context.Context, up Uploader, items []Item, concurrency int) []Outcome {
	if concurrency <= 0 {
		concurrency = 1
	}
	out := make([]Outcome, len(items))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = Outcome{Item: it, Err: err}
				return nil
			}
			u, err := up.Upload(ctx, it.Local, it.Remote)
			out[i] = Outcome{Item: it, URL: u, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// UploadDir 递归上传目录下的所有常规文件到 remotePrefix 下
func UploadDir(ctx context.Context, up Uploader, localDir, remotePrefix string, concurrency int) ([]Outcome, error) {
	var items []Item
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		items = append(items, Item{
			Local:  p,
			Remote: path.Join(strings.TrimSuffix(remotePrefix, "/"), filepath.ToSlash(rel)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localDir, err)
	}
	return UploadAll(ctx, up, items, concurrency), nil
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ContentType 按扩展名推断 MIME 类型
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
