// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package storage 将生成产物发布到对象存储。

# 后端

  - s3    : 通过 minio-go 访问 S3 兼容端点（Cloudflare R2 等）
  - rclone: 调用本机 rclone 的 copyto 子命令，沿用 rclone 自身的凭证配置
  - none  : 关闭发布，NewUploader 返回 ErrDisabled

两种后端都返回 public_base_url 下的公开 URL。UploadAll 与 UploadDir
使用 errgroup 限制并发，单个文件失败只记录在对应的 Outcome 中。
*/
package storage
