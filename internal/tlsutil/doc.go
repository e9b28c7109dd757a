// Package tlsutil 提供集中式 TLS 配置，
// 为视频提供商的 REST 客户端与对象存储上传提供安全加固的传输层（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
