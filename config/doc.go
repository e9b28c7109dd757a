// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

// Package config 提供 mediagen 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → MEDIAGEN_* 环境变量 的顺序叠加，
// 最后由 GEMINI_API_KEY、REPLICATE_API_TOKEN、R2_ACCESS_KEY_ID、
// R2_SECRET_ACCESS_KEY 等通用变量填充仍为空的凭证字段。
package config
