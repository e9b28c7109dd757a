// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package main 提供 mediagen 命令行程序入口。

# 概述

cmd/mediagen 基于 cobra 组织子命令：compare 用同一提示词串行驱动多个
视频模型并写出 comparison_<timestamp>.json；models 列出注册表中的
模型、凭证状态与预估价格；upload 把文件或目录上传到对象存储；
ledger 查询历史花费；version 显示构建信息。

# 主要能力

  - 配置：--config 指定 YAML，MEDIAGEN_* 与通用凭证环境变量覆盖
  - 日志：zap，--log-level / --log-format 覆盖配置
  - 进度：compare 的结构化事件渲染到 stderr，对比表输出到 stdout
  - 指标：--metrics-file 写出 Prometheus textfile，可选推送 Pushgateway
  - 追踪：启用 telemetry 时每次运行与每个模型各一个 span
  - 退出码：只有 summary 无法写出时 compare 才返回非零
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
