// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的生成、发布与台账指标采集能力。

# 概述

Collector 持有私有 Registry，通过 promauto.With 注册全部指标。
mediagen 是一次性运行的命令行工具，没有常驻的 /metrics 端点，
因此指标在运行结束时导出：写入 node_exporter textfile 目录，
或推送到 Pushgateway。

# 主要能力

  - 生成指标：按 model/status 计数，成功生成的耗时 Histogram 与估算花费。
  - 对比指标：对比运行次数。
  - 发布指标：上传成功/失败计数。
  - 数据库指标：台账连接池 Gauge 与查询耗时 Histogram。
*/
package metrics
