// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package types 提供 mediagen 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm/video、llm/factory、
compare、storage 等上层模块提供统一的错误契约，避免循环依赖。

# 核心类型

  - Error / ErrorCode: 结构化错误体系，含 HTTP 状态码、Retryable、Provider、
    Detail（后端原始错误负载，原样保留）

# 错误分类

  - CONFIGURATION  : 未知模型名，仅由生成器注册表返回
  - CREDENTIAL     : 适配器构造时缺少密钥，消息中写明变量名
  - GENERATION     : 后端明确报告任务失败
  - TIMEOUT        : 轮询超出等待预算，任务真实结果未知
  - DOWNLOAD       : 后端成功但产物无法下载或保存
  - INVALID_REQUEST: 本地拒绝的请求（例如价格表中没有的分辨率）

IsSkippable 将前两类归为“跳过”，其余归为“错误”。
*/
package types
