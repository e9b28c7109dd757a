// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
包 video 提供统一的视频生成接口，适配 Google Veo 与 Replicate P-Video
两类后端。

# 概述

Generator 是所有后端适配器的能力集合：Name、EstimateCost、Generate。
上层（factory、compare）只依赖该接口，从不按具体类型分支。

两种适配模式：

  - 长任务轮询（Veo）：Submit 返回操作句柄，按 PollInterval 轮询，
    超出 MaxWait 返回 TIMEOUT；后端报错返回 GENERATION 并原样保留错误负载。
  - 同步调用（P-Video）：Runner 阻塞到预测完成，ExtractURL 把字符串、
    带 URL 的对象或列表统一成一个 URL，再下载。

# 核心类型

  - Result / ResultParams: 一次成功生成的不可变记录，Metadata 永不为 nil
  - Request: 生成参数，WithDefaults 填充时长、宽高比、分辨率默认值
  - OperationClient / Runner: 后端边界，REST 实现分别为 NewVeoRESTClient、
    NewReplicateRunner，测试中可注入假实现
  - VeoConfig / PVideoConfig: 显式凭证与调优参数，不读取环境变量

# 主要能力

  - 价格表：EstimateVeoCost、EstimatePVideoCost 为纯函数，无需构造适配器
  - 原子落盘：产物先写入同目录临时文件，校验非空后再 rename 到目标路径
  - 客户端限流（x/time/rate）与瞬时失败重试（llm/retry）
*/
package video
