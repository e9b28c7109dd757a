// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package compare 用同一提示词依次驱动多个视频生成器，汇总耗时与花费。

# 运行流程

对 Options.Models 中的每个名字（按请求顺序）：

 1. 通过 GeneratorFactory 构造；CONFIGURATION/CREDENTIAL 错误记为 skipped。
 2. 调用 EstimateCost 报告预估花费；估价失败记为 error，不再生成。
 3. 调用 Generate；任何错误原样记为 error。
 4. 成功时累计 total_estimated_cost。

之后无条件写出 comparison_<timestamp>.json；只有该文件写不出来时
Run 才返回错误。Options.Publish 为真时，成功产物与 summary 上传到
video-compare/<timestamp>/ 下，公开 URL 回填到记录并重写本地 summary。

生成严格串行，同名模型在一次运行内只构造一次。进度通过 EventSink
以结构化事件发出，渲染由调用方负责；RenderTable 输出最终对比表。
*/
package compare
