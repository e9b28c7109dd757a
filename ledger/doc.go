// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
Package ledger 持久化每次对比运行的逐模型结果，用于跨运行统计花费。

Store 实现 compare.LedgerWriter：每个 summary 展开为若干
GenerationRecord 并在一个事务中写入。SpendByModel 按模型聚合
success 记录的估算花费，Recent 列出最近的记录。

支持 sqlite（纯 Go 驱动）、postgres 与 mysql，打开时自动迁移表结构。
*/
package ledger
