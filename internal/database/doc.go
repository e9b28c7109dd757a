// Copyright (c) mediagen Authors.
// Licensed under the MIT License.

/*
包 database 提供基于 GORM 的数据库打开与连接池管理，供生成台账使用。

# 概述

Open 根据 config.DatabaseConfig 选择方言（sqlite 使用纯 Go 的
glebarez 驱动，另支持 postgres 与 mysql），打开后交给 PoolManager
统一管理连接池参数、统计与事务。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Observe()、Close() 等方法。
  - PoolConfig：最大空闲连接数、最大打开连接数与连接生命周期。
  - StatsRecorder：查询耗时与连接数的指标接收方。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - 事务管理：WithTransaction 单次执行，WithTransactionRetry 对死锁、
    序列化失败、sqlite 忙等错误做指数退避重试。
  - 指标：Observe 包裹一次操作，上报耗时与当前连接数。
*/
package database
