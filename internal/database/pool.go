package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/mediagen/config"
)

// =============================================================================
// 🗄️ 数据库连接池管理器
// =============================================================================

// StatsRecorder 接收连接池与查询指标，由 internal/metrics.Collector 实现
type StatsRecorder interface {
	RecordDBConnections(database string, open, idle int)
	RecordDBQuery(database, operation string, duration time.Duration)
}

// PoolManager 数据库连接池管理器
type PoolManager struct {
	db       *gorm.DB
	sqlDB    *sql.DB
	name     string
	logger   *zap.Logger
	recorder StatsRecorder
	mu       sync.RWMutex
	closed   bool
}

// PoolConfig 连接池配置
type PoolConfig struct {
	// 最大空闲连接数
	MaxIdleConns int `yaml:"max_idle_conns" json:"max_idle_conns"`

	// 最大打开连接数
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultPoolConfig 返回默认连接池配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    2,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
	}
}

// PoolConfigFrom 从 DatabaseConfig 读取连接池参数，未设置的字段取默认值
func PoolConfigFrom(cfg config.DatabaseConfig) PoolConfig {
	pc := DefaultPoolConfig()
	if cfg.MaxOpenConns > 0 {
		pc.MaxOpenConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		pc.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pc.ConnMaxLifetime = cfg.ConnMaxLifetime
	}
	return pc
}

// Dialector 按驱动名返回 GORM 方言。sqlite 使用纯 Go 的 glebarez 驱动。
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "":
		name := cfg.Name
		if name == "" {
			name = ":memory:"
		}
		return sqlite.Open(name), nil
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Open 按配置打开数据库并创建连接池管理器
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*PoolManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}

	pool := PoolConfigFrom(cfg)
	if dialector.Name() == "sqlite" {
		// sqlite 单写者；:memory: 下每个连接都是独立的库
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	return NewPoolManager(db, pool, logger)
}

// NewPoolManager 创建连接池管理器
func NewPoolManager(db *gorm.DB, config PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// 配置连接池
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	pm := &PoolManager{
		db:     db,
		sqlDB:  sqlDB,
		name:   db.Dialector.Name(),
		logger: logger.With(zap.String("component", "db_pool")),
	}

	pm.logger.Debug("database pool initialized",
		zap.String("driver", pm.name),
		zap.Int("max_idle_conns", config.MaxIdleConns),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Duration("conn_max_lifetime", config.ConnMaxLifetime),
	)

	return pm, nil
}

// SetRecorder 设置指标接收方；nil 关闭上报
func (pm *PoolManager) SetRecorder(r StatsRecorder) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.recorder = r
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// DB 返回 GORM 数据库实例
func (pm *PoolManager) DB() *gorm.DB {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.db
}

// Name 返回方言名（sqlite/postgres/mysql）
func (pm *PoolManager) Name() string { return pm.name }

// Ping 检查数据库连接
func (pm *PoolManager) Ping(ctx context.Context) error {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if pm.closed {
		return fmt.Errorf("pool is closed")
	}

	return pm.sqlDB.PingContext(ctx)
}

// Stats 返回连接池统计信息
func (pm *PoolManager) Stats() sql.DBStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.sqlDB.Stats()
}

// Observe 执行 fn 并上报耗时与当前连接数
func (pm *PoolManager) Observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()

	pm.mu.RLock()
	r := pm.recorder
	pm.mu.RUnlock()
	if r != nil {
		r.RecordDBQuery(pm.name, operation, time.Since(start))
		stats := pm.Stats()
		r.RecordDBConnections(pm.name, stats.OpenConnections, stats.Idle)
	}
	return err
}

// Close 关闭连接池
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.closed {
		return nil
	}

	pm.closed = true
	pm.logger.Debug("closing database pool")

	return pm.sqlDB.Close()
}

// =============================================================================
// 📊 统计信息
// =============================================================================

// PoolStats 连接池统计信息（更友好的格式）
type PoolStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// GetStats 获取友好格式的统计信息
func (pm *PoolManager) GetStats() PoolStats {
	stats := pm.Stats()
	return PoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}
}

// =============================================================================
// 🔄 事务管理
// =============================================================================

// TransactionFunc 事务函数类型
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction 在事务中执行函数
func (pm *PoolManager) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	pm.mu.RLock()
	if pm.closed {
		pm.mu.RUnlock()
		return fmt.Errorf("pool is closed")
	}
	db := pm.db
	pm.mu.RUnlock()

	return db.WithContext(ctx).Transaction(fn)
}

// WithTransactionRetry 在事务中执行函数（带重试）
func (pm *PoolManager) WithTransactionRetry(ctx context.Context, maxRetries int, fn TransactionFunc) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := pm.WithTransaction(ctx, fn)
		if err == nil {
			return nil
		}

		lastErr = err

		// 检查是否可重试（例如死锁、sqlite 忙等）
		if !isRetryableError(err) {
			return err
		}

		pm.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		// 指数退避
		backoff := time.Duration(1<<uint(i)) * 50 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("transaction failed after %d retries: %w", maxRetries, lastErr)
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	// 死锁
	if strings.Contains(errMsg, "deadlock") {
		return true
	}

	// 序列化失败（PostgreSQL SQLSTATE 40001）
	if strings.Contains(errMsg, "serialization failure") || strings.Contains(errMsg, "40001") {
		return true
	}

	// sqlite 并发写
	if strings.Contains(errMsg, "database is locked") || strings.Contains(errMsg, "sqlite_busy") {
		return true
	}

	// 连接相关错误
	if strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "broken pipe") {
		return true
	}

	// 锁超时
	if strings.Contains(errMsg, "lock timeout") || strings.Contains(errMsg, "lock wait timeout") {
		return true
	}

	// driver: bad connection（Go database/sql 标准错误）
	if strings.Contains(errMsg, "bad connection") {
		return true
	}

	return false
}
