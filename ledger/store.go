package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/mediagen/compare"
	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/internal/database"
)

// =============================================================================
// 📒 生成台账
// =============================================================================

// GenerationRecord 是台账中的一行，对应 summary 中的一条记录
type GenerationRecord struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	RunID             string    `gorm:"index;size:32" json:"run_id"`
	Position          int       `json:"position"`
	Prompt            string    `gorm:"type:text" json:"prompt"`
	ImagePath         string    `json:"image_path,omitempty"`
	Resolution        string    `gorm:"size:16" json:"resolution"`
	Model             string    `gorm:"index;size:128" json:"model"`
	ModelUsed         string    `gorm:"size:128" json:"model_used,omitempty"`
	Status            string    `gorm:"index;size:16" json:"status"`
	EstimatedCost     float64   `json:"estimated_cost"`
	GenerationSeconds float64   `json:"generation_seconds"`
	DurationSeconds   float64   `json:"duration_seconds"`
	File              string    `json:"file,omitempty"`
	PublicURL         string    `json:"public_url,omitempty"`
	Error             string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
}

// TableName 实现 gorm 的 Tabler
func (GenerationRecord) TableName() string { return "generation_records" }

// BeforeCreate 为空 ID 生成 uuid
func (r *GenerationRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// ModelSpend 是按模型聚合的花费
type ModelSpend struct {
	Model     string  `json:"model"`
	Runs      int64   `json:"runs"`
	Successes int64   `json:"successes"`
	TotalCost float64 `json:"total_cost"`
}

// FromSummary 把一次对比运行展开为台账记录，顺序与 summary 一致
func FromSummary(s *compare.Summary, at time.Time) []GenerationRecord {
	if s == nil {
		return nil
	}
	at = at.UTC()
	out := make([]GenerationRecord, 0, len(s.Results))
	for i, e := range s.Results {
		out = append(out, GenerationRecord{
			RunID:             s.Timestamp,
			Position:          i,
			Prompt:            s.Prompt,
			ImagePath:         s.ImagePath,
			Resolution:        s.Resolution,
			Model:             e.Model,
			ModelUsed:         e.ModelUsed,
			Status:            string(e.Status),
			EstimatedCost:     e.EstimatedCost,
			GenerationSeconds: e.GenerationTimeSeconds,
			DurationSeconds:   e.DurationSeconds,
			File:              e.File,
			PublicURL:         e.PublicURL,
			Error:             e.Error,
			CreatedAt:         at,
		})
	}
	return out
}

// =============================================================================
// 🗄️ Store
// =============================================================================

// Option 配置 Store
type Option func(*Store)

// WithRecorder 上报查询耗时与连接数
func WithRecorder(r database.StatsRecorder) Option {
	return func(s *Store) { s.pool.SetRecorder(r) }
}

// WithClock 替换写入时间来源
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store 是基于 GORM 的台账存储，实现 compare.LedgerWriter
type Store struct {
	pool   *database.PoolManager
	logger *zap.Logger
	now    func() time.Time
}

const (
	writeRetries  = 3
	defaultRecent = 20
)

// Open 打开数据库并迁移表结构
func Open(cfg config.DatabaseConfig, logger *zap.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := database.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	s, err := New(pool, logger, opts...)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

// New 基于已有连接池创建 Store 并迁移表结构
func New(pool *database.PoolManager, logger *zap.Logger, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, errors.New("ledger: nil pool")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		pool:   pool,
		logger: logger.With(zap.String("component", "ledger")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := pool.DB().AutoMigrate(&GenerationRecord{}); err != nil {
		return nil, fmt.Errorf("ledger: migrate: %w", err)
	}
	return s, nil
}

// Record 在一个事务中写入记录
func (s *Store) Record(ctx context.Context, records []GenerationRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := s.pool.Observe("insert", func() error {
		return s.pool.WithTransactionRetry(ctx, writeRetries, func(tx *gorm.DB) error {
			return tx.CreateInBatches(records, 100).Error
		})
	})
	if err != nil {
		return fmt.Errorf("ledger: record: %w", err)
	}
	s.logger.Debug("records written", zap.Int("count", len(records)))
	return nil
}

// RecordSummary 实现 compare.LedgerWriter
func (s *Store) RecordSummary(ctx context.Context, summary *compare.Summary) error {
	return s.Record(ctx, FromSummary(summary, s.now()))
}

// SpendByModel 汇总 since 之后（含）每个模型的运行次数与花费，按花费降序
func (s *Store) SpendByModel(ctx context.Context, since time.Time) ([]ModelSpend, error) {
	var out []ModelSpend
	err := s.pool.Observe("spend_by_model", func() error {
		q := s.pool.DB().WithContext(ctx).
			Model(&GenerationRecord{}).
			Select("model, COUNT(*) AS runs, "+
				"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS successes, "+
				"SUM(CASE WHEN status = ? THEN estimated_cost ELSE 0 END) AS total_cost",
				string(compare.StatusSuccess), string(compare.StatusSuccess))
		if !since.IsZero() {
			q = q.Where("created_at >= ?", since.UTC())
		}
		return q.Group("model").Order("total_cost DESC, model ASC").Scan(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: spend: %w", err)
	}
	return out, nil
}

// Recent 返回最近的记录，最新运行在前、运行内按请求顺序
func (s *Store) Recent(ctx context.Context, limit int) ([]GenerationRecord, error) {
	if limit <= 0 {
		limit = defaultRecent
	}
	var out []GenerationRecord
	err := s.pool.Observe("recent", func() error {
		return s.pool.DB().WithContext(ctx).
			Order("created_at DESC, run_id DESC, position ASC").
			Limit(limit).
			Find(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	return out, nil
}

// Close 关闭底层连接池
func (s *Store) Close() error {
	return s.pool.Close()
}
