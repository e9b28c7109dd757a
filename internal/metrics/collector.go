// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。每个 Collector 持有独立的 Registry，
// 一次性 CLI 运行结束时通过 WriteTextfile 或 Push 导出。
type Collector struct {
	registry *prometheus.Registry

	// 生成指标
	generationsTotal   *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	generationCost     *prometheus.CounterVec

	// 对比运行指标
	comparisonsTotal prometheus.Counter

	// 发布指标
	uploadsTotal *prometheus.CounterVec

	// 数据库指标
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec
	dbQueryDuration   *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	c := &Collector{
		registry: reg,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// 生成指标
	c.generationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Total number of video generation attempts by outcome",
		},
		[]string{"model", "status"},
	)

	c.generationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall-clock duration of successful generations in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 240, 480, 900},
		},
		[]string{"model"},
	)

	c.generationCost = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_cost_usd_total",
			Help:      "Estimated spend of successful generations in USD",
		},
		[]string{"model"},
	)

	c.comparisonsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Total number of comparison runs",
		},
	)

	// 发布指标
	c.uploadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Total number of artifact uploads by outcome",
		},
		[]string{"status"},
	)

	// 数据库指标
	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open ledger database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle ledger database connections",
		},
		[]string{"database"},
	)

	c.dbQueryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Ledger query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"database", "operation"},
	)

	return c
}

// Registry 返回收集器私有的 Registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// =============================================================================
// 🎬 生成指标记录
// =============================================================================

// RecordGeneration 记录一次生成尝试。duration 与 cost 仅在 status 为 success 时计入。
func (c *Collector) RecordGeneration(model, status string, duration time.Duration, cost float64) {
	c.generationsTotal.WithLabelValues(model, status).Inc()
	if status != "success" {
		return
	}
	c.generationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if cost > 0 {
		c.generationCost.WithLabelValues(model).Add(cost)
	}
}

// RecordComparison 记录一次对比运行
func (c *Collector) RecordComparison() {
	c.comparisonsTotal.Inc()
}

// RecordUpload 记录一次上传
func (c *Collector) RecordUpload(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	c.uploadsTotal.WithLabelValues(status).Inc()
}

// =============================================================================
// 🗄️ 数据库指标记录
// =============================================================================

// RecordDBConnections 记录数据库连接数
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}

// RecordDBQuery 记录数据库查询
func (c *Collector) RecordDBQuery(database, operation string, duration time.Duration) {
	c.dbQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}

// =============================================================================
// 📤 导出
// =============================================================================

// WriteTextfile 以 node_exporter textfile collector 格式写出全部指标
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	c.logger.Debug("metrics written", zap.String("path", path))
	return nil
}

// Push 将全部指标推送到 Pushgateway
func (c *Collector) Push(ctx context.Context, gatewayURL, job string) error {
	if err := push.New(gatewayURL, job).Gatherer(c.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	c.logger.Debug("metrics pushed", zap.String("gateway", gatewayURL), zap.String("job", job))
	return nil
}
