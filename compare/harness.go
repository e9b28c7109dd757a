package compare

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/internal/ctxkeys"
	"github.com/BaSui01/mediagen/llm/video"
	"github.com/BaSui01/mediagen/storage"
	"github.com/BaSui01/mediagen/types"
)

// =============================================================================
// 🎯 依赖与选项
// =============================================================================

// GeneratorFactory 按注册表名构造生成器，例如 factory.Registry.Bind 的返回值
type GeneratorFactory func(name string) (video.Generator, error)

// Recorder 接收运行指标，由 internal/metrics.Collector 实现
type Recorder interface {
	RecordGeneration(model, status string, duration time.Duration, cost float64)
	RecordComparison()
	RecordUpload(ok bool)
}

// LedgerWriter 持久化运行结果，由 ledger.Store 实现
type LedgerWriter interface {
	RecordSummary(ctx context.Context, s *Summary) error
}

// Option 配置 Harness
type Option func(*Harness)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithEventSink 订阅进度事件
func WithEventSink(sink EventSink) Option {
	return func(h *Harness) { h.sink = sink }
}

// WithPublisher 设置发布用的上传器；Options.Publish 为真时生效
func WithPublisher(up storage.Uploader) Option {
	return func(h *Harness) { h.publisher = up }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(h *Harness) { h.recorder = r }
}

// WithLedger 设置结果台账
func WithLedger(l LedgerWriter) Option {
	return func(h *Harness) { h.ledger = l }
}

// WithClock 替换时钟（测试中固定时间戳）
func WithClock(now func() time.Time) Option {
	return func(h *Harness) {
		if now != nil {
			h.now = now
		}
	}
}

// WithTracer 设置 tracer，默认使用全局 TracerProvider
func WithTracer(t trace.Tracer) Option {
	return func(h *Harness) {
		if t != nil {
			h.tracer = t
		}
	}
}

// WithRemotePrefix 设置发布路径前缀，默认 video-compare
func WithRemotePrefix(prefix string) Option {
	return func(h *Harness) {
		if p := strings.Trim(prefix, "/"); p != "" {
			h.remotePrefix = p
		}
	}
}

// WithUploadConcurrency 设置并发上传数
func WithUploadConcurrency(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.uploadConcurrency = n
		}
	}
}

// Options 是一次对比运行的输入
type Options struct {
	Prompt          string
	Models          []string
	OutputDir       string
	ImagePath       string
	DurationSeconds int
	Resolution      string
	AspectRatio     string
	Publish         bool
}

// 默认值
const (
	DefaultOutputDir    = "./video_compare"
	DefaultRemotePrefix = "video-compare"
)

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.DurationSeconds <= 0 {
		o.DurationSeconds = video.DefaultDurationSeconds
	}
	if strings.TrimSpace(o.Resolution) == "" {
		o.Resolution = video.DefaultResolution.String()
	}
	o.Resolution = video.ParseResolution(o.Resolution).String()
	if o.AspectRatio == "" {
		o.AspectRatio = video.DefaultAspectRatio
	}
	return o
}

// =============================================================================
// 🏁 Harness
// =============================================================================

// Harness 依次用每个模型生成同一提示词，汇总耗时与花费。
// 生成严格串行；只有发布阶段的上传会并发。
type Harness struct {
	factory           GeneratorFactory
	logger            *zap.Logger
	sink              EventSink
	publisher         storage.Uploader
	recorder          Recorder
	ledger            LedgerWriter
	now               func() time.Time
	tracer            trace.Tracer
	remotePrefix      string
	uploadConcurrency int
}

// New 创建 Harness
func New(factory GeneratorFactory, opts ...Option) *Harness {
	h := &Harness{
		factory:           factory,
		logger:            zap.NewNop(),
		now:               time.Now,
		tracer:            otel.Tracer("github.com/BaSui01/mediagen/compare"),
		remotePrefix:      DefaultRemotePrefix,
		uploadConcurrency: 4,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("component", "compare"))
	return h
}

// constructed 缓存一次运行内已构造的生成器（含构造失败）
type constructed struct {
	gen video.Generator
	err error
}

// Run 执行一次对比运行。只有输出目录或 summary 无法写入时返回错误；
// 各模型的失败都记录在 summary 中。
func (h *Harness) Run(ctx context.Context, in Options) (*Summary, error) {
	opts := in.withDefaults()

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ts := h.now().Format(TimestampLayout)
	ctx = ctxkeys.WithRunID(ctx, ts)
	ctx, span := h.tracer.Start(ctx, "compare.run", trace.WithAttributes(
		attribute.String("mediagen.run_id", ts),
		attribute.StringSlice("mediagen.models", opts.Models),
		attribute.String("mediagen.resolution", opts.Resolution),
		attribute.Int("mediagen.duration_seconds", opts.DurationSeconds),
	))
	defer span.End()

	logger := h.logger.With(zap.String("run_id", ts))
	logger.Info("comparison started",
		zap.Strings("models", opts.Models),
		zap.String("resolution", opts.Resolution),
		zap.Int("duration_seconds", opts.DurationSeconds),
		zap.Bool("image", opts.ImagePath != ""),
	)
	h.emit(Event{Type: EventRunStarted, RunID: ts, Total: len(opts.Models)})

	summary := &Summary{
		Timestamp:       ts,
		Prompt:          opts.Prompt,
		ImagePath:       opts.ImagePath,
		Resolution:      opts.Resolution,
		DurationSeconds: opts.DurationSeconds,
		AspectRatio:     opts.AspectRatio,
		Results:         make([]ResultEntry, 0, len(opts.Models)),
	}

	cache := make(map[string]constructed, len(opts.Models))
	usedNames := make(map[string]int, len(opts.Models))
	start := h.now()

	for i, name := range opts.Models {
		filename := uniqueFilename(usedNames, SafeModelName(name), ts)
		entry := h.runOne(ctx, logger, cache, opts, name, filename, i+1, len(opts.Models))
		summary.Results = append(summary.Results, entry)
	}
	summary.TotalEstimatedCost = summary.SuccessCost()

	summaryPath := filepath.Join(opts.OutputDir, SummaryFileName(ts))
	if err := WriteSummary(summaryPath, summary); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "summary not written")
		return summary, err
	}
	logger.Info("summary written", zap.String("path", summaryPath))
	h.emit(Event{Type: EventSummaryWritten, RunID: ts, Path: summaryPath})

	if opts.Publish {
		if h.publisher == nil {
			logger.Warn("publish requested but no storage backend is configured")
		} else {
			h.publish(ctx, logger, summary, summaryPath)
		}
	}

	if h.ledger != nil {
		if err := h.ledger.RecordSummary(ctx, summary); err != nil {
			logger.Warn("ledger write failed", zap.Error(err))
		}
	}
	if h.recorder != nil {
		h.recorder.RecordComparison()
	}

	span.SetAttributes(
		attribute.Int("mediagen.successes", summary.Count(StatusSuccess)),
		attribute.Float64("mediagen.total_estimated_cost", summary.TotalEstimatedCost),
	)
	logger.Info("comparison finished",
		zap.Int("success", summary.Count(StatusSuccess)),
		zap.Int("error", summary.Count(StatusError)),
		zap.Int("skipped", summary.Count(StatusSkipped)),
		zap.Float64("total_estimated_cost", summary.TotalEstimatedCost),
	)
	h.emit(Event{Type: EventRunFinished, RunID: ts, Path: summaryPath, Elapsed: h.now().Sub(start)})
	return summary, nil
}

// runOne 处理单个模型：构造 → 估价 → 生成，任何失败都落成一条记录
func (h *Harness) runOne(
	ctx context.Context,
	logger *zap.Logger,
	cache map[string]constructed,
	opts Options,
	name, filename string,
	index, total int,
) ResultEntry {
	ctx = ctxkeys.WithModel(ctx, name)
	ctx, span := h.tracer.Start(ctx, "compare.provider", trace.WithAttributes(
		attribute.String("mediagen.model", name),
		attribute.Int("mediagen.index", index),
	))
	defer span.End()

	logger = logger.With(zap.String("model", name))
	runID, _ := ctxkeys.RunID(ctx)
	base := Event{RunID: runID, Model: name, Index: index, Total: total}

	started := base
	started.Type = EventProviderStarted
	h.emit(started)

	entry := ResultEntry{Model: name}
	fail := func(status Status, err error, elapsed time.Duration) ResultEntry {
		entry.Status = status
		entry.Error = err.Error()
		ev := base
		ev.Entry = &entry
		ev.Err = err
		ev.Elapsed = elapsed
		if status == StatusSkipped {
			ev.Type = EventProviderSkipped
			logger.Info("provider skipped", zap.Error(err))
		} else {
			ev.Type = EventProviderFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, string(types.GetErrorCode(err)))
			logger.Warn("provider failed", zap.Error(err))
		}
		span.SetAttributes(attribute.String("mediagen.status", string(status)))
		h.record(name, status, elapsed, 0)
		h.emit(ev)
		return entry
	}

	key := strings.ToLower(strings.TrimSpace(name))
	c, ok := cache[key]
	if !ok {
		c.gen, c.err = h.factory(name)
		if c.err == nil && c.gen == nil {
			c.err = fmt.Errorf("factory returned no generator for %q", name)
		}
		cache[key] = c
	}
	if c.err != nil {
		if types.IsSkippable(c.err) {
			return fail(StatusSkipped, c.err, 0)
		}
		return fail(StatusError, c.err, 0)
	}
	gen := c.gen

	res := video.ParseResolution(opts.Resolution)
	estimate, err := gen.EstimateCost(float64(opts.DurationSeconds), res)
	if err != nil {
		return fail(StatusError, err, 0)
	}
	estimated := base
	estimated.Type = EventCostEstimated
	estimated.EstimatedCost = estimate
	h.emit(estimated)
	logger.Debug("cost estimated", zap.Float64("estimated_cost", estimate))

	outPath := filepath.Join(opts.OutputDir, filename)
	begin := h.now()
	result, err := gen.Generate(ctx, &video.Request{
		Prompt:          opts.Prompt,
		OutputPath:      outPath,
		DurationSeconds: opts.DurationSeconds,
		AspectRatio:     opts.AspectRatio,
		Resolution:      res,
		ImagePath:       opts.ImagePath,
	})
	if err != nil {
		return fail(StatusError, err, h.now().Sub(begin))
	}

	entry.Status = StatusSuccess
	entry.File = result.FilePath()
	entry.Filename = filename
	entry.DurationSeconds = result.DurationSeconds()
	entry.EstimatedCost = result.EstimatedCost()
	entry.GenerationTimeSeconds = result.GenerationTimeSeconds()
	entry.ModelUsed = result.ModelUsed()
	entry.Metadata = result.Metadata()

	span.SetAttributes(
		attribute.String("mediagen.status", string(StatusSuccess)),
		attribute.String("mediagen.model_used", entry.ModelUsed),
		attribute.Float64("mediagen.estimated_cost", entry.EstimatedCost),
	)
	logger.Info("provider succeeded",
		zap.String("file", entry.File),
		zap.Float64("estimated_cost", entry.EstimatedCost),
		zap.Float64("generation_time_seconds", entry.GenerationTimeSeconds),
	)
	h.record(name, StatusSuccess, result.GenerationTime(), entry.EstimatedCost)

	ev := base
	ev.Type = EventProviderSucceeded
	ev.Entry = &entry
	ev.Path = entry.File
	ev.Elapsed = result.GenerationTime()
	h.emit(ev)
	return entry
}

// publish 上传所有成功产物与 summary，记录公开 URL 后重写本地 summary。
// 单个文件的上传失败只记录日志与事件。
func (h *Harness) publish(ctx context.Context, logger *zap.Logger, s *Summary, summaryPath string) {
	prefix := path.Join(h.remotePrefix, s.Timestamp)

	var (
		items   []storage.Item
		indexes []int
	)
	for i, e := range s.Results {
		if e.Status != StatusSuccess {
			continue
		}
		items = append(items, storage.Item{Local: e.File, Remote: prefix + "/" + e.Filename})
		indexes = append(indexes, i)
	}

	outcomes := storage.UploadAll(ctx, h.publisher, items, h.uploadConcurrency)
	for j, o := range outcomes {
		entry := &s.Results[indexes[j]]
		h.uploaded(logger, s.Timestamp, entry.Model, o)
		if o.Err == nil {
			entry.PublicURL = o.URL
		}
	}

	if err := WriteSummary(summaryPath, s); err != nil {
		logger.Warn("summary rewrite failed", zap.String("path", summaryPath), zap.Error(err))
	}

	remote := prefix + "/comparison.json"
	u, err := h.publisher.Upload(ctx, summaryPath, remote)
	h.uploaded(logger, s.Timestamp, "", storage.Outcome{
		Item: storage.Item{Local: summaryPath, Remote: remote},
		URL:  u,
		Err:  err,
	})
}

func (h *Harness) uploaded(logger *zap.Logger, runID, model string, o storage.Outcome) {
	ev := Event{RunID: runID, Model: model, Path: o.Local, URL: o.URL, Err: o.Err}
	if o.Err != nil {
		ev.Type = EventUploadFailed
		logger.Warn("upload failed", zap.String("local", o.Local), zap.String("remote", o.Remote), zap.Error(o.Err))
	} else {
		ev.Type = EventUploadSucceeded
		logger.Info("uploaded", zap.String("local", o.Local), zap.String("url", o.URL))
	}
	if h.recorder != nil {
		h.recorder.RecordUpload(o.Err == nil)
	}
	h.emit(ev)
}

func (h *Harness) record(model string, status Status, d time.Duration, cost float64) {
	if h.recorder != nil {
		h.recorder.RecordGeneration(model, string(status), d, cost)
	}
}

func (h *Harness) emit(ev Event) {
	if h.sink != nil {
		h.sink(ev)
	}
}

// uniqueFilename 返回 <safe>_<ts>.mp4；同一次运行里重复的模型名追加序号。
// 按小写计数，大小写不敏感的文件系统上也不会互相覆盖。
func uniqueFilename(used map[string]int, safe, ts string) string {
	key := strings.ToLower(safe)
	used[key]++
	if n := used[key]; n > 1 {
		return safe + "_" + ts + "_" + strconv.Itoa(n) + ".mp4"
	}
	return safe + "_" + ts + ".mp4"
}
