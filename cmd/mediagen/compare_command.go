package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/compare"
	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/internal/metrics"
	"github.com/BaSui01/mediagen/internal/telemetry"
	"github.com/BaSui01/mediagen/ledger"
	"github.com/BaSui01/mediagen/llm/factory"
	"github.com/BaSui01/mediagen/storage"
)

type compareFlags struct {
	models      []string
	image       string
	duration    int
	resolution  string
	aspectRatio string
	outputDir   string
	publish     bool
	metricsFile string
	quiet       bool
}

func newCompareCommand(ctx *commandContext) *cobra.Command {
	var f compareFlags

	cmd := &cobra.Command{
		Use:   "compare <prompt>",
		Short: "Generate the same prompt with several models and compare cost and time",
		Long: `Generate one clip per model, sequentially, and write comparison_<timestamp>.json
to the output directory. Providers without credentials are skipped; provider
failures are recorded in the summary. The command fails only when the summary
cannot be written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runCompare(cmd, ctx, cfg, f, strings.Join(args, " "))
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVarP(&f.models, "models", "m", nil, "Models to compare (default from config: veo-3.1,p-video-draft)")
	flags.StringVarP(&f.image, "image", "i", "", "Character/reference image for image-to-video")
	flags.IntVarP(&f.duration, "duration", "d", 0, "Requested clip length in seconds")
	flags.StringVarP(&f.resolution, "resolution", "r", "", "Resolution tier: 720p, 1080p, 4k")
	flags.StringVar(&f.aspectRatio, "aspect-ratio", "", "Aspect ratio, e.g. 16:9")
	flags.StringVarP(&f.outputDir, "output-dir", "o", "", "Directory for videos and the summary")
	flags.BoolVar(&f.publish, "publish", false, "Upload videos and summary to the configured storage backend")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress output")

	return cmd
}

// compareOptions 以配置为基础，叠加显式给出的命令行参数
func compareOptions(cmd *cobra.Command, cfg *config.Config, f compareFlags, prompt string) compare.Options {
	opts := compare.Options{
		Prompt:          prompt,
		Models:          cfg.Compare.Models,
		OutputDir:       cfg.Compare.OutputDir,
		DurationSeconds: cfg.Compare.DurationSeconds,
		Resolution:      cfg.Compare.Resolution,
		AspectRatio:     cfg.Compare.AspectRatio,
		Publish:         cfg.Compare.Upload,
		ImagePath:       f.image,
	}
	changed := cmd.Flags().Changed
	if changed("models") {
		opts.Models = f.models
	}
	if changed("duration") {
		opts.DurationSeconds = f.duration
	}
	if changed("resolution") {
		opts.Resolution = f.resolution
	}
	if changed("aspect-ratio") {
		opts.AspectRatio = f.aspectRatio
	}
	if changed("output-dir") {
		opts.OutputDir = f.outputDir
	}
	if changed("publish") {
		opts.Publish = f.publish
	}
	return opts
}

func runCompare(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, f compareFlags, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt must not be empty")
	}
	if cmd.Flags().Changed("duration") && f.duration <= 0 {
		return fmt.Errorf("--duration must be positive, got %d", f.duration)
	}

	logger := ctx.log()
	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	opts := compareOptions(cmd, cfg, f, prompt)

	providers, err := telemetry.Init(cfg.Telemetry, logger, telemetry.WithServiceVersion(Version))
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector(cfg.Metrics.Namespace, logger)

	harnessOpts := []compare.Option{
		compare.WithLogger(logger),
		compare.WithRecorder(collector),
		compare.WithTracer(providers.Tracer()),
		compare.WithRemotePrefix(cfg.Compare.RemotePrefix),
		compare.WithUploadConcurrency(cfg.Compare.UploadConcurrency),
		compare.WithClock(ctx.deps.now),
	}
	if !f.quiet {
		harnessOpts = append(harnessOpts, compare.WithEventSink(progressSink(cmd.ErrOrStderr())))
	}

	if opts.Publish {
		up, err := ctx.deps.newUploader(cfg.Storage, logger)
		switch {
		case errors.Is(err, storage.ErrDisabled):
			logger.Warn("publish requested but storage backend is disabled")
		case err != nil:
			logger.Warn("storage backend unavailable, results will not be published", zap.Error(err))
		default:
			harnessOpts = append(harnessOpts, compare.WithPublisher(up))
		}
	}

	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg.Ledger.Database, logger, ledger.WithRecorder(collector))
		if err != nil {
			logger.Warn("ledger unavailable, results will not be recorded", zap.Error(err))
		} else {
			defer store.Close()
			harnessOpts = append(harnessOpts, compare.WithLedger(store))
		}
	}

	h := compare.New(ctx.deps.registry.Bind(factory.FromAppConfig(cfg), logger), harnessOpts...)
	summary, err := h.Run(runCtx, opts)
	if err != nil {
		return fmt.Errorf("comparison summary not written: %w", err)
	}

	out := cmd.OutOrStdout()
	compare.RenderTable(out, summary)

	exportMetrics(runCtx, logger, collector, cfg.Metrics, f.metricsFile)
	return nil
}

// exportMetrics 写出 textfile 或推送到 Pushgateway；失败只记录日志
func exportMetrics(ctx context.Context, logger *zap.Logger, c *metrics.Collector, cfg config.MetricsConfig, fileFlag string) {
	path := cfg.TextfilePath
	if fileFlag != "" {
		path = fileFlag
	}
	if path != "" {
		if err := c.WriteTextfile(path); err != nil {
			logger.Warn("metrics textfile not written", zap.Error(err))
		}
	}
	if cfg.PushGatewayURL != "" {
		if err := c.Push(ctx, cfg.PushGatewayURL, cfg.PushJob); err != nil {
			logger.Warn("metrics push failed", zap.Error(err))
		}
	}
}

// progressSink 把进度事件渲染为人类可读的行
func progressSink(w io.Writer) compare.EventSink {
	return func(ev compare.Event) {
		switch ev.Type {
		case compare.EventRunStarted:
			fmt.Fprintf(w, "Run %s: comparing %d model(s)\n", ev.RunID, ev.Total)
		case compare.EventProviderStarted:
			fmt.Fprintf(w, "[%d/%d] %s\n", ev.Index, ev.Total, ev.Model)
		case compare.EventCostEstimated:
			fmt.Fprintf(w, "  estimated cost: $%.4f\n", ev.EstimatedCost)
		case compare.EventProviderSkipped:
			fmt.Fprintf(w, "  skipped: %v\n", ev.Err)
		case compare.EventProviderFailed:
			fmt.Fprintf(w, "  failed: %v\n", ev.Err)
		case compare.EventProviderSucceeded:
			fmt.Fprintf(w, "  saved %s in %.1fs\n", ev.Path, ev.Entry.GenerationTimeSeconds)
		case compare.EventSummaryWritten:
			fmt.Fprintf(w, "Summary: %s\n", ev.Path)
		case compare.EventUploadSucceeded:
			fmt.Fprintf(w, "  uploaded %s\n", ev.URL)
		case compare.EventUploadFailed:
			fmt.Fprintf(w, "  upload failed for %s: %v\n", ev.Path, ev.Err)
		case compare.EventRunFinished:
			fmt.Fprintf(w, "Done in %s\n", ev.Elapsed.Round(time.Millisecond))
		}
	}
}
