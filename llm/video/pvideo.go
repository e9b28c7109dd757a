package video

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/llm/retry"
	"github.com/BaSui01/mediagen/types"
)

// Runner 是同步预测调用的边界：阻塞直到任务结束，返回原始输出
// （URL 字符串、带 URL 的对象，或它们的列表）.
type Runner interface {
	Run(ctx context.Context, model string, input map[string]any) (any, error)
}

// PVideoGenerator 通过 Replicate 同步调用 prunaai/p-video 生成视频.
type PVideoGenerator struct {
	cfg     PVideoConfig
	runner  Runner
	http    *apiClient
	retryer retry.Retryer
	logger  *zap.Logger
}

// NewPVideoGenerator 创建 P-Video 适配器；APIToken 为空时返回 CREDENTIAL 错误.
func NewPVideoGenerator(cfg PVideoConfig, logger *zap.Logger) (*PVideoGenerator, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, types.NewCredentialError("REPLICATE_API_TOKEN", "PVideoGenerator")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewPVideoGeneratorWithRunner(cfg, NewReplicateRunner(cfg, logger), logger)
}

// NewPVideoGeneratorWithRunner 使用自定义 Runner 创建适配器.
func NewPVideoGeneratorWithRunner(cfg PVideoConfig, runner Runner, logger *zap.Logger) (*PVideoGenerator, error) {
	cfg = cfg.withDefaults()
	if runner == nil {
		return nil, types.NewInvalidRequestError(pvideoName(cfg.Draft), "runner is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "pvideo"), zap.String("tier", pvideoTier(cfg.Draft)))

	return &PVideoGenerator{
		cfg:     cfg,
		runner:  runner,
		http:    newAPIClient(pvideoName(cfg.Draft), cfg.Timeout, 0, logger),
		retryer: retry.NewBackoffRetryer(cfg.Retry, logger),
		logger:  logger,
	}, nil
}

// Name implements Generator.
func (g *PVideoGenerator) Name() string { return pvideoName(g.cfg.Draft) }

// EstimateCost implements Generator.
func (g *PVideoGenerator) EstimateCost(durationSeconds float64, res Resolution) (float64, error) {
	return EstimatePVideoCost(g.cfg.Draft, durationSeconds, res)
}

// SupportedDurations returns every whole-second length in the clamp range.
func (g *PVideoGenerator) SupportedDurations() []int {
	out := make([]int, 0, pvideoMaxDuration-pvideoMinDuration+1)
	for d := pvideoMinDuration; d <= pvideoMaxDuration; d++ {
		out = append(out, d)
	}
	return out
}

// Generate implements Generator: CALL -> DOWNLOAD.
func (g *PVideoGenerator) Generate(ctx context.Context, in *Request) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, withProvider(err, g.Name())
	}
	req := in.WithDefaults()

	duration := clampDuration(req.DurationSeconds, pvideoMinDuration, pvideoMaxDuration)
	cost, err := g.EstimateCost(float64(duration), req.Resolution)
	if err != nil {
		return nil, err
	}

	fps := intFromExtra(req.Extra, "fps", g.cfg.FPS)
	upsampling := boolFromExtra(req.Extra, "prompt_upsampling", *g.cfg.PromptUpsampling)

	input := map[string]any{
		"prompt":            req.Prompt,
		"duration":          duration,
		"aspect_ratio":      req.AspectRatio,
		"resolution":        req.Resolution.String(),
		"fps":               fps,
		"draft":             g.cfg.Draft,
		"prompt_upsampling": upsampling,
	}
	if req.Seed != nil {
		input["seed"] = *req.Seed
	} else if v, ok := req.Extra["seed"]; ok {
		input["seed"] = v
	}
	if req.ImagePath != "" {
		uri, err := dataURI(req.ImagePath, "image/png")
		if err != nil {
			return nil, types.NewInvalidRequestError(g.Name(), "failed to read source image").WithCause(err)
		}
		input["image"] = uri
	}
	if p, ok := req.Extra["audio_path"].(string); ok && p != "" {
		uri, err := dataURI(p, "audio/mpeg")
		if err != nil {
			return nil, types.NewInvalidRequestError(g.Name(), "failed to read audio").WithCause(err)
		}
		input["audio"] = uri
	}

	logger := scopedLogger(ctx, g.logger)
	start := time.Now()
	logger.Info("running prediction",
		zap.String("replicate_model", g.cfg.Model),
		zap.Int("duration_seconds", duration),
		zap.String("resolution", req.Resolution.String()),
	)

	output, err := g.runner.Run(ctx, g.cfg.Model, input)
	if err != nil {
		return nil, asGenerationError(err, g.Name(), "prediction failed")
	}

	videoURL, err := ExtractURL(output)
	if err != nil {
		return nil, types.NewGenerationError(g.Name(), "prediction returned no usable video url").
			WithDetail(fmt.Sprintf("%v", output)).
			WithCause(err)
	}

	size, err := fetchToFile(ctx, g.retryer, req.OutputPath, func(ctx context.Context, w io.Writer) error {
		return g.http.download(ctx, videoURL, nil, w)
	})
	if err != nil {
		return nil, asDownloadError(err, g.Name(), fmt.Sprintf("failed to save %s", req.OutputPath))
	}
	elapsed := time.Since(start)

	logger.Info("video saved",
		zap.String("path", req.OutputPath),
		zap.Int64("bytes", size),
		zap.Duration("elapsed", elapsed),
	)

	metadata := map[string]any{}
	for k, v := range req.Extra {
		metadata[k] = v
	}
	metadata["replicate_model"] = g.cfg.Model
	metadata["draft"] = g.cfg.Draft
	metadata["fps"] = fps
	metadata["aspect_ratio"] = req.AspectRatio
	metadata["resolution"] = req.Resolution.String()
	metadata["prompt"] = req.Prompt
	metadata["video_url"] = videoURL

	return NewResult(ResultParams{
		FilePath:        req.OutputPath,
		DurationSeconds: float64(duration),
		ModelUsed:       g.Name(),
		EstimatedCost:   cost,
		GenerationTime:  elapsed,
		Metadata:        metadata,
	}), nil
}

func dataURI(path, fallbackMIME string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeTypeFor(path, fallbackMIME),
		base64.StdEncoding.EncodeToString(data)), nil
}

func intFromExtra(extra map[string]any, key string, def int) int {
	switch v := extra[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func boolFromExtra(extra map[string]any, key string, def bool) bool {
	if v, ok := extra[key].(bool); ok {
		return v
	}
	return def
}
