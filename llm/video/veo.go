package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/llm/retry"
	"github.com/BaSui01/mediagen/types"
)

// =============================================================================
// Operation boundary
// =============================================================================

// OperationClient 是长任务 API 的边界：提交、查询、下载。
type OperationClient interface {
	// Submit starts a job and returns its opaque operation handle without waiting.
	Submit(ctx context.Context, model string, req *SubmitRequest) (string, error)
	// Status reports the current state of an operation.
	Status(ctx context.Context, operation string) (*OperationStatus, error)
	// Download streams a finished artifact into w.
	Download(ctx context.Context, uri string, w io.Writer) error
}

// SubmitRequest is the request shape accepted by OperationClient.Submit.
type SubmitRequest struct {
	Prompt           string
	NegativePrompt   string
	AspectRatio      string
	Resolution       Resolution
	DurationSeconds  int
	PersonGeneration string
	Seed             *int64
	Image            *InlineImage
}

// InlineImage is a source image sent with the request body.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// OperationStatus is one poll result. Error holds the backend's error object verbatim.
type OperationStatus struct {
	Done      bool
	Error     json.RawMessage
	VideoURIs []string
}

// Failed reports whether the backend attached an error to the operation.
func (s *OperationStatus) Failed() bool {
	return len(s.Error) > 0 && string(s.Error) != "null"
}

// =============================================================================
// VeoGenerator
// =============================================================================

// VeoGenerator 通过长任务轮询使用 Google Veo 生成视频.
type VeoGenerator struct {
	cfg     VeoConfig
	client  OperationClient
	retryer retry.Retryer
	logger  *zap.Logger
}

// NewVeoGenerator 创建 Veo 适配器；APIKey 为空时返回 CREDENTIAL 错误.
func NewVeoGenerator(cfg VeoConfig, logger *zap.Logger) (*VeoGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, types.NewCredentialError("GEMINI_API_KEY", "VeoGenerator")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewVeoGeneratorWithClient(cfg, NewVeoRESTClient(cfg, logger), logger)
}

// NewVeoGeneratorWithClient 使用自定义 OperationClient 创建适配器.
func NewVeoGeneratorWithClient(cfg VeoConfig, client OperationClient, logger *zap.Logger) (*VeoGenerator, error) {
	cfg = cfg.withDefaults()
	if _, ok := veoRates[cfg.Variant]; !ok {
		return nil, types.NewInvalidRequestError(veoName(cfg.Variant),
			fmt.Sprintf("unknown veo variant %q (known: %s)", cfg.Variant, strings.Join(VeoVariants(), ", ")))
	}
	if client == nil {
		return nil, types.NewInvalidRequestError(veoName(cfg.Variant), "operation client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "veo"), zap.String("variant", cfg.Variant))

	return &VeoGenerator{
		cfg:     cfg,
		client:  client,
		retryer: retry.NewBackoffRetryer(cfg.Retry, logger),
		logger:  logger,
	}, nil
}

// Name implements Generator.
func (g *VeoGenerator) Name() string { return veoName(g.cfg.Variant) }

// EstimateCost implements Generator.
func (g *VeoGenerator) EstimateCost(durationSeconds float64, res Resolution) (float64, error) {
	return EstimateVeoCost(g.cfg.Variant, durationSeconds, res)
}

// SupportedDurations returns the clip lengths this variant accepts.
func (g *VeoGenerator) SupportedDurations() []int {
	return append([]int(nil), veoDurations[g.cfg.Variant]...)
}

// Generate implements Generator: SUBMITTED -> POLLING* -> DONE | FAILED | TIMEOUT.
func (g *VeoGenerator) Generate(ctx context.Context, in *Request) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, withProvider(err, g.Name())
	}
	req := in.WithDefaults()

	duration := snapDuration(req.DurationSeconds, veoDurations[g.cfg.Variant])
	cost, err := g.EstimateCost(float64(duration), req.Resolution)
	if err != nil {
		return nil, err
	}

	sub := &SubmitRequest{
		Prompt:          req.Prompt,
		NegativePrompt:  req.NegativePrompt,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		DurationSeconds: duration,
		Seed:            req.Seed,
	}
	if v, ok := req.Extra["negative_prompt"].(string); ok && sub.NegativePrompt == "" {
		sub.NegativePrompt = v
	}
	if v, ok := req.Extra["person_generation"].(string); ok {
		sub.PersonGeneration = v
	}
	if req.ImagePath != "" {
		img, err := loadInlineImage(req.ImagePath)
		if err != nil {
			return nil, types.NewInvalidRequestError(g.Name(), "failed to read source image").WithCause(err)
		}
		sub.Image = img
	}

	logger := scopedLogger(ctx, g.logger)
	start := time.Now()
	logger.Info("submitting operation",
		zap.Int("duration_seconds", duration),
		zap.String("resolution", req.Resolution.String()),
		zap.Bool("image", sub.Image != nil),
	)

	op, err := g.client.Submit(ctx, g.cfg.Variant, sub)
	if err != nil {
		return nil, asGenerationError(err, g.Name(), "submit failed")
	}

	status, err := g.waitForOperation(ctx, op)
	if err != nil {
		return nil, err
	}
	if len(status.VideoURIs) == 0 {
		return nil, types.NewGenerationError(g.Name(),
			fmt.Sprintf("operation %s finished without a generated video", op))
	}
	uri := status.VideoURIs[0]

	size, err := fetchToFile(ctx, g.retryer, req.OutputPath, func(ctx context.Context, w io.Writer) error {
		return g.client.Download(ctx, uri, w)
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
	metadata["variant"] = g.cfg.Variant
	metadata["aspect_ratio"] = req.AspectRatio
	metadata["resolution"] = req.Resolution.String()
	metadata["prompt"] = req.Prompt
	metadata["operation"] = op
	metadata["video_uri"] = uri
	metadata["requested_duration_seconds"] = req.DurationSeconds

	return NewResult(ResultParams{
		FilePath:        req.OutputPath,
		DurationSeconds: float64(duration),
		ModelUsed:       g.Name(),
		EstimatedCost:   cost,
		GenerationTime:  elapsed,
		Metadata:        metadata,
	}), nil
}

// waitForOperation polls until the operation is done, failed, or MaxWait elapses.
// Transient status failures are retried and count against the wait budget.
func (g *VeoGenerator) waitForOperation(ctx context.Context, op string) (*OperationStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, g.cfg.MaxWait)
	defer cancel()

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	start := time.Now()
	for polls := 1; ; polls++ {
		select {
		case <-waitCtx.Done():
			return nil, types.NewTimeoutError(g.Name(),
				fmt.Sprintf("operation %s not finished after %s (max wait %s)",
					op, time.Since(start).Round(time.Millisecond), g.cfg.MaxWait)).
				WithCause(waitCtx.Err())
		case <-ticker.C:
		}

		status, err := retry.DoValue(waitCtx, g.retryer, func() (*OperationStatus, error) {
			return g.client.Status(waitCtx, op)
		})
		if err != nil {
			if waitCtx.Err() != nil {
				continue
			}
			return nil, asGenerationError(err, g.Name(), "status check failed")
		}

		if status.Failed() {
			return nil, types.NewGenerationError(g.Name(),
				fmt.Sprintf("operation %s failed", op)).
				WithDetail(string(status.Error))
		}
		if status.Done {
			g.logger.Debug("operation done", zap.String("operation", op), zap.Int("polls", polls))
			return status, nil
		}
		g.logger.Debug("operation running",
			zap.String("operation", op),
			zap.Int("polls", polls),
			zap.Duration("next_poll", g.cfg.PollInterval),
		)
	}
}

func loadInlineImage(path string) (*InlineImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &InlineImage{MIMEType: mimeTypeFor(path, "image/png"), Data: data}, nil
}

func mimeTypeFor(path, fallback string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return fallback
}

// withProvider stamps provider on a typed error that has none.
func withProvider(err error, provider string) error {
	if e, ok := types.AsError(err); ok && e.Provider == "" {
		e.Provider = provider
	}
	return err
}

// asGenerationError keeps typed errors as they are and wraps anything else as GENERATION.
func asGenerationError(err error, provider, msg string) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	return types.NewGenerationError(provider, msg).WithCause(err)
}

// asDownloadError reports any failure after the backend succeeded as DOWNLOAD.
func asDownloadError(err error, provider, msg string) error {
	if types.IsErrorCode(err, types.ErrDownload) {
		return err
	}
	return types.NewDownloadError(provider, msg).WithCause(err)
}
