package video

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/llm/retry"
	"github.com/BaSui01/mediagen/types"
)

// Terminal Replicate prediction states; anything else is still running.
const (
	predictionSucceeded = "succeeded"
	predictionFailed    = "failed"
	predictionCanceled  = "canceled"
)

// replicateRunner implements Runner with the Replicate HTTP API. It asks the
// server to hold the request open (Prefer: wait) and, if the prediction is
// still running when the server answers, keeps polling urls.get.
type replicateRunner struct {
	baseURL      string
	token        string
	pollInterval time.Duration
	http         *apiClient
	retryer      retry.Retryer
	logger       *zap.Logger
}

// NewReplicateRunner 创建基于 Replicate REST API 的 Runner.
func NewReplicateRunner(cfg PVideoConfig, logger *zap.Logger) Runner {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &replicateRunner{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		token:        cfg.APIToken,
		pollInterval: cfg.PollInterval,
		http:         newAPIClient(pvideoName(cfg.Draft), cfg.Timeout, cfg.RequestsPerSecond, logger),
		retryer:      retry.NewBackoffRetryer(cfg.Retry, logger),
		logger:       logger,
	}
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output any             `json:"output"`
	Error  json.RawMessage `json:"error"`
	Logs   string          `json:"logs,omitempty"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

func (p *prediction) terminal() bool {
	switch p.Status {
	case predictionSucceeded, predictionFailed, predictionCanceled:
		return true
	}
	return false
}

func (r *replicateRunner) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+r.token)
	return h
}

// Run implements Runner. model is "owner/name" or "owner/name:version".
func (r *replicateRunner) Run(ctx context.Context, model string, input map[string]any) (any, error) {
	url, body, err := r.createRequest(model, input)
	if err != nil {
		return nil, err
	}

	h := r.header()
	h.Set("Prefer", "wait")

	var pred prediction
	if err := r.http.doJSON(ctx, http.MethodPost, url, h, body, &pred); err != nil {
		return nil, err
	}
	r.logger.Debug("prediction created", zap.String("id", pred.ID), zap.String("status", pred.Status))

	if !pred.terminal() {
		if err := r.wait(ctx, &pred); err != nil {
			return nil, err
		}
	}

	if pred.Status != predictionSucceeded {
		return nil, types.NewGenerationError(r.http.provider,
			fmt.Sprintf("prediction %s %s", pred.ID, pred.Status)).
			WithDetail(string(pred.Error))
	}
	return pred.Output, nil
}

func (r *replicateRunner) createRequest(model string, input map[string]any) (string, map[string]any, error) {
	name, version, hasVersion := strings.Cut(model, ":")
	if hasVersion {
		return r.baseURL + "/v1/predictions", map[string]any{"version": version, "input": input}, nil
	}
	owner, modelName, ok := strings.Cut(name, "/")
	if !ok || owner == "" || modelName == "" {
		return "", nil, types.NewInvalidRequestError(r.http.provider,
			fmt.Sprintf("model %q is not in owner/name form", model))
	}
	return fmt.Sprintf("%s/v1/models/%s/%s/predictions", r.baseURL, owner, modelName),
		map[string]any{"input": input}, nil
}

// wait polls the prediction until it reaches a terminal state or ctx ends.
func (r *replicateRunner) wait(ctx context.Context, pred *prediction) error {
	getURL := pred.URLs.Get
	if getURL == "" {
		getURL = fmt.Sprintf("%s/v1/predictions/%s", r.baseURL, pred.ID)
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return types.NewTimeoutError(r.http.provider,
				fmt.Sprintf("stopped waiting for prediction %s (last status %s)", pred.ID, pred.Status)).
				WithCause(ctx.Err())
		case <-ticker.C:
		}

		next, err := retry.DoValue(ctx, r.retryer, func() (*prediction, error) {
			var p prediction
			if err := r.http.doJSON(ctx, http.MethodGet, getURL, r.header(), nil, &p); err != nil {
				return nil, err
			}
			return &p, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			return err
		}
		*pred = *next
		if pred.terminal() {
			return nil
		}
		r.logger.Debug("prediction running", zap.String("id", pred.ID), zap.String("status", pred.Status))
	}
}
