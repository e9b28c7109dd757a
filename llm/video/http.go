package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/mediagen/internal/ctxkeys"
	"github.com/BaSui01/mediagen/internal/tlsutil"
	"github.com/BaSui01/mediagen/types"
)

// maxErrorBody caps how much of an error response is kept as detail.
const maxErrorBody = 64 << 10

// apiClient is the HTTP plumbing shared by the REST boundaries: TLS-hardened
// client, client-side rate limit, and status-to-error mapping.
type apiClient struct {
	provider string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func newAPIClient(provider string, timeout time.Duration, requestsPerSecond float64, logger *zap.Logger) *apiClient {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &apiClient{
		provider: provider,
		client:   tlsutil.SecureHTTPClient(timeout),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

// do sends req after the limiter admits it. Any status >= 400 is turned into a
// typed error and the body is closed; otherwise the caller owns resp.Body.
func (c *apiClient) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, types.NewGenerationError(c.provider, "request not admitted by rate limiter").WithCause(err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, types.NewGenerationError(c.provider,
			fmt.Sprintf("%s %s failed", req.Method, req.URL.Path)).
			WithCause(err).
			WithRetryable(req.Context().Err() == nil)
	}

	c.logger.Debug("http request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, statusError(c.provider, req, resp.StatusCode, body)
	}
	return resp, nil
}

// doJSON marshals in (when non-nil), sends the request and decodes the body into out.
func (c *apiClient) doJSON(ctx context.Context, method, url string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return types.NewInvalidRequestError(c.provider, "failed to encode request").WithCause(err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return types.NewInvalidRequestError(c.provider, "failed to create request").WithCause(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewGenerationError(c.provider, "failed to decode response").WithCause(err)
	}
	return nil
}

// download streams url into w.
func (c *apiClient) download(ctx context.Context, url string, header http.Header, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.NewDownloadError(c.provider, "invalid artifact url").WithCause(err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.do(req)
	if err != nil {
		if e, ok := types.AsError(err); ok {
			return types.NewDownloadError(c.provider, "artifact request failed").
				WithHTTPStatus(e.HTTPStatus).
				WithDetail(e.Detail).
				WithRetryable(e.Retryable).
				WithCause(err)
		}
		return types.NewDownloadError(c.provider, "artifact request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return types.NewDownloadError(c.provider, "artifact stream interrupted").
			WithCause(err).
			WithRetryable(ctx.Err() == nil)
	}
	return nil
}

// statusError maps an HTTP error response to a GENERATION error with the body kept verbatim.
func statusError(provider string, req *http.Request, status int, body []byte) *types.Error {
	e := types.NewGenerationError(provider,
		fmt.Sprintf("%s %s returned %d", req.Method, req.URL.Path, status)).
		WithHTTPStatus(status).
		WithDetail(strings.TrimSpace(string(body)))
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout, status >= http.StatusInternalServerError:
		e.WithRetryable(true)
	}
	return e
}

// scopedLogger adds the run and model names carried by ctx.
func scopedLogger(ctx context.Context, l *zap.Logger) *zap.Logger {
	if id, ok := ctxkeys.RunID(ctx); ok {
		l = l.With(zap.String("run_id", id))
	}
	if m, ok := ctxkeys.Model(ctx); ok {
		l = l.With(zap.String("model", m))
	}
	return l
}
