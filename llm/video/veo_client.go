package video

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/types"
)

// veoRESTClient implements OperationClient against the Gemini API
// (models/{model}:predictLongRunning + operations polling).
type veoRESTClient struct {
	baseURL string
	apiKey  string
	http    *apiClient
}

// NewVeoRESTClient 创建基于 Gemini REST API 的 OperationClient.
func NewVeoRESTClient(cfg VeoConfig, logger *zap.Logger) OperationClient {
	cfg = cfg.withDefaults()
	return &veoRESTClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    newAPIClient(veoName(cfg.Variant), cfg.Timeout, cfg.RequestsPerSecond, logger),
	}
}

type veoPredictRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoParameters struct {
	AspectRatio      string `json:"aspectRatio,omitempty"`
	Resolution       string `json:"resolution,omitempty"`
	DurationSeconds  int    `json:"durationSeconds,omitempty"`
	NegativePrompt   string `json:"negativePrompt,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
	Seed             *int64 `json:"seed,omitempty"`
}

type veoOperation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    json.RawMessage `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (c *veoRESTClient) header() http.Header {
	h := http.Header{}
	h.Set("x-goog-api-key", c.apiKey)
	return h
}

// Submit implements OperationClient.
func (c *veoRESTClient) Submit(ctx context.Context, model string, req *SubmitRequest) (string, error) {
	instance := veoInstance{Prompt: req.Prompt}
	if req.Image != nil {
		instance.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType:           req.Image.MIMEType,
		}
	}

	params := veoParameters{
		AspectRatio:      req.AspectRatio,
		DurationSeconds:  req.DurationSeconds,
		NegativePrompt:   req.NegativePrompt,
		PersonGeneration: req.PersonGeneration,
		Seed:             req.Seed,
	}
	// veo-2 has no resolution parameter; it always renders 720p.
	if model != VeoVariant2 {
		params.Resolution = req.Resolution.String()
	}

	body := veoPredictRequest{
		Instances:  []veoInstance{instance},
		Parameters: params,
	}

	var op veoOperation
	url := fmt.Sprintf("%s/v1beta/models/%s:predictLongRunning", c.baseURL, model)
	if err := c.http.doJSON(ctx, http.MethodPost, url, c.header(), body, &op); err != nil {
		return "", err
	}
	if op.Name == "" {
		return "", types.NewGenerationError(c.http.provider, "submit returned no operation name")
	}
	return op.Name, nil
}

// Status implements OperationClient.
func (c *veoRESTClient) Status(ctx context.Context, operation string) (*OperationStatus, error) {
	var op veoOperation
	url := fmt.Sprintf("%s/v1beta/%s", c.baseURL, strings.TrimLeft(operation, "/"))
	if err := c.http.doJSON(ctx, http.MethodGet, url, c.header(), nil, &op); err != nil {
		return nil, err
	}

	status := &OperationStatus{Done: op.Done, Error: op.Error}
	if op.Response != nil {
		for _, s := range op.Response.GenerateVideoResponse.GeneratedSamples {
			if s.Video.URI != "" {
				status.VideoURIs = append(status.VideoURIs, s.Video.URI)
			}
		}
	}
	return status, nil
}

// Download implements OperationClient. Artifact URIs need the API key too.
func (c *veoRESTClient) Download(ctx context.Context, uri string, w io.Writer) error {
	return c.http.download(ctx, uri, c.header(), w)
}
