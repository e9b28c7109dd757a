package video

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/mediagen/llm/retry"
	"github.com/BaSui01/mediagen/types"
)

func testVeoConfig(variant string) VeoConfig {
	return VeoConfig{
		APIKey:       "test-key",
		Variant:      variant,
		PollInterval: 2 * time.Millisecond,
		MaxWait:      2 * time.Second,
		Retry:        fastRetryPolicy(),
	}
}

func newTestVeo(t *testing.T, variant string, client OperationClient) *VeoGenerator {
	t.Helper()
	g, err := NewVeoGeneratorWithClient(testVeoConfig(variant), client, zaptest.NewLogger(t))
	require.NoError(t, err)
	return g
}

func TestNewVeoGenerator_MissingKey(t *testing.T) {
	_, err := NewVeoGenerator(VeoConfig{Variant: VeoVariant31}, nil)
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrCredential))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestNewVeoGeneratorWithClient_UnknownVariant(t *testing.T) {
	_, err := NewVeoGeneratorWithClient(testVeoConfig("veo-9"), &fakeOperationClient{}, nil)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
}

func TestVeoGenerator_Name(t *testing.T) {
	g := newTestVeo(t, VeoVariant31, &fakeOperationClient{})
	assert.Equal(t, "google-veo (veo-3.1-generate-preview)", g.Name())
	assert.Equal(t, []int{4, 6, 8}, g.SupportedDurations())
}

func TestVeoGenerator_GenerateSuccess(t *testing.T) {
	client := &fakeOperationClient{
		statuses: []*OperationStatus{
			{Done: false},
			{Done: true, VideoURIs: []string{"https://files/v1.mp4", "https://files/v2.mp4"}},
		},
		payload: []byte("mp4-bytes"),
	}
	g := newTestVeo(t, VeoVariant31, client)

	out := filepath.Join(t.TempDir(), "nested", "veo.mp4")
	res, err := g.Generate(context.Background(), &Request{
		Prompt:          "a lighthouse at dusk",
		OutputPath:      out,
		DurationSeconds: 8,
		Resolution:      Resolution1080p,
		Extra:           map[string]any{"person_generation": "allow_adult", "variant": "ignored"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "mp4-bytes", string(data))

	assert.Equal(t, out, res.FilePath())
	assert.Equal(t, 8.0, res.DurationSeconds())
	assert.Equal(t, 0.56, res.EstimatedCost())
	assert.Equal(t, g.Name(), res.ModelUsed())
	assert.Equal(t, []string{"https://files/v1.mp4"}, client.downloads)

	md := res.Metadata()
	assert.Equal(t, VeoVariant31, md["variant"])
	assert.Equal(t, "operations/op-123", md["operation"])
	assert.Equal(t, "allow_adult", md["person_generation"])
	assert.Equal(t, "16:9", md["aspect_ratio"])

	require.Len(t, client.submitted, 1)
	assert.Equal(t, "allow_adult", client.submitted[0].PersonGeneration)
	assert.Equal(t, 8, client.submitted[0].DurationSeconds)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestVeoGenerator_DurationSnappedAndPriced(t *testing.T) {
	client := &fakeOperationClient{
		statuses: []*OperationStatus{{Done: true, VideoURIs: []string{"u"}}},
		payload:  []byte("x"),
	}
	g := newTestVeo(t, VeoVariant31, client)

	res, err := g.Generate(context.Background(), &Request{
		Prompt:          "p",
		OutputPath:      filepath.Join(t.TempDir(), "o.mp4"),
		DurationSeconds: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 6.0, res.DurationSeconds())
	assert.Equal(t, 0.21, res.EstimatedCost())
	assert.Equal(t, 5, res.Metadata()["requested_duration_seconds"])
}

func TestVeoGenerator_Timeout(t *testing.T) {
	client := &fakeOperationClient{statuses: []*OperationStatus{{Done: false}}}
	cfg := testVeoConfig(VeoVariant2)
	cfg.MaxWait = 30 * time.Millisecond
	g, err := NewVeoGeneratorWithClient(cfg, client, nil)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "never.mp4")
	start := time.Now()
	_, err = g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: out})

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrTimeout), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Greater(t, client.calls(), 0)
	assert.NoFileExists(t, out)
}

func TestVeoGenerator_OperationErrorVerbatim(t *testing.T) {
	raw := `{"code":3,"message":"The prompt could not be submitted. It violates usage guidelines."}`
	client := &fakeOperationClient{
		statuses: []*OperationStatus{{Done: true, Error: json.RawMessage(raw)}},
	}
	g := newTestVeo(t, VeoVariant3, client)

	out := filepath.Join(t.TempDir(), "o.mp4")
	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: out})
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrGeneration, e.Code)
	assert.Equal(t, raw, e.Detail)
	assert.Contains(t, err.Error(), raw)
	assert.NoFileExists(t, out)
}

func TestVeoGenerator_TransientStatusErrorsRetried(t *testing.T) {
	client := &fakeOperationClient{
		statusErrs: []error{
			types.NewGenerationError("veo", "503").WithRetryable(true),
			retry.WrapRetryable(errors.New("connection reset")),
		},
		statuses: []*OperationStatus{{Done: true, VideoURIs: []string{"u"}}},
		payload:  []byte("x"),
	}
	g := newTestVeo(t, VeoVariant2, client)

	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: filepath.Join(t.TempDir(), "o.mp4")})
	require.NoError(t, err)
	assert.Equal(t, 3, client.calls())
}

func TestVeoGenerator_PermanentStatusErrorFails(t *testing.T) {
	client := &fakeOperationClient{
		statusErrs: []error{types.NewGenerationError("veo", "GET returned 404").WithHTTPStatus(404)},
	}
	g := newTestVeo(t, VeoVariant2, client)

	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: filepath.Join(t.TempDir(), "o.mp4")})
	assert.True(t, types.IsErrorCode(err, types.ErrGeneration))
	assert.Equal(t, 1, client.calls())
}

func TestVeoGenerator_UnknownResolutionBeforeSubmit(t *testing.T) {
	client := &fakeOperationClient{}
	g := newTestVeo(t, VeoVariant2, client)

	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: "o.mp4", Resolution: "8k"})
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidRequest))
	assert.Empty(t, client.submitted)
}

func TestVeoGenerator_DownloadFailureLeavesNoFile(t *testing.T) {
	tests := []struct {
		name string
		fn   func(w io.Writer) error
	}{
		{"error", func(w io.Writer) error {
			_, _ = w.Write([]byte("partial"))
			return errors.New("stream reset")
		}},
		{"empty", func(io.Writer) error { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeOperationClient{
				statuses:   []*OperationStatus{{Done: true, VideoURIs: []string{"u"}}},
				downloadFn: tt.fn,
			}
			g := newTestVeo(t, VeoVariant2, client)

			dir := t.TempDir()
			out := filepath.Join(dir, "o.mp4")
			_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: out})
			assert.True(t, types.IsErrorCode(err, types.ErrDownload), "got %v", err)
			assert.NoFileExists(t, out)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestVeoGenerator_DoneWithoutVideo(t *testing.T) {
	client := &fakeOperationClient{statuses: []*OperationStatus{{Done: true}}}
	g := newTestVeo(t, VeoVariant2, client)

	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: filepath.Join(t.TempDir(), "o.mp4")})
	assert.True(t, types.IsErrorCode(err, types.ErrGeneration))
}

func TestVeoGenerator_ImageSentInline(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "frame.png")
	require.NoError(t, os.WriteFile(img, []byte("png-bytes"), 0o644))

	client := &fakeOperationClient{
		statuses: []*OperationStatus{{Done: true, VideoURIs: []string{"u"}}},
		payload:  []byte("x"),
	}
	g := newTestVeo(t, VeoVariant31, client)

	_, err := g.Generate(context.Background(), &Request{Prompt: "p", OutputPath: filepath.Join(dir, "o.mp4"), ImagePath: img})
	require.NoError(t, err)
	require.NotNil(t, client.submitted[0].Image)
	assert.Equal(t, "image/png", client.submitted[0].Image.MIMEType)
	assert.Equal(t, []byte("png-bytes"), client.submitted[0].Image.Data)
}

// =============================================================================
// REST client
// =============================================================================

func TestVeoRESTClient_Lifecycle(t *testing.T) {
	var polls atomic.Int32
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1beta/models/veo-3.1-generate-preview:predictLongRunning":
			var body veoPredictRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a fox", body.Instances[0].Prompt)
			assert.Equal(t, 8, body.Parameters.DurationSeconds)
			assert.Equal(t, "1080p", body.Parameters.Resolution)
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/abc"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/v1beta/models/veo/operations/abc":
			if polls.Add(1) < 2 {
				_, _ = io.WriteString(w, `{"name":"models/veo/operations/abc","done":false}`)
				return
			}
			_, _ = io.WriteString(w, `{"name":"models/veo/operations/abc","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"`+srvURL+`/files/v.mp4"}}]}}}`)
		case r.URL.Path == "/files/v.mp4":
			_, _ = io.WriteString(w, "VIDEO")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	cfg := testVeoConfig(VeoVariant31)
	cfg.BaseURL = srv.URL
	g, err := NewVeoGenerator(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "fox.mp4")
	res, err := g.Generate(context.Background(), &Request{
		Prompt: "a fox", OutputPath: out, DurationSeconds: 8, Resolution: Resolution1080p,
	})
	require.NoError(t, err)
	assert.Equal(t, "models/veo/operations/abc", res.Metadata()["operation"])

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "VIDEO", string(data))
}

func TestVeoRESTClient_StatusErrorKeepsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"durationSeconds out of bound"}}`)
	}))
	defer srv.Close()

	cfg := testVeoConfig(VeoVariant2)
	cfg.BaseURL = srv.URL
	client := NewVeoRESTClient(cfg, nil)

	_, err := client.Submit(context.Background(), VeoVariant2, &SubmitRequest{Prompt: "p"})
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, e.HTTPStatus)
	assert.False(t, e.Retryable)
	assert.True(t, strings.Contains(e.Detail, "durationSeconds out of bound"))
}

func TestVeoRESTClient_Veo2OmitsResolution(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Parameters map[string]any `json:"parameters"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, has := body.Parameters["resolution"]
		assert.False(t, has)
		_, _ = io.WriteString(w, `{"name":"operations/x"}`)
	}))
	defer srv.Close()

	cfg := testVeoConfig(VeoVariant2)
	cfg.BaseURL = srv.URL
	op, err := NewVeoRESTClient(cfg, nil).Submit(context.Background(), VeoVariant2,
		&SubmitRequest{Prompt: "p", Resolution: Resolution720p})
	require.NoError(t, err)
	assert.Equal(t, "operations/x", op)
}

func TestVeoRESTClient_ServerErrorRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testVeoConfig(VeoVariant2)
	cfg.BaseURL = srv.URL
	_, err := NewVeoRESTClient(cfg, nil).Status(context.Background(), "operations/x")
	assert.True(t, types.IsRetryable(err))
}
