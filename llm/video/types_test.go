package video

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/mediagen/types"
)

func TestNewResult_MetadataNeverNil(t *testing.T) {
	r := NewResult(ResultParams{FilePath: "out.mp4"})
	require.NotNil(t, r.Metadata())
	assert.Empty(t, r.Metadata())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metadata":{}`)
}

func TestResult_IsImmutable(t *testing.T) {
	src := map[string]any{"variant": "veo-2"}
	r := NewResult(ResultParams{Metadata: src})

	src["variant"] = "changed"
	assert.Equal(t, "veo-2", r.Metadata()["variant"])

	got := r.Metadata()
	got["variant"] = "changed again"
	assert.Equal(t, "veo-2", r.Metadata()["variant"])
}

func TestResult_JSONRoundTrip(t *testing.T) {
	r := NewResult(ResultParams{
		FilePath:        "/tmp/a.mp4",
		DurationSeconds: 8,
		ModelUsed:       "google-veo (veo-2)",
		EstimatedCost:   0.16,
		GenerationTime:  42340 * time.Millisecond,
		Metadata:        map[string]any{"prompt": "a cat"},
	})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, 42.3, fields["generation_time_seconds"])
	assert.Equal(t, "google-veo (veo-2)", fields["model_used"])

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.FilePath(), back.FilePath())
	assert.Equal(t, r.EstimatedCost(), back.EstimatedCost())
	assert.Equal(t, "a cat", back.Metadata()["prompt"])
}

func TestRequest_WithDefaults(t *testing.T) {
	r := Request{Prompt: "p", OutputPath: "o.mp4", Resolution: " 1080P "}.WithDefaults()
	assert.Equal(t, DefaultDurationSeconds, r.DurationSeconds)
	assert.Equal(t, DefaultAspectRatio, r.AspectRatio)
	assert.Equal(t, Resolution1080p, r.Resolution)

	r = Request{}.WithDefaults()
	assert.Equal(t, DefaultResolution, r.Resolution)
}

func TestRequest_Validate(t *testing.T) {
	var nilReq *Request
	assert.True(t, types.IsErrorCode(nilReq.Validate(), types.ErrInvalidRequest))
	assert.Error(t, (&Request{OutputPath: "o"}).Validate())
	assert.Error(t, (&Request{Prompt: "p"}).Validate())
	assert.NoError(t, (&Request{Prompt: "p", OutputPath: "o"}).Validate())
}
