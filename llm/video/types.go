// Package video provides a unified video generation interface over multiple backends.
package video

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/BaSui01/mediagen/types"
)

// Resolution is a coarse pricing tier, not a literal pixel contract.
type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
	Resolution4K    Resolution = "4k"
)

// ParseResolution normalizes case and surrounding space ("1080P " -> "1080p").
func ParseResolution(s string) Resolution {
	return Resolution(strings.ToLower(strings.TrimSpace(s)))
}

func (r Resolution) String() string { return string(r) }

// Request defaults.
const (
	DefaultDurationSeconds = 5
	DefaultAspectRatio     = "16:9"
	DefaultResolution      = Resolution720p
)

// Request is the parameter bundle passed to Generator.Generate.
type Request struct {
	Prompt          string     `json:"prompt"`
	OutputPath      string     `json:"output_path"`
	DurationSeconds int        `json:"duration_seconds,omitempty"`
	AspectRatio     string     `json:"aspect_ratio,omitempty"`
	Resolution      Resolution `json:"resolution,omitempty"`
	ImagePath       string     `json:"image_path,omitempty"`
	NegativePrompt  string     `json:"negative_prompt,omitempty"`
	Seed            *int64     `json:"seed,omitempty"`

	// Extra carries model-specific parameters (person_generation, fps,
	// prompt_upsampling, audio_path ...). Adapters read the keys they know
	// and echo all of them into the result metadata.
	Extra map[string]any `json:"extra,omitempty"`
}

// WithDefaults returns a copy of r with zero-valued optional fields filled in.
func (r Request) WithDefaults() Request {
	if r.DurationSeconds <= 0 {
		r.DurationSeconds = DefaultDurationSeconds
	}
	if strings.TrimSpace(r.AspectRatio) == "" {
		r.AspectRatio = DefaultAspectRatio
	}
	if r.Resolution == "" {
		r.Resolution = DefaultResolution
	} else {
		r.Resolution = ParseResolution(string(r.Resolution))
	}
	return r
}

// Validate checks the two fields that have no default.
func (r *Request) Validate() error {
	if r == nil {
		return types.NewInvalidRequestError("", "request is nil")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return types.NewInvalidRequestError("", "prompt is required")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return types.NewInvalidRequestError("", "output path is required")
	}
	return nil
}

// Result describes one completed generation. It is immutable once built.
type Result struct {
	filePath        string
	durationSeconds float64
	modelUsed       string
	estimatedCost   float64
	generationTime  time.Duration
	metadata        map[string]any
}

// ResultParams carries the fields of a Result at construction time.
type ResultParams struct {
	FilePath        string
	DurationSeconds float64
	ModelUsed       string
	EstimatedCost   float64
	GenerationTime  time.Duration
	Metadata        map[string]any
}

// NewResult builds a Result. The metadata map is copied; nil becomes empty.
func NewResult(p ResultParams) *Result {
	return &Result{
		filePath:        p.FilePath,
		durationSeconds: p.DurationSeconds,
		modelUsed:       p.ModelUsed,
		estimatedCost:   p.EstimatedCost,
		generationTime:  p.GenerationTime,
		metadata:        copyMetadata(p.Metadata),
	}
}

func (r *Result) FilePath() string              { return r.filePath }
func (r *Result) DurationSeconds() float64      { return r.durationSeconds }
func (r *Result) ModelUsed() string             { return r.modelUsed }
func (r *Result) EstimatedCost() float64        { return r.estimatedCost }
func (r *Result) GenerationTime() time.Duration { return r.generationTime }

// GenerationTimeSeconds returns the wall-clock generation time rounded to 0.1s.
func (r *Result) GenerationTimeSeconds() float64 {
	return math.Round(r.generationTime.Seconds()*10) / 10
}

// Metadata returns a copy of the provider detail map. Never nil.
func (r *Result) Metadata() map[string]any {
	return copyMetadata(r.metadata)
}

type resultJSON struct {
	FilePath              string         `json:"file_path"`
	DurationSeconds       float64        `json:"duration_seconds"`
	ModelUsed             string         `json:"model_used"`
	EstimatedCost         float64        `json:"estimated_cost"`
	GenerationTimeSeconds float64        `json:"generation_time_seconds"`
	Metadata              map[string]any `json:"metadata"`
}

// MarshalJSON implements json.Marshaler.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		FilePath:              r.filePath,
		DurationSeconds:       r.durationSeconds,
		ModelUsed:             r.modelUsed,
		EstimatedCost:         r.estimatedCost,
		GenerationTimeSeconds: r.GenerationTimeSeconds(),
		Metadata:              r.Metadata(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw resultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = *NewResult(ResultParams{
		FilePath:        raw.FilePath,
		DurationSeconds: raw.DurationSeconds,
		ModelUsed:       raw.ModelUsed,
		EstimatedCost:   raw.EstimatedCost,
		GenerationTime:  time.Duration(raw.GenerationTimeSeconds * float64(time.Second)),
		Metadata:        raw.Metadata,
	})
	return nil
}

func copyMetadata(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DurationLister is implemented by generators that accept only some clip
// lengths. Requested durations outside the set are snapped or clamped.
type DurationLister interface {
	SupportedDurations() []int
}

// Generator is the capability set every backend adapter implements.
type Generator interface {
	// Name returns a human-readable identifier that includes the variant or tier.
	Name() string

	// EstimateCost prices a clip from the adapter's static table. It performs
	// no I/O. Unknown resolution tiers return an INVALID_REQUEST error.
	EstimateCost(durationSeconds float64, res Resolution) (float64, error)

	// Generate runs submit, wait, download and save. On success the file at
	// req.OutputPath exists and is non-empty; on failure nothing is left there.
	Generate(ctx context.Context, req *Request) (*Result, error)
}
