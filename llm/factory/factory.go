// Package factory maps case-insensitive model names to video.Generator
// constructors. It is the only place that knows every adapter package.
package factory

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/llm/video"
	"github.com/BaSui01/mediagen/types"
)

// Config carries explicit credentials and adapter tuning. Nothing here is read
// from the process environment; the config package does that.
type Config struct {
	GeminiAPIKey      string `json:"gemini_api_key" yaml:"gemini_api_key"`
	ReplicateAPIToken string `json:"replicate_api_token" yaml:"replicate_api_token"`

	// Veo and PVideo supply tuning only. Credentials, variant and tier are
	// filled in by the registered constructor.
	Veo    video.VeoConfig    `json:"veo" yaml:"veo"`
	PVideo video.PVideoConfig `json:"pvideo" yaml:"pvideo"`
}

// DefaultConfig returns a Config with adapter defaults and no credentials.
func DefaultConfig() Config {
	return Config{
		Veo:    video.DefaultVeoConfig(),
		PVideo: video.DefaultPVideoConfig(),
	}
}

// Constructor builds a generator. Credential errors must be returned as-is.
type Constructor func(cfg Config, logger *zap.Logger) (video.Generator, error)

// Estimator prices a clip without constructing a generator.
type Estimator func(durationSeconds float64, res video.Resolution) (float64, error)

type entry struct {
	ctor     Constructor
	estimate Estimator
}

// Registry is a thread-safe name -> constructor table.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// RegisterOption configures a registration.
type RegisterOption func(*entry)

// WithEstimator attaches an offline price function to a registration.
func WithEstimator(e Estimator) RegisterOption {
	return func(en *entry) { en.estimate = e }
}

// Register adds ctor under name. Names are trimmed and lower-cased; an
// existing registration is replaced.
func (r *Registry) Register(name string, ctor Constructor, opts ...RegisterOption) {
	en := entry{ctor: ctor}
	for _, opt := range opts {
		opt(&en)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[normalize(name)] = en
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

// Create constructs a fresh generator for name. Unknown names return a
// CONFIGURATION error; constructor errors are returned unchanged.
func (r *Registry) Create(name string, cfg Config, logger *zap.Logger) (video.Generator, error) {
	en, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return en.ctor(cfg, logger)
}

// Estimate prices a clip for name using its offline price table, so a cost
// preview works even when credentials are missing.
func (r *Registry) Estimate(name string, durationSeconds float64, res video.Resolution) (float64, error) {
	en, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	if en.estimate == nil {
		return 0, types.NewInvalidRequestError(normalize(name), "no offline price table registered")
	}
	return en.estimate(durationSeconds, res)
}

// Bind returns a name-only constructor over this registry, suitable for the
// comparison harness.
func (r *Registry) Bind(cfg Config, logger *zap.Logger) func(name string) (video.Generator, error) {
	return func(name string) (video.Generator, error) {
		return r.Create(name, cfg, logger)
	}
}

func (r *Registry) lookup(name string) (entry, error) {
	key := normalize(name)
	r.mu.RLock()
	en, ok := r.entries[key]
	r.mu.RUnlock()
	if !ok {
		return entry{}, types.NewConfigurationError("unknown model %q (available: %s)",
			name, strings.Join(r.Names(), ", "))
	}
	return en, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// =============================================================================
// Built-in registrations
// =============================================================================

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, populated on first use with
// veo-2, veo-3, veo-3.1, p-video and p-video-draft.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		RegisterBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// NewGenerator is shorthand for Default().Create.
func NewGenerator(name string, cfg Config, logger *zap.Logger) (video.Generator, error) {
	return Default().Create(name, cfg, logger)
}

// RegisterBuiltins adds the built-in model names to r.
func RegisterBuiltins(r *Registry) {
	veo := map[string]string{
		"veo-2":   video.VeoVariant2,
		"veo-3":   video.VeoVariant3,
		"veo-3.1": video.VeoVariant31,
	}
	for name, variant := range veo {
		r.Register(name, veoConstructor(variant), WithEstimator(func(d float64, res video.Resolution) (float64, error) {
			return video.EstimateVeoCost(variant, d, res)
		}))
	}

	for name, draft := range map[string]bool{"p-video": false, "p-video-draft": true} {
		r.Register(name, pvideoConstructor(draft), WithEstimator(func(d float64, res video.Resolution) (float64, error) {
			return video.EstimatePVideoCost(draft, d, res)
		}))
	}
}

func veoConstructor(variant string) Constructor {
	return func(cfg Config, logger *zap.Logger) (video.Generator, error) {
		vc := cfg.Veo
		vc.APIKey = cfg.GeminiAPIKey
		vc.Variant = variant
		g, err := video.NewVeoGenerator(vc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

func pvideoConstructor(draft bool) Constructor {
	return func(cfg Config, logger *zap.Logger) (video.Generator, error) {
		pc := cfg.PVideo
		pc.APIToken = cfg.ReplicateAPIToken
		pc.Draft = draft
		g, err := video.NewPVideoGenerator(pc, logger)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}
