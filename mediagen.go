// Package mediagen provides a top-level convenience entry point for generating
// and comparing videos with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/mediagen"
//
//	g, err := mediagen.NewGenerator("veo-3.1")
//	res, err := g.Generate(ctx, &mediagen.Request{Prompt: "a red fox", OutputPath: "fox.mp4"})
//
//	sum, err := mediagen.Compare(ctx, "a red fox", []string{"veo-3", "p-video"})
//
// Credentials and tuning are read from the environment (GEMINI_API_KEY,
// REPLICATE_API_TOKEN and MEDIAGEN_* overrides). Use llm/factory and compare
// directly for YAML config, custom registries or publishing.
package mediagen

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/mediagen/compare"
	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/llm/factory"
	"github.com/BaSui01/mediagen/llm/video"
)

// Generator is the common video generation contract.
type Generator = video.Generator

// Request describes one generation call.
type Request = video.Request

// Result describes a generated video file.
type Result = video.Result

// Summary is the outcome of a comparison run.
type Summary = compare.Summary

// CompareOption configures the harness used by [Compare].
type CompareOption = compare.Option

// WithLogger sets a custom zap logger on the comparison harness.
var WithLogger = compare.WithLogger

// WithEventSink subscribes to comparison progress events.
var WithEventSink = compare.WithEventSink

// NewGenerator creates a generator by registry name (case-insensitive) using
// configuration from the environment.
func NewGenerator(name string) (Generator, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return factory.NewGenerator(name, factory.FromAppConfig(cfg), zap.NewNop())
}

// Compare runs prompt through each model in order and writes the summary to
// the configured output directory. With no models the configured defaults
// are used.
func Compare(ctx context.Context, prompt string, models []string, opts ...CompareOption) (*Summary, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		models = cfg.Compare.Models
	}
	h := compare.New(factory.Default().Bind(factory.FromAppConfig(cfg), zap.NewNop()), opts...)
	return h.Run(ctx, compare.Options{
		Prompt:          prompt,
		Models:          models,
		OutputDir:       cfg.Compare.OutputDir,
		DurationSeconds: cfg.Compare.DurationSeconds,
		Resolution:      cfg.Compare.Resolution,
		AspectRatio:     cfg.Compare.AspectRatio,
	})
}
