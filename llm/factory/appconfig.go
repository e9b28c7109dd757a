package factory

import (
	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/llm/retry"
	"github.com/BaSui01/mediagen/llm/video"
)

// FromAppConfig converts the loaded application config into registry
// credentials and adapter tuning.
func FromAppConfig(cfg *config.Config) Config {
	fc := DefaultConfig()
	if cfg == nil {
		return fc
	}
	fc.GeminiAPIKey = cfg.Providers.Veo.APIKey
	fc.ReplicateAPIToken = cfg.Providers.PVideo.APIToken

	veo := cfg.Providers.Veo
	fc.Veo = video.VeoConfig{
		BaseURL:           veo.BaseURL,
		PollInterval:      veo.PollInterval,
		MaxWait:           veo.MaxWait,
		Timeout:           veo.Timeout,
		RequestsPerSecond: veo.RequestsPerSecond,
		Retry:             retryPolicy(veo.MaxRetries),
	}

	pv := cfg.Providers.PVideo
	fc.PVideo = video.PVideoConfig{
		BaseURL:           pv.BaseURL,
		Model:             pv.Model,
		FPS:               pv.FPS,
		PromptUpsampling:  video.BoolPtr(pv.PromptUpsampling),
		Timeout:           pv.Timeout,
		PollInterval:      pv.PollInterval,
		RequestsPerSecond: pv.RequestsPerSecond,
		Retry:             retryPolicy(pv.MaxRetries),
	}
	return fc
}

// retryPolicy keeps the default backoff and replaces only the retry count.
// Negative means default.
func retryPolicy(maxRetries int) *retry.RetryPolicy {
	p := retry.DefaultRetryPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	return p
}
