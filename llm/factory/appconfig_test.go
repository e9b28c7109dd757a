package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/mediagen/config"
	"github.com/BaSui01/mediagen/llm/retry"
)

func TestFromAppConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.Veo.APIKey = "gk"
	cfg.Providers.Veo.PollInterval = 3 * time.Second
	cfg.Providers.Veo.MaxRetries = 1
	cfg.Providers.PVideo.APIToken = "r8"
	cfg.Providers.PVideo.FPS = 30
	cfg.Providers.PVideo.MaxRetries = 0
	cfg.Providers.PVideo.PromptUpsampling = false

	fc := FromAppConfig(cfg)
	assert.Equal(t, "gk", fc.GeminiAPIKey)
	assert.Equal(t, "r8", fc.ReplicateAPIToken)
	assert.Equal(t, 3*time.Second, fc.Veo.PollInterval)
	assert.Equal(t, 1, fc.Veo.Retry.MaxRetries)
	assert.Equal(t, 0, fc.PVideo.Retry.MaxRetries)
	assert.Equal(t, 30, fc.PVideo.FPS)
	require.NotNil(t, fc.PVideo.PromptUpsampling)
	assert.False(t, *fc.PVideo.PromptUpsampling)
	assert.Empty(t, fc.Veo.APIKey, "credentials are filled in by the registered constructor")
	assert.Empty(t, fc.PVideo.APIToken)
}

func TestFromAppConfig_Nil(t *testing.T) {
	assert.Equal(t, DefaultConfig(), FromAppConfig(nil))
}

func TestRetryPolicy_NegativeKeepsDefault(t *testing.T) {
	assert.Equal(t, retry.DefaultRetryPolicy().MaxRetries, retryPolicy(-1).MaxRetries)
}
