package video

import (
	"time"

	"github.com/BaSui01/mediagen/llm/retry"
)

// Default endpoints.
const (
	DefaultGeminiBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultReplicateBaseURL = "https://api.replicate.com"
	DefaultPVideoModel      = "prunaai/p-video"
)

// VeoConfig 配置 Google Veo 视频生成适配器（长任务轮询模式）.
type VeoConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// Variant: veo-2, veo-3-generate-preview, veo-3.1-generate-preview
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`

	PollInterval      time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	MaxWait           time.Duration `json:"max_wait,omitempty" yaml:"max_wait,omitempty"`
	Timeout           time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"` // 单次 HTTP 请求超时
	RequestsPerSecond float64       `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`

	// Retry 用于轮询与下载中的瞬时失败；为空时使用 retry.DefaultRetryPolicy()。
	Retry *retry.RetryPolicy `json:"-" yaml:"-"`
}

// DefaultVeoConfig 返回默认 Veo 配置.
func DefaultVeoConfig() VeoConfig {
	return VeoConfig{
		BaseURL:           DefaultGeminiBaseURL,
		Variant:           VeoVariant31,
		PollInterval:      10 * time.Second,
		MaxWait:           10 * time.Minute,
		Timeout:           60 * time.Second,
		RequestsPerSecond: 1,
	}
}

func (c VeoConfig) withDefaults() VeoConfig {
	d := DefaultVeoConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Variant == "" {
		c.Variant = d.Variant
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxWait <= 0 {
		c.MaxWait = d.MaxWait
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// PVideoConfig 配置 Replicate P-Video 适配器（同步调用模式）.
type PVideoConfig struct {
	APIToken string `json:"api_token" yaml:"api_token"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Draft    bool   `json:"draft" yaml:"draft"`

	FPS int `json:"fps,omitempty" yaml:"fps,omitempty"`
	// PromptUpsampling 为 nil 时默认开启
	PromptUpsampling *bool `json:"prompt_upsampling,omitempty" yaml:"prompt_upsampling,omitempty"`

	// Timeout bounds each HTTP request, including the blocking prediction call.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// PollInterval is used only when the backend returns before the prediction finished.
	PollInterval      time.Duration `json:"poll_interval,omitempty" yaml:"poll_interval,omitempty"`
	RequestsPerSecond float64       `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`

	Retry *retry.RetryPolicy `json:"-" yaml:"-"`
}

// DefaultPVideoConfig 返回默认 P-Video 配置.
func DefaultPVideoConfig() PVideoConfig {
	return PVideoConfig{
		BaseURL:           DefaultReplicateBaseURL,
		Model:             DefaultPVideoModel,
		FPS:               24,
		PromptUpsampling:  BoolPtr(true),
		Timeout:           5 * time.Minute,
		PollInterval:      2 * time.Second,
		RequestsPerSecond: 1,
	}
}

func (c PVideoConfig) withDefaults() PVideoConfig {
	d := DefaultPVideoConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.FPS <= 0 {
		c.FPS = d.FPS
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.PromptUpsampling == nil {
		c.PromptUpsampling = BoolPtr(true)
	}
	return c
}

// BoolPtr 返回 v 的指针
func BoolPtr(v bool) *bool { return &v }
