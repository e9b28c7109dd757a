// =============================================================================
// 📦 mediagen 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("mediagen.yaml").
//	    WithEnvPrefix("MEDIAGEN").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 前缀环境变量 → 通用凭证变量（仅填充空值）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 mediagen 的完整配置结构
type Config struct {
	// Providers 各视频后端的凭证与调优参数
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Compare 对比运行的默认参数
	Compare CompareConfig `yaml:"compare" env:"COMPARE"`

	// Storage 对象存储（发布产物）配置
	Storage StorageConfig `yaml:"storage" env:"STORAGE"`

	// Ledger 生成记录台账配置
	Ledger LedgerConfig `yaml:"ledger" env:"LEDGER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// ProvidersConfig 视频后端配置
type ProvidersConfig struct {
	Veo    VeoConfig    `yaml:"veo" env:"VEO"`
	PVideo PVideoConfig `yaml:"pvideo" env:"PVIDEO"`
}

// VeoConfig Google Veo（Gemini API）配置
type VeoConfig struct {
	// API Key，为空时回退到 GEMINI_API_KEY
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 操作状态轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 单次生成的最长等待时间
	MaxWait time.Duration `yaml:"max_wait" env:"MAX_WAIT"`
	// 单次 HTTP 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数上限（0 表示不限）
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	// 状态查询与下载的最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// PVideoConfig Replicate P-Video 配置
type PVideoConfig struct {
	// API Token，为空时回退到 REPLICATE_API_TOKEN
	APIToken string `yaml:"api_token" env:"API_TOKEN"`
	// 基础 URL（可选）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型标识 owner/name[:version]
	Model string `yaml:"model" env:"MODEL"`
	// 帧率
	FPS int `yaml:"fps" env:"FPS"`
	// 是否启用提示词扩写
	PromptUpsampling bool `yaml:"prompt_upsampling" env:"PROMPT_UPSAMPLING"`
	// 单次生成超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 预测状态轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 每秒请求数上限（0 表示不限）
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	// 状态查询与下载的最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
}

// CompareConfig 对比运行默认参数（命令行参数可覆盖）
type CompareConfig struct {
	// 默认参与对比的模型
	Models []string `yaml:"models" env:"MODELS"`
	// 输出目录
	OutputDir string `yaml:"output_dir" env:"OUTPUT_DIR"`
	// 目标时长（秒）
	DurationSeconds int `yaml:"duration_seconds" env:"DURATION_SECONDS"`
	// 分辨率档位
	Resolution string `yaml:"resolution" env:"RESOLUTION"`
	// 宽高比
	AspectRatio string `yaml:"aspect_ratio" env:"ASPECT_RATIO"`
	// 是否默认发布到对象存储
	Upload bool `yaml:"upload" env:"UPLOAD"`
	// 远端路径前缀
	RemotePrefix string `yaml:"remote_prefix" env:"REMOTE_PREFIX"`
	// 并发上传数
	UploadConcurrency int `yaml:"upload_concurrency" env:"UPLOAD_CONCURRENCY"`
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	// 后端: s3, rclone, none
	Backend string `yaml:"backend" env:"BACKEND"`
	// S3 兼容端点（host[:port]，不带协议）
	Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
	// 存储桶
	Bucket string `yaml:"bucket" env:"BUCKET"`
	// 区域
	Region string `yaml:"region" env:"REGION"`
	// Access Key，为空时回退到 R2_ACCESS_KEY_ID
	AccessKeyID string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	// Secret Key，为空时回退到 R2_SECRET_ACCESS_KEY
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	// 是否使用 HTTPS
	UseSSL bool `yaml:"use_ssl" env:"USE_SSL"`
	// 公开访问基础 URL
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	// rclone 远端名
	RcloneRemote string `yaml:"rclone_remote" env:"RCLONE_REMOTE"`
	// rclone 可执行文件
	RcloneBinary string `yaml:"rclone_binary" env:"RCLONE_BINARY"`
}

// LedgerConfig 生成记录台账配置
type LedgerConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动: sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 下为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// 文本文件输出路径（node_exporter textfile collector），为空不写
	TextfilePath string `yaml:"textfile_path" env:"TEXTFILE_PATH"`
	// Pushgateway 地址，为空不推送
	PushGatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`
	// Pushgateway job 名
	PushJob string `yaml:"push_job" env:"PUSH_JOB"`
}

// =============================================================================
// 🔑 通用凭证变量
// =============================================================================

// 后端文档约定的环境变量名，前缀变量未设置时使用
const (
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
	EnvReplicateAPIToken = "REPLICATE_API_TOKEN"
	EnvR2AccessKeyID     = "R2_ACCESS_KEY_ID"
	EnvR2SecretKey       = "R2_SECRET_ACCESS_KEY"
)

// LookupEnvFunc 与 os.LookupEnv 签名一致
type LookupEnvFunc func(key string) (string, bool)

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	lookupEnv  LookupEnvFunc
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "MEDIAGEN",
		lookupEnv:  os.LookupEnv,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookupEnv 替换环境变量来源（测试中注入）
func (l *Loader) WithLookupEnv(fn LookupEnvFunc) *Loader {
	if fn != nil {
		l.lookupEnv = fn
	}
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从前缀环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 通用凭证变量只填充仍为空的字段
	l.applyWellKnownEnv(cfg)

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

func (l *Loader) applyWellKnownEnv(cfg *Config) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := l.lookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&cfg.Providers.Veo.APIKey, EnvGeminiAPIKey)
	fill(&cfg.Providers.PVideo.APIToken, EnvReplicateAPIToken)
	fill(&cfg.Storage.AccessKeyID, EnvR2AccessKeyID)
	fill(&cfg.Storage.SecretAccessKey, EnvR2SecretKey)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue, ok := l.lookupEnv(envKey)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片，空项丢弃
		if field.Type().Elem().Kind() == reflect.String {
			parts := make([]string, 0)
			for _, p := range strings.Split(value, ",") {
				if p = strings.TrimSpace(p); p != "" {
					parts = append(parts, p)
				}
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Compare.DurationSeconds <= 0 {
		errs = append(errs, "compare.duration_seconds must be positive")
	}
	if strings.TrimSpace(c.Compare.Resolution) == "" {
		errs = append(errs, "compare.resolution must not be empty")
	}
	if c.Compare.UploadConcurrency <= 0 {
		errs = append(errs, "compare.upload_concurrency must be positive")
	}

	switch c.Storage.Backend {
	case "none", "":
	case "rclone":
		if c.Storage.Bucket == "" || c.Storage.RcloneRemote == "" {
			errs = append(errs, "storage: rclone backend requires bucket and rclone_remote")
		}
	case "s3":
		if c.Storage.Bucket == "" || c.Storage.Endpoint == "" {
			errs = append(errs, "storage: s3 backend requires bucket and endpoint")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.backend %q is not one of s3, rclone, none", c.Storage.Backend))
	}

	if c.Ledger.Enabled {
		switch c.Ledger.Database.Driver {
		case "sqlite", "postgres", "mysql":
		default:
			errs = append(errs, fmt.Sprintf("ledger.database.driver %q is not one of sqlite, postgres, mysql", c.Ledger.Database.Driver))
		}
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q is not one of json, console", c.Log.Format))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry.sample_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
