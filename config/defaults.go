// =============================================================================
// 📦 mediagen 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Providers: DefaultProvidersConfig(),
		Compare:   DefaultCompareConfig(),
		Storage:   DefaultStorageConfig(),
		Ledger:    DefaultLedgerConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultProvidersConfig 返回默认后端配置
func DefaultProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		Veo: VeoConfig{
			BaseURL:           "https://generativelanguage.googleapis.com",
			PollInterval:      10 * time.Second,
			MaxWait:           10 * time.Minute,
			Timeout:           60 * time.Second,
			RequestsPerSecond: 1,
			MaxRetries:        3,
		},
		PVideo: PVideoConfig{
			BaseURL:           "https://api.replicate.com",
			Model:             "prunaai/p-video",
			FPS:               24,
			PromptUpsampling:  true,
			Timeout:           5 * time.Minute,
			PollInterval:      2 * time.Second,
			RequestsPerSecond: 1,
			MaxRetries:        3,
		},
	}
}

// DefaultCompareConfig 返回默认对比参数
func DefaultCompareConfig() CompareConfig {
	return CompareConfig{
		Models:            []string{"veo-3.1", "p-video-draft"},
		OutputDir:         "./video_compare",
		DurationSeconds:   5,
		Resolution:        "720p",
		AspectRatio:       "16:9",
		Upload:            false,
		RemotePrefix:      "video-compare",
		UploadConcurrency: 4,
	}
}

// DefaultStorageConfig 返回默认对象存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Backend:       "rclone",
		Bucket:        "rex-assets",
		Region:        "auto",
		UseSSL:        true,
		PublicBaseURL: "https://pub-97d84d215bf5412b8f7d32e7b9047c54.r2.dev",
		RcloneRemote:  "r2",
		RcloneBinary:  "rclone",
	}
}

// DefaultLedgerConfig 返回默认台账配置
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Enabled:  false,
		Database: DefaultDatabaseConfig(),
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "mediagen",
		Name:            "mediagen.db",
		SSLMode:         "disable",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "mediagen",
		SampleRate:   1.0,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "mediagen",
		PushJob:   "mediagen",
	}
}
