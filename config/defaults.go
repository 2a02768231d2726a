// =============================================================================
// 📦 ExtrudeFlow 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Worker:    DefaultWorkerConfig(),
		Converter: DefaultConverterConfig(),
		Redis:     DefaultRedisConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8000,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxBodyBytes:    64 << 20,
		AllowedOrigins:  []string{"*"},
		RateLimitRPS:    20,
		RateLimitBurst:  40,
	}
}

// DefaultWorkerConfig 返回默认工作池配置
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Min:           1,
		Max:           4,
		Ratio:         2,
		ScaleInterval: 30 * time.Second,
	}
}

// DefaultConverterConfig 返回默认转换配置，工具从 PATH 查找
func DefaultConverterConfig() ConverterConfig {
	return ConverterConfig{
		ConvertPath:   "convert",
		PotracePath:   "potrace",
		OpenSCADPath:  "openscad",
		ColorSCADPath: "colorscad",
		ScratchDir:    "scratch",
		Parallelism:   4,
		ColorSCADJobs: 8,
		Background:    []string{"#fefefe", "#ffffff"},
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		KeyPrefix:    "extrudeflow",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "extrudeflow",
		SampleRate:   0.1,
	}
}
