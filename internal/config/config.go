package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the complete configuration for the docparse service.
// It covers the server facade, the two worker tiers, the OCR engine, the
// client, and logging, and supports loading from configuration files,
// environment variables, and command-line flags.
type Config struct {
	// Logging
	Log LogConfig `mapstructure:"log" yaml:"log" json:"log"`

	// Server facade settings (serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Page-level worker pool
	PagePool PagePoolConfig `mapstructure:"page_pool" yaml:"page_pool" json:"page_pool"`

	// OCR engine and worker pool
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// Remote-parse client settings (parse --remote)
	Client ClientConfig `mapstructure:"client" yaml:"client" json:"client"`
}

// LogConfig contains log sink settings.
type LogConfig struct {
	Dir   string `mapstructure:"dir" yaml:"dir" json:"dir"`
	File  string `mapstructure:"file" yaml:"file" json:"file"`
	Level string `mapstructure:"level" yaml:"level" json:"level"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxWorkers      int    `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	PreloadOCR      bool   `mapstructure:"preload_ocr" yaml:"preload_ocr" json:"preload_ocr"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// PagePoolConfig contains page-level worker pool settings.
// MaxWorkers = 0 sizes the pool from the host CPU count.
type PagePoolConfig struct {
	MaxWorkers    int `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	ReservedCores int `mapstructure:"reserved_cores" yaml:"reserved_cores" json:"reserved_cores"`
	MaxLimit      int `mapstructure:"max_limit" yaml:"max_limit" json:"max_limit"`
}

// OCRConfig contains OCR engine and pool settings.
type OCRConfig struct {
	MaxWorkers int    `mapstructure:"max_workers" yaml:"max_workers" json:"max_workers"`
	ModelPath  string `mapstructure:"model_path" yaml:"model_path" json:"model_path"`
	DictPath   string `mapstructure:"dict_path" yaml:"dict_path" json:"dict_path"`
	NumThreads int    `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// ClientConfig contains remote-parse client settings.
type ClientConfig struct {
	Host       string `mapstructure:"host" yaml:"host" json:"host"`
	Port       int    `mapstructure:"port" yaml:"port" json:"port"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// Timeout returns the client request timeout as a duration.
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Addr returns the client target address in host:port form.
func (c *ClientConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Dir:   "./logs",
			File:  "parser.log",
			Level: "info",
		},
		Server: ServerConfig{
			Host:            "",
			Port:            50051,
			MaxWorkers:      10,
			PreloadOCR:      true,
			MaxUploadMB:     50,
			ShutdownTimeout: 5,
		},
		PagePool: PagePoolConfig{
			MaxWorkers:    0,
			ReservedCores: 2,
			MaxLimit:      32,
		},
		OCR: OCRConfig{
			MaxWorkers: 5,
			ModelPath:  "./models/rec.onnx",
			DictPath:   "./models/dict.txt",
			NumThreads: 0,
		},
		Client: ClientConfig{
			Host:       "localhost",
			Port:       50051,
			TimeoutSec: 300,
			MaxRetries: 3,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)",
			c.Log.Level, strings.Join(validLogLevels, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxWorkers <= 0 {
		return fmt.Errorf("invalid server max workers: %d (must be positive)", c.Server.MaxWorkers)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must be positive)", c.Server.ShutdownTimeout)
	}

	if c.PagePool.MaxWorkers < 0 {
		return fmt.Errorf("invalid page pool max workers: %d (must be >= 0)", c.PagePool.MaxWorkers)
	}
	if c.PagePool.ReservedCores < 0 {
		return fmt.Errorf("invalid page pool reserved cores: %d (must be >= 0)", c.PagePool.ReservedCores)
	}
	if c.PagePool.MaxLimit <= 0 {
		return fmt.Errorf("invalid page pool max limit: %d (must be positive)", c.PagePool.MaxLimit)
	}

	if c.OCR.MaxWorkers <= 0 {
		return fmt.Errorf("invalid ocr max workers: %d (must be positive)", c.OCR.MaxWorkers)
	}
	if c.OCR.NumThreads < 0 {
		return fmt.Errorf("invalid ocr num threads: %d (must be >= 0)", c.OCR.NumThreads)
	}

	if c.Client.Port <= 0 || c.Client.Port > 65535 {
		return fmt.Errorf("invalid client port: %d (must be between 1 and 65535)", c.Client.Port)
	}
	if c.Client.TimeoutSec <= 0 {
		return fmt.Errorf("invalid client timeout: %d (must be positive)", c.Client.TimeoutSec)
	}
	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("invalid client max retries: %d (must be >= 0)", c.Client.MaxRetries)
	}

	return nil
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
