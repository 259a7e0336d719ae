package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 50051, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Server.MaxWorkers)
	assert.True(t, cfg.Server.PreloadOCR)
	assert.Equal(t, 50, cfg.Server.MaxUploadMB)
	assert.Equal(t, 5, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 0, cfg.PagePool.MaxWorkers)
	assert.Equal(t, 2, cfg.PagePool.ReservedCores)
	assert.Equal(t, 32, cfg.PagePool.MaxLimit)
	assert.Equal(t, 5, cfg.OCR.MaxWorkers)
	assert.Equal(t, 3, cfg.Client.MaxRetries)

	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "invalid log level",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "invalid server port",
		},
		{
			name:    "zero server workers",
			mutate:  func(c *Config) { c.Server.MaxWorkers = 0 },
			wantErr: "invalid server max workers",
		},
		{
			name:    "negative page pool workers",
			mutate:  func(c *Config) { c.PagePool.MaxWorkers = -1 },
			wantErr: "invalid page pool max workers",
		},
		{
			name:    "zero page pool limit",
			mutate:  func(c *Config) { c.PagePool.MaxLimit = 0 },
			wantErr: "invalid page pool max limit",
		},
		{
			name:    "zero ocr workers",
			mutate:  func(c *Config) { c.OCR.MaxWorkers = 0 },
			wantErr: "invalid ocr max workers",
		},
		{
			name:    "negative client retries",
			mutate:  func(c *Config) { c.Client.MaxRetries = -1 },
			wantErr: "invalid client max retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLogLevelCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "INFO"
	assert.NoError(t, cfg.Validate())
}

func TestClientConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:50051", cfg.Client.Addr())
	assert.Equal(t, 300*time.Second, cfg.Client.Timeout())
}
