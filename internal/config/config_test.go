package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jzx17/threadpool/pkg/threadpool"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeFile(t, "pool.yaml", `
pool:
  name: ingest
  mode: cached
  initial_workers: 2
  queue_capacity: 64
  max_workers: 6
  idle_timeout: 30s
  submit_timeout: 250ms
  poll_interval: 500ms
  rate_limit: 100
  rate_burst: 10
log:
  level: debug
  format: json
`)

	fc, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, fc.Validate())

	assert.Equal(t, "ingest", fc.Pool.Name)
	assert.Equal(t, 2, fc.Pool.InitialWorkers)

	cfg, err := fc.ToConfig()
	require.NoError(t, err)

	assert.Equal(t, "ingest", cfg.Name)
	assert.Equal(t, types.ModeCached, cfg.Mode)
	assert.Equal(t, 64, cfg.MaxQueueCapacity)
	assert.Equal(t, 6, cfg.MaxWorkers)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.SubmitTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	require.NotNil(t, cfg.RateLimiter)
	assert.Equal(t, 10, cfg.RateLimiter.Burst())

	logger, ok := cfg.Logger.(*logrus.Logger)
	require.True(t, ok)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestLoadFileJSON(t *testing.T) {
	path := writeFile(t, "pool.json", `{
  "pool": {
    "mode": "FIXED",
    "queue_capacity": 8
  }
}`)

	fc, err := LoadFile(path)
	require.NoError(t, err)

	cfg, err := fc.ToConfig()
	require.NoError(t, err)

	defaults := threadpool.DefaultConfig()
	assert.Equal(t, types.ModeFixed, cfg.Mode)
	assert.Equal(t, 8, cfg.MaxQueueCapacity)
	assert.Equal(t, defaults.Name, cfg.Name)
	assert.Equal(t, defaults.MaxWorkers, cfg.MaxWorkers)
	assert.Equal(t, defaults.IdleTimeout, cfg.IdleTimeout)
	assert.Equal(t, defaults.SubmitTimeout, cfg.SubmitTimeout)
	assert.Nil(t, cfg.RateLimiter)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{name: "unsupported extension", file: "pool.toml", body: "pool = 1"},
		{name: "bad yaml", file: "pool.yaml", body: "pool: [unterminated"},
		{name: "bad json", file: "pool.json", body: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  FileConfig
		wantErr bool
	}{
		{name: "empty is valid", config: FileConfig{}},
		{name: "negative workers", config: FileConfig{Pool: PoolConfig{InitialWorkers: -1}}, wantErr: true},
		{name: "negative capacity", config: FileConfig{Pool: PoolConfig{QueueCapacity: -1}}, wantErr: true},
		{name: "negative max workers", config: FileConfig{Pool: PoolConfig{MaxWorkers: -1}}, wantErr: true},
		{name: "negative rate", config: FileConfig{Pool: PoolConfig{RateLimit: -1}}, wantErr: true},
		{name: "negative burst", config: FileConfig{Pool: PoolConfig{RateBurst: -1}}, wantErr: true},
		{name: "unknown mode", config: FileConfig{Pool: PoolConfig{Mode: "elastic"}}, wantErr: true},
		{name: "unknown log format", config: FileConfig{Log: LogConfig{Format: "xml"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		config FileConfig
	}{
		{name: "bad duration", config: FileConfig{Pool: PoolConfig{IdleTimeout: "soon"}}},
		{name: "bad mode", config: FileConfig{Pool: PoolConfig{Mode: "elastic"}}},
		{name: "bad log level", config: FileConfig{Log: LogConfig{Level: "loud"}}},
		{name: "zero poll interval", config: FileConfig{Pool: PoolConfig{PollInterval: "0s"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.config.ToConfig()
			assert.Error(t, err)
		})
	}

	_, err := (&FileConfig{Pool: PoolConfig{Mode: "elastic"}}).ToConfig()
	assert.True(t, errors.Is(err, types.ErrInvalidArgument))
}
