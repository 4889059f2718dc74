// Package config loads thread pool settings from YAML or JSON files
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jzx17/threadpool/pkg/threadpool"
	"github.com/jzx17/threadpool/pkg/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

// FileConfig is the layout of a configuration file
type FileConfig struct {
	Pool PoolConfig `yaml:"pool" json:"pool"`
	Log  LogConfig  `yaml:"log" json:"log"`
}

// PoolConfig holds pool settings. Durations are strings such as "10s".
type PoolConfig struct {
	Name           string  `yaml:"name" json:"name"`
	Mode           string  `yaml:"mode" json:"mode"`
	InitialWorkers int     `yaml:"initial_workers" json:"initial_workers"`
	QueueCapacity  int     `yaml:"queue_capacity" json:"queue_capacity"`
	MaxWorkers     int     `yaml:"max_workers" json:"max_workers"`
	IdleTimeout    string  `yaml:"idle_timeout" json:"idle_timeout"`
	SubmitTimeout  string  `yaml:"submit_timeout" json:"submit_timeout"`
	PollInterval   string  `yaml:"poll_interval" json:"poll_interval"`
	RateLimit      float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst      int     `yaml:"rate_burst" json:"rate_burst"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// LoadFile reads a configuration file, choosing the decoder by extension
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate checks values that cannot be caught by conversion
func (f *FileConfig) Validate() error {
	pc := f.Pool

	if pc.InitialWorkers < 0 {
		return fmt.Errorf("pool.initial_workers must be non-negative")
	}
	if pc.QueueCapacity < 0 {
		return fmt.Errorf("pool.queue_capacity must be non-negative")
	}
	if pc.MaxWorkers < 0 {
		return fmt.Errorf("pool.max_workers must be non-negative")
	}
	if pc.RateLimit < 0 {
		return fmt.Errorf("pool.rate_limit must be non-negative")
	}
	if pc.RateBurst < 0 {
		return fmt.Errorf("pool.rate_burst must be non-negative")
	}
	if _, err := types.ParsePoolMode(pc.Mode); err != nil {
		return fmt.Errorf("pool.mode: %w", err)
	}
	switch strings.ToLower(f.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", f.Log.Format)
	}

	return nil
}

// ToConfig converts the file settings into a pool configuration, starting
// from threadpool.DefaultConfig for anything left unset
func (f *FileConfig) ToConfig() (*threadpool.Config, error) {
	pc := f.Pool
	config := threadpool.DefaultConfig()

	if pc.Name != "" {
		config.Name = pc.Name
	}

	mode, err := types.ParsePoolMode(pc.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid mode: %w", err)
	}
	config.Mode = mode

	if pc.QueueCapacity > 0 {
		config.MaxQueueCapacity = pc.QueueCapacity
	}
	if pc.MaxWorkers > 0 {
		config.MaxWorkers = pc.MaxWorkers
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"idle_timeout", pc.IdleTimeout, &config.IdleTimeout},
		{"submit_timeout", pc.SubmitTimeout, &config.SubmitTimeout},
		{"poll_interval", pc.PollInterval, &config.PollInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}

	if pc.RateLimit > 0 {
		burst := pc.RateBurst
		if burst <= 0 {
			burst = 1
		}
		config.RateLimiter = rate.NewLimiter(rate.Limit(pc.RateLimit), burst)
	}

	logger, err := f.NewLogger()
	if err != nil {
		return nil, err
	}
	config.Logger = logger

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// NewLogger builds a logrus logger from the log section
func (f *FileConfig) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()

	if f.Log.Level != "" {
		level, err := logrus.ParseLevel(f.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		logger.SetLevel(level)
	}
	if strings.EqualFold(f.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger, nil
}
