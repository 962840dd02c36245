// Package config loads Harvest client settings from an optional YAML file
// and the environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/client"
	"github.com/Sternrassler/harvest-client/pkg/harvest"
	"github.com/Sternrassler/harvest-client/pkg/pagination"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Harvest struct {
		APIKey            string        `yaml:"api_key"`
		BaseURL           string        `yaml:"base_url"`
		OnBehalfOf        string        `yaml:"on_behalf_of"`
		RecruitingBaseURL string        `yaml:"recruiting_base_url"`
		RequestTimeout    time.Duration `yaml:"request_timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		MaxPages          int           `yaml:"max_pages"`
	} `yaml:"harvest"`

	Batch struct {
		CandidateSize int `yaml:"candidate_size"`
	} `yaml:"batch"`

	Retry struct {
		MaxRetries int           `yaml:"max_retries"`
		BaseDelay  time.Duration `yaml:"base_delay"`
	} `yaml:"retry"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Default returns the built-in defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Harvest.BaseURL = client.DefaultBaseURL
	cfg.Harvest.RecruitingBaseURL = harvest.DefaultRecruitingBaseURL
	cfg.Harvest.RequestTimeout = 30 * time.Second
	cfg.Batch.CandidateSize = pagination.DefaultChunkSize
	retry := client.DefaultRetryConfig()
	cfg.Retry.MaxRetries = retry.MaxRetries
	cfg.Retry.BaseDelay = retry.BaseDelay
	cfg.Redis.Addr = "localhost:6379"
	cfg.Log.Level = "info"
	return cfg
}

// Load returns defaults overlaid with the YAML file at path (skipped when
// path is empty) and then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Harvest.APIKey = getEnvString("GREENHOUSE_HARVEST_API_KEY", cfg.Harvest.APIKey)
	cfg.Harvest.BaseURL = getEnvString("HARVEST_BASE_URL", cfg.Harvest.BaseURL)
	cfg.Harvest.OnBehalfOf = getEnvString("GREENHOUSE_ON_BEHALF_OF", cfg.Harvest.OnBehalfOf)
	cfg.Harvest.RecruitingBaseURL = getEnvString("RECRUITING_BASE_URL", cfg.Harvest.RecruitingBaseURL)
	cfg.Harvest.RequestTimeout = getEnvDuration("HARVEST_REQUEST_TIMEOUT", cfg.Harvest.RequestTimeout)
	cfg.Harvest.RequestsPerSecond = getEnvFloat("HARVEST_REQUESTS_PER_SECOND", cfg.Harvest.RequestsPerSecond)
	cfg.Harvest.MaxPages = getEnvInt("HARVEST_MAX_PAGES", cfg.Harvest.MaxPages)

	cfg.Batch.CandidateSize = getEnvInt("HARVEST_CANDIDATE_BATCH_SIZE", cfg.Batch.CandidateSize)
	cfg.Retry.MaxRetries = getEnvInt("HARVEST_MAX_RETRIES", cfg.Retry.MaxRetries)
	cfg.Retry.BaseDelay = getEnvDuration("HARVEST_RETRY_BASE_DELAY", cfg.Retry.BaseDelay)

	cfg.Redis.Addr = getEnvString("REDIS_URL", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Log.Level = getEnvString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getEnvBool("LOG_PRETTY", cfg.Log.Pretty)
}

// Validate rejects values no component can work with. A missing API key is
// not an error here; client.New reports it.
func (c *Config) Validate() error {
	var errs []error
	if c.Batch.CandidateSize <= 0 {
		errs = append(errs, fmt.Errorf("batch.candidate_size must be > 0 (got %d)", c.Batch.CandidateSize))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must be >= 0 (got %d)", c.Retry.MaxRetries))
	}
	if c.Retry.BaseDelay < 0 {
		errs = append(errs, fmt.Errorf("retry.base_delay must be >= 0 (got %s)", c.Retry.BaseDelay))
	}
	if c.Harvest.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("harvest.max_pages must be >= 0 (got %d)", c.Harvest.MaxPages))
	}
	return errors.Join(errs...)
}

// ClientConfig converts to a client.Config.
func (c *Config) ClientConfig() client.Config {
	cc := client.DefaultConfig(c.Harvest.APIKey)
	cc.BaseURL = c.Harvest.BaseURL
	cc.OnBehalfOf = c.Harvest.OnBehalfOf
	cc.Timeout = c.Harvest.RequestTimeout
	cc.RequestsPerSecond = c.Harvest.RequestsPerSecond
	return cc
}

// ServiceConfig converts to a harvest.Config.
func (c *Config) ServiceConfig() harvest.Config {
	sc := harvest.DefaultConfig()
	sc.CandidateBatchSize = c.Batch.CandidateSize
	sc.Pagination.MaxPages = c.Harvest.MaxPages
	return sc
}

// RetryConfig converts to a client.RetryConfig.
func (c *Config) RetryConfig() client.RetryConfig {
	return client.RetryConfig{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
	}
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return duration
		}
	}
	return defaultValue
}
