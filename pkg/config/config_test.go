package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/harvest-client/pkg/client"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Harvest.BaseURL != client.DefaultBaseURL {
		t.Errorf("BaseURL = %q", cfg.Harvest.BaseURL)
	}
	if cfg.Batch.CandidateSize != 50 {
		t.Errorf("CandidateSize = %d, want 50", cfg.Batch.CandidateSize)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Harvest.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.Harvest.RequestTimeout)
	}
	if cfg.Harvest.MaxPages != 0 {
		t.Errorf("MaxPages = %d, want 0", cfg.Harvest.MaxPages)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GREENHOUSE_HARVEST_API_KEY", " secret ")
	t.Setenv("GREENHOUSE_ON_BEHALF_OF", "4080")
	t.Setenv("HARVEST_CANDIDATE_BATCH_SIZE", "25")
	t.Setenv("HARVEST_MAX_RETRIES", "5")
	t.Setenv("HARVEST_RETRY_BASE_DELAY", "250ms")
	t.Setenv("HARVEST_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("HARVEST_MAX_PAGES", "100")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Harvest.APIKey != "secret" {
		t.Errorf("APIKey = %q", cfg.Harvest.APIKey)
	}
	if cfg.Harvest.OnBehalfOf != "4080" {
		t.Errorf("OnBehalfOf = %q", cfg.Harvest.OnBehalfOf)
	}
	if cfg.Batch.CandidateSize != 25 {
		t.Errorf("CandidateSize = %d", cfg.Batch.CandidateSize)
	}
	if cfg.Retry.MaxRetries != 5 || cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("Retry = %+v", cfg.Retry)
	}
	if cfg.Harvest.RequestsPerSecond != 2.5 {
		t.Errorf("RequestsPerSecond = %v", cfg.Harvest.RequestsPerSecond)
	}
	if cfg.Harvest.MaxPages != 100 {
		t.Errorf("MaxPages = %d", cfg.Harvest.MaxPages)
	}
	if cfg.Redis.DB != 3 || !cfg.Log.Pretty {
		t.Errorf("Redis.DB = %d Log.Pretty = %v", cfg.Redis.DB, cfg.Log.Pretty)
	}

	cc := cfg.ClientConfig()
	if cc.APIKey != "secret" || cc.OnBehalfOf != "4080" || cc.RequestsPerSecond != 2.5 {
		t.Errorf("ClientConfig() = %+v", cc)
	}
	sc := cfg.ServiceConfig()
	if sc.CandidateBatchSize != 25 || sc.Pagination.MaxPages != 100 {
		t.Errorf("ServiceConfig() = %+v", sc)
	}
	rc := cfg.RetryConfig()
	if rc.MaxRetries != 5 || rc.Backoff(1) != 500*time.Millisecond {
		t.Errorf("RetryConfig() = %+v", rc)
	}
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("HARVEST_MAX_RETRIES", "many")
	t.Setenv("HARVEST_RETRY_BASE_DELAY", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("Retry = %+v, want defaults", cfg.Retry)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	content := `
harvest:
  api_key: from-file
  base_url: https://example.test/v1
  request_timeout: 10s
batch:
  candidate_size: 20
retry:
  max_retries: 1
  base_delay: 2s
redis:
  addr: redis:6379
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HARVEST_BASE_URL", "https://override.test/v1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Harvest.APIKey != "from-file" {
		t.Errorf("APIKey = %q", cfg.Harvest.APIKey)
	}
	if cfg.Harvest.BaseURL != "https://override.test/v1" {
		t.Errorf("BaseURL = %q, env should win", cfg.Harvest.BaseURL)
	}
	if cfg.Harvest.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.Harvest.RequestTimeout)
	}
	if cfg.Batch.CandidateSize != 20 || cfg.Retry.MaxRetries != 1 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Redis.Addr != "redis:6379" || cfg.Log.Level != "debug" {
		t.Errorf("Redis.Addr = %q Log.Level = %q", cfg.Redis.Addr, cfg.Log.Level)
	}
	if cfg.Harvest.RecruitingBaseURL == "" {
		t.Error("unset fields should keep defaults")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("harvest: ["), 0o600)
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Batch.CandidateSize = 0
	cfg.Retry.MaxRetries = -1
	cfg.Harvest.MaxPages = -5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, field := range []string{"candidate_size", "max_retries", "max_pages"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q should mention %s", err.Error(), field)
		}
	}
}
