package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// Defaults
// ==========================

func TestLoadFromFile_AppliesResolverDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: probate-resolver
sources:
  - name: CountyRecords
    kind: records
    index: people
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 85, cfg.Resolver.PerfectThreshold)
	assert.Equal(t, 60, cfg.Resolver.MediumThreshold)
	assert.Equal(t, 75, cfg.Resolver.NationwideThreshold)
	assert.Equal(t, 8, cfg.Resolver.MaxDeepFetches)
	assert.Equal(t, 0.88, cfg.Resolver.BacklinkSimilarity)
	assert.Equal(t, "WA", cfg.Resolver.DefaultState)
	assert.Equal(t, []string{"8557232747"}, cfg.Resolver.PhoneBlacklist)
	assert.Equal(t, 20, cfg.Limiter.MaxConcurrent)
	assert.Equal(t, "rules", cfg.Oracle.Mode)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Equal(t, 168, cfg.Cache.TTLHours)
	assert.Equal(t, "profile", cfg.Cache.KeyPrefix)
	assert.Equal(t, 1, cfg.Sources[0].Burst)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_GENAI_URL", "http://genai.local")
	path := writeConfig(t, `
oracle:
  mode: llm
apis:
  genai:
    base_url: ${TEST_GENAI_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://genai.local", cfg.APIs.GenAI.BaseURL)
}

func TestLoadFromFile_SecretOverrides(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "secret-key")
	path := writeConfig(t, `app: {name: x}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.APIs.GenAI.APIKey)
}

// ==========================
// Validation
// ==========================

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "threshold out of range",
			body:    "resolver:\n  perfect_threshold: 150\n",
			wantErr: "perfect_threshold",
		},
		{
			name:    "medium above perfect",
			body:    "resolver:\n  perfect_threshold: 70\n  medium_threshold: 80\n",
			wantErr: "medium_threshold",
		},
		{
			name:    "llm without base url",
			body:    "oracle:\n  mode: llm\n",
			wantErr: "apis.genai.base_url",
		},
		{
			name:    "unknown oracle mode",
			body:    "oracle:\n  mode: crystal-ball\n",
			wantErr: "oracle.mode",
		},
		{
			name:    "records source without index",
			body:    "sources:\n  - name: County\n    kind: records\n",
			wantErr: "index is required",
		},
		{
			name:    "duplicate source",
			body:    "sources:\n  - {name: A, kind: websearch}\n  - {name: A, kind: websearch}\n",
			wantErr: "duplicate source",
		},
		{
			name:    "unknown verifier",
			body:    "resolver:\n  verifier: WhitePages\n",
			wantErr: "resolver.verifier",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateWorkerRuntime(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, ValidateWorkerRuntime(cfg))

	cfg.Camunda.BrokerAddress = "localhost:26500"
	assert.NoError(t, ValidateWorkerRuntime(cfg))

	cfg.Cache.RedisEnabled = true
	assert.Error(t, ValidateWorkerRuntime(cfg))

	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Postgres.Enabled = true
	err := ValidateWorkerRuntime(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.host")
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"parse-owner-record": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "parse-owner-record"))
	assert.True(t, IsWorkerEnabled(cfg, "resolve-representative"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "resolve-representative").MaxJobsActive)
}
