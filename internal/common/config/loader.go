// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top,
// expands ${VAR} placeholders and applies defaults.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")
	if rootDir := findProjectRoot(); rootDir != "" {
		v.AddConfigPath(filepath.Join(rootDir, "configs"))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional overlay

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working directory.
func loadEnvFile() string {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if secrets are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Integrations.Zoho.AuthToken, "ZOHO_CRM_OAUTH_TOKEN")
	setIfEmpty(&cfg.APIs.GenAI.APIKey, "GENAI_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.APIKey, "WEB_SEARCH_API_KEY")
	setIfEmpty(&cfg.APIs.WebSearch.EngineID, "WEB_SEARCH_ENGINE_ID")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Integrations.AWS.SNS.TopicARN, "SNS_TOPIC_ARN")
	setIfEmpty(&cfg.Integrations.AWS.SES.Sender, "SES_SENDER")
}

func setIfEmpty(field *string, envKey string) {
	if *field != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.APIs.GenAI.Timeout == 0 {
		cfg.APIs.GenAI.Timeout = 60000
	}
	if cfg.APIs.GenAI.MaxTokens == 0 {
		cfg.APIs.GenAI.MaxTokens = 600
	}
	if cfg.APIs.WebSearch.Timeout == 0 {
		cfg.APIs.WebSearch.Timeout = 10000
	}

	applyResolverDefaults(&cfg.Resolver)

	if cfg.Limiter.MaxConcurrent == 0 {
		cfg.Limiter.MaxConcurrent = 20
	}

	if cfg.Oracle.Mode == "" {
		cfg.Oracle.Mode = OracleModeRules
	}
	if cfg.Oracle.MaxAttempts == 0 {
		cfg.Oracle.MaxAttempts = 3
	}
	if cfg.Oracle.BaseDelayMs == 0 {
		cfg.Oracle.BaseDelayMs = 1000
	}
	if cfg.Oracle.Factor == 0 {
		cfg.Oracle.Factor = 2
	}
	if cfg.Oracle.MaxDelayMs == 0 {
		cfg.Oracle.MaxDelayMs = 8000
	}

	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 168
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "profile"
	}

	for i := range cfg.Sources {
		if cfg.Sources[i].Burst == 0 {
			cfg.Sources[i].Burst = 1
		}
	}
}

func applyResolverDefaults(r *ResolverConfig) {
	defaults := DefaultResolverConfig()
	if r.PerfectThreshold == 0 {
		r.PerfectThreshold = defaults.PerfectThreshold
	}
	if r.MediumThreshold == 0 {
		r.MediumThreshold = defaults.MediumThreshold
	}
	if r.NationwideThreshold == 0 {
		r.NationwideThreshold = defaults.NationwideThreshold
	}
	if r.RelayThreshold == 0 {
		r.RelayThreshold = defaults.RelayThreshold
	}
	if r.PivotThreshold == 0 {
		r.PivotThreshold = defaults.PivotThreshold
	}
	if r.GreedyFloor == 0 {
		r.GreedyFloor = defaults.GreedyFloor
	}
	if r.MaxDeepFetches == 0 {
		r.MaxDeepFetches = defaults.MaxDeepFetches
	}
	if r.MaxRelayRelatives == 0 {
		r.MaxRelayRelatives = defaults.MaxRelayRelatives
	}
	if r.MaxPivotNames == 0 {
		r.MaxPivotNames = defaults.MaxPivotNames
	}
	if r.MaxRepresentatives == 0 {
		r.MaxRepresentatives = defaults.MaxRepresentatives
	}
	if r.BacklinkSimilarity == 0 {
		r.BacklinkSimilarity = defaults.BacklinkSimilarity
	}
	if r.DefaultState == "" {
		r.DefaultState = defaults.DefaultState
	}
	if r.RunTimeoutMs == 0 {
		r.RunTimeoutMs = defaults.RunTimeoutMs
	}
	if r.AdapterTimeoutMs == 0 {
		r.AdapterTimeoutMs = defaults.AdapterTimeoutMs
	}
	if r.BatchConcurrency == 0 {
		r.BatchConcurrency = defaults.BatchConcurrency
	}
	if len(r.PhoneBlacklist) == 0 {
		r.PhoneBlacklist = defaults.PhoneBlacklist
	}
}

// DefaultResolverConfig returns the resolver tuning used when the file is silent.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		PerfectThreshold:    85,
		MediumThreshold:     60,
		NationwideThreshold: 75,
		RelayThreshold:      60,
		PivotThreshold:      50,
		GreedyFloor:         25,
		MaxDeepFetches:      8,
		MaxRelayRelatives:   3,
		MaxPivotNames:       2,
		MaxRepresentatives:  2,
		BacklinkSimilarity:  0.88,
		DefaultState:        "WA",
		RunTimeoutMs:        120000,
		AdapterTimeoutMs:    30000,
		BatchConcurrency:    20,
		PhoneBlacklist:      []string{"8557232747"},
	}
}

// validateConfig validates the resolution settings; runtime-specific
// requirements (broker, database) are checked by ValidateWorkerRuntime.
func validateConfig(cfg *Config) error {
	r := cfg.Resolver
	for name, v := range map[string]int{
		"perfect_threshold":    r.PerfectThreshold,
		"medium_threshold":     r.MediumThreshold,
		"nationwide_threshold": r.NationwideThreshold,
		"relay_threshold":      r.RelayThreshold,
		"pivot_threshold":      r.PivotThreshold,
		"greedy_floor":         r.GreedyFloor,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("resolver.%s must be within 0..100, got %d", name, v)
		}
	}
	if r.MediumThreshold > r.PerfectThreshold {
		return fmt.Errorf("resolver.medium_threshold (%d) exceeds perfect_threshold (%d)", r.MediumThreshold, r.PerfectThreshold)
	}
	if r.BacklinkSimilarity <= 0 || r.BacklinkSimilarity > 1 {
		return fmt.Errorf("resolver.backlink_similarity must be within (0,1], got %v", r.BacklinkSimilarity)
	}
	if r.MaxDeepFetches < 1 {
		return fmt.Errorf("resolver.max_deep_fetches must be positive")
	}

	switch cfg.Oracle.Mode {
	case OracleModeLLM:
		if cfg.APIs.GenAI.BaseURL == "" {
			return fmt.Errorf("apis.genai.base_url is required when oracle.mode is llm")
		}
	case OracleModeRules:
	default:
		return fmt.Errorf("oracle.mode must be llm or rules, got %q", cfg.Oracle.Mode)
	}

	seen := make(map[string]bool)
	for _, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("sources: name is required")
		}
		if seen[s.Name] {
			return fmt.Errorf("sources: duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		switch s.Kind {
		case SourceKindRecords:
			if s.Index == "" {
				return fmt.Errorf("sources.%s: index is required for records sources", s.Name)
			}
		case SourceKindWebSearch, SourceKindProvider:
			if s.Kind == SourceKindProvider && s.BaseURL == "" {
				return fmt.Errorf("sources.%s: base_url is required for provider sources", s.Name)
			}
		default:
			return fmt.Errorf("sources.%s: unknown kind %q", s.Name, s.Kind)
		}
	}
	if r.Verifier != "" && !seen[r.Verifier] {
		return fmt.Errorf("resolver.verifier %q is not a configured source", r.Verifier)
	}

	return nil
}

// ValidateWorkerRuntime checks the settings only the worker manager needs.
func ValidateWorkerRuntime(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	if cfg.Database.Postgres.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	}
	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.Sender == "" {
		return fmt.Errorf("integrations.aws.ses.sender is required when ses is enabled")
	}
	if cfg.Cache.RedisEnabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when cache.redis_enabled is set")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
