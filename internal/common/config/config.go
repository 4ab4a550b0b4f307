// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	APIs         APIsConfig              `mapstructure:"apis"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Metrics      MetricsConfig           `mapstructure:"metrics"`

	Resolver ResolverConfig `mapstructure:"resolver"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sources  []SourceConfig `mapstructure:"sources"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	// outcome rows are written once per resolution, so connections are
	// recycled rather than held
	ConnMaxLifetimeMs int `mapstructure:"conn_max_lifetime_ms"`
	ConnMaxIdleMs     int `mapstructure:"conn_max_idle_ms"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
	// MaxRetries of zero disables transport retries; the source guard
	// already bounds each search.
	MaxRetries    int `mapstructure:"max_retries"`
	PingTimeoutMs int `mapstructure:"ping_timeout_ms"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// PoolSize of zero sizes the pool for the profile cache's peak load.
	PoolSize      int `mapstructure:"pool_size"`
	MinIdleConns  int `mapstructure:"min_idle_conns"`
	DialTimeoutMs int `mapstructure:"dial_timeout_ms"`
	IOTimeoutMs   int `mapstructure:"io_timeout_ms"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Integrations ---

// IntegrationConfig holds settings for the outcome sinks.
type IntegrationConfig struct {
	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		BaseURL   string `mapstructure:"base_url"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
		SES struct {
			Enabled    bool     `mapstructure:"enabled"`
			Sender     string   `mapstructure:"sender"`
			Recipients []string `mapstructure:"recipients"`
		} `mapstructure:"ses"`
	} `mapstructure:"aws"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI struct {
		BaseURL     string  `mapstructure:"base_url"`
		APIKey      string  `mapstructure:"api_key"`
		Timeout     int     `mapstructure:"timeout"` // milliseconds
		MaxTokens   int     `mapstructure:"max_tokens"`
		Temperature float64 `mapstructure:"temperature"`
	} `mapstructure:"genai"`

	WebSearch struct {
		BaseURL  string `mapstructure:"base_url"`
		APIKey   string `mapstructure:"api_key"`
		EngineID string `mapstructure:"engine_id"`
		Timeout  int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"web_search"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// --- Resolution Configuration ---

// ResolverConfig holds the tier thresholds and bounds of the resolver.
type ResolverConfig struct {
	PerfectThreshold    int      `mapstructure:"perfect_threshold"`
	MediumThreshold     int      `mapstructure:"medium_threshold"`
	NationwideThreshold int      `mapstructure:"nationwide_threshold"`
	RelayThreshold      int      `mapstructure:"relay_threshold"`
	PivotThreshold      int      `mapstructure:"pivot_threshold"`
	GreedyFloor         int      `mapstructure:"greedy_floor"`
	MaxDeepFetches      int      `mapstructure:"max_deep_fetches"`
	MaxRelayRelatives   int      `mapstructure:"max_relay_relatives"`
	MaxPivotNames       int      `mapstructure:"max_pivot_names"`
	MaxRepresentatives  int      `mapstructure:"max_representatives"`
	BacklinkSimilarity  float64  `mapstructure:"backlink_similarity"`
	DefaultState        string   `mapstructure:"default_state"`
	RunTimeoutMs        int      `mapstructure:"run_timeout_ms"`
	AdapterTimeoutMs    int      `mapstructure:"adapter_timeout_ms"`
	BatchConcurrency    int      `mapstructure:"batch_concurrency"`
	Verifier            string   `mapstructure:"verifier"`
	PhoneBlacklist      []string `mapstructure:"phone_blacklist"`
}

// LimiterConfig bounds in-flight outbound calls.
type LimiterConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// Oracle modes.
const (
	OracleModeLLM   = "llm"
	OracleModeRules = "rules"
)

// OracleConfig selects the match oracle and its retry policy.
type OracleConfig struct {
	Mode        string  `mapstructure:"mode"` // llm | rules
	MaxAttempts int     `mapstructure:"max_attempts"`
	BaseDelayMs int     `mapstructure:"base_delay_ms"`
	Factor      float64 `mapstructure:"factor"`
	MaxDelayMs  int     `mapstructure:"max_delay_ms"`
}

// CacheConfig controls the persisted tier of the profile cache.
type CacheConfig struct {
	RedisEnabled bool   `mapstructure:"redis_enabled"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	KeyPrefix    string `mapstructure:"key_prefix"`
}

// Source kinds.
const (
	SourceKindRecords   = "records"
	SourceKindWebSearch = "websearch"
	SourceKindProvider  = "provider"
)

// SourceConfig declares one people-search source.
type SourceConfig struct {
	Name          string  `mapstructure:"name"`
	Kind          string  `mapstructure:"kind"`
	BaseURL       string  `mapstructure:"base_url"`
	Index         string  `mapstructure:"index"`
	Scoped        bool    `mapstructure:"scoped"`
	Enabled       bool    `mapstructure:"enabled"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}
