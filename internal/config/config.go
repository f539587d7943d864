// Package config loads searchcore's runtime configuration the way the
// teacher's config/loader.go does: defaults in code, optional YAML file,
// then environment variable overrides (see SPEC_FULL.md §4.15).
package config

import "time"

// Config is the full configuration tree for a searchcore process.
type Config struct {
	// Environment is "production" or "development" (spec §5 startup rule:
	// production exits non-zero on a failed startup store ping, development
	// continues degraded with GET /ready reporting not-ready).
	Environment string          `yaml:"environment" env:"ENVIRONMENT"`
	Server      ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	LLM       LLMConfig       `yaml:"llm"`
	Places    PlacesConfig    `yaml:"places"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Push      PushConfig      `yaml:"push"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds the HTTP/metrics listener settings.
type ServerConfig struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	MetricsPort     int           `yaml:"metrics_port" env:"METRICS_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	StartupPingWait time.Duration `yaml:"startup_ping_wait" env:"STARTUP_PING_WAIT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	CORSAllowedOrigins []string   `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// JWTConfig configures verification of the bearer token that authenticates
// the session calling POST /api/v1/auth/ws-ticket (spec §6.1, SPEC_FULL.md
// domain stack: golang-jwt/jwt/v5 "C6 ticket auth"). The ticket store itself
// stays an opaque token — JWT authenticates the caller BEFORE a ticket is
// ever issued, it never appears on the wire again after that point.
type JWTConfig struct {
	Secret         string        `yaml:"secret" env:"JWT_SECRET"`
	Issuer         string        `yaml:"issuer" env:"JWT_ISSUER"`
	Audience       string        `yaml:"audience" env:"JWT_AUDIENCE"`
	ClockSkew      time.Duration `yaml:"clock_skew" env:"JWT_CLOCK_SKEW"`
	AllowAnonymous bool          `yaml:"allow_anonymous" env:"JWT_ALLOW_ANONYMOUS"`
}

// RedisConfig holds the job/ticket/pubsub store connection settings.
type RedisConfig struct {
	URL        string `yaml:"url" env:"REDIS_URL"`
	FailClosed bool   `yaml:"fail_closed" env:"REDIS_FAIL_CLOSED"`
	PoolSize   int    `yaml:"pool_size" env:"POOL_SIZE"`
}

// LLMPurposeTimeouts holds the per-purpose deadline table of §4.1.
type LLMPurposeTimeouts struct {
	Gate            time.Duration `yaml:"gate" env:"GATE_TIMEOUT_MS"`
	Intent          time.Duration `yaml:"intent" env:"INTENT_TIMEOUT_MS"`
	BaseFilters     time.Duration `yaml:"base_filters" env:"BASE_FILTERS_TIMEOUT_MS"`
	RouteMapper     time.Duration `yaml:"route_mapper" env:"ROUTE_MAPPER_TIMEOUT_MS"`
	RankingProfile  time.Duration `yaml:"ranking_profile" env:"RANKING_PROFILE_TIMEOUT_MS"`
	Assistant       time.Duration `yaml:"assistant" env:"ASSISTANT_TIMEOUT_MS"`
	FilterEnforcer  time.Duration `yaml:"filter_enforcer" env:"FILTER_ENFORCER_TIMEOUT_MS"`
}

// LLMConfig configures the model client (C3).
type LLMConfig struct {
	APIKey          string             `yaml:"api_key" env:"API_KEY"`
	DefaultModel    string             `yaml:"default_model" env:"DEFAULT_MODEL"`
	Timeouts        LLMPurposeTimeouts `yaml:"timeouts"`
	SlowThreshold   time.Duration      `yaml:"slow_threshold" env:"SLOW_THRESHOLD_MS"`
	RetryMaxAttempts int               `yaml:"retry_max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelay  time.Duration      `yaml:"retry_base_delay" env:"RETRY_BASE_DELAY_MS"`
	RetryMaxDelay   time.Duration      `yaml:"retry_max_delay" env:"RETRY_MAX_DELAY_MS"`
}

// PlacesConfig configures the place-provider client and its caches (C4,
// §4.2). The provider itself is an external collaborator (spec §1); this
// only carries the knobs this service controls.
type PlacesConfig struct {
	APIKey         string        `yaml:"api_key" env:"PLACES_API_KEY"`
	BaseURL        string        `yaml:"base_url" env:"PLACES_BASE_URL"`
	FieldMask      string        `yaml:"field_mask" env:"PLACES_FIELD_MASK"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"PLACES_REQUEST_TIMEOUT_MS"`
	GeocodeTTL     time.Duration `yaml:"geocode_ttl" env:"PLACES_GEOCODE_TTL"`
	SearchCacheTTL time.Duration `yaml:"search_cache_ttl" env:"PLACES_SEARCH_CACHE_TTL"`
	PipelineVersion string       `yaml:"pipeline_version" env:"PLACES_PIPELINE_VERSION"`
}

// RankingConfig governs profile selection and pool sizing (C11).
type RankingConfig struct {
	LLMEnabled         bool   `yaml:"llm_enabled" env:"RANKING_LLM_ENABLED"`
	DefaultMode        string `yaml:"default_mode" env:"RANKING_DEFAULT_MODE"`
	CandidatePoolSize  int    `yaml:"candidate_pool_size" env:"CANDIDATE_POOL_SIZE"`
	DisplayResultsSize int    `yaml:"display_results_size" env:"DISPLAY_RESULTS_SIZE"`
}

// DedupConfig governs the reuse decision matrix (C13, §4.9).
type DedupConfig struct {
	RunningMaxAge     time.Duration `yaml:"running_max_age" env:"DEDUP_RUNNING_MAX_AGE_MS"`
	SuccessFreshWindow time.Duration `yaml:"success_fresh_window" env:"DEDUP_SUCCESS_FRESH_WINDOW_MS"`
	JobTTL            time.Duration `yaml:"job_ttl" env:"JOB_TTL"`
}

// PushConfig governs the subscription registry, backlog and coalescing
// (C7, C8, §4.10).
type PushConfig struct {
	BacklogCapacity   int           `yaml:"backlog_capacity" env:"PUSH_BACKLOG_CAPACITY"`
	CoalesceInterval  time.Duration `yaml:"coalesce_interval" env:"PUSH_COALESCE_INTERVAL_MS"`
	TicketTTL         time.Duration `yaml:"ticket_ttl" env:"TICKET_TTL"`
}

// LogConfig configures the zap logger (C1).
type LogConfig struct {
	Level        string `yaml:"level" env:"LEVEL"`
	Format       string `yaml:"format" env:"FORMAT"`
	EnableCaller bool   `yaml:"enable_caller" env:"ENABLE_CALLER"`
	SampleTick   time.Duration `yaml:"sample_tick" env:"SAMPLE_TICK"`
	SampleFirst  int    `yaml:"sample_first" env:"SAMPLE_FIRST"`
	SampleAfter  int    `yaml:"sample_after" env:"SAMPLE_AFTER"`
}

// TelemetryConfig configures OTel tracing/metrics export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// IsProduction reports whether c.Environment is the production profile
// (the zero value counts as production — the safe default).
func (c *Config) IsProduction() bool {
	return c.Environment != "development"
}
