package config

import "time"

// Default returns the baseline configuration, matching the numeric
// defaults in SPEC_FULL.md §6.3/§4.1/§4.9/§4.10.
func Default() *Config {
	return &Config{
		Environment: "production",
		Server:    defaultServer(),
		Redis:     defaultRedis(),
		JWT:       defaultJWT(),
		LLM:       defaultLLM(),
		Places:    defaultPlaces(),
		Ranking:   defaultRanking(),
		Dedup:     defaultDedup(),
		Push:      defaultPush(),
		Log:       defaultLog(),
		Telemetry: defaultTelemetry(),
	}
}

func defaultServer() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9090,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		StartupPingWait:    8 * time.Second,
		RateLimitRPS:       50,
		RateLimitBurst:     100,
		CORSAllowedOrigins: []string{"*"},
	}
}

func defaultJWT() JWTConfig {
	return JWTConfig{
		Issuer:         "searchcore",
		Audience:       "searchcore-clients",
		ClockSkew:      5 * time.Second,
		AllowAnonymous: false,
	}
}

func defaultRedis() RedisConfig {
	return RedisConfig{
		URL:        "redis://localhost:6379/0",
		FailClosed: true,
		PoolSize:   10,
	}
}

func defaultLLM() LLMConfig {
	return LLMConfig{
		DefaultModel: "claude-3-5-haiku-20241022",
		Timeouts: LLMPurposeTimeouts{
			Gate:           3500 * time.Millisecond,
			Intent:         2500 * time.Millisecond,
			BaseFilters:    4500 * time.Millisecond,
			RouteMapper:    3500 * time.Millisecond,
			RankingProfile: 2500 * time.Millisecond,
			Assistant:      3000 * time.Millisecond,
			FilterEnforcer: 4000 * time.Millisecond,
		},
		SlowThreshold:    1500 * time.Millisecond,
		RetryMaxAttempts: 2,
		RetryBaseDelay:   50 * time.Millisecond,
		RetryMaxDelay:    150 * time.Millisecond,
	}
}

func defaultPlaces() PlacesConfig {
	return PlacesConfig{
		BaseURL:         "https://places.googleapis.com/v1",
		FieldMask:       "places.id,places.displayName,places.rating,places.userRatingCount,places.formattedAddress,places.types,places.location,places.priceLevel,places.currentOpeningHours.openNow",
		RequestTimeout:  6 * time.Second,
		GeocodeTTL:      3600 * time.Second,
		SearchCacheTTL:  120 * time.Second,
		PipelineVersion: "v1",
	}
}

func defaultRanking() RankingConfig {
	return RankingConfig{
		LLMEnabled:         true,
		DefaultMode:        "GOOGLE",
		CandidatePoolSize:  30,
		DisplayResultsSize: 10,
	}
}

func defaultDedup() DedupConfig {
	return DedupConfig{
		RunningMaxAge:      300 * time.Second,
		SuccessFreshWindow: 5 * time.Second,
		JobTTL:             24 * time.Hour,
	}
}

func defaultPush() PushConfig {
	return PushConfig{
		BacklogCapacity:  256,
		CoalesceInterval: 100 * time.Millisecond,
		TicketTTL:        60 * time.Second,
	}
}

func defaultLog() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		EnableCaller: true,
		SampleTick:   time.Second,
		SampleFirst:  100,
		SampleAfter:  100,
	}
}

func defaultTelemetry() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "searchcore",
		SampleRate:   0.1,
	}
}

// DevDefault returns Default with the development-profile overrides named
// in §4.9 (shorter running-job TTL, non-fail-closed Redis).
func DevDefault() *Config {
	cfg := Default()
	cfg.Dedup.RunningMaxAge = 90 * time.Second
	cfg.Redis.FailClosed = false
	cfg.Log.Format = "console"
	cfg.JWT.AllowAnonymous = true
	cfg.Environment = "development"
	return cfg
}
