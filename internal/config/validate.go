package config

import (
	"fmt"
	"strings"
)

// Validate rejects contradictory settings before the server starts,
// mirroring cfg.Validate() in cmd/searchd/main.go.
func (c *Config) Validate() error {
	var errs []string

	switch c.Environment {
	case "production", "development":
	default:
		errs = append(errs, "environment must be production or development")
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "server.http_port must be in (0,65535]")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "server.metrics_port must be in (0,65535]")
	}
	if c.Server.RateLimitRPS <= 0 {
		errs = append(errs, "server.rate_limit_rps must be positive")
	}

	if strings.TrimSpace(c.Redis.URL) == "" {
		errs = append(errs, "redis.url must not be empty")
	}

	if strings.TrimSpace(c.JWT.Secret) == "" && !c.JWT.AllowAnonymous {
		errs = append(errs, "jwt.secret must not be empty unless jwt.allow_anonymous is set")
	}
	if c.JWT.ClockSkew < 0 {
		errs = append(errs, "jwt.clock_skew must not be negative")
	}

	for name, d := range map[string]int64{
		"llm.timeouts.gate":            int64(c.LLM.Timeouts.Gate),
		"llm.timeouts.intent":          int64(c.LLM.Timeouts.Intent),
		"llm.timeouts.base_filters":    int64(c.LLM.Timeouts.BaseFilters),
		"llm.timeouts.route_mapper":    int64(c.LLM.Timeouts.RouteMapper),
		"llm.timeouts.ranking_profile": int64(c.LLM.Timeouts.RankingProfile),
		"llm.timeouts.assistant":       int64(c.LLM.Timeouts.Assistant),
		"llm.timeouts.filter_enforcer": int64(c.LLM.Timeouts.FilterEnforcer),
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive", name))
		}
	}
	if c.LLM.RetryMaxAttempts < 0 {
		errs = append(errs, "llm.retry_max_attempts must be >= 0")
	}
	if c.LLM.RetryBaseDelay <= 0 || c.LLM.RetryMaxDelay < c.LLM.RetryBaseDelay {
		errs = append(errs, "llm.retry_base_delay/retry_max_delay are inconsistent")
	}

	if c.Places.RequestTimeout <= 0 {
		errs = append(errs, "places.request_timeout must be positive")
	}
	if c.Places.GeocodeTTL <= 0 {
		errs = append(errs, "places.geocode_ttl must be positive")
	}
	if strings.TrimSpace(c.Places.FieldMask) == "" {
		errs = append(errs, "places.field_mask must not be empty")
	}

	switch c.Ranking.DefaultMode {
	case "GOOGLE", "LLM_SCORE":
	default:
		errs = append(errs, "ranking.default_mode must be GOOGLE or LLM_SCORE")
	}
	if c.Ranking.CandidatePoolSize <= 0 {
		errs = append(errs, "ranking.candidate_pool_size must be positive")
	}
	if c.Ranking.DisplayResultsSize <= 0 || c.Ranking.DisplayResultsSize > c.Ranking.CandidatePoolSize {
		errs = append(errs, "ranking.display_results_size must be in (0,candidate_pool_size]")
	}

	if c.Dedup.RunningMaxAge <= 0 {
		errs = append(errs, "dedup.running_max_age must be positive")
	}
	if c.Dedup.SuccessFreshWindow <= 0 {
		errs = append(errs, "dedup.success_fresh_window must be positive")
	}
	if c.Dedup.JobTTL <= 0 {
		errs = append(errs, "dedup.job_ttl must be positive")
	}

	if c.Push.BacklogCapacity <= 0 {
		errs = append(errs, "push.backlog_capacity must be positive")
	}
	if c.Push.TicketTTL <= 0 {
		errs = append(errs, "push.ticket_ttl must be positive")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, "log.format must be json or console")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
