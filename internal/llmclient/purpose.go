package llmclient

import (
	"time"

	"github.com/shacharon/searchcore/internal/config"
)

// Purpose is the closed set of LLM call sites the pipeline invokes (spec
// §4.1). Each carries its own timeout and circuit breaker; every purpose
// uses the same LLMConfig.DefaultModel unless InvokeOptions.Model is set.
type Purpose string

const (
	PurposeGate           Purpose = "gate"
	PurposeIntent         Purpose = "intent"
	PurposeBaseFilters    Purpose = "baseFilters"
	PurposeRouteMapper    Purpose = "routeMapper"
	PurposeCuisineEnforcer Purpose = "cuisineEnforcer"
	PurposeRankingProfile Purpose = "rankingProfile"
	PurposeAssistant      Purpose = "assistant"
)

func timeoutFor(p Purpose, t config.LLMPurposeTimeouts) time.Duration {
	switch p {
	case PurposeGate:
		return t.Gate
	case PurposeIntent:
		return t.Intent
	case PurposeBaseFilters:
		return t.BaseFilters
	case PurposeRouteMapper:
		return t.RouteMapper
	case PurposeCuisineEnforcer:
		return t.FilterEnforcer
	case PurposeRankingProfile:
		return t.RankingProfile
	case PurposeAssistant:
		return t.Assistant
	default:
		return t.Assistant
	}
}
