// Package llmclient wraps the Anthropic SDK with the purpose-based
// timeout table, retry policy, per-purpose circuit breaker and strict-mode
// JSON schema validation required by SPEC_FULL.md §4.1 and §4.7. The
// external model provider is treated as a collaborator (spec §1); this
// package is the seam between that collaborator and the pipeline.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/config"
	"github.com/shacharon/searchcore/internal/logging"
	"github.com/shacharon/searchcore/internal/metrics"
	"github.com/shacharon/searchcore/types"
)

// Client invokes the model provider on behalf of the pipeline, one
// independent breaker per Purpose so a streak of route-mapper timeouts
// never trips the gate stage.
type Client struct {
	sdk    anthropic.Client
	cfg    config.LLMConfig
	logger *zap.Logger

	retryer  *retryer
	breakers map[Purpose]*circuitBreaker
	metrics  *metrics.Collector
}

// WithMetrics attaches a collector that records llm_requests_total (spec
// §6.5) around every Invoke call. Returns c for chaining at construction
// time, matching the builder style internal/config.Loader uses.
func (c *Client) WithMetrics(collector *metrics.Collector) *Client {
	c.metrics = collector
	return c
}

// New builds a Client from cfg. The Anthropic API key is read from
// cfg.APIKey; an empty key is valid in tests that stub the transport.
func New(cfg config.LLMConfig, logger *zap.Logger) *Client {
	c := &Client{
		sdk:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[Purpose]*circuitBreaker),
	}
	c.retryer = newRetryer(retryPolicy{
		MaxRetries:   cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryBaseDelay,
		MaxDelay:     cfg.RetryMaxDelay,
		Multiplier:   2.0,
	}, logger)
	for _, p := range []Purpose{
		PurposeGate, PurposeIntent, PurposeBaseFilters, PurposeRouteMapper,
		PurposeCuisineEnforcer, PurposeRankingProfile, PurposeAssistant,
	} {
		c.breakers[p] = newCircuitBreaker(string(p), defaultBreakerConfig(), logger)
	}
	return c
}

// InvokeOptions carries per-call overrides; Model defaults to
// cfg.DefaultModel when empty.
type InvokeOptions struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

// Invoke calls the model for purpose with prompt, constrains the response
// to schema (strict mode — every property must be in schema.Required, per
// §4.7), and unmarshals the result into out. It is the sole entry point
// the pipeline (C12) uses to reach the model provider.
func (c *Client) Invoke(ctx context.Context, purpose Purpose, prompt string, schema *types.JSONSchema, opts InvokeOptions, out any) error {
	breaker := c.breakers[purpose]
	if breaker == nil {
		breaker = newCircuitBreaker(string(purpose), defaultBreakerConfig(), c.logger)
		c.breakers[purpose] = breaker
	}

	if err := breaker.allow(); err != nil {
		c.metrics.RecordLLMRequest(string(purpose), "circuit_open")
		return apperr.Wrap(apperr.CodeProviderUnavailable, "llm circuit breaker open", err).WithRetryable(false)
	}

	timeout := timeoutFor(purpose, c.cfg.Timeouts)
	start := time.Now()

	raw, err := c.retryer.do(ctx, string(purpose), func(attempt int) (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.call(callCtx, purpose, prompt, schema, opts)
	})

	duration := time.Since(start)
	fields := logging.SlowCall(string(purpose), duration, c.cfg.SlowThreshold)
	logEnd := logging.Level(c.logger, duration > c.cfg.SlowThreshold)
	if err != nil {
		breaker.recordFailure()
		logEnd("llm_end", append(fields, zap.Bool("ok", false), zap.Error(err))...)
		c.metrics.RecordLLMRequest(string(purpose), llmOutcome(err))
		return err
	}
	breaker.recordSuccess()
	logEnd("llm_end", append(fields, zap.Bool("ok", true))...)

	data, ok := raw.(json.RawMessage)
	if !ok {
		c.metrics.RecordLLMRequest(string(purpose), "invalid_payload")
		return apperr.New(apperr.CodeLLMFatal, "llm client returned an unexpected payload type")
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.metrics.RecordLLMRequest(string(purpose), "schema_invalid")
		return schemaInvalid(fmt.Sprintf("response did not match requested schema: %v", err))
	}
	c.metrics.RecordLLMRequest(string(purpose), "success")
	return nil
}

// llmOutcome classifies a failed call's apperr.Code into the outcome label
// recorded on llm_requests_total (spec §6.5). Breaker rejections never
// reach here; Invoke records them as "circuit_open" itself.
func llmOutcome(err error) string {
	switch apperr.GetCode(err) {
	case apperr.CodeProviderTimeout:
		return "timeout"
	default:
		return "error"
	}
}

func (c *Client) call(ctx context.Context, purpose Purpose, prompt string, schema *types.JSONSchema, opts InvokeOptions) (any, error) {
	model := opts.Model
	if model == "" {
		model = c.cfg.DefaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	c.logger.Debug("llm_start", zap.String("purpose", string(purpose)), zap.String("model", model))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if schema != nil {
		// A single tool with ToolChoice left at its default ("auto") is
		// sufficient here: there is nothing else for the model to call,
		// so it always returns the structured tool_use block we parse
		// below.
		params.Tools = []anthropic.ToolUnionParam{toolFromSchema(purpose, schema)}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err, httpStatusFromSDKError(err))
	}

	for _, block := range msg.Content {
		if block.Type == "tool_use" {
			return json.RawMessage(block.Input), nil
		}
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return json.RawMessage(block.Text), nil
		}
	}
	return nil, schemaInvalid("llm response contained no tool_use or text content block")
}

func toolFromSchema(purpose Purpose, schema *types.JSONSchema) anthropic.ToolUnionParam {
	raw, _ := schema.ToJSON()
	var inputSchema anthropic.ToolInputSchemaParam
	_ = json.Unmarshal(raw, &inputSchema)
	return anthropic.ToolUnionParam{
		OfTool: &anthropic.ToolParam{
			Name:        string(purpose) + "_result",
			Description: anthropic.String(fmt.Sprintf("Structured result for the %s stage", purpose)),
			InputSchema: inputSchema,
		},
	}
}

// httpStatusFromSDKError extracts the HTTP status the Anthropic SDK
// attaches to transport errors, defaulting to 0 (classified as a non-5xx,
// non-4xx generic failure) when the error isn't an API error.
func httpStatusFromSDKError(err error) int {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr.StatusCode
	}
	return 0
}
