package llmclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/shacharon/searchcore/internal/apperr"
)

// classify buckets a raw call error into the §4.1 taxonomy: abort_timeout
// and provider_5xx are retriable; schema_invalid and provider_4xx are not.
func classify(err error, httpStatus int) *apperr.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.CodeProviderTimeout, "llm call exceeded its deadline").
			WithRetryable(true).WithHTTPStatus(http.StatusGatewayTimeout)
	}

	switch {
	case httpStatus >= 500:
		return apperr.Wrap(apperr.CodeProviderUnavailable, "llm provider returned a server error", err).
			WithRetryable(true).WithHTTPStatus(http.StatusBadGateway)
	case httpStatus == http.StatusUnauthorized, httpStatus == http.StatusForbidden, httpStatus == http.StatusBadRequest:
		return apperr.Wrap(apperr.CodeLLMFatal, "llm provider rejected the request", err).
			WithRetryable(false).WithHTTPStatus(httpStatus)
	default:
		return apperr.Wrap(apperr.CodeProviderUnavailable, "llm call failed", err).
			WithRetryable(false).WithHTTPStatus(http.StatusBadGateway)
	}
}

func isRetriable(err error) bool {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// schemaInvalid marks a response that parsed as JSON but failed schema
// validation — never retried at this layer, per §4.1.
func schemaInvalid(message string) *apperr.Error {
	return apperr.New(apperr.CodeLLMSchemaInvalid, message).WithRetryable(false).WithHTTPStatus(http.StatusBadGateway)
}
