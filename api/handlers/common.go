// Package handlers implements the HTTP surface (spec §6.1, C14): request
// submission, result polling, ws-ticket issuance, and liveness/readiness.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/shacharon/searchcore/api"
	"github.com/shacharon/searchcore/internal/apperr"
	"github.com/shacharon/searchcore/internal/reqctx"
)

// writeJSON encodes v as the response body with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSONBody decodes r.Body into dst, returning an apperr.CodeInvalidRequest
// error on any malformed JSON rather than letting the zero value pass silently.
func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.New(apperr.CodeInvalidRequest, "request body is required").WithHTTPStatus(400)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Wrap(apperr.CodeInvalidRequest, "malformed request body", err).WithHTTPStatus(400)
	}
	return nil
}

// writeError maps err to the wire-level error envelope and status code via
// apperr.Error.ResolveHTTPStatus, logging anything that resolves to a 5xx.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(apperr.CodeInternal, "unexpected error", err)
	}

	status := appErr.ResolveHTTPStatus()
	if status >= 500 {
		logger.Error("http_handler_error", zap.String("path", r.URL.Path), zap.String("code", string(appErr.Code)), zap.Error(appErr))
	}

	traceID, _ := reqctx.TraceID(r.Context())
	writeJSON(w, status, api.ErrorResponse{
		Code:    string(appErr.Code),
		Message: appErr.Message,
		TraceID: traceID,
	})
}
