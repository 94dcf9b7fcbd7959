package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
	"github.com/FocuswithJustin/ReformedChapter/internal/server"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

func newMeta() *APIMeta {
	return &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{Success: true, Data: data, Meta: newMeta()})
}

func respondList(w http.ResponseWriter, data any, total int) {
	meta := newMeta()
	meta.Total = total
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data, Meta: meta})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    newMeta(),
	})
}

// classify maps an error onto a status code, error code and client-facing
// message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", errorMessage(err)
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST", errorMessage(err)
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED", errorMessage(err)
	case errors.Is(err, errors.ErrUpstream):
		return http.StatusInternalServerError, "UPSTREAM_ERROR", upstreamMessage(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "Request cancelled"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

// respondErr writes err as an API error. Server-side failures are logged.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
	}
	respondError(w, status, code, message)
}

// errorMessage flattens joined errors onto one line.
func errorMessage(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// upstreamMessage is the provider's own message when there is one; the
// service and operation stay in the logs.
func upstreamMessage(err error) string {
	var ue *errors.UpstreamError
	if errors.As(err, &ue) && ue.Err != nil {
		return errorMessage(ue.Err)
	}
	return "Upstream service failed"
}

// etagFor returns a strong ETag for a response payload.
func etagFor(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatches reports whether an If-None-Match header lists etag.
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// respondCached writes data with an ETag computed over its JSON encoding
// and answers 304 when the client already has it.
func respondCached(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		respondErr(w, r, errors.Wrap(err, "encode response"))
		return
	}
	etag := etagFor(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respond(w, http.StatusOK, json.RawMessage(body))
}

// decodeBody decodes a JSON request body into v, rejecting bodies over
// limit bytes.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !server.ValidateContentType(ct, server.JSONContentTypes) {
		return &errors.ValidationError{Field: "Content-Type", Value: ct, Message: "must be application/json"}
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.NewValidation("body", "request body too large")
		}
		return errors.NewParse("JSON", "", err)
	}
	return nil
}
