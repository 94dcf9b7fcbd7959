package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
)

// MinAPIKeyLength is the shortest API key accepted.
const MinAPIKeyLength = 16

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Enabled bool
	APIKey  string
}

// NewAuthConfig enables authentication when apiKey is set.
func NewAuthConfig(apiKey string) AuthConfig {
	return AuthConfig{Enabled: apiKey != "", APIKey: apiKey}
}

// AuthMiddleware requires the X-API-Key header on moderation and import
// endpoints. Everything else is public. When authentication is not
// configured the protected endpoints are refused outright.
func AuthMiddleware(authCfg AuthConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtected(r) {
			next.ServeHTTP(w, r)
			return
		}

		if !authCfg.Enabled {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "This endpoint requires an API key to be configured on the server")
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "missing API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing X-API-Key header")
			return
		}

		if !constantTimeCompare(apiKey, authCfg.APIKey) {
			logging.SecurityEvent("unauthorized_request", "auth",
				"path", r.URL.Path,
				"reason", "invalid API key")
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isProtected reports whether the request needs an API key: reading or
// approving submissions, and starting, listing or cancelling imports.
// Submitting a resource and polling a single import job stay public.
func isProtected(r *http.Request) bool {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/submissions":
		return r.Method != http.MethodPost && r.Method != http.MethodOptions
	case strings.HasPrefix(path, "/submissions/"):
		return r.Method != http.MethodOptions
	case path == "/imports":
		return r.Method != http.MethodOptions
	case strings.HasPrefix(path, "/imports/"):
		return r.Method != http.MethodGet && r.Method != http.MethodOptions
	}
	return false
}

// ValidateAuthConfig validates the authentication configuration.
func ValidateAuthConfig(cfg AuthConfig) error {
	if cfg.Enabled && cfg.APIKey == "" {
		return fmt.Errorf("API key is required when authentication is enabled")
	}
	if cfg.Enabled && len(cfg.APIKey) < MinAPIKeyLength {
		return fmt.Errorf("API key must be at least %d characters (got %d)", MinAPIKeyLength, len(cfg.APIKey))
	}
	return nil
}

// constantTimeCompare compares two strings without leaking where they differ.
func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
