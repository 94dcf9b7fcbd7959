package server

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORSMiddlewareAllowAll(t *testing.T) {
	handler := CORSMiddlewareWithConfig(CORSConfig{}, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header to allow all origins")
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "" {
		t.Error("credentials must not be allowed with a wildcard origin")
	}
	if resp.Header.Get("Access-Control-Allow-Headers") == "" {
		t.Error("expected CORS headers header")
	}
}

func TestCORSMiddlewareWithConfigRestrictedOrigins(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://reformedchapter.com", "http://localhost:3000"}}
	handler := CORSMiddlewareWithConfig(cfg, okHandler)

	tests := []struct {
		name              string
		method            string
		origin            string
		expectStatus      int
		expectAllowOrigin string
		expectCredentials bool
	}{
		{"allowed origin", http.MethodGet, "https://reformedchapter.com", http.StatusOK, "https://reformedchapter.com", true},
		{"another allowed origin", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000", true},
		{"disallowed origin", http.MethodGet, "https://evil.example", http.StatusOK, "", false},
		{"no origin header", http.MethodGet, "", http.StatusOK, "", false},
		{"allowed preflight", http.MethodOptions, "https://reformedchapter.com", http.StatusNoContent, "https://reformedchapter.com", true},
		{"disallowed preflight", http.MethodOptions, "https://evil.example", http.StatusForbidden, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/books", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.expectAllowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.expectAllowOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.expectCredentials {
				t.Errorf("Allow-Credentials = %v, want %v", got, tt.expectCredentials)
			}
		})
	}
}

func TestCORSPreflightAllowAll(t *testing.T) {
	called := false
	handler := CORSMiddlewareWithConfig(CORSConfig{}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/donations/payment-intent", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
}

func TestParseOrigins(t *testing.T) {
	got := ParseOrigins(" https://a.example/ ,, http://localhost:3000")
	want := []string{"https://a.example", "http://localhost:3000"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOrigins() = %v, want %v", got, want)
	}
	if ParseOrigins("") != nil {
		t.Error("empty list should parse to nil")
	}
}
