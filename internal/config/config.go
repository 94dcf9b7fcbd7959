// Package config loads settings from the environment, after reading an
// optional .env file.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/internal/server"
)

// Environment variable names.
const (
	EnvStripeSecretKey = "STRIPE_SECRET_KEY"
	EnvDatabaseURL     = "DATABASE_URL"
	EnvAPIKey          = "REFORMED_API_KEY"
	EnvAllowedOrigins  = "REFORMED_ALLOWED_ORIGINS"
	EnvSiteName        = "REFORMED_SITE_NAME"
	EnvSiteURL         = "REFORMED_SITE_URL"
	EnvCacheTTL        = "REFORMED_CACHE_TTL"
	EnvPort            = "PORT"
)

// Defaults applied when a variable is unset.
const (
	DefaultPort     = 8080
	DefaultSiteName = "Reformed Chapter"
	DefaultSiteURL  = "https://reformedchapter.com"
	DefaultCacheTTL = 5 * time.Minute
)

// Config is the process configuration.
type Config struct {
	Port            int
	DatabaseURL     string
	StripeSecretKey string
	APIKey          string
	AllowedOrigins  []string
	SiteName        string
	SiteURL         string
	CacheTTL        time.Duration
}

// LoadDotEnv reads the named .env files (".env" when none are given) into
// the process environment. Variables already set are not overridden and
// missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.NewParse("dotenv", f, err)
		}
	}
	return nil
}

// FromEnv builds a Config from the environment.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

// Load reads .env files and then the environment.
func Load(files ...string) (Config, error) {
	if err := LoadDotEnv(files...); err != nil {
		return Config{}, err
	}
	return FromEnv()
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		Port:            DefaultPort,
		DatabaseURL:     get(EnvDatabaseURL, ""),
		StripeSecretKey: get(EnvStripeSecretKey, ""),
		APIKey:          get(EnvAPIKey, ""),
		AllowedOrigins:  server.ParseOrigins(get(EnvAllowedOrigins, "")),
		SiteName:        get(EnvSiteName, DefaultSiteName),
		SiteURL:         strings.TrimRight(get(EnvSiteURL, DefaultSiteURL), "/"),
		CacheTTL:        DefaultCacheTTL,
	}

	if v := get(EnvPort, ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, &errors.ValidationError{Field: EnvPort, Value: v, Message: "must be a port number"}
		}
		cfg.Port = port
	}
	if v := get(EnvCacheTTL, ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl < 0 {
			return Config{}, &errors.ValidationError{Field: EnvCacheTTL, Value: v, Message: "must be a non-negative duration", Err: err}
		}
		cfg.CacheTTL = ttl
	}
	return cfg, nil
}
