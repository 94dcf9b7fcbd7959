package api

// Version is reported by the root and health endpoints.
const Version = "0.1.0"

// Config holds server configuration.
type Config struct {
	Port              int
	SiteName          string     // Used in page metadata
	SiteURL           string     // Canonical URL prefix and sitemap host
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration
	TLS               TLSConfig  // TLS configuration
	AllowedOrigins    []string   // CORS and WebSocket allowed origins (empty = allow all)
	MaxBodyBytes      int64      // Limit for JSON request bodies (0 = 1 MB)
	Workers           int        // Secondary-match workers per chapter query (0 = GOMAXPROCS)
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool   // Enable HTTPS
	CertFile string // Path to TLS certificate file
	KeyFile  string // Path to TLS private key file
}

const defaultMaxBodyBytes = 1 << 20

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}
