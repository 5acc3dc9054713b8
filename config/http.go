package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://treadscan.example.com").
	// Used for generating absolute URLs in API responses and other external contexts.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// ReadHeaderTimeout bounds how long the server waits for request headers.
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// MaxSnapshotBytes is the maximum accepted size of an uploaded snapshot
	// image, after base64 decoding.
	MaxSnapshotBytes int64 `env:"HTTP_MAX_SNAPSHOT_BYTES" envDefault:"8388608"` // 8 MiB
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadHeaderTimeout <= 0 {
		h.ReadHeaderTimeout = 10 * time.Second
	}
	if h.MaxSnapshotBytes < 1024 {
		h.MaxSnapshotBytes = 1024
	}
}
