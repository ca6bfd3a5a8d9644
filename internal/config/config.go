package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=5800"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=60s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RequestTimeout        time.Duration `env:"REQUEST_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=65536"`

	// Handle server settings
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT,default=30s"`
	CAVerify        bool          `env:"CA_VERIFY,default=true"`
	CertificateOnly string        `env:"CERTIFICATE_ONLY"`
	PrivateKey      string        `env:"PRIVATE_KEY"`

	// SessionLazy lets the server start when the Handle server cannot be reached;
	// the session is then established on the first mint request.
	SessionLazy bool `env:"SESSION_LAZY,default=false"`

	// Required configuration - must be set by environment variables
	HandleServerURL string `env:"HANDLE_SERVER_URL,required=true"`
	Prefix          string `env:"PREFIX,required=true"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil

}

// HasClientCertificate reports whether a client certificate should be presented to the Handle server.
func (c *ServerEnvironment) HasClientCertificate() bool {
	return c.CertificateOnly != "" && c.PrivateKey != ""
}

// validateConfig checks for required env variables and normalises the Handle server URL.
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}

	u, err := url.Parse(cfg.HandleServerURL)
	if err != nil {
		return fmt.Errorf("invalid HANDLE_SERVER_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("HANDLE_SERVER_URL must be an http or https URL, got %q", cfg.HandleServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("HANDLE_SERVER_URL must include a host, got %q", cfg.HandleServerURL)
	}

	// endpoints are appended as "api/..." so the base must end with a slash
	if !strings.HasSuffix(cfg.HandleServerURL, "/") {
		cfg.HandleServerURL += "/"
	}

	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if cfg.Prefix == "" {
		return fmt.Errorf("PREFIX must not be empty")
	}

	if (cfg.CertificateOnly == "") != (cfg.PrivateKey == "") {
		return fmt.Errorf("CERTIFICATE_ONLY and PRIVATE_KEY must be set together")
	}

	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be greater than 0")
	}
	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}

	return nil
}
