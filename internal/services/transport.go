package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransportConfig configures the HTTP client used to talk to the Handle server.
type TransportConfig struct {
	// CertFile and KeyFile are the client certificate presented to the Handle server.
	// The certificate is only used when both are set.
	CertFile string
	KeyFile  string

	// CAVerify enables verification of the Handle server certificate.
	// Setting it to false is insecure and only intended for self-signed test servers.
	CAVerify bool

	// Timeout bounds each request (connect, redirects and reading the response body)
	Timeout time.Duration
}

// NewHTTPClient builds the Handle server HTTP client with the optional client certificate.
func NewHTTPClient(cfg TransportConfig) (*http.Client, error) {
	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errors.New("services: http transport unexpected type")
	}
	tr := transport.Clone()

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if !cfg.CAVerify {
		// #nosec G402 -- opt-in via CA_VERIFY=false for self-signed test servers
		tlsConfig.InsecureSkipVerify = true
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("services: load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	tr.TLSClientConfig = tlsConfig

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: tr,
	}, nil
}
