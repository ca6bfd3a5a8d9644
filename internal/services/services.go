package services

// services wires the external integrations used by the PID service (the Handle server)

import (
	"fmt"
	"log/slog"

	"github.com/actris-cloudnet/pid-service/internal/config"
)

// Services aggregates all external service integrations used by the PID service.
type Services struct {
	HandleServer *HandleServer
}

// NewServices creates service implementations based on configuration.
// This is the single entry point for initializing all external service integrations.
//
// No upstream calls are made here: call HandleServer.Authenticate to establish the session.
func NewServices(cfg *config.ServerEnvironment, logger *slog.Logger) (*Services, error) {
	transportCfg := TransportConfig{
		CAVerify: cfg.CAVerify,
		Timeout:  cfg.UpstreamTimeout,
	}
	if cfg.HasClientCertificate() {
		transportCfg.CertFile = cfg.CertificateOnly
		transportCfg.KeyFile = cfg.PrivateKey
	}

	client, err := NewHTTPClient(transportCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Handle server client: %w", err)
	}

	return &Services{
		HandleServer: NewHandleServer(cfg.HandleServerURL, client, logger.With(slog.String("component", "handle_server"))),
	}, nil
}
