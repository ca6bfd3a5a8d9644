package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/actris-cloudnet/pid-service/internal/config"
	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/actris-cloudnet/pid-service/internal/server"
	"github.com/actris-cloudnet/pid-service/internal/services"
	"github.com/actris-cloudnet/pid-service/internal/version"
)

//	@title			pid-service
//	@description	pid-service mints persistent identifiers (handles) for files, collections and instruments.
//	@description
//	@description	Each handle is registered with the upstream Handle server and resolved through https://hdl.handle.net/.
//	@description	The handle is derived from the object type and uuid: minting the same object again updates the existing handle.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Individual endpoints document their specific errors.
//	@description
//	@description	## Request Limits
//	@description	The mint endpoint is protected by:
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 64KB
//	@description
//	@description	Check the X-Max-Request-Size response header for the configured limit.
//	@description
//	@description	## Authentication & Authorization
//	@description
//	@description	The API does not require credentials. It is expected to run on an internal network.
//	@description	The service itself authenticates with the Handle server using a client certificate.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:5800
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			PID
//	@tag.description	PID minting

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version)

func main() {
	cmd := &cobra.Command{
		Use:   "pid-service",
		Short: "PID minting service",
		Long:  `pid-service registers handles with a Handle server and returns their resolver URLs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("HANDLE_SERVER_URL", cfg.HandleServerURL),
		slog.String("PREFIX", cfg.Prefix),
		slog.Bool("CLIENT_CERTIFICATE", cfg.HasClientCertificate()),
		slog.Bool("CA_VERIFY", cfg.CAVerify),
		slog.Duration("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout),
		slog.Bool("SESSION_LAZY", cfg.SessionLazy),
	)

	if !cfg.CAVerify {
		appLogger.Warn("CA_VERIFY is false: the Handle server certificate will not be verified")
	}

	svc, err := services.NewServices(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to create services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	authCtx, authCancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout)
	err = svc.HandleServer.Authenticate(authCtx)
	authCancel()
	if err != nil {
		if !cfg.SessionLazy {
			appLogger.Error("Failed to authenticate with the Handle server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		appLogger.Warn("Handle server authentication failed, the session will be established on the first request",
			slog.String("error", err.Error()))
	}

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// configure the server
	server, err := server.NewServer(
		cfg,
		svc,
		appLogger,
	)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		svc.HandleServer.Teardown(context.Background())
		os.Exit(1)
	}

	defer server.SessionShutdown()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
