//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// The integration tests start the pid-service HTTP server in-process, configured through the
// same environment variables as the service binary, against a fake Handle server.
// The session is established at startup, as cmd/pid-service does.
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/actris-cloudnet/pid-service/internal/config"
	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/actris-cloudnet/pid-service/internal/server"
	"github.com/actris-cloudnet/pid-service/internal/services"
)

const testPrefix = "21.T12995"

// testEnv provides access to the server and the fake Handle server for integration tests
type testEnv struct {
	baseURL  string
	cfg      *config.ServerEnvironment
	upstream *fakeHandleServer
	shutdown func()
}

// startInProcessServer starts the pid-service in-process. extraEnv overrides the default settings.
func startInProcessServer(t *testing.T, extraEnv map[string]string) *testEnv {
	t.Helper()

	testEnv := &testEnv{upstream: newFakeHandleServer(t)}

	t.Log("Starting in-process server...")

	port := findFreePort(t)
	logLevelName := "none"
	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		logLevelName = "debug"
	}

	testEnvVars := map[string]string{
		"HOST":              "localhost",
		"PORT":              fmt.Sprintf("%d", port),
		"ENVIRONMENT":       "test",
		"LOG_LEVEL":         logLevelName,
		"RATE_LIMIT_RPS":    "0",
		"HANDLE_SERVER_URL": testEnv.upstream.URL,
		"PREFIX":            testPrefix,
		"UPSTREAM_TIMEOUT":  "2s",
	}
	for key, value := range extraEnv {
		testEnvVars[key] = value
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	svc, err := services.NewServices(cfg, appLogger)
	if err != nil {
		t.Fatalf("Failed to create services: %v", err)
	}
	if err := svc.HandleServer.Authenticate(context.Background()); err != nil {
		t.Fatalf("Failed to authenticate with the fake Handle server: %v", err)
	}

	serverInstance, err := server.NewServer(cfg, svc, appLogger)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	// Create a cancellable context for server shutdown
	serverCtx, serverCancel := context.WithCancel(context.Background())

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		serverCancel()

		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("Server shutdown with error: %v", err)
			} else {
				t.Log("Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("Server shutdown timeout")
		}

		serverInstance.SessionShutdown()
	}

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	testEnv.cfg = cfg

	if !waitForServer(t, testEnv.baseURL+"/health/ready", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Logf("Server started at %s", testEnv.baseURL)
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
