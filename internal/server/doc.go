// Package server provides the HTTP server for the PID service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// Routes:
//   - POST /pid/ mints a PID (internal/server/handlers/mint.go)
//   - GET /health/live, /health/ready, /version
//   - GET /metrics (Prometheus)
//
// middleware is in internal/server/middleware
package server
