// Package handlers provides the HTTP handlers of the PID service:
// POST /pid/ (mint) and the common infrastructure endpoints (health, readiness, version).
package handlers
