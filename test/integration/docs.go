// Package integration contains end-to-end tests for the PID service.
//
// These tests verify the server handles API requests correctly (expected responses,
// error handling, session renewal etc). The server is started in-process and talks to an
// in-memory fake Handle server (fake_handle_server.go) over HTTP.
//
// These tests assume the pid and services packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
