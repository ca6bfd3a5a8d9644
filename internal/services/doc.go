// Package services provides the external service integrations of the PID service.
//
// HandleServer is the client for the Handle server REST API. It owns the upstream session:
// the session is established with a client certificate (POST api/sessions), shared by all
// concurrent mint requests, and replaced when the Handle server answers 401. Concurrent
// re-authentications are coalesced into a single login.
//
// NewHTTPClient builds the TLS transport (optional client certificate, optional CA verification).
package services
