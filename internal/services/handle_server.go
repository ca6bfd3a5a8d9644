package services

// handle_server.go implements the Handle server REST API client and the session manager
//
//	POST   {base}api/sessions          - login, returns {"sessionId": "..."}
//	PUT    {base}api/handles/{handle}  - create (201) or replace (200) a handle
//	DELETE {base}api/sessions/this     - logout
//
// Requests after login carry "Authorization: Handle sessionId={id}".

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/actris-cloudnet/pid-service/internal/pid"
)

// maxErrorBodySize limits how much of an upstream error body is copied into error messages
const maxErrorBodySize = 64 << 10

// HandleServer is the Handle server client. It owns the single upstream session of the process.
//
// The session id is read by concurrent mint calls and only replaced by Authenticate/Reauthenticate;
// logins are coalesced so at most one is in flight at a time.
type HandleServer struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.RWMutex
	sessionID string

	logins singleflight.Group
}

// NewHandleServer creates a client for the Handle server at baseURL (which must end with a slash).
func NewHandleServer(baseURL string, httpClient *http.Client, logger *slog.Logger) *HandleServer {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HandleServer{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

type sessionResponse struct {
	SessionID     string `json:"sessionId"`
	Authenticated bool   `json:"authenticated"`
	ID            string `json:"id"`
}

type handleResponse struct {
	ResponseCode int    `json:"responseCode"`
	Handle       string `json:"handle"`
}

// Authenticate logs in and installs a new session, replacing any existing one.
func (h *HandleServer) Authenticate(ctx context.Context) error {
	h.mu.RLock()
	current := h.sessionID
	h.mu.RUnlock()

	_, err := h.Reauthenticate(ctx, current)
	return err
}

// Token returns the current session id, logging in first when there is no session.
func (h *HandleServer) Token(ctx context.Context) (string, error) {
	h.mu.RLock()
	current := h.sessionID
	h.mu.RUnlock()

	if current != "" {
		return current, nil
	}
	return h.Reauthenticate(ctx, "")
}

// Reauthenticate replaces the session identified by staleToken.
//
// If the session has already been replaced (another caller got there first) the current token is
// returned without logging in again. Callers arriving while a login is in flight wait for its result.
func (h *HandleServer) Reauthenticate(ctx context.Context, staleToken string) (string, error) {
	v, err, _ := h.logins.Do("session", func() (any, error) {
		h.mu.RLock()
		current := h.sessionID
		h.mu.RUnlock()

		if current != "" && current != staleToken {
			return current, nil
		}

		// the login is shared by every waiting caller, so it must not be cancelled by the first one
		sessionID, err := h.login(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}

		h.mu.Lock()
		h.sessionID = sessionID
		h.mu.Unlock()

		h.logger.Info("Handle server session established")
		return sessionID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Ready reports whether a session has been established.
func (h *HandleServer) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessionID != ""
}

// login performs POST api/sessions. The client certificate (if configured) is presented by the transport.
func (h *HandleServer) login(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"api/sessions", nil)
	if err != nil {
		return "", pid.WrapAuthError(err, "failed to create session request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", `Handle clientCert="true"`)

	// #nosec G704 -- the base URL is from server config
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", pid.WrapAuthError(err, "Could not connect to upstream PID service")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp.Body)
		return "", pid.NewAuthError(resp.StatusCode,
			fmt.Sprintf("Upstream PID service login failed with status %d:\n%s", resp.StatusCode, body))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", pid.WrapAuthError(err, "failed to decode session response")
	}
	if session.SessionID == "" {
		return "", pid.NewAuthError(resp.StatusCode, "session response did not include a sessionId")
	}

	return session.SessionID, nil
}

// PutHandle creates or replaces a handle using the supplied session token.
//
// Errors are returned as pid errors: ErrCodeAuthExpired for 401, ErrCodeUpstreamRejected for other
// error statuses and unusable responses, ErrCodeUpstreamUnreachable for transport failures.
func (h *HandleServer) PutHandle(ctx context.Context, token string, handle string, payload pid.Payload) (*pid.HandleResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pid.WrapInternalError(err, "failed to encode handle payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.baseURL+"api/handles/"+handle, bytes.NewReader(body))
	if err != nil {
		return nil, pid.WrapInternalError(err, "failed to create handle request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Handle sessionId="+token)

	// #nosec G704 -- the base URL is from server config and the handle is derived from a validated uuid
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, pid.WrapUpstreamUnreachableError(err, "Could not connect to upstream PID service")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, pid.NewAuthExpiredError(
			fmt.Sprintf("Upstream PID service failed with status %d", resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody := readErrorBody(resp.Body)
		return nil, pid.NewUpstreamRejectedError(resp.StatusCode,
			fmt.Sprintf("Upstream PID service failed with status %d:\n%s", resp.StatusCode, errBody))
	}

	var hr handleResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, pid.WrapUpstreamRejectedError(err, resp.StatusCode, "failed to decode Handle server response")
	}
	if hr.Handle == "" {
		return nil, pid.NewUpstreamRejectedError(resp.StatusCode, "Handle server response did not include a handle")
	}

	return &pid.HandleResponse{
		StatusCode:   resp.StatusCode,
		Handle:       hr.Handle,
		ResponseCode: hr.ResponseCode,
	}, nil
}

// Teardown logs out (best effort) and releases idle connections.
// Errors are logged and otherwise ignored.
func (h *HandleServer) Teardown(ctx context.Context) {
	h.mu.Lock()
	sessionID := h.sessionID
	h.sessionID = ""
	h.mu.Unlock()

	defer h.httpClient.CloseIdleConnections()

	if sessionID == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.baseURL+"api/sessions/this", nil)
	if err != nil {
		h.logger.Warn("failed to create logout request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Authorization", "Handle sessionId="+sessionID)

	// #nosec G704 -- the base URL is from server config
	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Warn("Handle server logout failed", slog.String("error", err.Error()))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.logger.Warn("Handle server logout failed", slog.Int("status", resp.StatusCode))
		return
	}
	h.logger.Info("Handle server session closed")
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(b)
}
