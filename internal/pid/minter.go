package pid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/actris-cloudnet/pid-service/internal/logger"
)

// Upstream is the Handle server as seen by the Minter.
//
// Token and Reauthenticate are the session manager; PutHandle is the upsert.
type Upstream interface {
	// Token returns the current session token, logging in first if there is no session yet.
	Token(ctx context.Context) (string, error)

	// Reauthenticate replaces the session used by staleToken and returns the new token.
	// Concurrent calls for the same stale token result in a single login.
	Reauthenticate(ctx context.Context, staleToken string) (string, error)

	// PutHandle creates or replaces handle with payload.
	// A 401 response is returned as ErrCodeAuthExpired, other error statuses as ErrCodeUpstreamRejected
	// and transport failures as ErrCodeUpstreamUnreachable.
	PutHandle(ctx context.Context, token string, handle string, payload Payload) (*HandleResponse, error)
}

// HandleResponse is a successful Handle server PUT response
type HandleResponse struct {
	// StatusCode is 201 for a new handle and 200 for a replaced one
	StatusCode int

	// Handle is the handle reported by the Handle server
	Handle string

	// ResponseCode is the Handle server response code (1 = success)
	ResponseCode int
}

// MintState is the state of a single mint call
type MintState string

const (
	StateIdle           MintState = "idle"
	StateAuthenticating MintState = "authenticating"
	StateMinting        MintState = "minting"
	StateRetrying       MintState = "retrying"
	StateSucceeded      MintState = "succeeded"
	StateFailed         MintState = "failed"
)

// maxAttempts bounds the upsert to the first attempt plus one retry after re-authentication
const maxAttempts = 2

// Minter mints PIDs against the Handle server
type Minter struct {
	upstream Upstream
	prefix   string
	logger   *slog.Logger
	metrics  *Metrics
}

// NewMinter creates a Minter for the handle prefix. metrics may be nil.
func NewMinter(upstream Upstream, prefix string, logger *slog.Logger, metrics *Metrics) *Minter {
	return &Minter{
		upstream: upstream,
		prefix:   prefix,
		logger:   logger,
		metrics:  metrics,
	}
}

// Prefix returns the handle prefix used by the minter
func (m *Minter) Prefix() string {
	return m.prefix
}

// mintCall tracks the state of one Mint invocation
type mintCall struct {
	state  MintState
	logger *slog.Logger
}

func (c *mintCall) transition(to MintState, attrs ...slog.Attr) {
	c.logger.LogAttrs(context.Background(), slog.LevelDebug, "mint state",
		append([]slog.Attr{slog.String("from", string(c.state)), slog.String("to", string(to))}, attrs...)...)
	c.state = to
}

// Mint validates the request, upserts the derived handle and returns the resolver URL
// of the handle reported by the Handle server.
func (m *Minter) Mint(ctx context.Context, req Request) (string, error) {
	obj, err := req.Validate()
	if err != nil {
		m.metrics.observeMint(outcomeInvalid)
		return "", err
	}

	handle, err := DeriveHandle(obj.Type, obj.ID, m.prefix)
	if err != nil {
		m.metrics.observeMint(outcomeInvalid)
		return "", err
	}
	payload := BuildPayload(obj.URL.String(), obj.Records, m.prefix)

	logger.ContextWithLogAttrs(ctx, slog.String("handle", handle))

	call := &mintCall{
		state:  StateIdle,
		logger: m.logger.With(slog.String("handle", handle)),
	}

	resp, err := m.upsert(ctx, call, handle, payload)
	if err != nil {
		call.transition(StateFailed, slog.String("error", err.Error()))
		m.metrics.observeMint(outcomeFor(err))
		return "", err
	}
	call.transition(StateSucceeded)

	switch resp.StatusCode {
	case http.StatusOK:
		call.logger.Warn("handle already exists, updating handle")
		m.metrics.observeMint(outcomeUpdated)
	default:
		call.logger.Info("handle created")
		m.metrics.observeMint(outcomeCreated)
	}

	// the upstream handle is returned as-is, even if it differs from the requested one
	if resp.Handle != handle {
		call.logger.Warn("Handle server returned a different handle",
			slog.String("returned_handle", resp.Handle))
	}

	return ResolverURL(resp.Handle), nil
}

// upsert runs the authenticated PUT with at most one re-authentication.
func (m *Minter) upsert(ctx context.Context, call *mintCall, handle string, payload Payload) (*HandleResponse, error) {
	call.transition(StateAuthenticating)
	token, err := m.upstream.Token(ctx)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		call.transition(StateMinting, slog.Int("attempt", attempt))

		resp, err := m.upstream.PutHandle(ctx, token, handle, payload)
		if err == nil {
			m.metrics.observeUpstreamStatus(resp.StatusCode)
			return resp, nil
		}

		var pidErr *PidError
		if errors.As(err, &pidErr) && pidErr.UpstreamStatus() != 0 {
			m.metrics.observeUpstreamStatus(pidErr.UpstreamStatus())
		}

		if !HasCode(err, ErrCodeAuthExpired) {
			return nil, err
		}

		if attempt >= maxAttempts {
			return nil, WrapUpstreamUnreachableError(err,
				fmt.Sprintf("Upstream PID service failed with status %d after re-authentication", http.StatusUnauthorized))
		}

		call.transition(StateRetrying)
		m.metrics.observeReauthentication()

		token, err = m.upstream.Reauthenticate(ctx, token)
		if err != nil {
			return nil, err
		}
	}
}
