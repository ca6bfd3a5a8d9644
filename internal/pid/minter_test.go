package pid

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// putResult is the scripted outcome of one PutHandle call
type putResult struct {
	resp *HandleResponse
	err  error
}

// fakeUpstream records calls and replays scripted PutHandle results
type fakeUpstream struct {
	mu        sync.Mutex
	token     string
	logins    int
	tokenErr  error
	reauthErr error
	results   []putResult
	puts      []string // token used for each put
	handles   []string
	payloads  []Payload
}

func (f *fakeUpstream) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if f.token == "" {
		f.logins++
		f.token = fmt.Sprintf("session-%d", f.logins)
	}
	return f.token, nil
}

func (f *fakeUpstream) Reauthenticate(ctx context.Context, stale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reauthErr != nil {
		return "", f.reauthErr
	}
	if f.token == stale {
		f.logins++
		f.token = fmt.Sprintf("session-%d", f.logins)
	}
	return f.token, nil
}

func (f *fakeUpstream) PutHandle(ctx context.Context, token, handle string, payload Payload) (*HandleResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, token)
	f.handles = append(f.handles, handle)
	f.payloads = append(f.payloads, payload)

	if len(f.results) == 0 {
		return &HandleResponse{StatusCode: 201, Handle: handle, ResponseCode: 1}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	if r.resp != nil && r.resp.Handle == "" {
		r.resp.Handle = handle
	}
	return r.resp, r.err
}

func testLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func fileRequest(pidType PidType) Request {
	return Request{
		Type: pidType,
		UUID: "be8154c1-a6aa-4f44-b953-780b016987b5",
		URL:  "https://cloudnet.fmi.fi/file/be8154c1-a6aa-4f44-b953-780b016987b5",
	}
}

func TestMint(t *testing.T) {
	tests := []struct {
		name       string
		request    Request
		results    []putResult
		wantURL    string
		wantCode   ErrorCode
		wantPuts   int
		wantLogins int
		wantLog    string
	}{
		{
			name:       "file is created",
			request:    fileRequest(TypeFile),
			wantURL:    "https://hdl.handle.net/21.T12995/1.be8154c1a6aa4f44",
			wantPuts:   1,
			wantLogins: 1,
			wantLog:    "handle created",
		},
		{
			name:       "collection uses type code 2",
			request:    fileRequest(TypeCollection),
			wantURL:    "https://hdl.handle.net/21.T12995/2.be8154c1a6aa4f44",
			wantPuts:   1,
			wantLogins: 1,
		},
		{
			name:       "instrument uses type code 3",
			request:    fileRequest(TypeInstrument),
			wantURL:    "https://hdl.handle.net/21.T12995/3.be8154c1a6aa4f44",
			wantPuts:   1,
			wantLogins: 1,
		},
		{
			name:       "existing handle is updated with a warning",
			request:    fileRequest(TypeFile),
			results:    []putResult{{resp: &HandleResponse{StatusCode: 200, ResponseCode: 1}}},
			wantURL:    "https://hdl.handle.net/21.T12995/1.be8154c1a6aa4f44",
			wantPuts:   1,
			wantLogins: 1,
			wantLog:    "handle already exists, updating handle",
		},
		{
			name:       "returned handle is trusted",
			request:    fileRequest(TypeFile),
			results:    []putResult{{resp: &HandleResponse{StatusCode: 201, Handle: "21.T12995/OTHER", ResponseCode: 1}}},
			wantURL:    "https://hdl.handle.net/21.T12995/OTHER",
			wantPuts:   1,
			wantLogins: 1,
			wantLog:    "Handle server returned a different handle",
		},
		{
			name:       "forbidden is rejected",
			request:    fileRequest(TypeFile),
			results:    []putResult{{err: NewUpstreamRejectedError(403, "Upstream PID service failed with status 403:\nforbidden")}},
			wantCode:   ErrCodeUpstreamRejected,
			wantPuts:   1,
			wantLogins: 1,
		},
		{
			name:       "timeout is unreachable",
			request:    fileRequest(TypeFile),
			results:    []putResult{{err: WrapUpstreamUnreachableError(context.DeadlineExceeded, "Could not connect to upstream PID service")}},
			wantCode:   ErrCodeUpstreamUnreachable,
			wantPuts:   1,
			wantLogins: 1,
		},
		{
			name:    "expired session is renewed once",
			request: fileRequest(TypeFile),
			results: []putResult{
				{err: NewAuthExpiredError("Upstream PID service failed with status 401")},
				{resp: &HandleResponse{StatusCode: 201, ResponseCode: 1}},
			},
			wantURL:    "https://hdl.handle.net/21.T12995/1.be8154c1a6aa4f44",
			wantPuts:   2,
			wantLogins: 2,
		},
		{
			name:    "second 401 is not retried",
			request: fileRequest(TypeFile),
			results: []putResult{
				{err: NewAuthExpiredError("Upstream PID service failed with status 401")},
				{err: NewAuthExpiredError("Upstream PID service failed with status 401")},
				{resp: &HandleResponse{StatusCode: 201, ResponseCode: 1}},
			},
			wantCode:   ErrCodeUpstreamUnreachable,
			wantPuts:   2,
			wantLogins: 2,
		},
		{
			name:       "unknown type makes no upstream call",
			request:    fileRequest(PidType("banana")),
			wantCode:   ErrCodeInvalidRequest,
			wantPuts:   0,
			wantLogins: 0,
		},
		{
			name: "invalid uuid makes no upstream call",
			request: Request{
				Type: TypeFile,
				UUID: "fail",
				URL:  "https://cloudnet.fmi.fi/file/fail",
			},
			wantCode:   ErrCodeInvalidRequest,
			wantPuts:   0,
			wantLogins: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			upstream := &fakeUpstream{results: tt.results}
			minter := NewMinter(upstream, testPrefix, testLogger(&logs), nil)

			got, err := minter.Mint(context.Background(), tt.request)

			if tt.wantCode != 0 {
				if !HasCode(err, tt.wantCode) {
					t.Fatalf("expected error code %d, got %v", tt.wantCode, err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.wantURL {
					t.Errorf("got %q, want %q", got, tt.wantURL)
				}
			}

			if len(upstream.puts) != tt.wantPuts {
				t.Errorf("got %d PUT requests, want %d", len(upstream.puts), tt.wantPuts)
			}
			if upstream.logins != tt.wantLogins {
				t.Errorf("got %d logins, want %d", upstream.logins, tt.wantLogins)
			}
			if tt.wantLog != "" && !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("expected log to contain %q, got:\n%s", tt.wantLog, logs.String())
			}
		})
	}
}

func TestMintRetryUsesRenewedToken(t *testing.T) {
	upstream := &fakeUpstream{results: []putResult{
		{err: NewAuthExpiredError("expired")},
	}}
	minter := NewMinter(upstream, testPrefix, testLogger(io.Discard), nil)

	if _, err := minter.Mint(context.Background(), fileRequest(TypeFile)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(upstream.puts) != 2 {
		t.Fatalf("expected 2 PUT requests, got %d", len(upstream.puts))
	}
	if upstream.puts[0] == upstream.puts[1] {
		t.Errorf("retry used the expired token %q", upstream.puts[1])
	}
	if upstream.handles[0] != upstream.handles[1] {
		t.Errorf("retry used a different handle: %q != %q", upstream.handles[0], upstream.handles[1])
	}
}

func TestMintSendsPayload(t *testing.T) {
	upstream := &fakeUpstream{}
	minter := NewMinter(upstream, testPrefix, testLogger(io.Discard), nil)

	req := fileRequest(TypeFile)
	req.Data = []Record{{Type: "CLOUDNET_SITE", Value: "hyytiala"}, {Type: "CLOUDNET_DATE", Value: "2024-01-01"}}

	if _, err := minter.Mint(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := upstream.payloads[0]
	if payload.Values[0].Data.Value != req.URL {
		t.Errorf("got target %v, want %s", payload.Values[0].Data.Value, req.URL)
	}
	if payload.Values[1].Type != "CLOUDNET_SITE" || payload.Values[2].Type != "CLOUDNET_DATE" {
		t.Errorf("records out of order: %+v", payload.Values)
	}
}

func TestMintAuthFailures(t *testing.T) {
	loginErr := NewAuthError(500, "Upstream PID service login failed with status 500")

	t.Run("initial login fails", func(t *testing.T) {
		upstream := &fakeUpstream{tokenErr: loginErr}
		minter := NewMinter(upstream, testPrefix, testLogger(io.Discard), nil)

		_, err := minter.Mint(context.Background(), fileRequest(TypeFile))
		if !HasCode(err, ErrCodeAuth) {
			t.Fatalf("expected auth error, got %v", err)
		}
		if len(upstream.puts) != 0 {
			t.Errorf("expected no PUT requests, got %d", len(upstream.puts))
		}
	})

	t.Run("re-authentication fails", func(t *testing.T) {
		upstream := &fakeUpstream{
			reauthErr: loginErr,
			results:   []putResult{{err: NewAuthExpiredError("expired")}},
		}
		minter := NewMinter(upstream, testPrefix, testLogger(io.Discard), nil)

		_, err := minter.Mint(context.Background(), fileRequest(TypeFile))
		if !errors.Is(err, loginErr) {
			t.Fatalf("expected login error, got %v", err)
		}
		if len(upstream.puts) != 1 {
			t.Errorf("expected 1 PUT request, got %d", len(upstream.puts))
		}
	})
}

func TestMintMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}

	upstream := &fakeUpstream{results: []putResult{
		{err: NewAuthExpiredError("expired")},
		{resp: &HandleResponse{StatusCode: 200, ResponseCode: 1}},
		{err: NewUpstreamRejectedError(403, "forbidden")},
	}}
	minter := NewMinter(upstream, testPrefix, testLogger(io.Discard), metrics)

	ctx := context.Background()
	if _, err := minter.Mint(ctx, fileRequest(TypeFile)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = minter.Mint(ctx, fileRequest(TypeFile))
	_, _ = minter.Mint(ctx, fileRequest(PidType("banana")))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"updated", testutil.ToFloat64(metrics.mints.WithLabelValues(outcomeUpdated)), 1},
		{"rejected", testutil.ToFloat64(metrics.mints.WithLabelValues(outcomeRejected)), 1},
		{"invalid", testutil.ToFloat64(metrics.mints.WithLabelValues(outcomeInvalid)), 1},
		{"reauthentications", testutil.ToFloat64(metrics.reauthentications), 1},
		{"status 401", testutil.ToFloat64(metrics.upstreamResponses.WithLabelValues("401")), 1},
		{"status 200", testutil.ToFloat64(metrics.upstreamResponses.WithLabelValues("200")), 1},
		{"status 403", testutil.ToFloat64(metrics.upstreamResponses.WithLabelValues("403")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}
