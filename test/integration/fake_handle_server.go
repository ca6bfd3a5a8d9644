//go:build integration

package integration

// fakeHandleServer implements the subset of the Handle server REST API used by the PID service:
// session login/logout and handle upserts. Handles are kept in memory so repeated PUTs return 200.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeHandleServer struct {
	*httptest.Server

	mu       sync.Mutex
	sessions map[string]bool
	handles  map[string]json.RawMessage
	logins   int
	logouts  int

	// rejectNext answers the next n PUTs with 401 regardless of the session
	rejectNext int

	// putStatus, when set, answers every PUT with this status and body
	putStatus int
	putBody   string

	// putDelay delays every PUT response
	putDelay time.Duration
}

func newFakeHandleServer(t *testing.T) *fakeHandleServer {
	t.Helper()
	f := &fakeHandleServer{
		sessions: map[string]bool{},
		handles:  map[string]json.RawMessage{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeHandleServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/sessions":
		f.login(w, r)
	case r.Method == http.MethodDelete && r.URL.Path == "/api/sessions/this":
		f.logout(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/api/handles/"):
		f.put(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeHandleServer) login(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != `Handle clientCert="true"` {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	f.logins++
	id := fmt.Sprintf("session-%d", f.logins)
	f.sessions[id] = true
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"sessionId":%q,"authenticated":true,"id":"300:0.NA/21.T12995"}`, id)
}

func (f *fakeHandleServer) logout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionFrom(r))
	f.logouts++
	w.WriteHeader(http.StatusOK)
}

func (f *fakeHandleServer) put(w http.ResponseWriter, r *http.Request) {
	handle := strings.TrimPrefix(r.URL.Path, "/api/handles/")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	delay := f.putDelay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejectNext > 0 {
		f.rejectNext--
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if !f.sessions[sessionFrom(r)] {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.putStatus != 0 {
		w.WriteHeader(f.putStatus)
		_, _ = io.WriteString(w, f.putBody)
		return
	}

	status := http.StatusCreated
	if _, exists := f.handles[handle]; exists {
		status = http.StatusOK
	}
	f.handles[handle] = body

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"responseCode":1,"handle":%q}`, handle)
}

// expireSessions invalidates every session, as the Handle server does when sessions time out
func (f *fakeHandleServer) expireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = map[string]bool{}
}

func (f *fakeHandleServer) set(fn func(f *fakeHandleServer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeHandleServer) counts() (logins, logouts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins, f.logouts
}

func (f *fakeHandleServer) stored(handle string) (json.RawMessage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.handles[handle]
	return body, ok
}

func sessionFrom(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Handle sessionId=")
}
