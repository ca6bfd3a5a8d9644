package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/actris-cloudnet/pid-service/internal/pid"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "none"))
	err := cmd.Execute()
	return out.String(), err
}

func TestDeriveCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "file",
			args: []string{"derive", "--prefix", "21.T12995", "file", "be8154c1-a6aa-4f44-b953-780b016987b5"},
			want: "21.T12995/1.be8154c1a6aa4f44\nhttps://hdl.handle.net/21.T12995/1.be8154c1a6aa4f44\n",
		},
		{
			name: "instrument with braces",
			args: []string{"derive", "--prefix", "21.T12995", "instrument", "{0b3a5b7b-c4e0-4bdf-8e8d-3a0b5c6f7a21}"},
			want: "21.T12995/3.0b3a5b7bc4e04bdf\nhttps://hdl.handle.net/21.T12995/3.0b3a5b7bc4e04bdf\n",
		},
		{name: "unknown type", args: []string{"derive", "--prefix", "21.T12995", "banana", "be8154c1-a6aa-4f44-b953-780b016987b5"}, wantErr: true},
		{name: "invalid uuid", args: []string{"derive", "--prefix", "21.T12995", "file", "not-a-uuid"}, wantErr: true},
		{name: "missing prefix", args: []string{"derive", "--prefix", "", "file", "be8154c1-a6aa-4f44-b953-780b016987b5"}, wantErr: true},
		{name: "missing argument", args: []string{"derive", "--prefix", "21.T12995", "file"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCLI(t, tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPayloadCommand(t *testing.T) {
	out, err := runCLI(t, "payload", "--prefix", "21.T12995",
		"--data", "EMAIL=actris@fmi.fi", "--data", "NAME=a=b",
		"https://cloudnet.fmi.fi/file/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload pid.Payload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("output is not a payload: %v\n%s", err, out)
	}
	if len(payload.Values) != 4 {
		t.Fatalf("got %d values, want 4", len(payload.Values))
	}

	wantTypes := []string{"URL", "EMAIL", "NAME", "HS_ADMIN"}
	wantIndexes := []int{1, 2, 3, 100}
	for i, v := range payload.Values {
		if v.Type != wantTypes[i] || v.Index != wantIndexes[i] {
			t.Errorf("value %d: got %s at %d, want %s at %d", i, v.Type, v.Index, wantTypes[i], wantIndexes[i])
		}
	}
	if payload.Values[2].Data.Value != "a=b" {
		t.Errorf("record value should keep everything after the first '=', got %v", payload.Values[2].Data.Value)
	}
}

func TestPayloadCommandRejectsBadRecord(t *testing.T) {
	if _, err := runCLI(t, "payload", "--prefix", "21.T12995", "--data", "novalue", "https://a.b/c"); err == nil {
		t.Fatal("expected error for a record without '='")
	}
}

func TestMintCommand(t *testing.T) {
	var (
		mu      sync.Mutex
		putPath string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sessions":
			_, _ = io.WriteString(w, `{"sessionId":"s1"}`)
		case r.Method == http.MethodPut:
			mu.Lock()
			putPath = r.URL.Path
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = fmt.Fprintf(w, `{"responseCode":1,"handle":%q}`, strings.TrimPrefix(r.URL.Path, "/api/handles/"))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	t.Setenv("HANDLE_SERVER_URL", srv.URL)
	t.Setenv("PREFIX", "21.T12995")

	out, err := runCLI(t, "mint", "collection", "48092c00-161d-4ca2-a29d-628cf8e960f6", "https://cloudnet.fmi.fi/collection/48092c00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "https://hdl.handle.net/21.T12995/2.48092c00161d4ca2\n" {
		t.Errorf("got output %q", out)
	}
	mu.Lock()
	defer mu.Unlock()
	if putPath != "/api/handles/21.T12995/2.48092c00161d4ca2" {
		t.Errorf("got put path %q", putPath)
	}
}

func TestMintCommandRequiresConfiguration(t *testing.T) {
	t.Setenv("HANDLE_SERVER_URL", "")
	t.Setenv("PREFIX", "")

	if _, err := runCLI(t, "mint", "file", "be8154c1-a6aa-4f44-b953-780b016987b5", "https://a.b/c"); err == nil {
		t.Fatal("expected a configuration error")
	}
}
