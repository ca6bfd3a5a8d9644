package pid

import (
	"fmt"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	valid := Request{
		Type: TypeFile,
		UUID: "be8154c1-a6aa-4f44-b953-780b016987b5",
		URL:  "https://cloudnet.fmi.fi/file/be8154c1-a6aa-4f44-b953-780b016987b5",
	}

	tooMany := valid
	for i := range maxRecords + 1 {
		tooMany.Data = append(tooMany.Data, Record{Type: fmt.Sprintf("T%d", i), Value: "v"})
	}

	tests := []struct {
		name    string
		modify  func(r Request) Request
		wantErr bool
	}{
		{"valid", func(r Request) Request { return r }, false},
		{"valid with records", func(r Request) Request {
			r.Data = []Record{{Type: "EMAIL", Value: ""}}
			return r
		}, false},
		{"unknown type", func(r Request) Request { r.Type = "banana"; return r }, true},
		{"empty type", func(r Request) Request { r.Type = ""; return r }, true},
		{"malformed uuid", func(r Request) Request { r.UUID = "be815-4c1a6aa4f4-4b953780b016-987b5"; return r }, true},
		{"truncated uuid", func(r Request) Request { r.UUID = "be8154c1a6aa4f44"; return r }, true},
		{"relative url", func(r Request) Request { r.URL = "/file/123"; return r }, true},
		{"unsupported scheme", func(r Request) Request { r.URL = "ftp://example.com/a"; return r }, true},
		{"missing host", func(r Request) Request { r.URL = "https:///a"; return r }, true},
		{"unparseable url", func(r Request) Request { r.URL = "http://[::1"; return r }, true},
		{"record without type", func(r Request) Request {
			r.Data = []Record{{Type: " ", Value: "v"}}
			return r
		}, true},
		{"too many records", func(r Request) Request { return tooMany }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := tt.modify(valid).Validate()
			if tt.wantErr {
				if !HasCode(err, ErrCodeInvalidRequest) {
					t.Fatalf("expected invalid request error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj.ID.String() != valid.UUID {
				t.Errorf("got id %s, want %s", obj.ID, valid.UUID)
			}
		})
	}
}

func TestMaxRecordsFitBeforeAdminIndex(t *testing.T) {
	records := make([]Record, maxRecords)
	for i := range records {
		records[i] = Record{Type: "T", Value: "v"}
	}
	payload := BuildPayload("https://example.com", records, testPrefix)

	seen := map[int]bool{}
	for _, v := range payload.Values {
		if seen[v.Index] {
			t.Fatalf("duplicate index %d", v.Index)
		}
		seen[v.Index] = true
	}
}
