package pid

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// PidType is the kind of digital object a PID is minted for
type PidType string

const (
	TypeFile       PidType = "file"
	TypeCollection PidType = "collection"
	TypeInstrument PidType = "instrument"
)

// typeCodes are the leading digit of the handle suffix
var typeCodes = map[PidType]string{
	TypeFile:       "1",
	TypeCollection: "2",
	TypeInstrument: "3",
}

// Code returns the handle type digit.
func (t PidType) Code() (string, bool) {
	code, ok := typeCodes[t]
	return code, ok
}

// Valid reports whether t is a known object type.
func (t PidType) Valid() bool {
	_, ok := typeCodes[t]
	return ok
}

// maxRecords is the number of extra records that fit between the URL (index 1) and HS_ADMIN (index 100)
const maxRecords = adminIndex - firstRecordIndex

// Record is an additional handle value supplied by the caller (stored with format "string")
type Record struct {
	Type  string `json:"type" example:"CLOUDNET_SITE"`
	Value string `json:"value" example:"hyytiala"`
}

// Request is the body of POST /pid/
type Request struct {
	// Type is one of file, collection, instrument
	Type PidType `json:"type" example:"file"`

	// UUID identifies the object - the handle suffix is derived from it
	UUID string `json:"uuid" example:"be8154c1-a6aa-4f44-b953-780b016987b5"`

	// URL is the location the handle resolves to
	URL string `json:"url" example:"https://cloudnet.fmi.fi/file/be8154c1-a6aa-4f44-b953-780b016987b5"`

	// Data are optional extra handle values, stored in the order supplied
	Data []Record `json:"data,omitempty"`
}

// Object is a validated Request
type Object struct {
	Type    PidType
	ID      uuid.UUID
	URL     *url.URL
	Records []Record
}

// Validate checks the request and returns the parsed object.
// All failures have code ErrCodeInvalidRequest.
func (r Request) Validate() (*Object, error) {
	if !r.Type.Valid() {
		return nil, NewInvalidRequestError(fmt.Sprintf("Unknown type: %s", r.Type))
	}

	id, err := uuid.Parse(strings.TrimSpace(r.UUID))
	if err != nil {
		return nil, WrapInvalidRequestError(err, fmt.Sprintf("invalid uuid %q", r.UUID))
	}

	target, err := url.Parse(strings.TrimSpace(r.URL))
	if err != nil {
		return nil, WrapInvalidRequestError(err, fmt.Sprintf("invalid url %q", r.URL))
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, NewInvalidRequestError(fmt.Sprintf("url must use http or https, got %q", r.URL))
	}
	if target.Host == "" {
		return nil, NewInvalidRequestError(fmt.Sprintf("url must include a host, got %q", r.URL))
	}

	if len(r.Data) > maxRecords {
		return nil, NewInvalidRequestError(fmt.Sprintf("at most %d data records are allowed, got %d", maxRecords, len(r.Data)))
	}
	for i, rec := range r.Data {
		if strings.TrimSpace(rec.Type) == "" {
			return nil, NewInvalidRequestError(fmt.Sprintf("data[%d].type is required", i))
		}
	}

	return &Object{
		Type:    r.Type,
		ID:      id,
		URL:     target,
		Records: r.Data,
	}, nil
}
