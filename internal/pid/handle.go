package pid

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// ResolverBaseURL is the public resolver used to build the returned PID
const ResolverBaseURL = "https://hdl.handle.net/"

// suffixHexLength is the number of uuid hex characters kept in the handle suffix
const suffixHexLength = 16

// DeriveHandle returns {prefix}/{typeCode}.{first 16 hex characters of id}.
//
// The uuid is truncated, not hashed: ids sharing their first 8 bytes produce the same handle.
func DeriveHandle(t PidType, id uuid.UUID, prefix string) (string, error) {
	code, ok := t.Code()
	if !ok {
		return "", NewInvalidRequestError(fmt.Sprintf("Unknown type: %s", t))
	}

	short := hex.EncodeToString(id[:])[:suffixHexLength]
	return prefix + "/" + code + "." + short, nil
}

// ResolverURL returns the public URL for a handle.
func ResolverURL(handle string) string {
	return ResolverBaseURL + handle
}
