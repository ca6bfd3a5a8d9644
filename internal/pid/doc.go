// pid package implements minting of persistent identifiers (handles) for digital objects
// (files, collections and instruments).
//
// **handles**
// A handle is derived deterministically from the object type and its UUID:
//
//	{prefix}/{typeCode}.{first 16 hex characters of the uuid}
//
// with typeCode 1 for files, 2 for collections and 3 for instruments.
// Minting the same object twice yields the same handle, and the upstream request is an upsert,
// so repeated mint calls are safe. Two UUIDs that share their first 8 bytes map to the same handle.
//
// **payload**
// The value set sent to the Handle server always has the target URL at index 1, caller supplied
// records at index 2 onwards (in the order supplied) and the HS_ADMIN record at index 100.
//
// **minting**
// Minter orchestrates the upsert against an Upstream (see services.HandleServer).
// When the upstream session has expired (HTTP 401) the session is re-established and the upsert is
// retried once. A second 401 is reported as ErrCodeUpstreamUnreachable.
//
// **error handling**
// Errors are returned as *PidError values carrying an ErrorCode.
// Use RespondWithErrorResponse() to map them to an HTTP status and send the JSON error response.
package pid
