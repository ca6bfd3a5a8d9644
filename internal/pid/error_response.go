package pid

// error_response.go implements the JSON error response format for the PID API
// it maps PidError codes to HTTP status codes (returned to the client)

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the body of all PID API error responses
type ErrorResponse struct {

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod"`

	// The URI that was requested
	RequestURI string `json:"requestUri"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText"`

	// A long description corresponding to the HTTP status code with additional information
	StatusCodeMessage string `json:"statusCodeMessage,omitempty"`

	// The request id assigned by the request id middleware
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError represents a detailed error in the error response
type DetailedError struct {
	ErrorCode        ErrorCode `json:"errorCode"`
	ErrorCodeText    string    `json:"errorCodeText"`
	ErrorCodeMessage string    `json:"errorCodeMessage"`

	// UpstreamStatus is the Handle server HTTP status, when there was one
	UpstreamStatus int `json:"upstreamStatus,omitempty"`
}

// StatusCodeFor returns the HTTP status for an error code.
func StatusCodeFor(code ErrorCode) (int, string) {
	switch code {
	case ErrCodeMalformedRequest:
		return http.StatusBadRequest, "Malformed request"
	case ErrCodeInvalidRequest:
		return http.StatusUnprocessableEntity, "Invalid request"
	case ErrCodeUpstreamRejected:
		return http.StatusBadGateway, "Upstream PID service rejected the request"
	case ErrCodeUpstreamUnreachable:
		return http.StatusServiceUnavailable, "Could not connect to upstream PID service"
	case ErrCodeAuth, ErrCodeAuthExpired:
		return http.StatusServiceUnavailable, "Could not authenticate with upstream PID service"
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests, "Rate limit exceeded"
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge, "Request too large"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// MapErrorToResponse maps a PidError (or an unexpected error) to the API error response.
//
// Call this function to set up the error response before sending it to the client (using RespondWithErrorResponse).
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	var pidErr *PidError
	if errors.As(err, &pidErr) {
		statusCode, errorCodeText := StatusCodeFor(pidErr.Code())
		return &ErrorResponse{
			HTTPMethod:                   r.Method,
			RequestURI:                   r.RequestURI,
			StatusCode:                   statusCode,
			StatusCodeText:               http.StatusText(statusCode),
			StatusCodeMessage:            errorCodeText,
			ProviderCorrelationReference: requestID,
			ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
			Errors: []DetailedError{
				{
					ErrorCode:        pidErr.Code(),
					ErrorCodeText:    errorCodeText,
					ErrorCodeMessage: pidErr.Error(),
					UpstreamStatus:   pidErr.UpstreamStatus(),
				},
			},
		}
	}

	// fallback - this is not expected - if it does, return an internal error response and log the unmapped error
	reqLogger := logger.ContextRequestLogger(r.Context())
	reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
		slog.String("error_type", fmt.Sprintf("%T", err)),
		slog.String("error", err.Error()),
		slog.String("request_id", requestID),
	)
	return &ErrorResponse{
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   http.StatusInternalServerError,
		StatusCodeText:               http.StatusText(http.StatusInternalServerError),
		StatusCodeMessage:            "Internal Error",
		ProviderCorrelationReference: requestID,
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        ErrCodeInternalError,
				ErrorCodeText:    "Internal Error",
				ErrorCodeMessage: "An internal error occurred",
			},
		},
	}
}
