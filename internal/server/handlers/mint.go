package handlers

// mint.go implements the POST /pid/ endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/actris-cloudnet/pid-service/internal/logger"
	"github.com/actris-cloudnet/pid-service/internal/pid"
)

// PidMinter mints a PID and returns its resolver URL (implemented by pid.Minter)
type PidMinter interface {
	Mint(ctx context.Context, req pid.Request) (string, error)
}

// MintHandler handles POST /pid/ requests
type MintHandler struct {
	minter PidMinter
}

// NewMintHandler creates a new handler for minting PIDs
func NewMintHandler(minter PidMinter) *MintHandler {
	return &MintHandler{minter: minter}
}

// HandleMint godoc
//
//	@Summary		Mint a PID
//	@Description	Registers (or replaces) the handle for a file, collection or instrument and returns its resolver URL.
//	@Description
//	@Description	The handle is derived from the object type and uuid, so repeating a request updates the same handle.
//	@Description	The `data` records are stored on the handle after the URL, in the order supplied.
//
//	@Tags			PID
//
//	@Accept			json
//	@Produce		json
//
//	@Param			request	body		pid.Request			true	"object to register"
//
//	@Success		200		{object}	pid.MintResponse	"resolver URL of the handle"
//	@Failure		400		{object}	pid.ErrorResponse	"Malformed request"
//	@Failure		413		{object}	pid.ErrorResponse	"Request too large"
//	@Failure		422		{object}	pid.ErrorResponse	"Unknown type, invalid uuid or invalid url"
//	@Failure		429		{object}	pid.ErrorResponse	"Rate limit exceeded"
//	@Failure		502		{object}	pid.ErrorResponse	"The Handle server rejected the request"
//	@Failure		503		{object}	pid.ErrorResponse	"The Handle server could not be reached or authentication failed"
//
//	@Router			/pid/ [post]
func (h *MintHandler) HandleMint(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqLogger := logger.ContextRequestLogger(ctx)

	var req pid.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reqLogger.Warn("Failed to decode PID request", slog.String("error", err.Error()))
		pid.RespondWithErrorResponse(w, r, decodeError(err))
		return
	}
	defer r.Body.Close()

	logger.ContextWithLogAttrs(ctx,
		slog.String("pid_type", string(req.Type)),
		slog.String("uuid", req.UUID),
	)

	resolverURL, err := h.minter.Mint(ctx, req)
	if err != nil {
		pid.RespondWithErrorResponse(w, r, err)
		return
	}

	pid.RespondWithJSONPayload(w, http.StatusOK, pid.MintResponse{PID: resolverURL})
}

// decodeError classifies request body decoding failures
func decodeError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return pid.NewRequestTooLargeError(
			fmt.Sprintf("Request body exceeds maximum allowed size (%d bytes)", maxBytesErr.Limit))
	}
	if errors.Is(err, io.EOF) {
		return pid.NewMalformedRequestError("request body is empty")
	}
	return pid.WrapMalformedRequestError(err, "failed to decode request JSON")
}
