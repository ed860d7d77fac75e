// Maps library errors to API errors and writes error responses.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/librarydb/internal/jsonldb"
	"github.com/maruel/librarydb/internal/library"
	"github.com/maruel/librarydb/internal/server/dto"
)

// bookError converts an error from library.Store into a dto.ErrorWithStatus.
func bookError(err error) error {
	var verr *library.ValidationError
	switch {
	case errors.As(err, &verr):
		return dto.InvalidInput(verr.Errors).Wrap(err)
	case errors.Is(err, library.ErrNotFound):
		return dto.NotFound("Book").Wrap(err)
	case errors.Is(err, library.ErrConflict):
		return dto.Conflict("Book ID already exists").Wrap(err)
	case errors.Is(err, jsonldb.ErrStorage):
		return dto.StorageFailure(err)
	default:
		return dto.InternalWithError("Internal server error", err)
	}
}

// WriteError writes err as a JSON error response. Errors that do not
// implement dto.ErrorWithStatus become a generic 500.
//
// Server errors are logged with their cause; the cause is never sent to the
// client.
func WriteError(ctx context.Context, w http.ResponseWriter, err error) {
	var ews dto.ErrorWithStatus
	if !errors.As(err, &ews) {
		ews = dto.InternalWithError("Internal server error", err)
	}
	if ews.StatusCode() >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", ews.StatusCode(), "code", ews.Code())
	} else {
		slog.DebugContext(ctx, "Client error", "err", err, "statusCode", ews.StatusCode(), "code", ews.Code())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ews.StatusCode())
	resp := dto.ErrorResponse{
		Message: ews.Message(),
		Code:    ews.Code(),
		Errors:  ews.Errors(),
		Details: ews.Details(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "Failed to encode error response", "err", err)
	}
}

// NotFound is the fallback for every unknown route, including known paths
// with an unsupported method.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(r.Context(), w, dto.EndpointNotFound())
}
