package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// engineError converts an engine error into a huma status error. The first
// error detail carries the kind name so clients can rebuild the error.
func engineError(logger *slog.Logger, op string, err error) error {
	var se *sheeterr.Error
	if !errors.As(err, &se) {
		logger.Error("operation failed", "op", op, "error", err)
		return huma.Error500InternalServerError(op + " failed")
	}
	detail := &huma.ErrorDetail{Location: wire.KindLocation, Value: se.Kind.String(), Message: se.Message}
	msg := err.Error()

	switch se.Kind {
	case sheeterr.NotLoggedIn:
		return huma.Error401Unauthorized(msg, detail)
	case sheeterr.PermissionDenied:
		return huma.Error403Forbidden(msg, detail)
	case sheeterr.InvalidVersionNumber, sheeterr.InvalidRange:
		return huma.Error400BadRequest(msg, detail)
	case sheeterr.CyclicDependency, sheeterr.RangeInUse, sheeterr.UserAlreadyExists, sheeterr.SheetAlreadyExists:
		return huma.Error409Conflict(msg, detail)
	}
	switch se.Kind.Category() {
	case sheeterr.CategoryFormat:
		return huma.Error400BadRequest(msg, detail)
	case sheeterr.CategoryEvaluation:
		return huma.Error422UnprocessableEntity(msg, detail)
	case sheeterr.CategoryLookup:
		return huma.Error404NotFound(msg, detail)
	}
	logger.Error("operation failed", "op", op, "error", err)
	return huma.Error500InternalServerError(op + " failed")
}

func parseSheetID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, huma.Error400BadRequest("invalid sheet_id")
	}
	return id, nil
}
