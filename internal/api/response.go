package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	cerrors "github.com/Aman-CERP/criterion/internal/errors"
)

// Error bodies.
const (
	MsgQueryRequired = "Query parameter 'q' is required"
	MsgInternalError = "Internal server error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status: validation errors are the caller's
// fault, unknown topics and missing verses are 404, the rest is 500 with a
// generic body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ce, ok := cerrors.As(err)
	switch {
	case ok && (ce.Code == cerrors.ErrCodeUnknownTopic || ce.Code == cerrors.ErrCodeVerseNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: ce.Message, Code: ce.Code})
	case ok && ce.Category == cerrors.CategoryValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ce.Message, Code: ce.Code})
	default:
		s.logger.ErrorContext(r.Context(), "http_request_failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
	}
}
