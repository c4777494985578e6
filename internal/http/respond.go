package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/apiforge/apiforge/internal/service/auth"
	"github.com/apiforge/apiforge/internal/service/authz"
	"github.com/apiforge/apiforge/pkg/validate"
)

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service-layer errors onto the HTTP surface.
// Denied and absent resources share one 404 body on purpose.
func (r *Router) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case validate.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, authz.ErrNotFoundOrDenied):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	default:
		r.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
