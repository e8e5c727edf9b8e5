package api

import (
	"encoding/json"
	"net/http"

	apperrors "agendalo/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders a domain error as {error, kind} with its mapped status.
// Anything without a kind tag is an internal error and stays opaque.
func writeError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	if kind == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, apperrors.HTTPStatus(kind), map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}
