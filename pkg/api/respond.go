package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/crowdly/leasing-gateway/internal/apperror"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondAppError maps an application error onto its HTTP status and
// structured body. Anything that is not an *apperror.AppError becomes
// an opaque 500.
func respondAppError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		respondWithJSON(w, appErr.StatusCode, appErr.ToResponse())
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal error")
}
