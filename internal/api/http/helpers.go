package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quizdeck/quizdeck/internal/attempt"
	"github.com/quizdeck/quizdeck/internal/identity"
	"github.com/quizdeck/quizdeck/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain sentinels onto status codes. Unknown errors are logged
// server-side and surface as an opaque 500.
func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, attempt.ErrNotFound):
		http.Error(w, err.Error(), 404)
	case errors.Is(err, attempt.ErrAlreadySubmitted):
		http.Error(w, err.Error(), 409)
	case errors.Is(err, attempt.ErrNoAccess):
		http.Error(w, err.Error(), 403)
	case errors.Is(err, attempt.ErrQuizInactive),
		errors.Is(err, attempt.ErrInvalidStart),
		errors.Is(err, identity.ErrDuplicate),
		errors.Is(err, identity.ErrTokenExpired):
		http.Error(w, err.Error(), 400)
	default:
		log.Printf("internal error: %v", err)
		http.Error(w, "internal error", 500)
	}
}

func urlID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}
