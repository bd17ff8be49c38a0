// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/loadshedding-tracker/backend/internal/api/middleware"
	"github.com/loadshedding-tracker/backend/internal/store"
)

// Clock returns the current time. Handlers that depend on "now" take one.
type Clock func() time.Time

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeStoreError maps store errors onto the API error envelope.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidTransition):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, err.Error())
	case store.IsValidation(err):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, err.Error())
	default:
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Unexpected store error")
	}
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false, errors.New(name + " must be a positive integer")
	}
	return n, true, nil
}
