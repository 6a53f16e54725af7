package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// DecodeJSON decodes the request body into dest. Unknown fields and
// trailing data are rejected.
func DecodeJSON(r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("invalid JSON: unexpected data after body")
	}
	return nil
}

// DecodeJSONOrError decodes the body and writes a 400, or a 413 for an
// oversized body, on failure
func DecodeJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := DecodeJSON(r, dest); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		WriteError(w, r, status, err)
		return false
	}
	return true
}

// PathVar returns a gorilla/mux route variable
func PathVar(r *http.Request, key string) (string, error) {
	value := mux.Vars(r)[key]
	if value == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return value, nil
}

// PathVarOrError returns a route variable or writes a 400
func PathVarOrError(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	value, err := PathVar(r, key)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return value, true
}

// RequireNonBlank writes a 400 when value is empty or whitespace
func RequireNonBlank(w http.ResponseWriter, r *http.Request, value, field string) bool {
	if strings.TrimSpace(value) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, field+" is required")
		return false
	}
	return true
}
