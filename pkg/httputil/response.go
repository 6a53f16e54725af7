package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/cornerstone/pkg/observability"
)

// ErrorResponse is the body of every admin API error
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON writes data as JSON with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes data as JSON with status 200
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteError writes err as an ErrorResponse tagged with the request ID
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	WriteErrorMessage(w, r, status, err.Error())
}

// WriteErrorMessage writes message as an ErrorResponse tagged with the request ID
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{Error: message}
	if r != nil {
		resp.RequestID = observability.GetRequestID(r.Context())
	}
	WriteJSON(w, status, resp)
}
