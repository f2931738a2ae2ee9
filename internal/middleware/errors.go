package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody is the JSON shape of every error the middleware chain writes.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError answers r with a JSON error carrying the request id, if any.
func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, RequestID: GetRequestID(r.Context())})
}
