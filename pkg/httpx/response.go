package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the common error body shape: a stable machine-readable
// error code plus a human-readable description.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code. Token
// responses must never be cached, so no-store headers are always set.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a standard error body.
func WriteError(w http.ResponseWriter, code int, errCode, description string) {
	WriteJSON(w, code, ErrorResponse{Error: errCode, Description: description})
}

// NoCache sets Cache-Control and Pragma headers to prevent caching of
// sensitive responses.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
