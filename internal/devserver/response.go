package devserver

import (
	"encoding/json"
	"net/http"
)

// apiResponse is the envelope every REST endpoint returns.
type apiResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes a success envelope with data
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

// writeError writes a failure envelope
func writeError(w http.ResponseWriter, status int, message string, fields map[string][]string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message, Errors: fields})
}
