package api

import (
	"encoding/json"
	"net/http"
)

// Response is the uniform JSON envelope every endpoint returns. Unused
// fields stay off the wire.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes the envelope with the given status code.
func WriteJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// DecodeJSON decodes the request body into dst. Any decode failure is
// treated as a malformed body by callers.
func DecodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// Int returns a pointer for the envelope's optional total field.
func Int(v int) *int {
	return &v
}
