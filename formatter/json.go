package formatter

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorPayload is the body of every non-2xx JSON response.
type ErrorPayload struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// BuildJSON serializes v. Values that cannot be encoded yield "null".
func BuildJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("json encode error: %v", err)
		return []byte("null")
	}
	return b
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(BuildJSON(v))
}

// WriteError writes an ErrorPayload with the given status.
func WriteError(w http.ResponseWriter, status int, msg string, details map[string]any) {
	WriteJSON(w, status, ErrorPayload{Error: msg, Details: details})
}
