// Package shared holds the JSON response helpers every handler uses, so
// error envelopes stay consistent across the API.
package shared

import (
	"encoding/json"
	"net/http"

	dErrors "stride/pkg/domain-errors"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into its HTTP status and a stable
// JSON envelope. Unknown errors map to 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	envelope := errorEnvelope{Error: string(code)}
	if code != dErrors.CodeInternal {
		envelope.Message = err.Error()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), envelope)
}
