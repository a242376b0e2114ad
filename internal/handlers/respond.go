// Package handlers holds the HTTP surface, one subpackage per endpoint,
// plus the response helpers they share.
package handlers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response with the given status. Encoding failures
// are swallowed; headers are already out.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
