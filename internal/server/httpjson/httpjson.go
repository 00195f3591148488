// Package httpjson holds the JSON response conventions shared by handlers
// and middleware.
package httpjson

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the wire shape of every error response.
type ErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Write serializes v as the response body with the given status.
func Write(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("httpjson: encode response: %v", err)
	}
}

// Error writes the standard error payload. The code distinguishes
// idle-timeout vs absolute-timeout vs revoked so clients can choose between
// silent refresh and forced re-login.
func Error(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorBody{ErrorCode: code, Message: message})
}
