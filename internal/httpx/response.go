// Package httpx holds the JSON helpers shared by the status server and the S3
// event handler.
package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Marshal encodes payload, falling back to an encode_error document.
func Marshal(payload any) []byte {
	if payload == nil {
		return []byte("null")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return []byte(`{"error":"encode_error"}`)
	}
	return body
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body := Marshal(payload)
	w.WriteHeader(status)
	// nothing we can do if the client went away
	_, _ = w.Write(body)
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}
