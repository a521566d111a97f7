// Package httputil holds the response envelope shared by every reelcore
// API handler, so a browser client can parse success and failure the same
// way regardless of which endpoint it called.
package httputil

import (
	"encoding/json"
	"net/http"
)

// maxRequestBodyBytes caps a decoded request body. Every payload this API
// accepts is a small JSON object describing one editor mutation; there is
// no legitimate reason for one to approach this size.
const maxRequestBodyBytes = 1 << 20

// Envelope is the {status, data, error} shape every reelcore response
// wears.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *APIError   `json:"error,omitempty"`
}

// APIError is the machine-readable half of a failed Envelope. Kind is
// the HTTP status text of the response (api.Server passes
// http.StatusText), so a client can branch on it without parsing Message.
type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{
		Status: "ok",
		Data:   data,
	})
}

func WriteError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{
		Status: "error",
		Error:  &APIError{Kind: kind, Message: message},
	})
}

// ReadJSON decodes a request body strictly: unknown fields are rejected
// instead of silently ignored, catching a client sending a field under
// its old name after an API rename, and the body is capped so a
// misbehaving client can't stream unbounded data into the decoder.
func ReadJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
