package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodyBytes bounds request bodies; auth payloads are tiny.
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response with the given status code. It sets
// Content-Type and disables caching, which token-bearing responses require.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// DecodeJSON decodes a JSON request body into v, rejecting oversized bodies
// and unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("httpx: empty request body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
