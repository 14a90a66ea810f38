package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type Config struct {
	APIKey string
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// APIKeyMiddleware validates API key authentication. With no key
// configured the middleware passes everything through (for development).
func APIKeyMiddleware(config *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.APIKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			if keysEqual(presentedKey(r), config.APIKey) {
				next.ServeHTTP(w, r)
				return
			}

			writeUnauthorized(w)
		})
	}
}

// presentedKey extracts the caller's key: Authorization Bearer token
// first, then the X-API-Key header.
func presentedKey(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

func keysEqual(presented, configured string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

func writeUnauthorized(w http.ResponseWriter) {
	errorResp := ErrorResponse{
		Code:    "unauthorized",
		Message: "Invalid or missing API key",
		Hint:    "Provide API key via Authorization: Bearer <key> or X-API-Key: <key>",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(errorResp)
}
