package response

import "net/http"

// PlainResponse writes a text/plain body, used by the health endpoint.
// The upload API has its own structured error body and does not go
// through this package.
type PlainResponse struct {
	Message string
}

func (r *PlainResponse) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(r.Message))
}

func Plain(message string) *PlainResponse {
	return &PlainResponse{Message: message}
}
