// Package health provides the liveness endpoint.
package health

import "net/http"

// Handler responds with a static ok payload. Plain http.HandlerFunc so it
// can be mounted with or without gin.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
