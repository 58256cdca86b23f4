package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError mirrors the api package error body. api imports this package,
// so the helper cannot live there.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
