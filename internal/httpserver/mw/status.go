package mw

import (
	"encoding/json"
	"net/http"
)

// writeStatus answers with the same {code, error} body as the handlers.
func writeStatus(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  code,
		"error": http.StatusText(status),
	})
}
