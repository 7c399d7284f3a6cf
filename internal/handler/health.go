package handler

import (
	"net/http"
)

// HandleHealth reports that the server is up and which environment it runs in.
// GET /api/health
func HandleHealth(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "env": env})
	}
}
