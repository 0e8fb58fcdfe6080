package api

import (
	"net/http"
	"time"
)

// banner identifies the service on GET /.
func banner(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service":     "ragbench",
			"version":     version,
			"description": "RAG pipeline workbench: chunk, embed, index, search, ask",
		})
	}
}

// health is the health check endpoint for Docker/Kubernetes probes.
// Returns 200 OK with status, version and uptime.
func health(version string, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
			"uptime":  time.Since(started).Round(time.Second).String(),
		})
	}
}
