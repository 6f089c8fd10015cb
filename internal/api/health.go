package api

import "net/http"

// Health handles GET /health and GET /.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "hrbot",
	})
}
