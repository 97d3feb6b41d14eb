package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	api "polystat-gateway/internal/api/application"
)

// respondJSON sends a JSON response. The body is encoded before the status is
// written so an encoding failure becomes a 500 instead of an empty response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to encode response", "err", err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(api.ErrorResponse{Error: "Internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// respondJSONError sends a JSON error response
func respondJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, api.ErrorResponse{Error: message})
}
