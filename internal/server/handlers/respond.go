package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/yardsync/pkg/api"
)

// WriteJSON отправляет JSON ответ
func WriteJSON(w http.ResponseWriter, logger *slog.Logger, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// WriteError отправляет api.ErrorResponse
func WriteError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int, details ...string) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Details: details,
	}
	WriteJSON(w, logger, resp, statusCode)
}
