package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/account-storefront/internal/models"
)

// envelope is the response wrapper used by every API route
type envelope struct {
	Success    bool               `json:"success"`
	Data       interface{}        `json:"data,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteData writes a successful enveloped response
func WriteData(w http.ResponseWriter, status int, data interface{}, logger *slog.Logger) {
	WriteJSON(w, status, envelope{Success: true, Data: data}, logger)
}

// WritePage writes a successful enveloped listing with its pagination
func WritePage(w http.ResponseWriter, data interface{}, page models.Pagination, logger *slog.Logger) {
	WriteJSON(w, http.StatusOK, envelope{Success: true, Data: data, Pagination: &page}, logger)
}

// WriteError writes an error response in JSON format
func WriteError(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	WriteJSON(w, status, envelope{Success: false, Message: message}, logger)
}
