package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/relationship-engine/internal/storage"
)

// PersonaHandler serves the persona roster.
// GET /v1/personas
type PersonaHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewPersonaHandler(store storage.Storage, logger *slog.Logger) *PersonaHandler {
	return &PersonaHandler{
		storage: store,
		logger:  logger,
	}
}

func (h *PersonaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: "Method not allowed"}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	personas, err := h.storage.ListPersonas(r.Context())
	if err != nil {
		h.logger.Error("Failed to list personas", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to list personas"}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	if err := json.NewEncoder(w).Encode(map[string][]storage.Persona{"personas": personas}); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
