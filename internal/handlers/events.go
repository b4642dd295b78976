package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventsHandler streams a simulation run as Server-Sent Events.
type EventsHandler struct {
	registry     *Registry
	interactions int
	logger       *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(registry *Registry, interactions int, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		registry:     registry,
		interactions: interactions,
		logger:       logger,
	}
}

// ServeHTTP runs a simulation and streams its events.
// GET /v1/events/simulations/{id}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Method not allowed. Only GET is supported.",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "events" || pathParts[2] != "simulations" {
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Invalid path. Expected /v1/events/simulations/{id}",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	id, err := uuid.Parse(pathParts[3])
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Invalid simulation ID format.",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	session, ok := h.registry.Get(id)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(ErrorResponse{
			Error: "Simulation not found.",
		}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	if err := session.Start(); err != nil {
		w.WriteHeader(http.StatusConflict)
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()}); err != nil {
			h.logger.Error("Failed to encode error response", "error", err)
		}
		return
	}

	h.logger.Info("SSE connection established",
		"simulation_id", id.String(),
		"remote_addr", r.RemoteAddr)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Keepalive ticker (30 seconds)
	keepaliveTicker := time.NewTicker(30 * time.Second)
	defer keepaliveTicker.Stop()

	h.sendSSE(w, flusher, "connected", map[string]interface{}{
		"simulation_id": id.String(),
		"message":       "Connected to event stream",
	})

	stream := session.Sim.RunStream(r.Context(), h.interactions)
	events := stream.Events()

	for {
		select {
		case ev, open := <-events:
			if !open {
				err := stream.Err()
				session.Finish(err)
				if err != nil {
					h.logger.Error("Streamed run failed",
						"simulation_id", id.String(),
						"error", err)
				}
				h.sendSSE(w, flusher, "done", map[string]interface{}{
					"status": string(session.Status()),
				})
				return
			}
			session.AppendEvent(ev)
			h.sendSSE(w, flusher, string(ev.Type), ev)

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (h *EventsHandler) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE payload", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		h.logger.Error("Failed to write SSE event", "error", err)
		return
	}
	if flusher != nil {
		flusher.Flush()
	}
}
