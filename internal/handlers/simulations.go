package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/internal/storage"
	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateSimulationRequest names the two personas a simulation pairs.
// Either a roster persona ID or an inline name+description may be
// given for each side.
type CreateSimulationRequest struct {
	Persona1 PersonaRef `json:"persona_1"`
	Persona2 PersonaRef `json:"persona_2"`
}

type PersonaRef struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type SimulationResponse struct {
	ID          string             `json:"id"`
	Status      SessionStatus      `json:"status"`
	Agent1      string             `json:"agent_1"`
	Agent2      string             `json:"agent_2"`
	Progression int                `json:"progression"`
	TotalScenes int                `json:"total_scenes"`
	Events      []simulation.Event `json:"events,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type LoadSimulationRequest struct {
	SnapshotID string `json:"snapshot_id"`
}

type SaveSimulationResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type SimulationListResponse struct {
	Simulations []SimulationResponse `json:"simulations"`
}

type SnapshotListResponse struct {
	Snapshots []string `json:"snapshots"`
}

// SimulationHandler handles simulation lifecycle operations.
// Routes:
// POST /v1/simulations           - Create a new simulation
// GET  /v1/simulations           - List active simulations
// GET  /v1/simulations/saves     - List saved snapshot IDs
// POST /v1/simulations/load      - Restore a simulation from a snapshot
// GET  /v1/simulations/{id}      - Read simulation status and transcript
// POST /v1/simulations/{id}/run  - Run all remaining scenes
// POST /v1/simulations/{id}/save - Snapshot the simulation
type SimulationHandler struct {
	registry     *Registry
	storage      storage.Storage
	simConfig    simulation.Config
	interactions int
	logger       *slog.Logger
}

func NewSimulationHandler(registry *Registry, store storage.Storage, simConfig simulation.Config, interactions int, logger *slog.Logger) *SimulationHandler {
	return &SimulationHandler{
		registry:     registry,
		storage:      store,
		simConfig:    simConfig,
		interactions: interactions,
		logger:       logger,
	}
}

func (h *SimulationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/simulations"), "/")
	switch {
	case path == "" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case path == "" && r.Method == http.MethodGet:
		h.handleList(w)
	case path == "saves" && r.Method == http.MethodGet:
		h.handleListSaves(w, r)
	case path == "load" && r.Method == http.MethodPost:
		h.handleLoad(w, r)
	default:
		parts := strings.Split(path, "/")
		id, err := uuid.Parse(parts[0])
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid simulation ID format")
			return
		}
		session, ok := h.registry.Get(id)
		if !ok {
			h.writeError(w, http.StatusNotFound, "Simulation not found")
			return
		}
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			h.handleRead(w, session)
		case len(parts) == 2 && parts[1] == "run" && r.Method == http.MethodPost:
			h.handleRun(w, r, session)
		case len(parts) == 2 && parts[1] == "save" && r.Method == http.MethodPost:
			h.handleSave(w, r, session)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	}
}

func (h *SimulationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p1, err := h.resolvePersona(r, req.Persona1)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "persona_1: "+err.Error())
		return
	}
	p2, err := h.resolvePersona(r, req.Persona2)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "persona_2: "+err.Error())
		return
	}

	sim := simulation.New(h.simConfig, p1.Name, p1.Description, p2.Name, p2.Description)
	session := h.registry.Add(sim)
	h.logger.Info("Simulation created",
		"simulation_id", session.ID.String(),
		"agent_1", p1.Name,
		"agent_2", p2.Name)

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, h.response(session, false))
}

// resolvePersona accepts a roster ID or an inline persona definition.
func (h *SimulationHandler) resolvePersona(r *http.Request, ref PersonaRef) (*storage.Persona, error) {
	if ref.ID != "" {
		p, err := h.storage.GetPersona(r.Context(), ref.ID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, &unknownPersonaError{id: ref.ID}
		}
		return p, nil
	}
	if ref.Name == "" || ref.Description == "" {
		return nil, &unknownPersonaError{id: ""}
	}
	return &storage.Persona{Name: ref.Name, Description: ref.Description}, nil
}

type unknownPersonaError struct{ id string }

func (e *unknownPersonaError) Error() string {
	if e.id == "" {
		return "either id or name and description required"
	}
	return "unknown persona id " + e.id
}

func (h *SimulationHandler) handleList(w http.ResponseWriter) {
	ids := h.registry.List()
	resp := SimulationListResponse{Simulations: make([]SimulationResponse, 0, len(ids))}
	for _, id := range ids {
		session, ok := h.registry.Get(id)
		if !ok {
			continue
		}
		resp.Simulations = append(resp.Simulations, h.response(session, false))
	}
	h.writeJSON(w, resp)
}

func (h *SimulationHandler) handleListSaves(w http.ResponseWriter, r *http.Request) {
	ids, err := h.storage.ListSnapshots(r.Context())
	if err != nil {
		h.logger.Error("Failed to list snapshots", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	resp := SnapshotListResponse{Snapshots: make([]string, 0, len(ids))}
	for _, id := range ids {
		resp.Snapshots = append(resp.Snapshots, id.String())
	}
	h.writeJSON(w, resp)
}

func (h *SimulationHandler) handleRead(w http.ResponseWriter, session *Session) {
	h.writeJSON(w, h.response(session, true))
}

func (h *SimulationHandler) handleRun(w http.ResponseWriter, r *http.Request, session *Session) {
	if err := session.Start(); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}

	events, err := session.Sim.RunAuto(r.Context(), h.interactions)
	for _, ev := range events {
		session.AppendEvent(ev)
	}
	session.Finish(err)
	if err != nil {
		h.logger.Error("Simulation run failed",
			"simulation_id", session.ID.String(),
			"error", err)
	}
	h.writeJSON(w, h.response(session, true))
}

func (h *SimulationHandler) handleSave(w http.ResponseWriter, r *http.Request, session *Session) {
	snap := session.Sim.Snapshot()
	if err := h.storage.SaveSnapshot(r.Context(), session.ID, &snap); err != nil {
		h.logger.Error("Failed to save snapshot",
			"simulation_id", session.ID.String(),
			"error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to save snapshot")
		return
	}
	h.writeJSON(w, SaveSimulationResponse{SnapshotID: session.ID.String()})
}

func (h *SimulationHandler) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadSimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	snapID, err := uuid.Parse(req.SnapshotID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid snapshot ID format")
		return
	}

	snap, err := h.storage.LoadSnapshot(r.Context(), snapID)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to load snapshot")
		return
	}
	if snap == nil {
		h.writeError(w, http.StatusNotFound, "Snapshot not found")
		return
	}

	sim, err := simulation.NewFromSnapshot(h.simConfig, *snap)
	if err != nil {
		h.logger.Error("Failed to restore simulation",
			"snapshot_id", snapID.String(),
			"error", err)
		h.writeError(w, http.StatusUnprocessableEntity, "Snapshot could not be restored: "+err.Error())
		return
	}

	session := h.registry.Add(sim)
	h.logger.Info("Simulation restored",
		"simulation_id", session.ID.String(),
		"snapshot_id", snapID.String())

	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, h.response(session, false))
}

func (h *SimulationHandler) response(session *Session, withEvents bool) SimulationResponse {
	a1, a2 := session.Sim.Agents()
	resp := SimulationResponse{
		ID:          session.ID.String(),
		Status:      session.Status(),
		Agent1:      a1.Name(),
		Agent2:      a2.Name(),
		Progression: session.Sim.SceneMaster().Progression(),
		TotalScenes: session.Sim.SceneMaster().TotalScenes(),
	}
	if withEvents {
		resp.Events, resp.Error = session.Transcript()
	}
	return resp
}

func (h *SimulationHandler) writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *SimulationHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
