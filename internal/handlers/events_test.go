package handlers

import (
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/internal/services"
	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

func newTestEventsSetup(t *testing.T, llm *services.MockLLM) (*EventsHandler, *Session) {
	t.Helper()
	registry := NewRegistry()
	cfg := simulation.Config{
		LLM:      llm,
		Embedder: services.NewMockEmbedder(),
		Catalog:  testCatalog(t),
		Rand:     rand.New(rand.NewSource(1)),
		Logger:   testLogger(),
	}
	sim := simulation.New(cfg, "Riley", "An outgoing extrovert.", "Sam", "A cautious introvert.")
	session := registry.Add(sim)
	return NewEventsHandler(registry, 1, testLogger()), session
}

func TestEventsHandler_StreamsFullRun(t *testing.T) {
	llm := services.NewMockLLM()
	handler, session := newTestEventsSetup(t, llm)
	a1, _ := session.Sim.Agents()
	scriptReplies(llm, oneSceneScript(a1.ID()))

	req := httptest.NewRequest(http.MethodGet, "/v1/events/simulations/"+session.ID.String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	body := rr.Body.String()
	if rr.Header().Get("Content-Type") != "text/event-stream" {
		t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
	}
	for _, want := range []string{
		"event: connected",
		"event: scene-master",
		"event: agent-1",
		"event: done",
		"Simulation ended",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Stream body missing %q", want)
		}
	}
	if session.Status() != StatusCompleted {
		t.Errorf("Expected status completed, got %s", session.Status())
	}
	events, _ := session.Transcript()
	if len(events) == 0 {
		t.Error("Transcript not recorded during streaming")
	}
}

func TestEventsHandler_MethodNotAllowed(t *testing.T) {
	handler, session := newTestEventsSetup(t, services.NewMockLLM())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/events/simulations/"+session.ID.String(), nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rr.Code)
	}
}

func TestEventsHandler_UnknownSimulation(t *testing.T) {
	handler, _ := newTestEventsSetup(t, services.NewMockLLM())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/events/simulations/"+uuid.NewString(), nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestEventsHandler_InvalidPath(t *testing.T) {
	handler, _ := newTestEventsSetup(t, services.NewMockLLM())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/events/other/thing", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}
