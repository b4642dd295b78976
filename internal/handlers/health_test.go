package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthHandler(t *testing.T) {
	handler := NewHealthHandler(testStorage(t), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %s", resp.Status)
	}
	if resp.Service != "relationship-engine" {
		t.Errorf("Service = %q", resp.Service)
	}
	if resp.Components["storage"] != "healthy" {
		t.Errorf("Components = %v", resp.Components)
	}
}
