package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SimulationInfo struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Agent1      string `json:"agent_1"`
	Agent2      string `json:"agent_2"`
	Progression int    `json:"progression"`
	TotalScenes int    `json:"total_scenes"`
}

// StreamEvent is one SSE frame from the events endpoint.
type StreamEvent struct {
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func listPersonas(client *http.Client, baseURL string) ([]Persona, error) {
	resp, err := client.Get(baseURL + "/v1/personas")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var result struct {
		Personas []Persona `json:"personas"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Personas, nil
}

func createSimulation(client *http.Client, baseURL, persona1ID, persona2ID string) (*SimulationInfo, error) {
	body, err := json.Marshal(map[string]interface{}{
		"persona_1": map[string]string{"id": persona1ID},
		"persona_2": map[string]string{"id": persona2ID},
	})
	if err != nil {
		return nil, err
	}

	resp, err := client.Post(baseURL+"/v1/simulations", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}
	var sim SimulationInfo
	if err := json.NewDecoder(resp.Body).Decode(&sim); err != nil {
		return nil, err
	}
	return &sim, nil
}

// streamEvents opens the SSE endpoint and feeds parsed frames into the
// returned channel. The channel closes when the stream ends.
func streamEvents(ctx context.Context, baseURL, simulationID string) (<-chan StreamEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/events/simulations/"+simulationID, nil)
	if err != nil {
		return nil, err
	}

	// Streaming connection; the default client timeout would cut the
	// run short.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeError(resp)
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer func() { _ = resp.Body.Close() }()

		var eventType string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				eventType = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				if eventType == "connected" || eventType == "done" {
					if eventType == "done" {
						return
					}
					continue
				}
				var ev StreamEvent
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
					continue
				}
				if ev.Type == "" {
					ev.Type = eventType
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return fmt.Errorf("%s", errResp.Error)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
}
