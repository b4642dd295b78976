package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    30 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	personas, err := listPersonas(client, cfg.APIBaseURL)
	if err != nil || len(personas) < 2 {
		fmt.Fprintf(os.Stderr, "Failed to list personas: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Available Personas:")
	for i, p := range personas {
		fmt.Printf("  %d - %s: %s\n", i+1, p.Name, p.Description)
	}

	first := selectPersona("Select the first persona by number: ", personas)
	second := selectPersona("Select the second persona by number: ", personas)

	sim, err := createSimulation(client, cfg.APIBaseURL, personas[first].ID, personas[second].ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create simulation: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client, sim),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func selectPersona(prompt string, personas []Persona) int {
	fmt.Print("\n" + prompt)
	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 1 || choice > len(personas) {
		fmt.Fprintf(os.Stderr, "Invalid selection\n")
		os.Exit(1)
	}
	return choice - 1
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
