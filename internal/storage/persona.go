package storage

import (
	"encoding/json"
	"fmt"
	"os"
)

// Persona is one entry in the persona roster: the raw material a
// simulation builds its agents from.
type Persona struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type personaFile struct {
	Personas []Persona `json:"personas"`
}

// LoadPersonaFile reads the persona roster from disk.
func LoadPersonaFile(path string) ([]Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var f personaFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	for i, p := range f.Personas {
		if p.ID == "" || p.Name == "" || p.Description == "" {
			return nil, fmt.Errorf("persona %d in %s is missing id, name, or description", i, path)
		}
	}
	return f.Personas, nil
}
