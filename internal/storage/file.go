package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/simulation"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

// FileStorage implements Storage entirely on the filesystem. Used by
// the CLIs, where a Redis dependency would be overkill.
type FileStorage struct {
	savesDir     string
	catalogPath  string
	personasPath string
	logger       *slog.Logger
}

var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates a file storage instance rooted at savesDir.
func NewFileStorage(savesDir, catalogPath, personasPath string, logger *slog.Logger) *FileStorage {
	return &FileStorage{
		savesDir:     savesDir,
		catalogPath:  catalogPath,
		personasPath: personasPath,
		logger:       logger,
	}
}

func (f *FileStorage) Ping(ctx context.Context) error {
	if err := os.MkdirAll(f.savesDir, 0o755); err != nil {
		return fmt.Errorf("saves directory unavailable: %w", err)
	}
	return nil
}

func (f *FileStorage) Close() error { return nil }

func (f *FileStorage) snapshotPath(id uuid.UUID) string {
	return filepath.Join(f.savesDir, id.String()+".json")
}

func (f *FileStorage) SaveSnapshot(ctx context.Context, id uuid.UUID, snap *simulation.Snapshot) error {
	if err := os.MkdirAll(f.savesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create saves directory: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(f.snapshotPath(id), data, 0o644); err != nil {
		f.logger.Error("Failed to write snapshot", "uuid", id, "error", err)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (f *FileStorage) LoadSnapshot(ctx context.Context, id uuid.UUID) (*simulation.Snapshot, error) {
	data, err := os.ReadFile(f.snapshotPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			f.logger.Warn("Snapshot not found", "uuid", id)
			return nil, nil // Return nil for not found
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap simulation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (f *FileStorage) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	if err := os.Remove(f.snapshotPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (f *FileStorage) ListSnapshots(ctx context.Context) ([]uuid.UUID, error) {
	entries, err := os.ReadDir(f.savesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read saves directory: %w", err)
	}
	var ids []uuid.UUID
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			f.logger.Warn("Skipping malformed snapshot filename", "name", entry.Name())
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *FileStorage) GetCatalog(ctx context.Context) (*turning.Catalog, error) {
	return LoadCatalogFile(f.catalogPath)
}

func (f *FileStorage) ListPersonas(ctx context.Context) ([]Persona, error) {
	return LoadPersonaFile(f.personasPath)
}

func (f *FileStorage) GetPersona(ctx context.Context, id string) (*Persona, error) {
	personas, err := LoadPersonaFile(f.personasPath)
	if err != nil {
		return nil, err
	}
	for _, p := range personas {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil // Return nil for not found
}
