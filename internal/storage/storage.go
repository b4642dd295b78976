// Package storage persists simulation snapshots and loads the static
// reference data (turning-point catalog, persona roster).
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/simulation"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

// Storage is the persistence contract used by the handlers and CLIs.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Snapshot operations
	SaveSnapshot(ctx context.Context, id uuid.UUID, snap *simulation.Snapshot) error
	LoadSnapshot(ctx context.Context, id uuid.UUID) (*simulation.Snapshot, error)
	DeleteSnapshot(ctx context.Context, id uuid.UUID) error
	ListSnapshots(ctx context.Context) ([]uuid.UUID, error)

	// Reference data (filesystem-backed)
	GetCatalog(ctx context.Context) (*turning.Catalog, error)
	ListPersonas(ctx context.Context) ([]Persona, error)
	GetPersona(ctx context.Context, id string) (*Persona, error)
}
