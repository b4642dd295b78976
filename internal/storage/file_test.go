package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/scene"
	"github.com/jwebster45206/relationship-engine/pkg/simulation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSnapshot() *simulation.Snapshot {
	return &simulation.Snapshot{
		SceneState: scene.State{
			Theme:          "second_chances",
			CurrentScene:   "the scene opens",
			Character1Goal: "goal one",
			Character2Goal: "goal two",
			SceneConflict:  "an old argument resurfaces",
		},
		SceneHistory: []scene.Entry{
			{Source: "Narrative", Text: "the scene opens"},
			{Source: "Riley", Text: "breaks the silence"},
		},
		Agent1:      simulation.AgentSnapshot{Name: "Riley", Description: `{"agent_id":"a1"}`, Goal: "goal one"},
		Agent2:      simulation.AgentSnapshot{Name: "Sam", Description: `{"agent_id":"a2"}`, Goal: "goal two"},
		Progression: 1,
		TotalScenes: 3,
	}
}

func newTestFileStorage(t *testing.T) *FileStorage {
	t.Helper()
	dir := t.TempDir()
	return NewFileStorage(filepath.Join(dir, "saves"), "", "", testLogger())
}

func TestFileStorage_SaveAndLoadSnapshot(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()
	id := uuid.New()

	if err := fs.SaveSnapshot(ctx, id, testSnapshot()); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	loaded, err := fs.LoadSnapshot(ctx, id)
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected non-nil snapshot")
	}
	if loaded.Progression != 1 {
		t.Errorf("Expected progression 1, got %d", loaded.Progression)
	}
	if len(loaded.SceneHistory) != 2 || loaded.SceneHistory[1].Source != "Riley" {
		t.Errorf("Scene history not preserved: %v", loaded.SceneHistory)
	}
	if loaded.Agent1.Name != "Riley" {
		t.Errorf("Expected agent_1 name Riley, got %q", loaded.Agent1.Name)
	}
}

func TestFileStorage_LoadMissingSnapshotReturnsNil(t *testing.T) {
	fs := newTestFileStorage(t)
	loaded, err := fs.LoadSnapshot(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if loaded != nil {
		t.Error("Expected nil for missing snapshot")
	}
}

func TestFileStorage_ListAndDeleteSnapshots(t *testing.T) {
	fs := newTestFileStorage(t)
	ctx := context.Background()

	id1, id2 := uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{id1, id2} {
		if err := fs.SaveSnapshot(ctx, id, testSnapshot()); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := fs.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("Failed to list snapshots: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(ids))
	}

	if err := fs.DeleteSnapshot(ctx, id1); err != nil {
		t.Fatalf("Failed to delete snapshot: %v", err)
	}
	ids, err = fs.ListSnapshots(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id2 {
		t.Errorf("Expected only %v to remain, got %v", id2, ids)
	}

	// Deleting a missing snapshot is not an error.
	if err := fs.DeleteSnapshot(ctx, id1); err != nil {
		t.Errorf("Delete of missing snapshot failed: %v", err)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "turning_points.json")
	content := `{
		"turning_points": [
			{"id": "first_date", "name": "First Date", "category": "Bonding", "commitment_range": [0, 40]},
			{"id": "meet_family", "name": "Meet the Family", "category": "Deepening", "commitment_range": [30, 80]}
		],
		"sequence": [["first_date"], ["meet_family"]]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	if catalog.Len() != 2 {
		t.Errorf("Expected 2 points, got %d", catalog.Len())
	}
	if catalog.TotalScenes() != 2 {
		t.Errorf("Expected 2 scenes, got %d", catalog.TotalScenes())
	}
	if _, ok := catalog.ByID("first_date"); !ok {
		t.Error("Expected first_date in catalog")
	}
}

func TestLoadCatalogFile_RejectsUnknownSequenceID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	content := `{
		"turning_points": [{"id": "a", "name": "A", "category": "Bonding", "commitment_range": [0, 100]}],
		"sequence": [["missing"]]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalogFile(path); err == nil {
		t.Error("Expected error for unknown sequence id")
	}
}

func TestLoadPersonaFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.json")
	content := `{
		"personas": [
			{"id": "riley", "name": "Riley", "description": "An outgoing extrovert."},
			{"id": "sam", "name": "Sam", "description": "A cautious introvert."}
		]
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStorage(dir, "", path, testLogger())
	personas, err := fs.ListPersonas(context.Background())
	if err != nil {
		t.Fatalf("Failed to list personas: %v", err)
	}
	if len(personas) != 2 {
		t.Fatalf("Expected 2 personas, got %d", len(personas))
	}

	p, err := fs.GetPersona(context.Background(), "sam")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil || p.Name != "Sam" {
		t.Errorf("GetPersona(sam) = %v", p)
	}

	missing, err := fs.GetPersona(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("Expected nil for unknown persona")
	}
}
