package simulation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/agent"
	"github.com/jwebster45206/relationship-engine/pkg/scene"
)

// AgentSnapshot captures one agent for persistence. The description
// blob embeds the agent's stable identifier, so a restored agent keeps
// the identity its stored actions were attributed to.
type AgentSnapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Goal        string `json:"goal"`
}

// Snapshot is the complete serializable state of a simulation. A
// snapshot taken mid-scene restores to the same scene with the same
// history and progression.
type Snapshot struct {
	SceneState   scene.State   `json:"scene_state"`
	SceneHistory []scene.Entry `json:"scene_history"`
	Agent1       AgentSnapshot `json:"agent_1"`
	Agent2       AgentSnapshot `json:"agent_2"`
	Progression  int           `json:"progression"`
	TotalScenes  int           `json:"total_scenes"`
}

// Snapshot serializes the simulation's current state.
func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{
		SceneState:   s.sm.State(),
		SceneHistory: s.sm.History().Entries(),
		Agent1: AgentSnapshot{
			Name:        s.agent1.Name(),
			Description: s.agent1.Description(),
			Goal:        s.agent1.Goal(),
		},
		Agent2: AgentSnapshot{
			Name:        s.agent2.Name(),
			Description: s.agent2.Description(),
			Goal:        s.agent2.Goal(),
		},
		Progression: s.sm.Progression(),
		TotalScenes: s.sm.TotalScenes(),
	}
}

// NewFromSnapshot rebuilds a simulation from a previously taken
// snapshot. The restored run resumes the in-progress scene instead of
// initializing a new one.
func NewFromSnapshot(cfg Config, snap Snapshot) (*Simulation, error) {
	cfg = cfg.withDefaults()

	a1, err := agent.Restore(snap.Agent1.Name, snap.Agent1.Description, snap.Agent1.Goal, cfg.LLM, cfg.Embedder, cfg.Templates, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("restore agent_1: %w", err)
	}
	a2, err := agent.Restore(snap.Agent2.Name, snap.Agent2.Description, snap.Agent2.Goal, cfg.LLM, cfg.Embedder, cfg.Templates, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("restore agent_2: %w", err)
	}

	sm := scene.NewSceneMaster(cfg.LLM, cfg.Templates, cfg.Catalog, a1, a2, cfg.Rand, cfg.Logger)
	sm.Restore(snap.SceneState, snap.SceneHistory, snap.Progression)

	return &Simulation{
		ID:       uuid.New(),
		cfg:      cfg,
		sm:       sm,
		agent1:   a1,
		agent2:   a2,
		logger:   cfg.Logger,
		fromSave: true,
	}, nil
}
