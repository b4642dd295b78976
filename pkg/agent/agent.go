// Package agent implements a relationship agent: one persona wrapped
// with appraisal, choice-making, and memory operations. Each appraisal
// and choice is one LLM round trip over a rendered prompt.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
	"github.com/jwebster45206/relationship-engine/pkg/llmjson"
	"github.com/jwebster45206/relationship-engine/pkg/memory"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
)

// personaState is the serialized persona bundle. Its JSON encoding is
// the agent's description: it goes verbatim into every prompt and into
// simulation snapshots, and it carries the agent identifier that turn
// routing depends on.
type personaState struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	Persona string `json:"persona"`
	Goal    string `json:"goal,omitempty"`
}

// Appraisal is an agent's emotional reaction to the scene so far:
// Plutchik emotion scores plus first-person inner thoughts.
type Appraisal struct {
	EmotionScores []float64 `json:"emotion_scores"`
	InnerThoughts string    `json:"inner_thoughts"`
}

// Choice is the action an agent selects for its turn.
type Choice struct {
	Action string `json:"action"`
}

// Agent is one relationship agent. Persona is immutable after
// construction; goal, emotion state and memory mutate every turn. Not
// safe for concurrent use; a simulation's turn order guarantees a
// single caller.
type Agent struct {
	state       personaState
	description string // cached JSON encoding of state

	emotion *Appraisal
	mem     *memory.Memory

	llm       chat.Service
	embedder  memory.Embedder
	templates *prompts.Store
	logger    *slog.Logger
}

// New constructs an agent from a persona bundle, assigning it a fresh
// unique identifier.
func New(name, persona string, llm chat.Service, embedder memory.Embedder, templates *prompts.Store, logger *slog.Logger) *Agent {
	a := &Agent{
		state: personaState{
			AgentID: uuid.NewString(),
			Name:    name,
			Persona: persona,
		},
		mem:       memory.New(),
		llm:       llm,
		embedder:  embedder,
		templates: templates,
		logger:    logger,
	}
	a.reserialize()
	return a
}

func (a *Agent) reserialize() {
	data, err := json.Marshal(a.state)
	if err != nil {
		// personaState is plain strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("serialize persona state: %v", err))
	}
	a.description = string(data)
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.state.Name }

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.state.AgentID }

// Goal returns the agent's current scene goal.
func (a *Agent) Goal() string { return a.state.Goal }

// Description returns the serialized persona state used verbatim in
// every prompt.
func (a *Agent) Description() string { return a.description }

// Memory exposes the agent's memory for the driver's fold and
// retrieval operations.
func (a *Agent) Memory() *memory.Memory { return a.mem }

// Emotion returns the agent's current emotion state, nil before the
// first appraisal.
func (a *Agent) Emotion() *Appraisal { return a.emotion }

// SetGoal overwrites the agent's scene goal and re-serializes the
// description, so the goal becomes part of every future prompt until
// replaced.
func (a *Agent) SetGoal(goal string) {
	a.state.Goal = goal
	a.reserialize()
}

// AddToWorkingMemory appends an event to the agent's working memory.
func (a *Agent) AddToWorkingMemory(e memory.WorkingEntry) {
	a.mem.AddToWorkingMemory(e)
}

// Appraise scores the agent's emotional reaction to the scene history.
// The result becomes the agent's current emotion state. A reply that
// parses but lacks the required fields surfaces as a SchemaError; the
// emotion state is never silently defaulted.
func (a *Agent) Appraise(ctx context.Context, sceneHistory string) (Appraisal, error) {
	prompt, err := a.templates.Render(prompts.NameAppraisal, map[string]string{
		"agent_name":        a.state.Name,
		"agent_description": a.description,
		"scene_history":     sceneHistory,
	})
	if err != nil {
		return Appraisal{}, err
	}
	reply, err := a.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return Appraisal{}, fmt.Errorf("appraisal call for %s: %w", a.state.Name, err)
	}
	var appraisal Appraisal
	if err := llmjson.DecodeText(reply, &appraisal); err != nil {
		return Appraisal{}, err
	}
	if len(appraisal.EmotionScores) == 0 {
		return Appraisal{}, &llmjson.SchemaError{Record: "appraisal", Field: "emotion_scores"}
	}
	if err := llmjson.Require("appraisal", "inner_thoughts", appraisal.InnerThoughts); err != nil {
		return Appraisal{}, err
	}
	a.emotion = &appraisal
	return appraisal, nil
}

// MakeChoices selects the agent's action for this turn, conditioned on
// the current narrative, the appraisal, and accumulated working memory.
func (a *Agent) MakeChoices(ctx context.Context, narrative string, appraisal Appraisal) (Choice, error) {
	prompt, err := a.templates.Render(prompts.NameDecision, map[string]string{
		"agent_name":        a.state.Name,
		"agent_description": a.description,
		"working_memory":    a.mem.FormatWorkingMemory(),
		"inner_thoughts":    appraisal.InnerThoughts,
		"narrative":         narrative,
	})
	if err != nil {
		return Choice{}, err
	}
	reply, err := a.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return Choice{}, fmt.Errorf("decision call for %s: %w", a.state.Name, err)
	}
	var choice Choice
	if err := llmjson.DecodeText(reply, &choice); err != nil {
		return Choice{}, err
	}
	if err := llmjson.Require("choice", "action", choice.Action); err != nil {
		return Choice{}, err
	}
	return choice, nil
}

// StoreMemories folds the working memory into the agent's durable
// store. Typically called at scene close.
func (a *Agent) StoreMemories(ctx context.Context) error {
	if err := a.mem.StoreWorkingMemory(ctx, a.embedder); err != nil {
		return fmt.Errorf("store memories for %s: %w", a.state.Name, err)
	}
	return nil
}

// Restore rebuilds an agent from a persisted snapshot record. The
// description blob carries the original agent identifier; this round
// trip must be exact or identifier-based turn routing breaks after a
// reload.
func Restore(name, description, goal string, llm chat.Service, embedder memory.Embedder, templates *prompts.Store, logger *slog.Logger) (*Agent, error) {
	var state personaState
	if err := json.Unmarshal([]byte(description), &state); err != nil {
		return nil, fmt.Errorf("parse persisted agent description: %w", err)
	}
	if state.AgentID == "" {
		return nil, fmt.Errorf("persisted agent description for %s has no agent_id", name)
	}
	if state.Name == "" {
		state.Name = name
	}
	a := &Agent{
		state:     state,
		mem:       memory.New(),
		llm:       llm,
		embedder:  embedder,
		templates: templates,
		logger:    logger,
	}
	a.SetGoal(goal)
	return a, nil
}
