// Package simulation composes one scene master and two relationship
// agents into a full run loop, in synchronous, streaming, and
// concurrent batch execution modes.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/relationship-engine/pkg/agent"
	"github.com/jwebster45206/relationship-engine/pkg/chat"
	"github.com/jwebster45206/relationship-engine/pkg/memory"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
	"github.com/jwebster45206/relationship-engine/pkg/scene"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

// Memory type tags used when folding events into agent memory.
const (
	memoryTypeConflict  = "Scene Conflict"
	memoryTypeNarrative = "Narrative"
	memoryTypeMemory    = "Memory"
)

// Config carries the collaborators a simulation needs. It is built once
// at startup and injected; nothing here is global.
type Config struct {
	LLM       chat.Service
	Embedder  memory.Embedder
	Templates *prompts.Store
	Catalog   *turning.Catalog
	Rand      *rand.Rand
	Logger    *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Templates == nil {
		c.Templates = prompts.NewStore()
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// turnOutcome is the explicit result of resolving which agent a
// progressed action belongs to. The driver switches on it instead of
// catching errors for expected branches.
type turnOutcome int

const (
	turnActed turnOutcome = iota
	turnUnknownActor
)

// Simulation is one full run: a scene master, two agents, and the
// control flow that connects them. A simulation's internal turn order
// is strictly sequential; instances share no mutable state with each
// other and may run as sibling tasks.
type Simulation struct {
	ID uuid.UUID

	cfg      Config
	sm       *scene.SceneMaster
	agent1   *agent.Agent
	agent2   *agent.Agent
	logger   *slog.Logger
	fromSave bool
}

// New builds a fresh simulation for two personas.
func New(cfg Config, name1, persona1, name2, persona2 string) *Simulation {
	cfg = cfg.withDefaults()
	a1 := agent.New(name1, persona1, cfg.LLM, cfg.Embedder, cfg.Templates, cfg.Logger)
	a2 := agent.New(name2, persona2, cfg.LLM, cfg.Embedder, cfg.Templates, cfg.Logger)
	sm := scene.NewSceneMaster(cfg.LLM, cfg.Templates, cfg.Catalog, a1, a2, cfg.Rand, cfg.Logger)
	return &Simulation{
		ID:     uuid.New(),
		cfg:    cfg,
		sm:     sm,
		agent1: a1,
		agent2: a2,
		logger: cfg.Logger,
	}
}

// SceneMaster exposes the underlying scene master.
func (s *Simulation) SceneMaster() *scene.SceneMaster { return s.sm }

// Agents returns both agents in order.
func (s *Simulation) Agents() (*agent.Agent, *agent.Agent) { return s.agent1, s.agent2 }

// FromSave reports whether the simulation was restored from a
// snapshot.
func (s *Simulation) FromSave() bool { return s.fromSave }

// emitFunc delivers one event to the active consumer. Returning false
// stops the run; the producer leaves all state exactly as it was after
// the last delivered event.
type emitFunc func(Event) bool

// errConsumerGone distinguishes an abandoned consumer from a failure.
var errConsumerGone = errors.New("event consumer stopped")

// RunAuto runs all remaining scenes with a fixed number of
// interactions per scene, buffering the emitted events. On failure the
// events produced so far are returned alongside the error.
func (s *Simulation) RunAuto(ctx context.Context, interactionsPerScene int) ([]Event, error) {
	var events []Event
	err := s.run(ctx, interactionsPerScene, func(ev Event) bool {
		events = append(events, ev)
		return true
	})
	return events, err
}

// run is the shared scene loop behind the synchronous and streaming
// modes. Every intermediate result goes through emit in strict turn
// order.
func (s *Simulation) run(ctx context.Context, interactionsPerScene int, emit emitFunc) error {
	if !s.fromSave {
		if _, err := s.sm.Initialize(ctx); err != nil {
			return s.fail(emit, fmt.Errorf("initialize scene: %w", err))
		}
	}

	if !emit(newEvent(EventOutput, "Theme: "+SnakeToTitle(s.sm.State().Theme))) {
		return errConsumerGone
	}

	for sceneIndex := s.sm.Progression(); sceneIndex < s.sm.TotalScenes(); sceneIndex++ {
		if err := s.runScene(ctx, interactionsPerScene, emit); err != nil {
			return err
		}

		summary, err := s.sm.Summarize(ctx)
		if err != nil {
			return s.fail(emit, fmt.Errorf("summarize scene %d: %w", sceneIndex+1, err))
		}
		if !emit(newEvent(EventSceneMaster, "Scene summary: "+summary.Summary)) {
			return errConsumerGone
		}

		commitment, err := s.sm.CommitmentScore(ctx, summary)
		if err != nil {
			return s.fail(emit, fmt.Errorf("commitment score for scene %d: %w", sceneIndex+1, err))
		}
		if !emit(newEvent(EventOutput, fmt.Sprintf("Commitment: %.0f (%s)", commitment.Score, commitment.Trend))) {
			return errConsumerGone
		}

		if err := s.storeAgentMemories(ctx); err != nil {
			return s.fail(emit, err)
		}

		if _, err := s.sm.NextScene(ctx, summary.Summary); err != nil {
			if errors.Is(err, scene.ErrProgressionExhausted) {
				if !emit(newEvent(EventOutput, "Simulation ended")) {
					return errConsumerGone
				}
				return nil
			}
			return s.fail(emit, fmt.Errorf("advance to next scene: %w", err))
		}
	}
	return nil
}

// runScene plays one scene: seed both agents with the conflict and
// opening narrative, then loop the requested number of interactions.
func (s *Simulation) runScene(ctx context.Context, interactions int, emit emitFunc) error {
	state := s.sm.State()

	if !emit(newEvent(EventSceneMaster, "Scene Conflict: "+state.SceneConflict)) {
		return errConsumerGone
	}
	s.agent1.AddToWorkingMemory(memory.WorkingEntry{Text: state.SceneConflict, Type: memoryTypeConflict})
	s.agent2.AddToWorkingMemory(memory.WorkingEntry{Text: state.SceneConflict, Type: memoryTypeConflict})

	s.sm.AppendToHistory("", state.CurrentScene)
	s.agent1.AddToWorkingMemory(memory.WorkingEntry{Text: state.CurrentScene, Type: memoryTypeNarrative})
	s.agent2.AddToWorkingMemory(memory.WorkingEntry{Text: state.CurrentScene, Type: memoryTypeNarrative})
	if !emit(newEvent(EventSceneMaster, state.CurrentScene)) {
		return errConsumerGone
	}

	for i := 0; i < interactions; i++ {
		action, err := s.sm.Progress(ctx)
		if err != nil {
			return s.fail(emit, fmt.Errorf("progress scene: %w", err))
		}
		s.sm.AppendToHistory("", action.Narrative)
		if !emit(newEvent(EventSceneMaster, action.Narrative)) {
			return errConsumerGone
		}

		curr, other, agentEvent, outcome := s.resolveActor(action.CharacterID)
		if outcome == turnUnknownActor {
			// The turn is skipped rather than silently attributed to
			// the wrong agent; the unattributed action never reaches
			// the shared history.
			s.logger.Warn("progress named unknown actor", "character_id", action.CharacterID)
			if !emit(newEvent(EventError, "Unknown character_id: "+action.CharacterID)) {
				return errConsumerGone
			}
			continue
		}

		if !emit(newEvent(EventOutput, curr.Name()+" is appraising the scene...")) {
			return errConsumerGone
		}
		appraisal, err := curr.Appraise(ctx, s.sm.History().Format())
		if err != nil {
			return s.fail(emit, fmt.Errorf("appraisal by %s: %w", curr.Name(), err))
		}
		if !emit(newEvent(agentEvent, "Internal monologue: "+appraisal.InnerThoughts)) {
			return errConsumerGone
		}

		if !emit(newEvent(EventOutput, curr.Name()+" is making a choice...")) {
			return errConsumerGone
		}
		choice, err := curr.MakeChoices(ctx, action.Narrative, appraisal)
		if err != nil {
			return s.fail(emit, fmt.Errorf("choice by %s: %w", curr.Name(), err))
		}

		combined := CombineNarrativeAction(action.Narrative, curr.Name(), choice.Action)
		curr.AddToWorkingMemory(memory.WorkingEntry{
			Text:             combined,
			Type:             memoryTypeMemory,
			EmotionEmbedding: appraisal.EmotionScores,
			InnerThoughts:    appraisal.InnerThoughts,
		})
		other.AddToWorkingMemory(memory.WorkingEntry{Text: combined, Type: memoryTypeMemory})

		s.sm.AppendToHistory(curr.Name(), choice.Action)
		if !emit(newEvent(agentEvent, "["+curr.Name()+"] "+choice.Action)) {
			return errConsumerGone
		}
	}
	return nil
}

// resolveActor maps a progressed action's character identifier onto the
// acting agent. The turn attribution invariant: the identifier matches
// an agent exactly or the turn is rejected.
func (s *Simulation) resolveActor(characterID string) (curr, other *agent.Agent, eventType EventType, outcome turnOutcome) {
	switch characterID {
	case s.agent1.ID():
		return s.agent1, s.agent2, EventAgent1, turnActed
	case s.agent2.ID():
		return s.agent2, s.agent1, EventAgent2, turnActed
	default:
		return nil, nil, EventError, turnUnknownActor
	}
}

// storeAgentMemories folds both agents' working memory into their
// durable stores at scene close, then clears the scene-scoped working
// memory.
func (s *Simulation) storeAgentMemories(ctx context.Context) error {
	for _, a := range []*agent.Agent{s.agent1, s.agent2} {
		if err := a.StoreMemories(ctx); err != nil {
			return err
		}
		a.Memory().ClearWorkingMemory()
	}
	return nil
}

// fail surfaces err as an error event before returning it. The run
// terminates with the scene state exactly as it was after the last
// successful step; no fabricated success state follows an error.
func (s *Simulation) fail(emit emitFunc, err error) error {
	s.logger.Error("simulation error", "error", err)
	emit(newEvent(EventError, err.Error()))
	return err
}
