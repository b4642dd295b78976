package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
	"github.com/jwebster45206/relationship-engine/pkg/llmjson"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

// Phase is the scene master's state-machine position.
type Phase string

const (
	PhaseUninitialized  Phase = "uninitialized"
	PhaseSceneActive    Phase = "scene_active"
	PhaseSceneSummarize Phase = "scene_summarized"
	PhaseTerminal       Phase = "terminal"
)

func (p Phase) String() string { return string(p) }

// Partner is the narrow view of a relationship agent the scene master
// needs: identity for prompt injection and goal assignment on scene
// transitions.
type Partner interface {
	Name() string
	ID() string
	Description() string
	SetGoal(goal string)
}

// Action is the structured result of a Progress call: the next
// narrative beat plus which character must act. Ephemeral; the caller
// decides whether and when to record it.
type Action struct {
	Narrative   string `json:"narrative"`
	CharacterID string `json:"character_id"`
}

// Summary is the structured result of a Summarize call.
type Summary struct {
	Summary string `json:"summary"`
}

// Commitment is the relationship trajectory signal derived from the
// full relationship history. Used to bias the next turning-point
// selection.
type Commitment struct {
	Score float64 `json:"commitment_score"`
	Trend string  `json:"trend"`
}

// SceneMaster drives scenes: it initializes them from the turning-point
// catalog, produces narrative beats, decides who acts, summarizes, and
// transitions to the next scene.
type SceneMaster struct {
	llm       chat.Service
	templates *prompts.Store
	catalog   *turning.Catalog
	partner1  Partner
	partner2  Partner
	rng       *rand.Rand
	logger    *slog.Logger

	phase          Phase
	state          State
	history        *History
	progression    int
	summaryLog     []string
	lastCommitment *Commitment
}

// NewSceneMaster wires a scene master. The rand source is injected so
// turning-point sampling can be pinned in tests.
func NewSceneMaster(llm chat.Service, templates *prompts.Store, catalog *turning.Catalog, p1, p2 Partner, rng *rand.Rand, logger *slog.Logger) *SceneMaster {
	return &SceneMaster{
		llm:       llm,
		templates: templates,
		catalog:   catalog,
		partner1:  p1,
		partner2:  p2,
		rng:       rng,
		logger:    logger,
		phase:     PhaseUninitialized,
		history:   NewHistory(),
	}
}

// Phase reports the current state-machine phase.
func (m *SceneMaster) Phase() Phase { return m.phase }

// State returns a copy of the scene state.
func (m *SceneMaster) State() State { return m.state }

// History returns the shared scene-history log.
func (m *SceneMaster) History() *History { return m.history }

// Progression reports the zero-based turning-point progression index.
func (m *SceneMaster) Progression() int { return m.progression }

// TotalScenes reports the length of the turning-point sequence.
func (m *SceneMaster) TotalScenes() int { return m.catalog.TotalScenes() }

// Initialize composes the opening scene from the progression's eligible
// turning points, replaces the scene state wholesale, and assigns both
// partners' goals. State is committed only on full success.
func (m *SceneMaster) Initialize(ctx context.Context) (State, error) {
	if m.phase != PhaseUninitialized {
		return State{}, &PhaseError{Op: "Initialize", Have: m.phase}
	}
	state, err := m.composeScene(ctx)
	if err != nil {
		return State{}, err
	}
	m.commitScene(state)
	m.logger.Info("scene initialized",
		"theme", state.Theme,
		"progression", m.progression)
	return state, nil
}

// Progress asks for the next narrative beat and which character must
// act. It does not mutate the scene history; the caller appends after
// it has branched on the result.
func (m *SceneMaster) Progress(ctx context.Context) (Action, error) {
	if m.phase != PhaseSceneActive {
		return Action{}, &PhaseError{Op: "Progress", Have: m.phase}
	}
	prompt, err := m.templates.Render(prompts.NameProgress, map[string]string{
		"scene_history": m.history.Format(),
		"partner_1":     m.partner1.Description(),
		"partner_2":     m.partner2.Description(),
	})
	if err != nil {
		return Action{}, err
	}
	reply, err := m.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return Action{}, fmt.Errorf("progress call: %w", err)
	}
	var action Action
	if err := llmjson.DecodeText(reply, &action); err != nil {
		return Action{}, err
	}
	if action.Narrative == "" {
		return Action{}, &SchemaError{Record: "action", Field: "narrative"}
	}
	if action.CharacterID == "" {
		return Action{}, &SchemaError{Record: "action", Field: "character_id"}
	}
	return action, nil
}

// AppendToHistory normalizes the source tag and appends to the shared
// log.
func (m *SceneMaster) AppendToHistory(source, text string) Entry {
	return m.history.Append(source, text)
}

// Summarize renders the full scene history and scene state into a
// summary record and logs it into the relationship history. The caller
// decides when the summary is persisted into the next scene's state.
func (m *SceneMaster) Summarize(ctx context.Context) (Summary, error) {
	if m.phase != PhaseSceneActive {
		return Summary{}, &PhaseError{Op: "Summarize", Have: m.phase}
	}
	stateJSON, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return Summary{}, fmt.Errorf("marshal scene state: %w", err)
	}
	prompt, err := m.templates.Render(prompts.NameSummarize, map[string]string{
		"scene_state":   string(stateJSON),
		"scene_history": m.history.Format(),
	})
	if err != nil {
		return Summary{}, err
	}
	reply, err := m.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return Summary{}, fmt.Errorf("summarize call: %w", err)
	}
	var summary Summary
	if err := llmjson.DecodeText(reply, &summary); err != nil {
		return Summary{}, err
	}
	if summary.Summary == "" {
		return Summary{}, &SchemaError{Record: "summary", Field: "summary"}
	}
	m.summaryLog = append(m.summaryLog, summary.Summary)
	m.phase = PhaseSceneSummarize
	return summary, nil
}

// CommitmentScore derives the relationship trajectory signal from the
// accumulated relationship history, not just the current scene. The
// result biases the next scene's turning-point selection.
func (m *SceneMaster) CommitmentScore(ctx context.Context, summary Summary) (Commitment, error) {
	prompt, err := m.templates.Render(prompts.NameCommitment, map[string]string{
		"relationship_history": strings.Join(m.summaryLog, "\n\n"),
		"summary":              summary.Summary,
	})
	if err != nil {
		return Commitment{}, err
	}
	reply, err := m.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return Commitment{}, fmt.Errorf("commitment call: %w", err)
	}
	var c Commitment
	if err := llmjson.DecodeText(reply, &c); err != nil {
		return Commitment{}, err
	}
	m.lastCommitment = &c
	m.logger.Debug("commitment scored", "score", c.Score, "trend", c.Trend)
	return c, nil
}

// NextScene clears the scene state and history, advances the
// progression index, and composes the next scene from the newly
// eligible turning points. prevSummary is persisted into the new
// state's previous_summary. When the sequence is exhausted the scene
// master resets the history, transitions to its terminal phase and
// returns ErrProgressionExhausted; scene state and progression are left
// as they were.
func (m *SceneMaster) NextScene(ctx context.Context, prevSummary string) (State, error) {
	if m.phase != PhaseSceneSummarize {
		return State{}, &PhaseError{Op: "NextScene", Have: m.phase}
	}
	if m.progression+1 >= m.catalog.TotalScenes() {
		m.history.Reset()
		m.phase = PhaseTerminal
		return State{}, ErrProgressionExhausted
	}
	m.progression++
	state, err := m.composeScene(ctx)
	if err != nil {
		m.progression--
		return State{}, err
	}
	state.PreviousSummary = prevSummary
	m.history.Reset()
	m.commitScene(state)
	m.logger.Info("scene advanced",
		"progression", m.progression,
		"theme", state.Theme)
	return state, nil
}

// composeScene runs the initialize prompt against the eligible turning
// points and validates the reply into a full scene record. It does not
// commit anything.
func (m *SceneMaster) composeScene(ctx context.Context) (State, error) {
	stateJSON, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return State{}, fmt.Errorf("marshal scene state: %w", err)
	}
	prompt, err := m.templates.Render(prompts.NameInitialize, map[string]string{
		"scene_state":     string(stateJSON),
		"eligible_scenes": formatPoints(m.eligibleOptions()),
		"partner_1":       m.partner1.Description(),
		"partner_2":       m.partner2.Description(),
	})
	if err != nil {
		return State{}, err
	}
	reply, err := m.llm.Chat(ctx, chat.Prompt("", prompt))
	if err != nil {
		return State{}, fmt.Errorf("scene composition call: %w", err)
	}
	var state State
	if err := llmjson.DecodeText(reply, &state); err != nil {
		return State{}, err
	}
	if err := state.validate(); err != nil {
		return State{}, err
	}
	return state, nil
}

func (m *SceneMaster) commitScene(state State) {
	m.state = state
	m.partner1.SetGoal(state.Character1Goal)
	m.partner2.SetGoal(state.Character2Goal)
	m.phase = PhaseSceneActive
}

// eligibleOptions returns the turning points eligible at the current
// progression index, biased by the latest commitment score when one is
// recorded. If the commitment filter empties the list, the unfiltered
// sequence entry is used; a scene must always be composable. Results
// are capped at turning.SampleLimit by a uniform sample.
func (m *SceneMaster) eligibleOptions() []turning.Point {
	options := m.catalog.EligibleAt(m.progression)
	if m.lastCommitment != nil {
		fitting := make([]turning.Point, 0, len(options))
		for _, p := range options {
			if p.FitsCommitment(m.lastCommitment.Score) {
				fitting = append(fitting, p)
			}
		}
		if len(fitting) > 0 {
			options = fitting
		}
	}
	if len(options) > turning.SampleLimit {
		sampled := make([]turning.Point, len(options))
		copy(sampled, options)
		m.rng.Shuffle(len(sampled), func(i, j int) {
			sampled[i], sampled[j] = sampled[j], sampled[i]
		})
		options = sampled[:turning.SampleLimit]
	}
	return options
}

func formatPoints(points []turning.Point) string {
	lines := make([]string, 0, len(points))
	for _, p := range points {
		lines = append(lines, p.String())
	}
	return strings.Join(lines, "\n")
}

// Restore rehydrates a scene master from a persisted snapshot. The
// phase comes back as SceneActive; a snapshot is only taken of a live
// scene.
func (m *SceneMaster) Restore(state State, entries []Entry, progression int) {
	m.state = state
	m.history.Replace(entries)
	m.progression = progression
	m.phase = PhaseSceneActive
}
