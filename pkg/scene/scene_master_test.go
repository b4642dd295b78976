package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
	"github.com/jwebster45206/relationship-engine/pkg/prompts"
	"github.com/jwebster45206/relationship-engine/pkg/turning"
)

type scriptedLLM struct {
	replies []string
	prompts []string
}

func (s *scriptedLLM) Chat(_ context.Context, messages []chat.Message) (string, error) {
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply, nil
}

type stubPartner struct {
	name string
	id   string
	goal string
}

func (p *stubPartner) Name() string        { return p.name }
func (p *stubPartner) ID() string          { return p.id }
func (p *stubPartner) Description() string { return fmt.Sprintf(`{"name":%q,"id":%q}`, p.name, p.id) }
func (p *stubPartner) SetGoal(goal string) { p.goal = goal }

func sceneReply(theme, scene string) string {
	s := State{
		Theme:          theme,
		Setting:        "a lake house",
		CurrentScene:   scene,
		Character1Goal: "goal one",
		Character2Goal: "goal two",
		SceneConflict:  "an old argument resurfaces",
	}
	data, _ := json.Marshal(s)
	return string(data)
}

func testCatalog(t *testing.T, steps int) *turning.Catalog {
	t.Helper()
	var points []turning.Point
	var sequence [][]string
	for i := 0; i < steps; i++ {
		id := fmt.Sprintf("tp%d", i)
		points = append(points, turning.Point{
			ID:              id,
			Name:            "Point " + id,
			Category:        "Bonding",
			CommitmentRange: [2]float64{0, 100},
		})
		sequence = append(sequence, []string{id})
	}
	c, err := turning.NewCatalog(points, sequence)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func newTestMaster(t *testing.T, llm chat.Service, steps int) (*SceneMaster, *stubPartner, *stubPartner) {
	t.Helper()
	p1 := &stubPartner{name: "Riley", id: "id-1"}
	p2 := &stubPartner{name: "Sam", id: "id-2"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewSceneMaster(llm, prompts.NewStore(), testCatalog(t, steps), p1, p2, rand.New(rand.NewSource(1)), logger)
	return m, p1, p2
}

func TestHistory_AppendOnlyAndOrdered(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 5; i++ {
		h.Append("Riley", fmt.Sprintf("line %d", i))
	}
	if h.Len() != 5 {
		t.Fatalf("Len = %d, want 5", h.Len())
	}
	entries := h.Entries()
	for i, e := range entries {
		if e.Text != fmt.Sprintf("line %d", i) {
			t.Errorf("entry %d out of order: %q", i, e.Text)
		}
	}
	// Mutating the returned copy must not touch the log.
	entries[0].Text = "tampered"
	if h.Entries()[0].Text != "line 0" {
		t.Error("Entries exposed internal storage")
	}
}

func TestHistory_SourceNormalization(t *testing.T) {
	h := NewHistory()
	e := h.Append("", "the scene opens")
	if e.Source != SourceNarrator {
		t.Errorf("empty source normalized to %q, want %q", e.Source, SourceNarrator)
	}
	e = h.Append("Sam", "a line")
	if e.Source != "Sam" {
		t.Errorf("source = %q", e.Source)
	}
}

func TestHistoryEntry_SerializesAsPair(t *testing.T) {
	data, err := json.Marshal(Entry{Source: "Riley", Text: "hello"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["Riley","hello"]` {
		t.Errorf("marshal = %s", data)
	}
	var e Entry
	if err := json.Unmarshal([]byte(`["Sam","hi"]`), &e); err != nil {
		t.Fatal(err)
	}
	if e.Source != "Sam" || e.Text != "hi" {
		t.Errorf("unmarshal = %+v", e)
	}
}

func TestInitialize(t *testing.T) {
	llm := &scriptedLLM{replies: []string{sceneReply("vacation", "The ferry docks at dusk.")}}
	m, p1, p2 := newTestMaster(t, llm, 3)

	state, err := m.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if state.CurrentScene != "The ferry docks at dusk." {
		t.Errorf("current scene = %q", state.CurrentScene)
	}
	if m.Phase() != PhaseSceneActive {
		t.Errorf("phase = %s, want %s", m.Phase(), PhaseSceneActive)
	}
	if p1.goal != "goal one" || p2.goal != "goal two" {
		t.Errorf("goals not assigned: %q / %q", p1.goal, p2.goal)
	}
	// Prompt must carry the eligible turning points and both personas.
	prompt := llm.prompts[0]
	for _, want := range []string{"Point tp0", "Riley", "Sam"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("initialize prompt missing %q", want)
		}
	}
}

func TestInitialize_NoPartialCommitOnBadReply(t *testing.T) {
	llm := &scriptedLLM{replies: []string{`{"theme": "vacation"}`}}
	m, p1, _ := newTestMaster(t, llm, 3)

	_, err := m.Initialize(context.Background())
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if m.Phase() != PhaseUninitialized {
		t.Errorf("phase advanced despite failure: %s", m.Phase())
	}
	if m.State().Theme != "" {
		t.Error("scene state partially committed")
	}
	if p1.goal != "" {
		t.Error("goal assigned despite failure")
	}
}

func TestInitialize_WrongPhase(t *testing.T) {
	llm := &scriptedLLM{replies: []string{sceneReply("a", "b"), sceneReply("c", "d")}}
	m, _, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := m.Initialize(context.Background())
	var pe *PhaseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PhaseError, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "opening"),
		"```json\n{\"narrative\": \"Sam hesitates at the door.\", \"character_id\": \"id-2\",}\n```",
	}}
	m, _, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.AppendToHistory("", "opening")

	action, err := m.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if action.CharacterID != "id-2" {
		t.Errorf("character id = %q", action.CharacterID)
	}
	// Progress decides, it does not record.
	if m.History().Len() != 1 {
		t.Errorf("Progress mutated history: len = %d", m.History().Len())
	}
	if !strings.Contains(llm.prompts[1], "[Narrative]: opening") {
		t.Error("progress prompt missing formatted history")
	}
}

func TestProgress_SchemaError(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "opening"),
		`{"narrative": "a beat with no actor"}`,
	}}
	m, _, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := m.Progress(context.Background())
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if se.Field != "character_id" {
		t.Errorf("field = %q", se.Field)
	}
}

func TestSummarizeAndCommitment(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "opening"),
		`{"summary": "They argued, then made up."}`,
		`{"commitment_score": 62, "trend": "improving"}`,
	}}
	m, _, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.AppendToHistory("", "opening")

	summary, err := m.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if m.Phase() != PhaseSceneSummarize {
		t.Errorf("phase = %s", m.Phase())
	}

	c, err := m.CommitmentScore(context.Background(), summary)
	if err != nil {
		t.Fatalf("CommitmentScore: %v", err)
	}
	if c.Score != 62 || c.Trend != "improving" {
		t.Errorf("commitment = %+v", c)
	}
	if !strings.Contains(llm.prompts[2], "They argued, then made up.") {
		t.Error("commitment prompt missing relationship history")
	}
}

func TestNextScene(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "opening"),
		`{"summary": "Scene one ended."}`,
		sceneReply("vacation", "The next morning."),
	}}
	m, p1, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.AppendToHistory("", "opening")
	m.AppendToHistory("Riley", "a line")

	summary, err := m.Summarize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	state, err := m.NextScene(context.Background(), summary.Summary)
	if err != nil {
		t.Fatalf("NextScene: %v", err)
	}

	if m.Progression() != 1 {
		t.Errorf("progression = %d, want 1", m.Progression())
	}
	if m.History().Len() != 0 {
		t.Errorf("history not reset: len = %d", m.History().Len())
	}
	if state.PreviousSummary != "Scene one ended." {
		t.Errorf("previous summary = %q", state.PreviousSummary)
	}
	if m.Phase() != PhaseSceneActive {
		t.Errorf("phase = %s", m.Phase())
	}
	if p1.goal != "goal one" {
		t.Errorf("goal not reassigned: %q", p1.goal)
	}
}

func TestNextScene_Exhaustion(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "only scene"),
		`{"summary": "It ended."}`,
	}}
	m, _, _ := newTestMaster(t, llm, 1)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Summarize(context.Background()); err != nil {
		t.Fatal(err)
	}
	_, err := m.NextScene(context.Background(), "It ended.")
	if !errors.Is(err, ErrProgressionExhausted) {
		t.Fatalf("expected ErrProgressionExhausted, got %v", err)
	}
	if m.Phase() != PhaseTerminal {
		t.Errorf("phase = %s, want %s", m.Phase(), PhaseTerminal)
	}
	if m.Progression() != 0 {
		t.Errorf("progression mutated on exhaustion: %d", m.Progression())
	}
}

func TestNextScene_FailureRollsBackProgression(t *testing.T) {
	llm := &scriptedLLM{replies: []string{
		sceneReply("vacation", "opening"),
		`{"summary": "done"}`,
		`not json at all`,
	}}
	m, _, _ := newTestMaster(t, llm, 3)
	if _, err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	m.AppendToHistory("", "opening")
	if _, err := m.Summarize(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := m.NextScene(context.Background(), "done")
	if err == nil {
		t.Fatal("expected error")
	}
	if m.Progression() != 0 {
		t.Errorf("progression = %d after failed transition, want 0", m.Progression())
	}
	// History of the failed transition's predecessor scene must be intact.
	if m.History().Len() != 1 {
		t.Errorf("history mutated on failed transition: len = %d", m.History().Len())
	}
}

func TestRestore(t *testing.T) {
	m, _, _ := newTestMaster(t, &scriptedLLM{}, 3)
	entries := []Entry{{Source: SourceNarrator, Text: "restored opening"}, {Source: "Riley", Text: "line"}}
	m.Restore(State{Theme: "vacation", CurrentScene: "restored opening"}, entries, 2)

	if m.Phase() != PhaseSceneActive {
		t.Errorf("phase = %s", m.Phase())
	}
	if m.Progression() != 2 {
		t.Errorf("progression = %d", m.Progression())
	}
	if m.History().Len() != 2 {
		t.Errorf("history len = %d", m.History().Len())
	}
}
