// Package scene implements the scene master: the turn and scene state
// machine that advances a two-agent relationship simulation.
package scene

import (
	"encoding/json"
	"fmt"
)

// SourceNarrator is the normalized history source for scene-master
// narration. An empty source tag on append resolves to it.
const SourceNarrator = "Narrative"

// State is the mutable scene state. Mutated only by the SceneMaster on
// Initialize and NextScene; read-only to agents.
type State struct {
	Theme                string   `json:"theme"`
	Setting              string   `json:"setting"`
	SupportingCharacters []string `json:"supporting_characters"`
	CurrentScene         string   `json:"current_scene"`
	PreviousSummary      string   `json:"previous_summary"`
	Character1Goal       string   `json:"character_1_goal"`
	Character2Goal       string   `json:"character_2_goal"`
	SceneConflict        string   `json:"scene_conflict"`
}

// validate enforces the post-initialization invariant: goals and the
// scene itself are always non-empty after a successful scene commit.
func (s *State) validate() error {
	for field, value := range map[string]string{
		"current_scene":    s.CurrentScene,
		"character_1_goal": s.Character1Goal,
		"character_2_goal": s.Character2Goal,
		"scene_conflict":   s.SceneConflict,
	} {
		if value == "" {
			return &SchemaError{Record: "scene", Field: field}
		}
	}
	return nil
}

// Entry is one (source, text) pair in the scene history. It serializes
// as a 2-element JSON array to match the snapshot format.
type Entry struct {
	Source string
	Text   string
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{e.Source, e.Text})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("history entry must be a [source, text] pair: %w", err)
	}
	e.Source, e.Text = pair[0], pair[1]
	return nil
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s]: %s", e.Source, e.Text)
}

// History is the ordered, append-only scene-history log. It is shared
// by reference between the scene master and the simulation driver;
// ordering is a correctness invariant because the log is the LLM
// conversation context for every subsequent call.
type History struct {
	entries []Entry
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append normalizes the source tag and appends. An empty source means
// scene-master narration. The appended entry is returned for streaming
// convenience.
func (h *History) Append(source, text string) Entry {
	if source == "" {
		source = SourceNarrator
	}
	e := Entry{Source: source, Text: text}
	h.entries = append(h.entries, e)
	return e
}

// Len reports the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the log. The internal slice is never handed
// out; append-only must hold.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset empties the log. Called at the start of each new scene.
func (h *History) Reset() {
	h.entries = nil
}

// Format renders the log as "[source]: text" lines for prompt
// injection.
func (h *History) Format() string {
	var out string
	for _, e := range h.entries {
		out += e.String() + "\n"
	}
	return out
}

// Replace swaps in a restored log wholesale. Only the snapshot loader
// uses this.
func (h *History) Replace(entries []Entry) {
	h.entries = make([]Entry, len(entries))
	copy(h.entries, entries)
}
