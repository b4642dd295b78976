// Package memory implements an agent's two-tier memory: an ephemeral,
// scene-scoped working memory and a durable associative store holding
// semantic and emotion embeddings for similarity retrieval.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// cosineEpsilon guards the similarity denominator against zero vectors.
const cosineEpsilon = 1e-8

// Embedder computes a fixed-length semantic embedding for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// WorkingEntry is one event in an agent's working memory. Only Text is
// required; entries without an emotion embedding stay in working memory
// for narrative purposes but are never folded into the durable store.
type WorkingEntry struct {
	Text             string    `json:"text"`
	EmotionEmbedding []float64 `json:"emotion_embedding,omitempty"`
	InnerThoughts    string    `json:"inner_thoughts,omitempty"`
	Type             string    `json:"type,omitempty"`
	Agent            string    `json:"agent,omitempty"`
}

// StoredEntry is the durable record kept per memory text.
type StoredEntry struct {
	SemanticEmbedding []float64 `json:"semantic_embedding"`
	EmotionEmbedding  []float64 `json:"emotion_embedding"`
	InnerThoughts     string    `json:"inner_thoughts,omitempty"`
	Type              string    `json:"type,omitempty"`
	Agent             string    `json:"agent,omitempty"`
}

// Retrieved is one similarity-query result.
type Retrieved struct {
	Text          string
	InnerThoughts string
}

// Memory is one agent's memory. It is not safe for concurrent use; a
// simulation's turn order guarantees a single writer.
//
// The durable store grows without bound. That matches the retrieval
// semantics this design depends on: ranking never has to account for
// evicted entries.
type Memory struct {
	working []WorkingEntry
	store   map[string]StoredEntry
	order   []string // insertion encounter order of store keys
}

// New returns an empty Memory.
func New() *Memory {
	return &Memory{store: make(map[string]StoredEntry)}
}

// AddToWorkingMemory appends an entry. O(1), no failure mode.
func (m *Memory) AddToWorkingMemory(e WorkingEntry) {
	m.working = append(m.working, e)
}

// WorkingLen reports the number of working-memory entries.
func (m *Memory) WorkingLen() int {
	return len(m.working)
}

// ClearWorkingMemory drops all working-memory entries. Called at scene
// close after the durable fold.
func (m *Memory) ClearWorkingMemory() {
	m.working = nil
}

// FormatWorkingMemory renders the ordered working memory as
// newline-delimited text blocks for prompt injection. The raw emotion
// vector is omitted; inner thoughts, type and agent appear only when
// present.
func (m *Memory) FormatWorkingMemory() string {
	blocks := make([]string, 0, len(m.working))
	for i, e := range m.working {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Event %d:\n", i+1)
		fmt.Fprintf(&sb, "  Event: %s", e.Text)
		if e.InnerThoughts != "" {
			fmt.Fprintf(&sb, "\n  Inner Thoughts: %s", e.InnerThoughts)
		}
		if e.Type != "" {
			fmt.Fprintf(&sb, "\n  Type: %s", e.Type)
		}
		if e.Agent != "" {
			fmt.Fprintf(&sb, "\n  Agent: %s", e.Agent)
		}
		blocks = append(blocks, sb.String())
	}
	return strings.Join(blocks, "\n\n")
}

// StoreWorkingMemory folds every working-memory entry carrying both
// text and an emotion embedding into the durable store, computing a
// fresh semantic embedding for each. Entries without an emotion
// embedding are silently dropped from long-term storage.
func (m *Memory) StoreWorkingMemory(ctx context.Context, embedder Embedder) error {
	for _, e := range m.working {
		if e.Text == "" || len(e.EmotionEmbedding) == 0 {
			continue
		}
		sem, err := embedder.Embed(ctx, e.Text)
		if err != nil {
			return fmt.Errorf("embed working memory entry: %w", err)
		}
		m.put(e.Text, StoredEntry{
			SemanticEmbedding: sem,
			EmotionEmbedding:  e.EmotionEmbedding,
			InnerThoughts:     e.InnerThoughts,
			Type:              e.Type,
			Agent:             e.Agent,
		})
	}
	return nil
}

// AddMemory writes one entry straight into the durable store.
func (m *Memory) AddMemory(ctx context.Context, embedder Embedder, text string, emotion []float64, innerThoughts, memType, agent string) error {
	sem, err := embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed memory: %w", err)
	}
	m.put(text, StoredEntry{
		SemanticEmbedding: sem,
		EmotionEmbedding:  emotion,
		InnerThoughts:     innerThoughts,
		Type:              memType,
		Agent:             agent,
	})
	return nil
}

func (m *Memory) put(text string, e StoredEntry) {
	if _, exists := m.store[text]; !exists {
		m.order = append(m.order, text)
	}
	m.store[text] = e
}

// StoreLen reports the number of durable entries.
func (m *Memory) StoreLen() int {
	return len(m.store)
}

// TopMemories ranks the stored entries against a semantic query vector
// and, when queryEmotion is non-empty, an emotion query vector:
//
//	score = alpha*semantic_sim + (1-alpha)*emotion_sim
//
// With no emotion query the ranking falls back to semantic similarity
// alone. Ties break toward earlier insertion.
func (m *Memory) TopMemories(query, queryEmotion []float64, topK int, alpha float64) []Retrieved {
	type scored struct {
		score float64
		key   string
	}
	ranked := make([]scored, 0, len(m.order))
	for _, key := range m.order {
		entry := m.store[key]
		if len(entry.SemanticEmbedding) == 0 {
			continue
		}
		score := CosineSimilarity(query, entry.SemanticEmbedding)
		if len(queryEmotion) > 0 && len(entry.EmotionEmbedding) > 0 {
			emoSim := CosineSimilarity(queryEmotion, entry.EmotionEmbedding)
			score = alpha*score + (1-alpha)*emoSim
		}
		ranked = append(ranked, scored{score: score, key: key})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if topK < 0 {
		topK = 0
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	out := make([]Retrieved, 0, topK)
	for _, r := range ranked[:topK] {
		out = append(out, Retrieved{Text: r.key, InnerThoughts: m.store[r.key].InnerThoughts})
	}
	return out
}

// TopMemoriesFromText embeds the query text and delegates to TopMemories.
func (m *Memory) TopMemoriesFromText(ctx context.Context, embedder Embedder, queryText string, queryEmotion []float64, topK int, alpha float64) ([]Retrieved, error) {
	query, err := embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.TopMemories(query, queryEmotion, topK, alpha), nil
}

// CosineSimilarity computes the cosine similarity of two vectors. A
// small epsilon in the denominator guards zero vectors; mismatched
// lengths score zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}
