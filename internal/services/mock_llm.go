package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
)

// MockLLM is a mock implementation of LLMService for testing
type MockLLM struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	ChatFunc      func(ctx context.Context, messages []chat.Message) (string, error)

	// Track calls for testing
	InitModelCalls []string
	ChatCalls      []ChatCall

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.Message
}

// NewMockLLM creates a new mock LLM service
func NewMockLLM() *MockLLM {
	return &MockLLM{
		InitModelCalls: make([]string, 0),
		ChatCalls:      make([]ChatCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLM) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)
	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Chat mocks response generation
func (m *MockLLM) Chat(ctx context.Context, messages []chat.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages})
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	return "{}", nil
}

// ChatCallCount returns the number of Chat calls made so far.
func (m *MockLLM) ChatCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}

// MockEmbedder is a mock implementation of EmbeddingService for testing
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float64, error)

	EmbedCalls []string

	mu sync.Mutex
}

// NewMockEmbedder creates a new mock embedding service
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{EmbedCalls: make([]string, 0)}
}

// Embed mocks embedding generation
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.EmbedCalls = append(m.EmbedCalls, text)
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	return []float64{1, 0, 0}, nil
}
