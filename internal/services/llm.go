package services

import (
	"context"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
)

// LLMService is the backend contract for chat completion providers.
type LLMService interface {
	chat.Service

	// InitModel initializes the LLM model on startup
	InitModel(ctx context.Context, modelName string) error
}

// EmbeddingService produces vector embeddings for memory retrieval.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
