package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
)

// OllamaService implements LLMService and EmbeddingService against a
// local Ollama API.
type OllamaService struct {
	baseURL        string
	modelName      string
	embeddingModel string
	httpClient     *http.Client
	logger         *slog.Logger
}

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL, modelName, embeddingModel string, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL:        baseURL,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// InitModel checks that both the chat and embedding models are
// available, pulling any that are missing.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	for _, model := range []string{modelName, s.embeddingModel} {
		ready, err := s.isModelReady(ctx, model)
		if err != nil {
			return fmt.Errorf("failed to check model readiness: %w", err)
		}
		if !ready {
			s.logger.Info("Model not found, pulling it", "model", model)
			if err := s.pullModel(ctx, model); err != nil {
				return fmt.Errorf("failed to pull model: %w", err)
			}
			s.logger.Info("Model pulled successfully", "model", model)
		}
	}
	return nil
}

// Chat generates a chat response using the Ollama API (non-streaming)
func (s *OllamaService) Chat(ctx context.Context, messages []chat.Message) (string, error) {
	reqBody := map[string]interface{}{
		"model":    s.modelName,
		"messages": messages,
		"stream":   false,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := s.baseURL + "/api/chat"
	s.logger.Debug("Making Ollama chat request",
		"url", url,
		"model", s.modelName,
		"message_count", len(messages))

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var responseBody bytes.Buffer
	if _, err := responseBody.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Ollama API returned error",
			"status_code", resp.StatusCode,
			"response_body", responseBody.String())
		return "", fmt.Errorf("API request failed with status: %d", resp.StatusCode)
	}

	var ollamaResp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(responseBody.Bytes(), &ollamaResp); err != nil {
		s.logger.Error("Failed to decode Ollama response",
			"error", err,
			"response_body", responseBody.String())
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return ollamaResp.Message.Content, nil
}

// Embed generates an embedding vector using the Ollama embeddings API.
func (s *OllamaService) Embed(ctx context.Context, text string) ([]float64, error) {
	reqBody := map[string]interface{}{
		"model":  s.embeddingModel,
		"prompt": text,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings request failed with status: %d", resp.StatusCode)
	}

	var embResp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings response contained no vector")
	}
	return embResp.Embedding, nil
}

// waitForOllamaReady polls the version endpoint until the service
// responds or the context expires.
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/version", nil)
		if err != nil {
			return err
		}
		resp, err := s.httpClient.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("tags request failed with status: %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("failed to decode tags response: %w", err)
	}
	for _, m := range tags.Models {
		if m.Name == modelName || m.Name == modelName+":latest" {
			return true, nil
		}
	}
	return false, nil
}

func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	jsonBody, err := json.Marshal(map[string]interface{}{
		"name":   modelName,
		"stream": false,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/pull", bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pull request failed with status: %d", resp.StatusCode)
	}
	return nil
}
