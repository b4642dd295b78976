package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/relationship-engine/pkg/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOllamaService_Chat(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		response    string
		expectError bool
		expectedMsg string
	}{
		{
			name:        "successful chat",
			status:      http.StatusOK,
			response:    `{"message": {"role": "assistant", "content": "{\"summary\": \"a quiet truce\"}"}}`,
			expectedMsg: `{"summary": "a quiet truce"}`,
		},
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			response:    `{"error": "model overloaded"}`,
			expectError: true,
		},
		{
			name:        "malformed response body",
			status:      http.StatusOK,
			response:    `not json`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/chat", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)

				var req map[string]interface{}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "test-model", req["model"])
				assert.Equal(t, false, req["stream"])

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.response))
			}))
			defer server.Close()

			svc := NewOllamaService(server.URL, "test-model", "test-embed", testLogger())
			reply, err := svc.Chat(context.Background(), chat.Prompt("", "hello"))
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedMsg, reply)
		})
	}
}

func TestOllamaService_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req["model"])
		assert.Equal(t, "a memory", req["prompt"])

		_, _ = w.Write([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, "test-model", "test-embed", testLogger())
	vec, err := svc.Embed(context.Background(), "a memory")
	assert.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestOllamaService_EmbedRejectsEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embedding": []}`))
	}))
	defer server.Close()

	svc := NewOllamaService(server.URL, "test-model", "test-embed", testLogger())
	_, err := svc.Embed(context.Background(), "a memory")
	assert.Error(t, err)
}

func TestMockLLM_RecordsCalls(t *testing.T) {
	mock := NewMockLLM()
	_, err := mock.Chat(context.Background(), chat.Prompt("system", "user"))
	assert.NoError(t, err)
	assert.Equal(t, 1, mock.ChatCallCount())
	assert.Len(t, mock.ChatCalls[0].Messages, 2)
}
