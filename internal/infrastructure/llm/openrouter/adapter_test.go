package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

func TestConvertResponseMessage_WithContent(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role:    "assistant",
		Content: `{"action":"click","params":{"index":1}}`,
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, entity.RoleAssistant, result.Role)
	assert.Equal(t, `{"action":"click","params":{"index":1}}`, result.Content)
}

func TestConvertResponseMessage_WithReasoning(t *testing.T) {
	msg := openai.ChatCompletionMessage{
		Role:             "assistant",
		Content:          "{}",
		ReasoningContent: "The button is at index 2.",
	}

	result := convertResponseMessage(msg)

	assert.Equal(t, "<thinking>\nThe button is at index 2.\n</thinking>\n{}", result.Content)
}

func TestConvertMessages(t *testing.T) {
	result := convertMessages([]entity.Message{
		{Role: entity.RoleSystem, Content: "rules"},
		{Role: entity.RoleUser, Content: "page"},
	})

	require.Len(t, result, 2)
	assert.Equal(t, "system", result[0].Role)
	assert.Equal(t, "page", result[1].Content)
}

func TestChat(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "gen-1",
			"object": "chat.completion",
			"model": "test/model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"status\":\"done\"}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
		}`)
	}))
	defer server.Close()

	cfg := DefaultConfig("test-key", "test/model")
	cfg.BaseURL = server.URL
	adapter := NewOpenRouterAdapter(cfg)

	resp, err := adapter.Chat(context.Background(), output.ChatRequest{
		Messages:    []entity.Message{{Role: entity.RoleUser, Content: "hi"}},
		Temperature: 0.1,
		MaxTokens:   256,
		JSONMode:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"status":"done"}`, resp.Message.Content)
	assert.Equal(t, 128, resp.Usage.TotalTokens)
	assert.Equal(t, "test/model", got.Model)
	assert.Equal(t, 256, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, got.ResponseFormat.Type)
}

func TestChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": "gen-2", "choices": []}`)
	}))
	defer server.Close()

	cfg := DefaultConfig("k", "m")
	cfg.BaseURL = server.URL

	_, err := NewOpenRouterAdapter(cfg).Chat(context.Background(), output.ChatRequest{})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChat_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "bad key", "code": 401}}`)
	}))
	defer server.Close()

	cfg := DefaultConfig("k", "m")
	cfg.BaseURL = server.URL

	_, err := NewOpenRouterAdapter(cfg).Chat(context.Background(), output.ChatRequest{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}
