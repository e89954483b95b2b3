package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClient_Generate(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{
					"message":       map[string]string{"role": "assistant", "content": "Fresh roasted daily."},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{
				"prompt_tokens":     120,
				"completion_tokens": 35,
				"total_tokens":      155,
			},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model", 1024, 5*time.Second)
	result, err := client.Generate(context.Background(), "You are a copywriter.", "Write a tagline.")
	require.NoError(t, err)

	assert.Equal(t, "Fresh roasted daily.", result.Text)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 155, result.Usage.TotalTokens)
	assert.Equal(t, 120, result.Usage.PromptTokens)

	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestOpenAIClient_Generate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "rate limited upstream", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "test-key", "test-model", 1024, 5*time.Second)
	_, err := client.Generate(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited upstream")
}

func TestOpenAIClient_Generate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"model": "test-model", "choices": []any{}})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "", "test-model", 0, 5*time.Second)
	_, err := client.Generate(context.Background(), "sys", "user")
	assert.Error(t, err)
}
