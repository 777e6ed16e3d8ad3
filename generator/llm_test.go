package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeChatServer mimics the chat completions endpoint of an OpenAI-compatible API.
func fakeChatServer(t *testing.T, status int, content string, hits *atomic.Int64, seen *chatRequest) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"message": "Incorrect API key provided",
					"type":    "invalid_request_error",
					"code":    "invalid_api_key",
				},
			})
			return
		}
		choices := []map[string]any{}
		if content != "" {
			choices = append(choices, map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": choices,
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
}

func TestNewLLM(t *testing.T) {
	_, err := NewLLM(nil)
	require.Error(t, err)

	_, err = NewLLM(&LLMSettings{Provider: "nope", APIKey: "k", Model: "m"})
	require.ErrorContains(t, err, "not supported")

	_, err = NewLLM(&LLMSettings{Provider: ProviderDeepSeek, APIKey: "k", Model: "m"})
	require.ErrorContains(t, err, "base_url")

	_, err = NewLLM(&LLMSettings{Provider: ProviderCompatible, APIKey: "k", Model: "m"})
	require.ErrorContains(t, err, "base_url")

	_, err = NewLLM(&LLMSettings{Provider: ProviderOpenAI, Model: "m"})
	require.ErrorContains(t, err, "api key")

	c, err := NewLLM(&LLMSettings{Provider: ProviderOpenAI, APIKey: "k", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, c)

	c, err = NewLLM(&LLMSettings{Provider: ProviderGemini, APIKey: "k"})
	require.NoError(t, err)
	compat, ok := c.(*CompatLLM)
	require.True(t, ok)
	assert.Equal(t, GeminiDefaultModel, compat.model)
}

func TestOpenAILLM_Complete(t *testing.T) {
	var hits atomic.Int64
	var seen chatRequest
	srv := fakeChatServer(t, http.StatusOK, "Design a minimalist logo.", &hits, &seen)
	defer srv.Close()

	llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	prompt := BuildEnhancePrompt("logo", PassInitial)
	got, err := llm.Complete(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Design a minimalist logo.", got)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Equal(t, prompt.User, seen.Messages[1].Content)
}

func TestOpenAILLM_Failures(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		var hits atomic.Int64
		srv := fakeChatServer(t, http.StatusUnauthorized, "", &hits, nil)
		defer srv.Close()
		llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "bad", Model: "m", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = llm.Complete(context.Background(), Prompt{User: "x"})
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
	})

	t.Run("server error is not retried", func(t *testing.T) {
		var hits atomic.Int64
		srv := fakeChatServer(t, http.StatusInternalServerError, "", &hits, nil)
		defer srv.Close()
		llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = llm.Complete(context.Background(), Prompt{User: "x"})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
		assert.Equal(t, int64(1), hits.Load())
	})

	t.Run("empty choices", func(t *testing.T) {
		var hits atomic.Int64
		srv := fakeChatServer(t, http.StatusOK, "", &hits, nil)
		defer srv.Close()
		llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = llm.Complete(context.Background(), Prompt{User: "x"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("unreachable", func(t *testing.T) {
		var hits atomic.Int64
		srv := fakeChatServer(t, http.StatusOK, "x", &hits, nil)
		url := srv.URL
		srv.Close()
		llm, err := NewOpenAILLMFromConfig(&LLMSettings{APIKey: "k", Model: "m", BaseURL: url + "/v1/"})
		require.NoError(t, err)

		_, err = llm.Complete(context.Background(), Prompt{User: "x"})
		assert.ErrorIs(t, err, ErrServiceUnavailable)
	})
}

func TestCompatLLM_Complete(t *testing.T) {
	var hits atomic.Int64
	var seen chatRequest
	srv := fakeChatServer(t, http.StatusOK, "Refined prompt.", &hits, &seen)
	defer srv.Close()

	llm, err := NewCompatLLMFromConfig(&LLMSettings{APIKey: "k", Model: "gemini-test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	got, err := llm.Complete(context.Background(), BuildEnhancePrompt("logo", PassRefine))
	require.NoError(t, err)
	assert.Equal(t, "Refined prompt.", got)
	assert.Equal(t, "gemini-test", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "5. Further refine")
}

func TestCompatLLM_Failures(t *testing.T) {
	var hits atomic.Int64
	srv := fakeChatServer(t, http.StatusForbidden, "", &hits, nil)
	defer srv.Close()
	llm, err := NewCompatLLMFromConfig(&LLMSettings{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = llm.Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	empty := fakeChatServer(t, http.StatusOK, "", &hits, nil)
	defer empty.Close()
	llm, err = NewCompatLLMFromConfig(&LLMSettings{APIKey: "k", Model: "m", BaseURL: empty.URL + "/v1"})
	require.NoError(t, err)

	_, err = llm.Complete(context.Background(), Prompt{User: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
