package generator

import (
	"context"
	"errors"

	goopenai "github.com/sashabaranov/go-openai"
)

// Gemini exposes an OpenAI-compatible chat endpoint.
const (
	GeminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GeminiDefaultModel = "gemini-2.0-flash"
)

// CompatLLM talks to any OpenAI-compatible endpoint through go-openai.
type CompatLLM struct {
	client *goopenai.Client
	model  string
}

func NewCompatLLMFromConfig(cfg *LLMSettings) (*CompatLLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key missing; provide llm.api_key")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	config := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &CompatLLM{client: goopenai.NewClientWithConfig(config), model: cfg.Model}, nil
}

func (c *CompatLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var msgs []goopenai.ChatCompletionMessage
	if prompt.System != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: prompt.System})
	}
	msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: prompt.User})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", classifyCompatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", newServiceError(ErrEmptyResponse, 0, "no choices in response", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyCompatError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}
	return classifyTransport(err)
}

var _ LLMClient = (*CompatLLM)(nil)
