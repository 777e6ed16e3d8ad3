package generator

import (
	"context"
	"fmt"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Provider names accepted by NewLLM.
const (
	ProviderOpenAI     = "openai"
	ProviderDeepSeek   = "deepseek"
	ProviderGemini     = "gemini"
	ProviderCompatible = "compatible"
)

// NewLLM picks the client implementation for cfg.Provider.
func NewLLM(cfg *LLMSettings) (LLMClient, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model/api_key in config")
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAILLMFromConfig(cfg)
	case ProviderDeepSeek:
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(cfg)
	case ProviderGemini:
		settings := *cfg
		if settings.BaseURL == "" {
			settings.BaseURL = GeminiBaseURL
		}
		if settings.Model == "" {
			settings.Model = GeminiDefaultModel
		}
		return NewCompatLLMFromConfig(&settings)
	case ProviderCompatible:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider compatible requires base_url")
		}
		return NewCompatLLMFromConfig(cfg)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
