package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable in EnvConfig.
const EnvPrefix = "ENHANCER"

// EnvConfig mirrors Config as environment variables. Unset variables leave
// the file value alone. Each variable is also read without the prefix when
// the prefixed one is absent, so plain OPENAI_API_KEY works.
type EnvConfig struct {
	LLMProvider string `envconfig:"LLM_PROVIDER"`
	LLMModel    string `envconfig:"LLM_MODEL"`
	LLMAPIKey   string `envconfig:"LLM_API_KEY"`
	LLMBaseURL  string `envconfig:"LLM_BASE_URL"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	DeepSeekAPIKey string `envconfig:"DEEPSEEK_API_KEY"`

	ServerAddr string `envconfig:"SERVER_ADDR"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	LogFormat  string `envconfig:"LOG_FORMAT"`
	LogFile    string `envconfig:"LOG_FILE"`
}

// LoadFromEnv reads ENHANCER_* variables.
func LoadFromEnv() (EnvConfig, error) {
	var env EnvConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return EnvConfig{}, err
	}
	return env, nil
}

// Apply overlays the set variables onto cfg.
func (e EnvConfig) Apply(cfg Config) Config {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.LLM.Provider, e.LLMProvider)
	set(&cfg.LLM.Model, e.LLMModel)
	set(&cfg.LLM.APIKey, e.LLMAPIKey)
	set(&cfg.LLM.BaseURL, e.LLMBaseURL)
	set(&cfg.ServerAddr, e.ServerAddr)
	set(&cfg.Log.Level, e.LogLevel)
	set(&cfg.Log.Format, e.LogFormat)
	set(&cfg.Log.File, e.LogFile)

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = e.providerKey(cfg.LLM.Provider)
	}
	return cfg
}

// providerKey falls back to the vendor's conventional variable.
func (e EnvConfig) providerKey(provider string) string {
	switch provider {
	case "gemini":
		return e.GeminiAPIKey
	case "deepseek":
		return e.DeepSeekAPIKey
	case "", "openai":
		return e.OpenAIAPIKey
	default:
		return ""
	}
}

// LoadDotEnv loads environment variables from a .env file.
// If path is empty, it loads from ".env" in the current directory.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
