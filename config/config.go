// Package config loads prompt-enhancer settings from a config file, an
// optional .env file and ENHANCER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultProvider   = "openai"
	DefaultModel      = "gpt-4o-mini"
	DefaultServerAddr = ":8080"
	DefaultLogLevel   = "INFO"
	DefaultLogFormat  = LogFormatPretty
)

// Log formats.
const (
	LogFormatPretty = "pretty"
	LogFormatJSON   = "json"
)

var knownProviders = map[string]bool{
	"openai":     true,
	"deepseek":   true,
	"gemini":     true,
	"compatible": true,
}

// providers that have no default endpoint
var needsBaseURL = map[string]bool{
	"deepseek":   true,
	"compatible": true,
}

// Config holds everything the CLI needs to build a session.
type Config struct {
	LLM        LLMConfig `yaml:"llm" json:"llm"`
	ServerAddr string    `yaml:"server_addr" json:"server_addr,omitempty"`
	Log        LogConfig `yaml:"log" json:"log"`
}

// LLMConfig selects and authenticates the text generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider,omitempty"`
	Model    string `yaml:"model" json:"model,omitempty"`
	APIKey   string `yaml:"api_key" json:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url" json:"base_url,omitempty"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `yaml:"level" json:"level,omitempty"`
	Format string `yaml:"format" json:"format,omitempty"`
	File   string `yaml:"file" json:"file,omitempty"`
}

// Load reads path (YAML or JSON; skipped when empty), then envFile, then the
// environment, and returns the normalized result. It does not validate.
func Load(path, envFile string) (Config, error) {
	var cfg Config
	if path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = fileCfg
	}

	if err := LoadDotEnv(envFile); err != nil {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	env, err := LoadFromEnv()
	if err != nil {
		return Config{}, err
	}
	return env.Apply(cfg).Normalize(), nil
}

// LoadFile parses a config file. JSON is a subset of YAML, so both work.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Normalize fills defaults and tidies values.
func (c Config) Normalize() Config {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = DefaultProvider
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	// gemini picks its own default model
	if c.LLM.Model == "" && c.LLM.Provider != "gemini" {
		c.LLM.Model = DefaultModel
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.ServerAddr == "" {
		c.ServerAddr = DefaultServerAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format != LogFormatJSON {
		c.Log.Format = LogFormatPretty
	}
	return c
}

// Validate reports settings that would make every enhancement fail.
func (c Config) Validate() error {
	var errs []error
	if !knownProviders[c.LLM.Provider] {
		errs = append(errs, fmt.Errorf("llm provider %q not supported", c.LLM.Provider))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, errors.New("llm api key missing; set llm.api_key or ENHANCER_LLM_API_KEY"))
	}
	if needsBaseURL[c.LLM.Provider] && c.LLM.BaseURL == "" {
		errs = append(errs, fmt.Errorf("llm provider %s requires base_url (OpenAI-compatible endpoint)", c.LLM.Provider))
	}
	return errors.Join(errs...)
}
