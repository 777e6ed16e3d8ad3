// Package main is the entry point for the prompt-enhancer CLI.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"prompt_enhancer/config"
	"prompt_enhancer/generator"
	"prompt_enhancer/logging"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "prompt-enhancer",
		Short: "Rewrite short prompts into detailed ones",
		Long: `prompt-enhancer asks a text generation model to rewrite a short instruction
into a more detailed, higher-quality prompt, and can keep refining its own output.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. Config file (--config, YAML or JSON)
  3. .env file (--env-file, or .env in the current directory)
  4. Environment variables

Environment variables:
  ENHANCER_LLM_PROVIDER    openai, deepseek, gemini, compatible (default: openai)
  ENHANCER_LLM_MODEL       Model identifier (default: gpt-4o-mini)
  ENHANCER_LLM_API_KEY     API key (falls back to OPENAI_API_KEY, GEMINI_API_KEY, DEEPSEEK_API_KEY)
  ENHANCER_LLM_BASE_URL    OpenAI-compatible endpoint
  ENHANCER_SERVER_ADDR     Listen address for serve (default: :8080)
  ENHANCER_LOG_LEVEL       DEBUG, INFO, WARN, ERROR (default: INFO)
  ENHANCER_LOG_FORMAT      pretty, json (default: pretty)
  ENHANCER_LOG_FILE        Write logs to this file`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML or JSON config file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(tuiCmd(flags))
	cmd.AddCommand(serveCmd(flags))
	cmd.AddCommand(enhanceCmd(flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads and validates configuration for commands that call the model.
func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newAgent builds the text generation client described by cfg.
func newAgent(cfg config.Config, logger *slog.Logger, opts ...generator.AgentOption) (*generator.Agent, error) {
	llm, err := generator.NewLLM(&generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	opts = append(opts, generator.WithAgentLogger(logger))
	return generator.NewAgent(llm, opts...)
}

// openLogger honors log.file and otherwise writes to fallback.
func openLogger(cfg config.Config, fallback io.Writer) (*slog.Logger, func(), error) {
	logger, closer, err := logging.Open(cfg.Log, fallback)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = closer.Close() }, nil
}
