package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prompt_enhancer/clipboard"
	"prompt_enhancer/generator"
	"prompt_enhancer/tui"
)

func tuiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive terminal enhancer (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), flags)
		},
	}
}

func runTUI(ctx context.Context, flags *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// the terminal belongs to the UI; logs only go to a file
	logger, closeLog, err := openLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	agent, err := newAgent(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := generator.NewSession(uuid.NewString(), agent,
		generator.WithClipboard(clipboard.System{}),
		generator.WithSessionLogger(logger),
	)
	defer sess.Close()

	logger.Info("starting terminal enhancer", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "version", version)
	return tui.Run(ctx, sess, tui.WithLogger(logger))
}
