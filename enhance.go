package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"prompt_enhancer/clipboard"
	"prompt_enhancer/generator"
)

func enhanceCmd(flags *globalFlags) *cobra.Command {
	var (
		passes  int
		copyOut bool
	)

	cmd := &cobra.Command{
		Use:   "enhance [flags] <prompt...>",
		Short: "Enhance a prompt once and print the result",
		Long: `Enhance a prompt and print the result to stdout.

The first pass rewrites the given prompt; every further pass (--passes)
refines the previous output. Use "-" to read the prompt from stdin.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, closeLog, err := openLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			agent, err := newAgent(cfg, logger)
			if err != nil {
				return err
			}
			sess := generator.NewSession(uuid.NewString(), agent,
				generator.WithClipboard(clipboard.System{}),
				generator.WithSessionLogger(logger),
			)
			defer sess.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runEnhance(ctx, sess, cmd.OutOrStdout(), input, passes, copyOut)
		},
	}

	cmd.Flags().IntVarP(&passes, "passes", "n", 1, "Number of enhancement passes (first pass plus refinements)")
	cmd.Flags().BoolVar(&copyOut, "copy", false, "Copy the final prompt to the clipboard")

	return cmd
}

// runEnhance drives sess through the requested passes and prints the final text.
func runEnhance(ctx context.Context, sess *generator.Session, out io.Writer, input string, passes int, copyResult bool) error {
	if passes < 1 {
		return fmt.Errorf("--passes must be at least 1, got %d", passes)
	}
	if err := sess.Enhance(ctx, input); err != nil {
		return enhanceError(err)
	}
	for i := 1; i < passes; i++ {
		if err := sess.EnhanceFurther(ctx); err != nil {
			return enhanceError(err)
		}
	}

	st := sess.Snapshot()
	if _, err := fmt.Fprintln(out, st.Current); err != nil {
		return err
	}
	if copyResult {
		// a clipboard failure never fails the command; the session logs it
		_ = sess.Copy()
	}
	return nil
}

func enhanceError(err error) error {
	if errors.Is(err, generator.ErrSkipped) {
		return errors.New("prompt is empty")
	}
	return errors.New(generator.UserMessage(err))
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}
