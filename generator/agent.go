package generator

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Recorder receives the outcome of every enhancement pass and copy.
type Recorder interface {
	ObservePass(pass Pass, outcome string, elapsed time.Duration)
	ObserveCopy(ok bool)
}

// Outcome labels passed to Recorder.
const (
	OutcomeSuccess     = "success"
	OutcomeUnavailable = "unavailable"
	OutcomeAuth        = "auth"
	OutcomeEmpty       = "empty"
	OutcomeUnknown     = "unknown"
)

// Agent 负责把一段文本交给模型改写成更详细的提示词。
type Agent struct {
	llm      LLMClient
	recorder Recorder
	logger   *slog.Logger
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

// WithRecorder reports pass outcomes, typically to metrics.
func WithRecorder(r Recorder) AgentOption {
	return func(a *Agent) { a.recorder = r }
}

// WithAgentLogger sets the logger used for pass diagnostics.
func WithAgentLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

func NewAgent(llm LLMClient, opts ...AgentOption) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	a := &Agent{llm: llm, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Enhance 根据 pass 决定首轮扩写或在上次结果上继续细化。
func (a *Agent) Enhance(ctx context.Context, base string, pass Pass) (string, error) {
	start := time.Now()
	prompt := BuildEnhancePrompt(base, pass)

	raw, err := a.llm.Complete(ctx, prompt)
	if err == nil {
		raw, err = PostProcess(raw)
	}
	elapsed := time.Since(start)
	if err != nil {
		err = asServiceError(err)
		a.observe(pass, outcomeOf(err), elapsed)
		a.logger.Warn("enhancement pass failed", "pass", pass.String(), "elapsed", elapsed, "error", err)
		return "", err
	}
	a.observe(pass, OutcomeSuccess, elapsed)
	a.logger.Debug("enhancement pass done", "pass", pass.String(), "elapsed", elapsed, "chars", len(raw))
	return raw, nil
}

func (a *Agent) observe(pass Pass, outcome string, elapsed time.Duration) {
	if a.recorder != nil {
		a.recorder.ObservePass(pass, outcome, elapsed)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, ErrAuthenticationFailed):
		return OutcomeAuth
	case errors.Is(err, ErrEmptyResponse):
		return OutcomeEmpty
	default:
		return OutcomeUnknown
	}
}
