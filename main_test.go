package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prompt_enhancer/generator"
)

type cannedLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts []generator.Prompt
}

func (l *cannedLLM) Complete(_ context.Context, prompt generator.Prompt) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	r := l.replies[0]
	l.replies = l.replies[1:]
	return r, nil
}

func newCLISession(t *testing.T, llm generator.LLMClient) *generator.Session {
	t.Helper()
	agent, err := generator.NewAgent(llm)
	require.NoError(t, err)
	sess := generator.NewSession("cli", agent)
	t.Cleanup(sess.Close)
	return sess
}

func TestRunEnhance_MultiplePasses(t *testing.T) {
	llm := &cannedLLM{replies: []string{"first", "second", "third"}}
	sess := newCLISession(t, llm)
	var out bytes.Buffer

	require.NoError(t, runEnhance(context.Background(), sess, &out, "Create a logo", 3, false))

	assert.Equal(t, "third\n", out.String())
	assert.Equal(t, 3, sess.Snapshot().Iterations)
	require.Len(t, llm.prompts, 3)
	assert.Contains(t, llm.prompts[2].User, `"second"`)
}

func TestRunEnhance_Errors(t *testing.T) {
	var out bytes.Buffer

	err := runEnhance(context.Background(), newCLISession(t, &cannedLLM{}), &out, "x", 0, false)
	require.Error(t, err)

	err = runEnhance(context.Background(), newCLISession(t, &cannedLLM{}), &out, "   ", 1, false)
	require.EqualError(t, err, "prompt is empty")

	llm := &cannedLLM{err: errors.New("invalid key")}
	err = runEnhance(context.Background(), newCLISession(t, llm), &out, "x", 1, false)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failed to generate prompt: "))
	assert.Empty(t, out.String())
}

func TestReadPrompt(t *testing.T) {
	got, err := readPrompt(strings.NewReader("ignored"), []string{"Create", "a", "logo"})
	require.NoError(t, err)
	assert.Equal(t, "Create a logo", got)

	got, err = readPrompt(strings.NewReader("from stdin\n"), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "from stdin\n", got)
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "prompt-enhancer version dev")
}

func TestEnhanceCommandRequiresAPIKey(t *testing.T) {
	for _, key := range []string{"ENHANCER_LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "DEEPSEEK_API_KEY", "ENHANCER_LLM_PROVIDER"} {
		t.Setenv(key, "")
	}
	cmd := rootCmd()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	cmd.SetOut(&stderr)
	cmd.SetArgs([]string{"--env-file", t.TempDir() + "/missing.env", "enhance", "hello"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key missing")
}
