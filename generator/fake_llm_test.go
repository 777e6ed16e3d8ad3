package generator

import (
	"context"
	"sync"
	"time"
)

// fakeLLM returns scripted replies in order and records every prompt.
type fakeLLM struct {
	mu      sync.Mutex
	replies []fakeReply
	prompts []Prompt
	gate    chan struct{}
}

type fakeReply struct {
	text string
	err  error
}

func newFakeLLM(replies ...fakeReply) *fakeLLM {
	return &fakeLLM{replies: replies}
}

func (f *fakeLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	gate := f.gate
	var r fakeReply
	if len(f.replies) > 0 {
		r = f.replies[0]
		f.replies = f.replies[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.text, r.err
}

func (f *fakeLLM) calls() []Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Prompt(nil), f.prompts...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	passes []string
	copies []bool
}

func (r *fakeRecorder) ObservePass(pass Pass, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, pass.String()+":"+outcome)
}

func (r *fakeRecorder) ObserveCopy(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.copies = append(r.copies, ok)
}
