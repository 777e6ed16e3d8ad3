package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCopyAckDelay is how long Copied stays set after a successful copy.
const DefaultCopyAckDelay = 2 * time.Second

// ErrSuperseded is returned by the synchronous helpers when a reset landed
// while the request was in flight and its result was dropped.
var ErrSuperseded = errors.New("result superseded by reset")

var errNoClipboard = errors.New("no clipboard configured")

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// ClipboardFunc adapts a plain function to Clipboard.
type ClipboardFunc func(text string) error

func (f ClipboardFunc) WriteText(text string) error { return f(text) }

// Session 持有一次改写会话的全部视图状态。
//
// Every request is tagged with the session epoch and a sequence number;
// Reset bumps the epoch so a result that arrives afterwards is dropped.
type Session struct {
	ID string

	agent     *Agent
	clipboard Clipboard
	ackDelay  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	state     State
	epoch     uint64
	seq       uint64
	inflight  uint64
	copyTimer *time.Timer
	copyToken uint64
	subs      map[int]chan State
	nextSub   int
	closed    bool
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithClipboard sets where Copy writes to.
func WithClipboard(c Clipboard) SessionOption {
	return func(s *Session) { s.clipboard = c }
}

// WithCopyAckDelay overrides DefaultCopyAckDelay.
func WithCopyAckDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.ackDelay = d
		}
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession 创建 session，尚未生成任何内容。
func NewSession(id string, agent *Agent, opts ...SessionOption) *Session {
	s := &Session{
		ID:       id,
		agent:    agent,
		ackDelay: DefaultCopyAckDelay,
		logger:   slog.Default(),
		now:      time.Now,
		subs:     make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", id)
	s.state.UpdatedAt = s.now()
	return s
}

// Task is one issued enhancement request. Run performs the service call;
// the result must be handed back to Session.Apply.
type Task struct {
	agent *Agent
	id    uint64
	epoch uint64
	pass  Pass
	base  string
}

func (t *Task) Pass() Pass    { return t.pass }
func (t *Task) Base() string  { return t.base }
func (t *Task) Epoch() uint64 { return t.epoch }

// Result is the tagged outcome of a Task.
type Result struct {
	Text string
	Err  error

	id    uint64
	epoch uint64
	pass  Pass
}

// Run calls the text generation service. It is safe to call from any goroutine.
func (t *Task) Run(ctx context.Context) Result {
	text, err := t.agent.Enhance(ctx, t.base, t.pass)
	return Result{Text: text, Err: err, id: t.id, epoch: t.epoch, pass: t.pass}
}

// SetInput records text entry. No validation happens until Submit.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Input == text {
		return
	}
	s.state.Input = text
	s.changedLocked()
}

// Submit starts a pass over input. It reports false, leaving the state
// untouched, when input is blank or a request is already pending. Once the
// session has produced text, a new submission is sent as a refinement so the
// model keeps building on the earlier passes.
func (s *Session) Submit(input string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	base := strings.TrimSpace(input)
	if base == "" || s.state.Pending {
		return nil, false
	}
	s.state.Input = input
	pass := PassInitial
	if s.state.Iterations > 0 {
		pass = PassRefine
	}
	return s.beginLocked(base, pass), true
}

// ReEnhance starts a refinement pass over the current text. It reports false
// when nothing has been generated yet or a request is already pending.
func (s *Session) ReEnhance() (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Current == "" || s.state.Pending {
		return nil, false
	}
	return s.beginLocked(s.state.Current, PassRefine), true
}

func (s *Session) beginLocked(base string, pass Pass) *Task {
	s.seq++
	s.inflight = s.seq
	s.state.Pending = true
	s.state.LastError = ""
	s.changedLocked()
	s.logger.Info("enhancement requested", "pass", pass.String(), "request", s.seq, "epoch", s.epoch)
	return &Task{agent: s.agent, id: s.seq, epoch: s.epoch, pass: pass, base: base}
}

// Apply folds a result into the state. Results from a superseded request
// (older epoch, or not the outstanding one) are dropped and Apply reports false.
func (s *Session) Apply(r Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.epoch != s.epoch || r.id == 0 || r.id != s.inflight {
		s.logger.Debug("dropping stale result", "request", r.id, "epoch", r.epoch, "current_epoch", s.epoch)
		return false
	}
	s.inflight = 0
	s.state.Pending = false
	if r.Err != nil {
		s.state.LastError = UserMessage(r.Err)
		s.logger.Error("error generating prompt", "pass", r.pass.String(), "error", r.Err)
	} else {
		s.state.Current = r.Text
		s.state.Iterations++
		s.state.LastPass = r.pass
		s.logger.Info("enhancement applied", "pass", r.pass.String(), "iterations", s.state.Iterations)
	}
	s.changedLocked()
	return true
}

// Enhance runs Submit, the service call and Apply in one go.
func (s *Session) Enhance(ctx context.Context, input string) error {
	task, ok := s.Submit(input)
	if !ok {
		return ErrSkipped
	}
	return s.finish(ctx, task)
}

// EnhanceFurther runs ReEnhance, the service call and Apply in one go.
func (s *Session) EnhanceFurther(ctx context.Context) error {
	task, ok := s.ReEnhance()
	if !ok {
		return ErrSkipped
	}
	return s.finish(ctx, task)
}

func (s *Session) finish(ctx context.Context, task *Task) error {
	r := task.Run(ctx)
	if !s.Apply(r) {
		return ErrSuperseded
	}
	return r.Err
}

// Copy writes the current text to the clipboard and raises Copied for the
// ack delay. A clipboard failure is logged and returned but never shown as
// a session error.
func (s *Session) Copy() error {
	s.mu.Lock()
	text, epoch := s.state.Current, s.epoch
	s.mu.Unlock()
	if text == "" {
		return ErrSkipped
	}
	if s.clipboard == nil {
		s.observeCopy(false)
		s.logger.Warn("failed to copy text", "error", errNoClipboard)
		return errNoClipboard
	}

	if err := s.clipboard.WriteText(text); err != nil {
		s.observeCopy(false)
		s.logger.Warn("failed to copy text", "error", err)
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	s.observeCopy(true)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.closed {
		return nil
	}
	s.stopCopyTimerLocked()
	s.copyToken++
	token := s.copyToken
	s.state.Copied = true
	s.copyTimer = time.AfterFunc(s.ackDelay, func() { s.clearCopied(token) })
	s.changedLocked()
	return nil
}

func (s *Session) clearCopied(token uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.copyToken || !s.state.Copied {
		return
	}
	s.copyTimer = nil
	s.state.Copied = false
	s.changedLocked()
}

func (s *Session) stopCopyTimerLocked() {
	if s.copyTimer != nil {
		s.copyTimer.Stop()
		s.copyTimer = nil
	}
	// a timer that already fired but is waiting on mu must not clear a newer ack
	s.copyToken++
}

// Reset returns the session to its initial state. A request still in flight
// keeps running, but its result is dropped when it arrives.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCopyTimerLocked()
	s.epoch++
	s.inflight = 0
	s.state = State{}
	s.changedLocked()
	s.logger.Info("session reset", "epoch", s.epoch)
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	st.Epoch = s.epoch
	return st
}

// Subscribe delivers the current state and every later change. A slow reader
// only ever sees the most recent state. Call the returned func to stop.
func (s *Session) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

// Close stops the copy timer and ends all subscriptions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopCopyTimerLocked()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Session) changedLocked() {
	s.state.UpdatedAt = s.now()
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			// replace the unread state with the newer one
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func (s *Session) observeCopy(ok bool) {
	if s.agent != nil && s.agent.recorder != nil {
		s.agent.recorder.ObserveCopy(ok)
	}
}
