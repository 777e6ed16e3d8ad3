package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"prompt_enhancer/generator"
	"prompt_enhancer/metrics"
)

//go:embed web/dist
var embeddedStatic embed.FS

// DefaultSessionTTL is how long an idle browser session is kept.
const DefaultSessionTTL = time.Hour

type Server struct {
	genAgent *generator.Agent
	metrics  *metrics.Exporter
	store    *sessionStore
	staticFS http.Handler
	logger   *slog.Logger
	ackDelay time.Duration
	ttl      time.Duration

	// background enhancement requests run on baseCtx, not the request context
	baseCtx  context.Context
	inflight sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics records passes, copies and live sessions.
func WithMetrics(m *metrics.Exporter) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSessionTTL sets how long idle sessions survive.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithCopyAckDelay overrides the copy acknowledgement delay of new sessions.
func WithCopyAckDelay(d time.Duration) Option {
	return func(s *Server) { s.ackDelay = d }
}

// New builds the web surface. Enhancement requests started through it run
// on ctx; cancel it only when shutting down.
func New(ctx context.Context, genAgent *generator.Agent, opts ...Option) (*Server, error) {
	if genAgent == nil {
		return nil, errors.New("generator agent required")
	}

	sub, err := fs.Sub(embeddedStatic, "web/dist")
	if err != nil {
		return nil, err
	}

	s := &Server{
		genAgent: genAgent,
		store:    newStore(),
		staticFS: http.FileServer(http.FS(sub)),
		logger:   slog.Default(),
		ttl:      DefaultSessionTTL,
		baseCtx:  ctx,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(s.logMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleSessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.handleSessionGet))
			r.Delete("/", s.handleSessionDelete)
			r.Put("/input", s.withSession(s.handleInput))
			r.Post("/enhance", s.withSession(s.handleEnhance))
			r.Post("/refine", s.withSession(s.handleRefine))
			r.Post("/copy", s.withSession(s.handleCopy))
			r.Post("/reset", s.withSession(s.handleReset))
			r.Get("/events", s.withSession(s.handleEvents))
		})
	})

	r.Handle("/*", s.staticHandler())
	return r
}

func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		// fall back to index.html for SPA-ish behavior
		if r.URL.Path != "/" {
			if _, err := fs.Stat(embeddedStatic, "web/dist"+r.URL.Path); err != nil {
				r.URL.Path = "/"
			}
		}
		s.staticFS.ServeHTTP(w, r)
	})
}

// --- Session lifecycle ---

func (s *Server) newSession() *generator.Session {
	id := uuid.NewString()
	opts := []generator.SessionOption{
		generator.WithSessionLogger(s.logger),
		// the browser writes its own clipboard before calling /copy
		generator.WithClipboard(generator.ClipboardFunc(func(string) error { return nil })),
	}
	if s.ackDelay > 0 {
		opts = append(opts, generator.WithCopyAckDelay(s.ackDelay))
	}
	sess := generator.NewSession(id, s.genAgent, opts...)
	s.store.set(id, sess)
	if s.metrics != nil {
		s.metrics.SessionOpened()
	}
	return sess
}

func (s *Server) closeSession(sess *generator.Session) {
	sess.Close()
	if s.metrics != nil {
		s.metrics.SessionClosed()
	}
}

// start runs task in the background and folds its result into sess.
func (s *Server) start(sess *generator.Session, task *generator.Task) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if !sess.Apply(task.Run(s.baseCtx)) {
			s.logger.Debug("result dropped after reset", "session", sess.ID)
		}
	}()
}

// Janitor expires idle sessions until ctx is done.
func (s *Server) Janitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.expireIdle(now)
		}
	}
}

func (s *Server) expireIdle(now time.Time) int {
	gone := s.store.expire(now.Add(-s.ttl))
	for _, sess := range gone {
		s.closeSession(sess)
	}
	if len(gone) > 0 {
		s.logger.Info("expired idle sessions", "count", len(gone), "remaining", s.store.len())
	}
	return len(gone)
}

// Close waits for background requests and ends every session.
func (s *Server) Close() {
	s.inflight.Wait()
	for _, sess := range s.store.drain() {
		s.closeSession(sess)
	}
}

// --- Handlers ---

type inputReq struct {
	Input *string `json:"input"`
}

type sessionResp struct {
	SessionID   string          `json:"session_id"`
	State       generator.State `json:"state"`
	CurrentHTML string          `json:"current_html,omitempty"`
}

type copyResp struct {
	Text  string          `json:"text"`
	State generator.State `json:"state"`
}

type errorResp struct {
	Error string `json:"error"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *generator.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.store.get(chi.URLParam(r, "id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResp{Error: "session not found"})
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.newSession()
	s.logger.Info("session created", "session", sess.ID, "request_id", chiMiddleware.GetReqID(r.Context()))
	s.writeState(w, http.StatusCreated, sess.ID, sess.Snapshot())
}

func (s *Server) handleSessionGet(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	s.writeState(w, http.StatusOK, sess.ID, sess.Snapshot())
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.store.remove(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Error: "session not found"})
		return
	}
	s.closeSession(sess)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	req, err := decodeInput(r)
	if err != nil || req.Input == nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "input is required"})
		return
	}
	sess.SetInput(*req.Input)
	s.writeState(w, http.StatusOK, sess.ID, sess.Snapshot())
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	req, err := decodeInput(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	input := sess.Snapshot().Input
	if req.Input != nil {
		input = *req.Input
	}
	task, ok := sess.Submit(input)
	if !ok {
		s.writeState(w, http.StatusConflict, sess.ID, sess.Snapshot())
		return
	}
	s.start(sess, task)
	s.writeState(w, http.StatusAccepted, sess.ID, sess.Snapshot())
}

func (s *Server) handleRefine(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	task, ok := sess.ReEnhance()
	if !ok {
		s.writeState(w, http.StatusConflict, sess.ID, sess.Snapshot())
		return
	}
	s.start(sess, task)
	s.writeState(w, http.StatusAccepted, sess.ID, sess.Snapshot())
}

func (s *Server) handleCopy(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	err := sess.Copy()
	switch {
	case errors.Is(err, generator.ErrSkipped):
		s.writeState(w, http.StatusConflict, sess.ID, sess.Snapshot())
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	st := sess.Snapshot()
	writeJSON(w, http.StatusOK, copyResp{Text: st.Current, State: st})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request, sess *generator.Session) {
	sess.Reset()
	s.writeState(w, http.StatusOK, sess.ID, sess.Snapshot())
}

// --- Helpers ---

func decodeInput(r *http.Request) (inputReq, error) {
	var req inputReq
	if r.Body == nil {
		return req, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return inputReq{}, err
	}
	return req, nil
}

func (s *Server) stateResponse(id string, st generator.State) sessionResp {
	resp := sessionResp{SessionID: id, State: st}
	html, err := mdToHTML(st.Current)
	if err != nil {
		s.logger.Warn("render markdown failed", "session", id, "error", err)
	}
	resp.CurrentHTML = html
	return resp
}

func (s *Server) writeState(w http.ResponseWriter, status int, id string, st generator.State) {
	writeJSON(w, status, s.stateResponse(id, st))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"path", path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
