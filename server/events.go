package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"prompt_enhancer/generator"
)

const eventWriteTimeout = 5 * time.Second

// handleEvents streams session snapshots over a websocket until the client
// goes away or the session is closed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, sess *generator.Session) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "session", sess.ID, "error", err)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			s.logger.Debug("websocket close", "session", sess.ID, "error", closeErr)
		}
	}()

	updates, stop := sess.Subscribe()
	defer stop()

	// clients never send anything; CloseRead handles pings and tells us when they leave
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeEvent(ctx, conn, sess.ID, st); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("websocket write failed", "session", sess.ID, "error", err)
				}
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, id string, st generator.State) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, s.stateResponse(id, st))
}
