package server

import (
	"sync"
	"time"

	"prompt_enhancer/generator"
)

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*generator.Session
}

func newStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*generator.Session)}
}

func (s *sessionStore) set(id string, sess *generator.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = sess
}

func (s *sessionStore) get(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) remove(id string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	return sess, ok
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// expire removes sessions idle since before cutoff. Pending sessions stay.
func (s *sessionStore) expire(cutoff time.Time) []*generator.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var gone []*generator.Session
	for id, sess := range s.sessions {
		st := sess.Snapshot()
		if st.Pending || st.UpdatedAt.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		gone = append(gone, sess)
	}
	return gone
}

func (s *sessionStore) drain() []*generator.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]*generator.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		delete(s.sessions, id)
		all = append(all, sess)
	}
	return all
}
