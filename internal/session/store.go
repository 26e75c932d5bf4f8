package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"docchat/internal/knowledge"
)

// Factory creates the knowledge base for a new session.
type Factory func(ctx context.Context) (knowledge.Base, error)

// Store keeps one session per connected user.
type Store struct {
	factory Factory
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(factory Factory, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{factory: factory, log: log, sessions: map[string]*Session{}}
}

// Create builds a session with a fresh client.
func (st *Store) Create(ctx context.Context) (*Session, error) {
	client, err := st.factory(ctx)
	if err != nil {
		return nil, err
	}
	s := New(client, st.log)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.log.Info("session created", zap.String("session", s.ID))
	return s, nil
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Close ends the session and releases its client.
func (st *Store) Close(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close()
}

// CloseAll ends every session.
func (st *Store) CloseAll() error {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = map[string]*Session{}
	st.mu.Unlock()
	var errs []error
	for _, s := range sessions {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
