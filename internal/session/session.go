// Package session holds the per-user chat context: the knowledge base client,
// the transcript, the ingestion flags and the shell's state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/extract"
	"docchat/internal/knowledge"
	"docchat/internal/provider"
)

// ErrNotReady is returned when a handler is called in a state that does not
// allow it, including while another operation is in flight.
var ErrNotReady = errors.New("session not ready")

// State is a node of the shell's state machine.
type State int

const (
	NoFile State = iota
	FileUploaded
	FilePreviewed
	Ingesting
	IdleReady
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case NoFile:
		return "no file"
	case FileUploaded:
		return "file uploaded"
	case FilePreviewed:
		return "file previewed"
	case Ingesting:
		return "ingesting"
	case IdleReady:
		return "ready"
	case AwaitingResponse:
		return "awaiting response"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Level classifies a notice.
type Level int

const (
	Info Level = iota
	Success
	Failure
)

// Notice is a one-off message for the user.
type Notice struct {
	Level Level
	Text  string
}

// Session is one user's isolated chat context. Handlers are safe to call from
// any goroutine, but only one runs at a time.
type Session struct {
	ID string

	client knowledge.Base
	log    *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	busy      bool
	turns     []domain.Turn
	added     map[string]struct{}
	preloaded bool
	upload    *Upload
}

// New creates a session around client. The client lives as long as the session.
func New(client knowledge.Base, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		client: client,
		log:    log.With(zap.String("session", id)),
		now:    time.Now,
		state:  NoFile,
		added:  map[string]struct{}{},
	}
}

// Client returns the session's knowledge base.
func (s *Session) Client() knowledge.Base { return s.client }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.turns...)
}

// Added returns the identifiers of ingested sources, sorted.
func (s *Session) Added() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.added))
	for k := range s.added {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Session) Preloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preloaded
}

// Upload returns the current upload, if any.
func (s *Session) Upload() (Upload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return Upload{}, false
	}
	return *s.upload, true
}

// begin marks the session busy and moves it to next if the current state is
// one of allowed. It returns the state to restore or advance from.
func (s *Session) begin(next State, allowed ...State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return s.state, fmt.Errorf("%w: %s", ErrNotReady, s.state)
	}
	if len(allowed) > 0 {
		ok := false
		for _, a := range allowed {
			ok = ok || s.state == a
		}
		if !ok {
			return s.state, fmt.Errorf("%w: %s", ErrNotReady, s.state)
		}
	}
	prev := s.state
	s.busy = true
	s.state = next
	return prev, nil
}

func (s *Session) end(state State) {
	s.mu.Lock()
	s.busy = false
	s.state = state
	s.mu.Unlock()
}

// Open replaces the current upload.
func (s *Session) Open(u Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return fmt.Errorf("%w: %s", ErrNotReady, s.state)
	}
	s.upload = &u
	s.state = FileUploaded
	s.log.Info("file uploaded", zap.String("name", u.Name), zap.String("kind", string(u.Kind)), zap.Int("bytes", len(u.Content)))
	return nil
}

// Preview renders the current upload. On failure the session stays in
// FileUploaded and the error is returned for display.
func (s *Session) Preview(ctx context.Context) (extract.Preview, error) {
	prev, err := s.begin(FileUploaded, FileUploaded, FilePreviewed)
	if err != nil {
		return extract.Preview{}, err
	}
	u, _ := s.Upload()

	staged, err := Stage(u)
	if err != nil {
		s.end(prev)
		return extract.Preview{}, err
	}
	defer staged.Release()

	p, err := extract.Render(staged.Path, u.Kind)
	if err != nil {
		s.log.Warn("preview failed", zap.String("name", u.Name), zap.Error(err))
		s.end(FileUploaded)
		return extract.Preview{}, err
	}
	s.end(FilePreviewed)
	return p, nil
}

// AddToKnowledgeBase ingests the current upload. Failures are reported as a
// Failure notice, never as an error; the staged file is removed either way.
func (s *Session) AddToKnowledgeBase(ctx context.Context) (Notice, error) {
	prev, err := s.begin(Ingesting, FileUploaded, FilePreviewed, IdleReady)
	if err != nil {
		return Notice{}, err
	}
	u, ok := s.Upload()
	if !ok {
		s.end(prev)
		return Notice{}, fmt.Errorf("%w: no file uploaded", ErrNotReady)
	}
	notice := s.ingest(ctx, u)
	s.end(IdleReady)
	return notice, nil
}

func (s *Session) ingest(ctx context.Context, u Upload) Notice {
	id := u.Identifier()
	s.mu.Lock()
	_, done := s.added[id]
	s.mu.Unlock()
	if done {
		return Notice{Level: Info, Text: fmt.Sprintf("%s is already in the knowledge base.", u.Name)}
	}

	staged, err := Stage(u)
	if err != nil {
		return Notice{Level: Failure, Text: "Error adding file: " + err.Error()}
	}
	defer staged.Release()

	rep, err := s.client.Add(ctx, staged.Path, u.Kind, knowledge.WithDisplayName(u.Name))
	if err != nil {
		s.log.Warn("ingestion failed", zap.String("name", u.Name), zap.Error(err))
		return Notice{Level: Failure, Text: "Error adding file: " + err.Error()}
	}
	s.mu.Lock()
	s.added[id] = struct{}{}
	s.mu.Unlock()
	s.log.Info("file ingested", zap.String("name", u.Name), zap.Int("chunks", rep.Chunks), zap.Bool("skipped", rep.Skipped))
	return Notice{Level: Success, Text: fmt.Sprintf("Added %s to knowledge base!", u.Name)}
}

// EnsurePreloaded ingests the preload source once per session. A failed
// attempt leaves the flag clear and the state unchanged so the next call
// retries. It returns a zero Notice when there is nothing to do.
func (s *Session) EnsurePreloaded(ctx context.Context, src config.PreloadConfig) (Notice, error) {
	if src.URL == "" || s.Preloaded() {
		return Notice{}, nil
	}
	prev, err := s.begin(Ingesting)
	if err != nil {
		return Notice{}, err
	}
	next := prev
	defer func() { s.end(next) }()

	kind := domain.Kind(src.Kind)
	if kind == "" {
		if kind, err = domain.KindFromName(src.URL); err != nil {
			return Notice{Level: Failure, Text: "Error adding file: " + err.Error()}, nil
		}
	}
	opts := []knowledge.AddOption{}
	if src.Title != "" {
		opts = append(opts, knowledge.WithDisplayName(src.Title))
	}
	rep, err := s.client.Add(ctx, src.URL, kind, opts...)
	if err != nil {
		s.log.Warn("preload failed", zap.String("url", src.URL), zap.Error(err))
		return Notice{Level: Failure, Text: "Error adding file: " + err.Error()}, nil
	}
	s.mu.Lock()
	s.preloaded = true
	s.added[src.URL] = struct{}{}
	s.mu.Unlock()
	next = IdleReady
	s.log.Info("preload ingested", zap.String("url", src.URL), zap.Int("chunks", rep.Chunks), zap.Bool("skipped", rep.Skipped))
	return Notice{Level: Success, Text: "Preloaded file added to knowledge base!"}, nil
}

// Ask sends prompt to the knowledge base. On success the user and assistant
// turns are appended in that order; on failure nothing is appended.
func (s *Session) Ask(ctx context.Context, prompt string, sink provider.Sink) (string, error) {
	prev, err := s.begin(AwaitingResponse)
	if err != nil {
		return "", err
	}
	history := s.Turns()
	asked := s.now()

	answer, err := s.client.Chat(ctx, prompt, knowledge.WithHistory(history), knowledge.WithSink(sink))
	if err != nil {
		s.log.Warn("chat failed", zap.Error(err))
		s.end(prev)
		return "", err
	}

	s.mu.Lock()
	s.turns = append(s.turns,
		domain.Turn{Role: domain.RoleUser, Content: prompt, At: asked},
		domain.Turn{Role: domain.RoleAssistant, Content: answer, At: s.now()},
	)
	s.mu.Unlock()
	s.end(IdleReady)
	return answer, nil
}

// ClearHistory empties the transcript. The client and ingestion flags are kept.
func (s *Session) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return fmt.Errorf("%w: %s", ErrNotReady, s.state)
	}
	s.turns = nil
	s.state = IdleReady
	return nil
}

// Close releases the knowledge base.
func (s *Session) Close() error { return s.client.Close() }
