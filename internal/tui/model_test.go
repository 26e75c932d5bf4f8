package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/extract"
	"docchat/internal/provider"
	"docchat/internal/session"
)

type fakeSession struct {
	mu       sync.Mutex
	turns    []domain.Turn
	opened   []string
	chunks   []string
	answer   string
	askErr   error
	notice   session.Notice
	preview  extract.Preview
	broken   string
	adds     int
	cleared  int
	preloads int
}

func (f *fakeSession) Open(u session.Upload) error {
	f.opened = append(f.opened, u.Name)
	return nil
}

func (f *fakeSession) Preview(context.Context) (extract.Preview, error) {
	if n := len(f.opened); n > 0 && f.opened[n-1] == f.broken {
		return extract.Preview{}, errors.New("not a docx archive")
	}
	return f.preview, nil
}

func (f *fakeSession) AddToKnowledgeBase(context.Context) (session.Notice, error) {
	f.adds++
	return f.notice, nil
}

func (f *fakeSession) EnsurePreloaded(context.Context, config.PreloadConfig) (session.Notice, error) {
	f.preloads++
	return session.Notice{Level: session.Success, Text: "Preloaded file added to knowledge base!"}, nil
}

func (f *fakeSession) Ask(ctx context.Context, prompt string, sink provider.Sink) (string, error) {
	for _, c := range f.chunks {
		if err := sink(ctx, c); err != nil {
			return "", err
		}
	}
	if f.askErr != nil {
		return "", f.askErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns,
		domain.Turn{Role: domain.RoleUser, Content: prompt},
		domain.Turn{Role: domain.RoleAssistant, Content: f.answer})
	return f.answer, nil
}

func (f *fakeSession) ClearHistory() error { f.cleared++; f.turns = nil; return nil }

func (f *fakeSession) Turns() []domain.Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Turn(nil), f.turns...)
}

func newModel(fs *fakeSession, preload config.PreloadConfig) *Model {
	m := New(context.Background(), fs, "docchat", preload)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+a":
		return tea.KeyMsg{Type: tea.KeyCtrlA}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and feeds its messages back until nothing is left.
func drain(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func TestAskStreamsAndRendersTurns(t *testing.T) {
	fs := &fakeSession{chunks: []string{"Hel", "lo"}, answer: "Hello"}
	m := newModel(fs, config.PreloadConfig{})

	m.Update(key("hi there"))
	_, cmd := m.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	msg := cmd()
	stream, ok := msg.(streamMsg)
	require.True(t, ok)
	assert.Equal(t, "Hel", stream.chunk)
	_, cmd = m.Update(stream)
	assert.Contains(t, m.View(), "Hel")

	drain(m, cmd)
	assert.False(t, m.busy)
	assert.Empty(t, m.prompt.Value())
	view := m.View()
	assert.Contains(t, view, "hi there")
	assert.Contains(t, view, "Hello")
	assert.Len(t, fs.turns, 2)
}

func TestAskErrorShowsBanner(t *testing.T) {
	fs := &fakeSession{askErr: errors.New("model offline")}
	m := newModel(fs, config.PreloadConfig{})

	m.Update(key("hi"))
	_, cmd := m.Update(key("enter"))
	drain(m, cmd)
	assert.False(t, m.busy)
	assert.Equal(t, session.Failure, m.level)
	assert.Contains(t, m.View(), "Error: model offline")
	assert.Empty(t, fs.turns)
}

func TestInputIgnoredWhileBusy(t *testing.T) {
	fs := &fakeSession{answer: "ok"}
	m := newModel(fs, config.PreloadConfig{})
	m.busy = true

	m.Update(key("hi"))
	_, cmd := m.Update(key("enter"))
	assert.Nil(t, cmd)
	_, cmd = m.Update(key("ctrl+l"))
	assert.Nil(t, cmd)
	assert.Zero(t, fs.cleared)
}

func TestOpenFileShowsPreviewAndAdds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Alpha"), 0o600))

	fs := &fakeSession{
		preview: extract.Preview{Kind: domain.KindTXT, Text: "Alpha"},
		notice:  session.Notice{Level: session.Success, Text: "Added notes.txt to knowledge base!"},
	}
	m := newModel(fs, config.PreloadConfig{})

	_, cmd := m.Update(key("ctrl+a"))
	assert.Nil(t, cmd, "nothing to add yet")

	m.Update(key("ctrl+o"))
	assert.Equal(t, focusFile, m.focus)
	m.Update(key(path))
	_, cmd = m.Update(key("enter"))
	drain(m, cmd)

	assert.Equal(t, []string{"notes.txt"}, fs.opened)
	assert.Equal(t, focusPrompt, m.focus)
	assert.Contains(t, m.View(), "Alpha")

	_, cmd = m.Update(key("ctrl+a"))
	require.NotNil(t, cmd)
	drain(m, cmd)
	assert.Equal(t, session.Success, m.level)
	assert.Contains(t, m.View(), "Added notes.txt to knowledge base!")
}

func TestFailedPreviewDropsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.txt")
	bad := filepath.Join(dir, "bad.docx")
	require.NoError(t, os.WriteFile(good, []byte("Alpha"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o600))

	fs := &fakeSession{preview: extract.Preview{Kind: domain.KindTXT, Text: "Alpha"}, broken: "bad.docx"}
	m := newModel(fs, config.PreloadConfig{})

	openFile := func(path string) {
		m.Update(key("ctrl+o"))
		m.fileInput.Reset()
		m.Update(key(path))
		_, cmd := m.Update(key("enter"))
		drain(m, cmd)
	}
	openFile(good)
	require.NotNil(t, m.preview)
	openFile(bad)

	assert.Equal(t, []string{"good.txt", "bad.docx"}, fs.opened)
	assert.Nil(t, m.preview)
	assert.Empty(t, m.fileName)
	assert.NotContains(t, m.View(), "Alpha")
	assert.Equal(t, session.Failure, m.level)

	_, cmd := m.Update(key("ctrl+a"))
	assert.Nil(t, cmd)
	assert.Zero(t, fs.adds)
}

func TestOpenUnsupportedFile(t *testing.T) {
	m := newModel(&fakeSession{}, config.PreloadConfig{})
	m.Update(key("ctrl+o"))
	m.Update(key("photo.png"))
	_, cmd := m.Update(key("enter"))
	drain(m, cmd)
	assert.Equal(t, session.Failure, m.level)
	assert.Contains(t, m.status, "unsupported file type")
}

func TestPDFCard(t *testing.T) {
	fs := &fakeSession{preview: extract.Preview{Kind: domain.KindPDF, PDF: &extract.PDFInfo{Pages: 3, Size: 2048}}}
	m := newModel(fs, config.PreloadConfig{})
	m.Update(previewMsg{name: "law.pdf", preview: fs.preview})
	view := m.View()
	assert.Contains(t, view, "3 pages, 2.0 KB")
}

func TestClearHistory(t *testing.T) {
	fs := &fakeSession{turns: []domain.Turn{{Role: domain.RoleUser, Content: "old question"}}}
	m := newModel(fs, config.PreloadConfig{})
	assert.Contains(t, m.View(), "old question")

	m.Update(key("ctrl+l"))
	assert.Equal(t, 1, fs.cleared)
	assert.NotContains(t, m.View(), "old question")
	assert.Contains(t, m.View(), "History cleared.")
}

func TestPreloadOnStart(t *testing.T) {
	fs := &fakeSession{}
	m := newModel(fs, config.PreloadConfig{URL: "https://example.com/title17.pdf", Title: "the Copyright Law"})
	assert.True(t, m.busy)
	assert.Contains(t, m.View(), "Adding the Copyright Law to knowledge base...")

	drain(m, m.ensurePreloaded())
	assert.Equal(t, 1, fs.preloads)
	assert.False(t, m.busy)
	assert.Contains(t, m.View(), "Preloaded file added to knowledge base!")
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KB", humanSize(1536))
	assert.Equal(t, "2.0 MB", humanSize(2<<20))
}
