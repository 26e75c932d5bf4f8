package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/extract"
	"docchat/internal/provider"
	"docchat/internal/session"
)

// SessionPort is the TUI-facing subset of a chat session.
type SessionPort interface {
	Open(u session.Upload) error
	Preview(ctx context.Context) (extract.Preview, error)
	AddToKnowledgeBase(ctx context.Context) (session.Notice, error)
	EnsurePreloaded(ctx context.Context, src config.PreloadConfig) (session.Notice, error)
	Ask(ctx context.Context, prompt string, sink provider.Sink) (string, error)
	ClearHistory() error
	Turns() []domain.Turn
}

type focus int

const (
	focusPrompt focus = iota
	focusFile
)

type (
	previewMsg struct {
		name    string
		preview extract.Preview
		opened  bool
		err     error
	}
	noticeMsg struct {
		notice session.Notice
		err    error
	}
	streamMsg struct {
		chunk string
		next  tea.Cmd
	}
	answerMsg struct {
		err error
	}
)

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx     context.Context
	sess    SessionPort
	title   string
	preload config.PreloadConfig

	fileInput textinput.Model
	prompt    textinput.Model
	focus     focus
	viewport  viewport.Model
	spinner   spinner.Model

	busy      bool
	busyLabel string
	status    string
	level     session.Level

	fileName  string
	preview   *extract.Preview
	pending   string
	streaming strings.Builder

	width int
	ready bool
}

// New creates the model. If preload names a URL it is ingested on start.
func New(ctx context.Context, sess SessionPort, title string, preload config.PreloadConfig) *Model {
	fi := textinput.New()
	fi.Prompt = "file: "
	fi.Placeholder = "path to a pdf, docx, txt, csv or xlsx"
	fi.CharLimit = 0

	pi := textinput.New()
	pi.Prompt = "> "
	pi.Placeholder = "Ask a question and press Enter"
	pi.CharLimit = 0
	pi.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		ctx:       ctx,
		sess:      sess,
		title:     title,
		preload:   preload,
		fileInput: fi,
		prompt:    pi,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    "ctrl+o open file, ctrl+a add to knowledge base, ctrl+l clear history, ctrl+c quit",
	}
	if preload.URL != "" {
		m.busy = true
		m.busyLabel = "Adding " + preloadName(preload) + " to knowledge base..."
	}
	return m
}

func preloadName(p config.PreloadConfig) string {
	if p.Title != "" {
		return p.Title
	}
	return p.URL
}

// Init starts the cursor blink, the spinner and the preload if any.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.preload.URL != "" {
		cmds = append(cmds, m.ensurePreloaded())
	}
	return tea.Batch(cmds...)
}

// Update handles key, window and command result events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case previewMsg:
		m.busy = false
		if msg.err != nil {
			if msg.opened {
				// The session now holds the new upload; drop the stale card.
				m.fileName, m.preview = "", nil
			}
			m.setStatus(session.Failure, "Error previewing file: "+msg.err.Error())
			return m, nil
		}
		p := msg.preview
		m.fileName, m.preview = msg.name, &p
		m.focusOn(focusPrompt)
		m.setStatus(session.Info, fmt.Sprintf("Opened %s. Press ctrl+a to add it to the knowledge base.", msg.name))
		return m, nil

	case noticeMsg:
		m.busy = false
		if msg.err != nil {
			m.setStatus(session.Failure, msg.err.Error())
		} else if msg.notice.Text != "" {
			m.setStatus(msg.notice.Level, msg.notice.Text)
		}
		return m, nil

	case streamMsg:
		m.streaming.WriteString(msg.chunk)
		m.refresh()
		return m, msg.next

	case answerMsg:
		m.busy = false
		m.pending = ""
		m.streaming.Reset()
		if msg.err != nil {
			m.setStatus(session.Failure, "Error: "+msg.err.Error())
		} else {
			m.setStatus(session.Info, "")
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+o":
			m.focusOn(focusFile)
			return m, textinput.Blink
		case "tab":
			if m.focus == focusFile {
				m.focusOn(focusPrompt)
			} else {
				m.focusOn(focusFile)
			}
			return m, textinput.Blink
		case "esc":
			m.focusOn(focusPrompt)
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "ctrl+a":
			if m.busy || m.preview == nil {
				return m, nil
			}
			m.startBusy("Adding " + m.fileName + " to knowledge base...")
			return m, m.add()
		case "ctrl+l":
			if m.busy {
				return m, nil
			}
			if err := m.sess.ClearHistory(); err != nil {
				m.setStatus(session.Failure, err.Error())
			} else {
				m.setStatus(session.Info, "History cleared.")
			}
			m.refresh()
			return m, nil
		case "enter":
			if m.busy {
				return m, nil
			}
			if m.focus == focusFile {
				path := strings.TrimSpace(m.fileInput.Value())
				if path == "" {
					return m, nil
				}
				m.startBusy("Opening " + path + "...")
				return m, m.open(path)
			}
			q := m.prompt.Value()
			if strings.TrimSpace(q) == "" {
				return m, nil
			}
			m.prompt.Reset()
			m.pending = q
			m.startBusy("Thinking...")
			m.refresh()
			return m, m.ask(q)
		}
	}

	var cmd tea.Cmd
	if m.focus == focusFile {
		m.fileInput, cmd = m.fileInput.Update(msg)
	} else {
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return m, cmd
}

func (m *Model) focusOn(f focus) {
	m.focus = f
	if f == focusFile {
		m.prompt.Blur()
		m.fileInput.Focus()
	} else {
		m.fileInput.Blur()
		m.prompt.Focus()
	}
}

func (m *Model) startBusy(label string) {
	m.busy = true
	m.busyLabel = label
}

func (m *Model) setStatus(level session.Level, text string) {
	m.level = level
	m.status = text
}

func (m *Model) open(path string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		u, err := session.ReadUpload(path)
		if err != nil {
			return previewMsg{err: err}
		}
		if err := sess.Open(u); err != nil {
			return previewMsg{err: err}
		}
		p, err := sess.Preview(ctx)
		return previewMsg{name: u.Name, preview: p, opened: true, err: err}
	}
}

func (m *Model) add() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		n, err := sess.AddToKnowledgeBase(ctx)
		return noticeMsg{notice: n, err: err}
	}
}

func (m *Model) ensurePreloaded() tea.Cmd {
	ctx, sess, src := m.ctx, m.sess, m.preload
	return func() tea.Msg {
		n, err := sess.EnsurePreloaded(ctx, src)
		return noticeMsg{notice: n, err: err}
	}
}

// ask runs the prompt in the background and relays streamed fragments one
// message at a time, ending with an answerMsg.
func (m *Model) ask(prompt string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	chunks := make(chan string, 64)
	done := make(chan answerMsg, 1)
	go func() {
		_, err := sess.Ask(ctx, prompt, func(ctx context.Context, c string) error {
			select {
			case chunks <- c:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		close(chunks)
		done <- answerMsg{err: err}
	}()

	var next tea.Cmd
	next = func() tea.Msg {
		if c, ok := <-chunks; ok {
			return streamMsg{chunk: c, next: next}
		}
		return <-done
	}
	return next
}
