package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docchat/internal/domain"
	"docchat/internal/extract"
	"docchat/internal/session"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	sidebarStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	transcriptStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	promptBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cardStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	statusStyles    = map[session.Level]lipgloss.Style{
		session.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		session.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		session.Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

const maxSidebarWidth = 48

func (m *Model) sidebarWidth() int {
	return min(maxSidebarWidth, max(24, m.width/3))
}

func (m *Model) resize(width, height int) {
	m.ready = true
	m.width = width
	sw, sh := sidebarStyle.GetFrameSize()
	tw, th := transcriptStyle.GetFrameSize()
	_, ph := promptBoxStyle.GetFrameSize()

	m.fileInput.Width = max(10, m.sidebarWidth()-sw-len(m.fileInput.Prompt)-1)
	m.prompt.Width = max(10, width-4-len(m.prompt.Prompt))

	reserved := 1 + 1 + ph + 1 // header, prompt line, prompt frame, status
	m.viewport.Width = max(20, width-m.sidebarWidth()-sw-tw)
	m.viewport.Height = max(3, height-reserved-max(sh, th))
	m.refresh()
}

// refresh re-renders the transcript and keeps it scrolled to the bottom.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *Model) renderTranscript() string {
	turns := m.sess.Turns()
	if len(turns) == 0 && m.pending == "" {
		return dimStyle.Render("No messages yet.")
	}
	width := max(10, m.viewport.Width)
	body := lipgloss.NewStyle().Width(width)
	var parts []string
	for _, t := range turns {
		parts = append(parts, renderTurn(body, t.Role, t.Content))
	}
	if m.pending != "" {
		parts = append(parts, renderTurn(body, domain.RoleUser, m.pending))
		if m.streaming.Len() > 0 {
			parts = append(parts, renderTurn(body, domain.RoleAssistant, m.streaming.String()))
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderTurn(body lipgloss.Style, role domain.Role, content string) string {
	label := userStyle.Render("You")
	if role == domain.RoleAssistant {
		label = assistantStyle.Render("Assistant")
	}
	return label + "\n" + body.Render(content)
}

func (m *Model) renderSidebar(height int) string {
	inner := m.sidebarWidth() - sidebarStyle.GetHorizontalFrameSize()
	lines := []string{m.fileInput.View(), ""}
	switch {
	case m.preview == nil:
		lines = append(lines, dimStyle.Render("No file opened."))
	case m.preview.PDF != nil:
		lines = append(lines, renderPDFCard(m.fileName, m.preview.PDF))
	default:
		lines = append(lines, headerStyle.Render(m.fileName), m.preview.Text)
	}
	if m.preview != nil {
		if m.preview.Kind.Ingestible() {
			lines = append(lines, "", dimStyle.Render("ctrl+a: add to knowledge base"))
		} else {
			lines = append(lines, "", dimStyle.Render("preview only"))
		}
	}
	return sidebarStyle.
		Width(inner).
		MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}

func renderPDFCard(name string, info *extract.PDFInfo) string {
	return cardStyle.Render(fmt.Sprintf("%s\nPDF document\n%d pages, %s", name, info.Pages, humanSize(info.Size)))
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// View renders the layout.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render(m.title)
	transcript := transcriptStyle.Render(m.viewport.View())
	sidebar := m.renderSidebar(lipgloss.Height(transcript))
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, transcript)
	prompt := promptBoxStyle.Render(m.prompt.View())

	var status string
	if m.busy {
		status = m.spinner.View() + " " + m.busyLabel
	} else {
		status = statusStyles[m.level].Render(m.status)
	}
	return header + "\n" + body + "\n" + prompt + "\n" + status
}
