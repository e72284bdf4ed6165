package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ragchat/internal/models"
	"ragchat/internal/rag"
	"ragchat/internal/session"
	"ragchat/internal/stream"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

// Pipeline is the part of rag.Pipeline the chat screen needs.
type Pipeline interface {
	Ingest(ctx context.Context, files []rag.File) (*rag.IngestResult, error)
	Ask(ctx context.Context, index models.VectorIndex, history []models.Turn, question string) (*rag.Answer, error)
}

const helpText = "/load <paths> to index files, /new for a new chat, /quit to leave."

type ingestMsg struct {
	res *rag.IngestResult
	err error
}

type answerMsg struct {
	question string
	answer   *rag.Answer
	err      error
}

type tokenMsg struct{}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	pipeline Pipeline
	session  *session.State
	delay    time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	ready    bool

	busy    bool
	status  string
	asking  string
	answer  string
	partial string
	pending []string
}

func New(pipeline Pipeline, st *session.State, delay time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		pipeline: pipeline,
		session:  st,
		delay:    delay,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   helpText,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := boxStyle.GetFrameSize()
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-bh-5)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m.submit(line)
		}

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.session.SetIndex(context.Background(), nil)
			m.status = rag.UserMessage(msg.err)
			return m, nil
		}
		m.session.SetIndex(context.Background(), msg.res.Index)
		m.status = ingestStatus(msg.res)
		return m, nil

	case answerMsg:
		m.asking = ""
		if msg.err != nil {
			m.busy = false
			m.status = rag.UserMessage(msg.err)
			m.refresh()
			return m, nil
		}
		m.session.AddUserTurn(msg.question)
		m.answer = msg.answer.Text
		m.partial = ""
		m.pending = nil
		for token := range stream.Tokens(m.answer) {
			m.pending = append(m.pending, token)
		}
		return m, m.nextToken()

	case tokenMsg:
		if len(m.pending) > 0 {
			m.partial += m.pending[0]
			m.pending = m.pending[1:]
		}
		if len(m.pending) == 0 {
			m.finishAnswer()
			return m, nil
		}
		m.refresh()
		return m, m.nextToken()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(line string) (tea.Model, tea.Cmd) {
	switch {
	case line == "":
		return m, nil
	case line == "/quit":
		return m, tea.Quit
	case line == "/new":
		m.session.NewChat()
		m.status = "New chat started."
		m.refresh()
		return m, nil
	case strings.HasPrefix(line, "/load"):
		paths := strings.Fields(strings.TrimPrefix(line, "/load"))
		if len(paths) == 0 {
			m.status = "Usage: /load <paths>"
			return m, nil
		}
		m.busy = true
		m.status = fmt.Sprintf("Indexing %d file(s)", len(paths))
		return m, tea.Batch(m.spinner.Tick, ingest(m.pipeline, paths))
	case strings.HasPrefix(line, "/"):
		m.status = helpText
		return m, nil
	}

	m.busy = true
	m.asking = line
	m.status = "Thinking"
	m.refresh()
	return m, tea.Batch(m.spinner.Tick, ask(m.pipeline, m.session.Index(), m.session.History(), line))
}

func (m *Model) nextToken() tea.Cmd {
	if m.delay <= 0 {
		return func() tea.Msg { return tokenMsg{} }
	}
	return tea.Tick(m.delay, func(time.Time) tea.Msg { return tokenMsg{} })
}

func (m *Model) finishAnswer() {
	m.session.AddAssistantTurn(m.answer)
	m.busy = false
	m.answer, m.partial = "", ""
	m.status = helpText
	m.refresh()
}

func ingest(p Pipeline, paths []string) tea.Cmd {
	return func() tea.Msg {
		files := make([]rag.File, 0, len(paths))
		for _, path := range paths {
			f, err := os.Open(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Failed to open file")
				return ingestMsg{err: fmt.Errorf("failed to open %s: %w", path, err)}
			}
			defer f.Close()
			files = append(files, rag.File{Name: filepath.Base(path), Reader: f})
		}
		res, err := p.Ingest(context.Background(), files)
		return ingestMsg{res: res, err: err}
	}
}

// ask runs off the update loop, so it gets a snapshot of the history.
func ask(p Pipeline, index models.VectorIndex, history []models.Turn, question string) tea.Cmd {
	return func() tea.Msg {
		answer, err := p.Ask(context.Background(), index, history, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

func ingestStatus(res *rag.IngestResult) string {
	status := fmt.Sprintf("Indexed %d chunk(s) from %s.", res.Chunks, strings.Join(res.Files, ", "))
	if len(res.Unsupported) > 0 {
		status += " Skipped: " + strings.Join(res.Unsupported, ", ") + "."
	}
	return status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m Model) transcript() string {
	var b strings.Builder
	for _, turn := range m.session.History() {
		writeTurn(&b, turn.Role, turn.Content)
	}
	if m.asking != "" {
		writeTurn(&b, models.RoleUser, m.asking)
	}
	if m.answer != "" {
		writeTurn(&b, models.RoleAssistant, m.partial)
	}
	if b.Len() == 0 {
		return "No messages yet."
	}
	return b.String()
}

func writeTurn(b *strings.Builder, role models.Role, content string) {
	if role == models.RoleUser {
		b.WriteString(userStyle.Render("You: "))
	} else {
		b.WriteString(assistantStyle.Render("Assistant: "))
	}
	b.WriteString(strings.TrimSpace(content))
	b.WriteString("\n\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return titleStyle.Render("RAG Chat") + "\n" +
		boxStyle.Render(m.viewport.View()) + "\n" +
		m.input.View() + "\n" +
		statusStyle.Render(status)
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	boxStyle       = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Run starts the chat screen on the terminal.
func Run(pipeline Pipeline, st *session.State, delay time.Duration) error {
	p := tea.NewProgram(New(pipeline, st, delay), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
