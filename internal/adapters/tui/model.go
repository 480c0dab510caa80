// Package tui is the terminal chat client over one session.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
	"github.com/abhikalparya/documentchatbot/internal/core/ports"
	"github.com/abhikalparya/documentchatbot/internal/infrastructure/transcript"
)

const (
	statusProcessing = "Processing PDF..."
	statusIndexing   = "Setting up vector index..."
	statusDone       = "Done!"
	statusReady      = "Type a question, or /open <path> to upload a PDF."
	statusNeedsDoc   = "Upload a PDF with /open <path> before asking questions."
	helpLine         = "/open <path>  /use <filename>  /docs  /save <path.md|path.pdf>  /quit"
)

type Options struct {
	// InitialPaths are uploaded one after another at start.
	InitialPaths []string
	ReadFile     func(path string) ([]byte, error)
	WriteFile    func(path string, data []byte) error
}

type fileReadMsg struct {
	path string
	data []byte
	err  error
}

type transitionMsg struct {
	state domain.SessionState
	err   error
}

type answerMsg struct {
	reply *domain.Reply
	err   error
}

type savedMsg struct {
	path string
	err  error
}

type Model struct {
	ctx     context.Context
	session ports.ChatSession
	opts    Options

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pending []string
	state   domain.SessionState
	status  string
	busy    bool
	ready   bool
}

func New(ctx context.Context, session ports.ChatSession, opts Options) Model {
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if opts.WriteFile == nil {
		opts.WriteFile = func(path string, data []byte) error { return os.WriteFile(path, data, 0o644) }
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your document"
	ti.Focus()
	ti.CharLimit = 0

	m := Model{
		ctx:      ctx,
		session:  session,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		state:    session.State(),
		status:   statusReady,
	}
	if len(opts.InitialPaths) > 0 {
		m.pending = append([]string(nil), opts.InitialPaths[1:]...)
		m.busy = true
		m.status = statusProcessing
	}
	return m
}

func (m Model) Init() tea.Cmd {
	if len(m.opts.InitialPaths) == 0 {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.read(m.opts.InitialPaths[0]))
}

// nextUpload pops the next initial path. It runs only after a finished
// transition, so it never races another upload.
func (m *Model) nextUpload() tea.Cmd {
	if len(m.pending) == 0 {
		return nil
	}
	path := m.pending[0]
	m.pending = m.pending[1:]
	return m.startOpen(path)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 3 + qh + 1
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			return m.handleLine(line)
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fileReadMsg:
		if msg.err != nil {
			m.busy = false
			m.status = "Error: " + msg.err.Error()
			next := m.nextUpload()
			return m, next
		}
		m.status = statusIndexing
		return m, m.upload(msg.path, msg.data)

	case transitionMsg:
		m.busy = false
		m.state = msg.state
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = statusDone
		}
		m.refresh()
		next := m.nextUpload()
		return m, next

	case answerMsg:
		m.busy = false
		m.state = m.session.State()
		switch {
		case msg.err != nil:
			m.status = "Error: " + msg.err.Error()
		default:
			m.status = statusReady
		}
		m.refresh()
		return m, nil

	case savedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Transcript saved to " + msg.path
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	if !strings.HasPrefix(line, "/") {
		if !m.state.HasDocuments() {
			m.status = statusNeedsDoc
			return m, nil
		}
		m.busy = true
		m.status = "Thinking..."
		return m, tea.Batch(m.spinner.Tick, m.ask(line))
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/docs":
		m.status = docsLine(m.state)
		return m, nil
	case "/open":
		if arg == "" {
			m.status = "Usage: /open <path>"
			return m, nil
		}
		open := m.startOpen(arg)
		return m, open
	case "/use":
		if arg == "" {
			m.status = "Usage: /use <filename>"
			return m, nil
		}
		m.busy = true
		m.status = statusIndexing
		return m, tea.Batch(m.spinner.Tick, m.selectDocument(arg))
	case "/save":
		if arg == "" {
			m.status = "Usage: /save <path.md|path.pdf>"
			return m, nil
		}
		m.busy = true
		return m, m.save(arg)
	default:
		m.status = "Unknown command. " + helpLine
		return m, nil
	}
}

func (m *Model) startOpen(path string) tea.Cmd {
	m.busy = true
	m.status = statusProcessing
	return tea.Batch(m.spinner.Tick, m.read(path))
}

func (m Model) read(path string) tea.Cmd {
	read := m.opts.ReadFile
	return func() tea.Msg {
		data, err := read(path)
		if err != nil {
			return fileReadMsg{path: path, err: fmt.Errorf("read %s: %w", path, err)}
		}
		return fileReadMsg{path: path, data: data}
	}
}

func (m Model) upload(path string, data []byte) tea.Cmd {
	ctx, session := m.ctx, m.session
	mimeType := ""
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		mimeType = "application/pdf"
	}
	return func() tea.Msg {
		state, err := session.UploadDocument(ctx, domain.Upload{
			Filename: filepath.Base(path),
			MimeType: mimeType,
			Data:     data,
		})
		return transitionMsg{state: state, err: err}
	}
}

func (m Model) selectDocument(filename string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		state, err := session.SelectDocument(ctx, filename)
		return transitionMsg{state: state, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		reply, err := session.AskQuestion(ctx, question)
		return answerMsg{reply: reply, err: err}
	}
}

func (m Model) save(path string) tea.Cmd {
	state, write := m.state, m.opts.WriteFile
	return func() tea.Msg {
		format, err := transcript.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
		if err != nil {
			return savedMsg{path: path, err: err}
		}
		var buf bytes.Buffer
		if err := transcript.Render(&buf, format, state); err != nil {
			return savedMsg{path: path, err: err}
		}
		return savedMsg{path: path, err: write(path, buf.Bytes())}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderMessages(m.state.Messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Document Chatbot"
	if m.state.SelectedDocument != "" {
		title += " - " + m.state.SelectedDocument
	}
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return headerStyle.Render(title) + "\n" +
		helpStyle.Render(helpLine) + "\n" +
		m.viewport.View() + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func docsLine(state domain.SessionState) string {
	if !state.HasDocuments() {
		return "No documents uploaded yet."
	}
	names := make([]string, 0, len(state.Registry))
	for _, e := range state.Registry {
		name := e.Filename
		if name == state.SelectedDocument {
			name = "*" + name
		}
		names = append(names, name)
	}
	return "Documents: " + strings.Join(names, ", ")
}

func renderMessages(messages []domain.Message, width int) string {
	wrap := lipgloss.NewStyle().Width(max(20, width-2))
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		label := assistantStyle.Render("Assistant")
		switch {
		case msg.Role == domain.RoleUser:
			label = userStyle.Render("You")
		case msg.Error:
			label = errorStyle.Render("Assistant")
		}
		b.WriteString(label + "\n")
		b.WriteString(wrap.Render(msg.Content) + "\n")
		if len(msg.Sources) > 0 {
			pages := make([]string, 0, len(msg.Sources))
			for _, s := range msg.Sources {
				pages = append(pages, fmt.Sprintf("%s p.%d", s.Filename, s.Page))
			}
			b.WriteString(helpStyle.Render("sources: "+strings.Join(pages, ", ")) + "\n")
		}
	}
	return b.String()
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)
