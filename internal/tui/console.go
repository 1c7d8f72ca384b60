// Package tui is the full-screen scripting console.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	engine "github.com/icyseptember2237/modmesh-engine"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	commandStyle = lipgloss.NewStyle().
			Bold(true)

	stdoutStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5F87FF"))

	stderrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const prompt = ">>> "

// Model is the bubbletea model of the console.
type Model struct {
	console *engine.Console
	input   textinput.Model
	history viewport.Model
	lines   []string
	title   string
}

func New(console *engine.Console, title string) *Model {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "script"
	ti.Focus()

	return &Model{
		console: console,
		input:   ti,
		history: viewport.New(80, 20),
		title:   title,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit

		case "up":
			m.navigate(-1)
			return m, nil

		case "down":
			m.navigate(1)
			return m, nil

		case "enter":
			m.console.SetCommand(m.input.Value())
			m.appendOutput(m.console.Execute())
			m.input.SetValue("")
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.history.Width = msg.Width
		// title, blank line, input and help
		m.history.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-len(prompt)-1, 1)
		m.history.SetContent(strings.Join(m.lines, "\n"))
		m.history.GotoBottom()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) navigate(offset int) {
	m.console.Navigate(offset)
	m.input.SetValue(m.console.Command())
	m.input.CursorEnd()
}

func (m *Model) appendOutput(out engine.ConsoleOutput) {
	m.lines = append(m.lines, FormatOutput(out))
	m.history.SetContent(strings.Join(m.lines, "\n"))
	m.history.GotoBottom()
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.history.View())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter run • ↑/↓ history • ctrl+c quit"))
	return b.String()
}

// FormatOutput renders a command with its captured output.
func FormatOutput(out engine.ConsoleOutput) string {
	var b strings.Builder
	b.WriteString(commandStyle.Render(prompt + out.Command))
	if s := strings.TrimRight(out.Stdout, "\n"); s != "" {
		b.WriteString("\n")
		b.WriteString(stdoutStyle.Render(s))
	}
	if s := strings.TrimRight(out.Stderr, "\n"); s != "" {
		b.WriteString("\n")
		b.WriteString(stderrStyle.Render(s))
	}
	return b.String()
}

// Run shows the console until the user quits.
func Run(console *engine.Console, title string) error {
	p := tea.NewProgram(New(console, title), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
