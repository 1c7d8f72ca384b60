package engine

import (
	"strings"

	"go.uber.org/zap"
)

const defaultHistoryLimit = 1024

// ConsoleOutput is what one console command produced.
type ConsoleOutput struct {
	Command string
	Stdout  string
	Stderr  string
}

// Console is an interactive command session over the interpreter with a
// bounded command history. Front ends own the presentation.
type Console struct {
	redirect *StreamRedirect

	command      string
	history      []string
	historyIndex int
	historyLimit int
}

func NewConsole() *Console {
	return &Console{
		redirect:     NewStreamRedirect(true),
		historyLimit: defaultHistoryLimit,
	}
}

func (c *Console) HasRedirect() bool { return c.redirect.IsEnabled() }

// SetRedirect controls whether output is captured into ConsoleOutput. With
// redirect off, or the console_redirect toggle cleared, scripts write
// straight to the runtime streams.
func (c *Console) SetRedirect(enabled bool) { c.redirect.SetEnabled(enabled) }

func (c *Console) Command() string { return c.command }

func (c *Console) SetCommand(command string) { c.command = command }

func (c *Console) History() []string {
	return append([]string(nil), c.history...)
}

func (c *Console) SetHistoryLimit(limit int) {
	if limit < 1 {
		limit = 1
	}
	c.historyLimit = limit
	c.trimHistory()
}

// Execute runs the current command and clears it.
func (c *Console) Execute() ConsoleOutput {
	command := c.command
	c.command = ""
	c.appendHistory(command)
	out := ConsoleOutput{Command: command}
	if strings.TrimSpace(command) == "" {
		return out
	}

	ip := Instance()
	capture := c.redirect.IsEnabled() && ip.Toggle().Get(ToggleConsoleRedirect)
	if !capture {
		ip.ExecCode(command)
		return out
	}

	if err := c.redirect.Activate(); err != nil {
		Logger().Warn("console redirect failed", zap.Error(err))
	}
	ip.ExecCode(command)
	if err := c.redirect.Deactivate(); err != nil {
		Logger().Warn("console redirect restore failed", zap.Error(err))
	}
	out.Stdout = c.redirect.StdoutString()
	out.Stderr = c.redirect.StderrString()
	return out
}

func (c *Console) appendHistory(command string) {
	if strings.TrimSpace(command) != "" {
		if n := len(c.history); n == 0 || c.history[n-1] != command {
			c.history = append(c.history, command)
			c.trimHistory()
		}
	}
	c.historyIndex = len(c.history)
}

func (c *Console) trimHistory() {
	if over := len(c.history) - c.historyLimit; over > 0 {
		c.history = append([]string(nil), c.history[over:]...)
	}
	if c.historyIndex > len(c.history) {
		c.historyIndex = len(c.history)
	}
}

// Navigate moves through the history by offset (negative is older) and
// loads the entry as the current command. Past the newest entry the
// command is empty.
func (c *Console) Navigate(offset int) {
	idx := c.historyIndex + offset
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.history) {
		idx = len(c.history)
	}
	c.historyIndex = idx
	if idx == len(c.history) {
		c.command = ""
		return
	}
	c.command = c.history[idx]
}
