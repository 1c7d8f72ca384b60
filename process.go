package engine

import (
	"os"
	"sync"
)

// CommandLineInfo holds the command line of the host process.
type CommandLineInfo struct {
	argv []string
}

// Executable returns argv[0], or an empty string when argv is empty.
func (c CommandLineInfo) Executable() string {
	if len(c.argv) == 0 {
		return ""
	}
	return c.argv[0]
}

// ScriptArgv returns a copy of the argv handed to the scripting runtime.
func (c CommandLineInfo) ScriptArgv() []string {
	return append([]string{}, c.argv...)
}

// ProcessInfo exposes process-wide information to the interpreter.
type ProcessInfo struct {
	mu  sync.RWMutex
	cmd CommandLineInfo
}

var (
	processInfo     *ProcessInfo
	processInfoOnce sync.Once
)

// ProcessInfoInstance returns the process singleton, populated from os.Args
// on first use.
func ProcessInfoInstance() *ProcessInfo {
	processInfoOnce.Do(func() {
		processInfo = &ProcessInfo{cmd: CommandLineInfo{argv: append([]string{}, os.Args...)}}
	})
	return processInfo
}

func (p *ProcessInfo) CommandLine() CommandLineInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return CommandLineInfo{argv: p.cmd.ScriptArgv()}
}

// SetArgv replaces the recorded command line. Front ends call it after
// stripping their own flags so scripts only see the arguments meant for
// them.
func (p *ProcessInfo) SetArgv(argv []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmd = CommandLineInfo{argv: append([]string{}, argv...)}
}
