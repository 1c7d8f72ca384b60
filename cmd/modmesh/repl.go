package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"

	engine "github.com/icyseptember2237/modmesh-engine"
)

const replPrompt = ">>> "

func runREPL(c *engine.Console) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runBasicREPL(c, os.Stdin, os.Stdout, os.Stderr)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryLimit:    1024,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline unavailable (%v), running in basic mode\n", err)
		return runBasicREPL(c, os.Stdin, os.Stdout, os.Stderr)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.SetCommand(line)
		printOutput(rl.Stdout(), rl.Stderr(), c.Execute())
	}
}

// runBasicREPL reads one command per line without history or editing.
func runBasicREPL(c *engine.Console, in io.Reader, stdout, stderr io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(stdout, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		c.SetCommand(scanner.Text())
		printOutput(stdout, stderr, c.Execute())
	}
}

func printOutput(stdout, stderr io.Writer, out engine.ConsoleOutput) {
	fmt.Fprint(stdout, out.Stdout)
	fmt.Fprint(stderr, out.Stderr)
}
