package engine

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestConsoleExecuteCapturesOutput(t *testing.T) {
	startInterpreter(t, TypeEngineLua, luaTree())

	c := NewConsole()
	c.SetCommand(`print("hello")`)
	out := c.Execute()
	if out.Command != `print("hello")` || out.Stdout != "hello\n" || out.Stderr != "" {
		t.Fatalf("Execute() = %+v", out)
	}
	if c.Command() != "" {
		t.Fatalf("command not cleared: %q", c.Command())
	}

	c.SetCommand(`error("nope")`)
	out = c.Execute()
	if !strings.Contains(out.Stderr, "nope") {
		t.Fatalf("Stderr = %q", out.Stderr)
	}
}

func TestConsoleRedirectDisabled(t *testing.T) {
	ip, _, _ := startInterpreter(t, TypeEngineLua, luaTree())
	direct := &bytes.Buffer{}
	mustEngine(t, ip).SetStdout(direct)

	c := NewConsole()
	c.SetRedirect(false)
	if c.HasRedirect() {
		t.Fatal("redirect still enabled")
	}
	c.SetCommand(`print("direct")`)
	out := c.Execute()
	if out.Stdout != "" || direct.String() != "direct\n" {
		t.Fatalf("captured = %q, real = %q", out.Stdout, direct.String())
	}
}

func TestConsoleBlankCommand(t *testing.T) {
	Instance().Finalize()

	c := NewConsole()
	c.SetCommand("   ")
	out := c.Execute()
	if out.Stdout != "" || out.Stderr != "" {
		t.Fatalf("blank command produced output: %+v", out)
	}
	if len(c.History()) != 0 {
		t.Fatalf("blank command recorded: %v", c.History())
	}
}

func TestConsoleHistory(t *testing.T) {
	startInterpreter(t, TypeEngineLua, luaTree())

	c := NewConsole()
	for _, cmd := range []string{"a = 1", "a = 1", "b = 2", "", "c = 3"} {
		c.SetCommand(cmd)
		c.Execute()
	}
	want := []string{"a = 1", "b = 2", "c = 3"}
	if got := c.History(); !reflect.DeepEqual(got, want) {
		t.Fatalf("History() = %v, want %v", got, want)
	}

	steps := []struct {
		offset int
		want   string
	}{
		{-1, "c = 3"},
		{-1, "b = 2"},
		{-5, "a = 1"},
		{1, "b = 2"},
		{5, ""},
	}
	for _, s := range steps {
		c.Navigate(s.offset)
		if c.Command() != s.want {
			t.Fatalf("Navigate(%d) command = %q, want %q", s.offset, c.Command(), s.want)
		}
	}
}

func TestConsoleHistoryLimit(t *testing.T) {
	startInterpreter(t, TypeEngineLua, luaTree())

	c := NewConsole()
	c.SetHistoryLimit(2)
	for i := 0; i < 4; i++ {
		c.SetCommand(fmt.Sprintf("x = %d", i))
		c.Execute()
	}
	if got := c.History(); !reflect.DeepEqual(got, []string{"x = 2", "x = 3"}) {
		t.Fatalf("History() = %v", got)
	}
	c.Navigate(-10)
	if c.Command() != "x = 2" {
		t.Fatalf("oldest command = %q", c.Command())
	}
}

func TestConsoleFollowsRedirectToggle(t *testing.T) {
	ip, _, _ := startInterpreter(t, TypeEngineLua, luaTree())
	keepToggles(t, ip)
	direct := &bytes.Buffer{}
	mustEngine(t, ip).SetStdout(direct)

	c := NewConsole()
	ip.Toggle().Replace(map[string]bool{ToggleConsoleRedirect: false})
	c.SetCommand(`print("off")`)
	if out := c.Execute(); out.Stdout != "" || direct.String() != "off\n" {
		t.Fatalf("captured = %q, direct = %q", out.Stdout, direct.String())
	}

	ip.Toggle().Replace(map[string]bool{ToggleConsoleRedirect: true})
	c.SetCommand(`print("on")`)
	if out := c.Execute(); out.Stdout != "on\n" || direct.String() != "off\n" {
		t.Fatalf("captured = %q, direct = %q", out.Stdout, direct.String())
	}
}
