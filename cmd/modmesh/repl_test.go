package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	engine "github.com/icyseptember2237/modmesh-engine"
)

func TestRunBasicREPL(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"modmesh/init.lua": "return {}",
		"modmesh/system.lua": `
local M = {}
function M.exec_code(code)
  local ok, err = pcall(loadstring(code))
  if not ok then io.stderr:write(tostring(err), "\n") end
end
return M
`,
	}
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	chdir(t, root)

	ip := engine.Instance()
	ip.Finalize()
	if err := ip.Initialize(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ip.Finalize)
	ip.SetupModmeshPath()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	in := strings.NewReader("x = 20\nprint(x + 1)\nerror('bad')\n")
	if err := runBasicREPL(engine.NewConsole(), in, stdout, stderr); err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(stdout.String(), replPrompt); got != 4 {
		t.Fatalf("prompts = %d, want 4 in %q", got, stdout.String())
	}
	if !strings.Contains(stdout.String(), "21\n") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "bad") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

// chdir changes the working directory to dir for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir, Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
