package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const luaSystemModule = `
local M = {}

function M.setup_process(argv)
  M.argv = argv
  if argv[2] == "fail" then
    error("setup failed")
  end
end

function M.enter_main(argv)
  if enter_main_error then
    error("boom")
  end
  return enter_main_code
end

function M.exec_code(code)
  local chunk, err = loadstring(code)
  if not chunk then
    io.stderr:write(err, "\n")
    return
  end
  local ok, err = pcall(chunk)
  if not ok then
    io.stderr:write(tostring(err), "\n")
  end
end

return M
`

const jsSystemModule = `
exports.setup_process = function (argv) {
  exports.argv = argv;
  if (argv[1] === "fail") {
    throw new Error("setup failed");
  }
};

exports.enter_main = function (argv) {
  if (typeof enter_main_error !== "undefined") {
    throw new Error("boom");
  }
  return enter_main_code;
};

exports.exec_code = function (code) {
  try {
    eval(code);
  } catch (e) {
    console.error(String(e));
  }
};
`

func luaTree() map[string]string {
	return map[string]string{
		"modmesh/init.lua":     `return { name = "modmesh" }`,
		"modmesh/system.lua":   luaSystemModule,
		"good.lua":             `return { name = "good" }`,
		"bad.lua":              `error("bad module")`,
		"needsmissing.lua":     `return require("zzz_missing_dep")`,
		"sub/sub2/placeholder": "",
	}
}

func jsTree() map[string]string {
	return map[string]string{
		"modmesh/index.js":  `exports.name = "modmesh";`,
		"modmesh/system.js": jsSystemModule,
		"good.js":           `exports.name = "good";`,
		"bad.js":            `throw new Error("bad module");`,
		"needsmissing.js":   `module.exports = require("zzz_missing_dep");`,
	}
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

// startInterpreter initializes the singleton with engineType inside a fresh
// package tree and returns the diagnostics buffer and the tree root.
func startInterpreter(t *testing.T, engineType string, files map[string]string) (*Interpreter, *bytes.Buffer, string) {
	t.Helper()
	root := writeTree(t, files)
	chdir(t, root)

	ip := Instance()
	ip.Finalize()
	if err := ip.SetEngineType(engineType); err != nil {
		t.Fatal(err)
	}
	diag := &bytes.Buffer{}
	ip.SetDiagnostics(diag)
	if err := ip.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() {
		ip.Finalize()
		ip.SetDiagnostics(nil)
		_ = ip.SetEngineType(TypeEngineLua)
	})
	ip.SetupModmeshPath()
	return ip, diag, root
}

func mustEngine(t *testing.T, ip *Interpreter) Engine {
	t.Helper()
	eng, err := ip.Engine()
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func sameDir(t *testing.T, a, b string) bool {
	t.Helper()
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		t.Fatal(err)
	}
	return ra == rb
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
