package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const (
	// PackageName is the scripting package of the platform.
	PackageName = "modmesh"
	// SystemModule provides setup_process, enter_main and exec_code.
	SystemModule = PackageName + ".system"
)

// Interpreter owns the process-wide embedded runtime. It must be driven
// from one goroutine at a time; Initialize and Finalize are not reentrant.
type Interpreter struct {
	engineType string
	engine     Engine

	diag   io.Writer
	toggle *Toggle

	ndarrayReady bool
}

var (
	interpreter     *Interpreter
	interpreterOnce sync.Once
)

// Instance returns the process singleton, uninitialized on first use.
func Instance() *Interpreter {
	interpreterOnce.Do(func() {
		interpreter = &Interpreter{
			engineType: TypeEngineLua,
			diag:       os.Stderr,
			toggle:     NewToggle(DefaultConfig().Toggles),
		}
	})
	return interpreter
}

// SetEngineType selects the engine used by the next Initialize.
func (i *Interpreter) SetEngineType(engineType string) error {
	if i.IsInitialized() {
		return ErrAlreadyInitialized
	}
	i.engineType = engineType
	return nil
}

func (i *Interpreter) EngineType() string {
	return i.engineType
}

// SetDiagnostics sets where swallowed runtime errors and preload progress
// are written. It defaults to os.Stderr.
func (i *Interpreter) SetDiagnostics(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	i.diag = w
}

func (i *Interpreter) Toggle() *Toggle {
	return i.toggle
}

// ApplyConfig selects the engine and replaces the toggles from cfg.
func (i *Interpreter) ApplyConfig(cfg Config) error {
	if err := i.SetEngineType(cfg.Engine); err != nil {
		return err
	}
	i.toggle.Replace(cfg.Toggles)
	return nil
}

func (i *Interpreter) IsInitialized() bool {
	return i.engine != nil
}

// Engine returns the live runtime.
func (i *Interpreter) Engine() (Engine, error) {
	if i.engine == nil {
		return nil, ErrNotInitialized
	}
	return i.engine, nil
}

// Initialize starts the runtime. It is a no-op when already initialized.
func (i *Interpreter) Initialize() error {
	if i.engine != nil {
		return nil
	}

	eng, err := NewEngine(i.engineType)
	if err != nil {
		Logger().Error("interpreter startup failed", zap.String("engine", i.engineType), zap.Error(err))
		return err
	}
	// Scripts read the live set, so reloads are visible without a restart.
	eng.RegisterObject("toggle", i.toggle)

	i.engine = eng
	i.ndarrayReady = false
	Logger().Debug("interpreter initialized", zap.String("engine", i.engineType))
	return nil
}

// Finalize tears the runtime down. A runtime that was already closed by
// someone else is released without closing it again.
func (i *Interpreter) Finalize() {
	if i.engine == nil {
		return
	}
	if i.engine.IsInitialized() {
		i.engine.Close()
	} else {
		Logger().Debug("runtime already torn down, dropping handle")
	}
	i.engine = nil
	i.ndarrayReady = false
	Logger().Debug("interpreter finalized", zap.String("engine", i.engineType))
}

// SetupModmeshPath prepends the nearest ancestor of the working directory
// that holds the platform package to the module search path. Nothing is
// inserted when no such directory exists.
func (i *Interpreter) SetupModmeshPath() {
	eng, err := i.Engine()
	if err != nil {
		i.report("setup_modmesh_path", err)
		return
	}

	root, err := findPackageRoot(PackageName, eng.PackageMarker())
	if err != nil {
		i.report("setup_modmesh_path", err)
		return
	}
	if root == "" {
		Logger().Debug("package root not found", zap.String("package", PackageName))
		return
	}
	eng.PrependSearchPath(root)
	Logger().Debug("package root added to search path", zap.String("root", root))
}

func findPackageRoot(pkg, marker string) (string, error) {
	path, err := os.Getwd()
	if err != nil {
		return "", err
	}
	filename := filepath.Join(pkg, marker)
	for {
		if _, err := os.Stat(filepath.Join(path, filename)); err == nil {
			return path, nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return "", nil
		}
		path = parent
	}
}

// SetupProcess hands the command line to modmesh.system.setup_process.
func (i *Interpreter) SetupProcess() {
	argv := ProcessInfoInstance().CommandLine().ScriptArgv()
	if _, err := i.callSystem("setup_process", argv); err != nil {
		i.report("setup_process", err)
	}
}

// EnterMain runs modmesh.system.enter_main and returns its result as the
// process exit code, or -1 when the call fails.
func (i *Interpreter) EnterMain() int {
	argv := ProcessInfoInstance().CommandLine().ScriptArgv()
	ret, err := i.callSystem("enter_main", argv)
	if err != nil {
		i.report("enter_main", err)
		return -1
	}
	code, err := toInt(ret)
	if err != nil {
		i.report("enter_main", fmt.Errorf("%w: bad exit code: %v", ErrRuntimeBridge, err))
		return -1
	}
	return code
}

// PreloadModule imports name and binds it in the global namespace. A module
// that cannot be found is returned as an error; any other import failure
// is reported and swallowed.
func (i *Interpreter) PreloadModule(name string) error {
	eng, err := i.Engine()
	if err != nil {
		return err
	}

	fmt.Fprintf(i.diag, "Loading %s ... ", name)
	if err := eng.Import(name); err != nil {
		if errors.Is(err, ErrModuleNotFound) {
			fmt.Fprintln(i.diag, "not found")
			return err
		}
		fmt.Fprintln(i.diag, "fails")
		Logger().Warn("preload failed", zap.String("module", name), zap.Error(err))
		return nil
	}
	fmt.Fprintln(i.diag, "succeeds")

	if err := eng.BindGlobal(name); err != nil {
		i.report("preload "+name, err)
	}
	return nil
}

// PreloadModules preloads names in order and stops at the first module
// that cannot be found.
func (i *Interpreter) PreloadModules(names []string) error {
	for _, name := range names {
		if err := i.PreloadModule(name); err != nil {
			return err
		}
	}
	return nil
}

// ExecCode runs source through modmesh.system.exec_code.
func (i *Interpreter) ExecCode(code string) {
	if _, err := i.callSystem("exec_code", code); err != nil {
		i.report("exec_code", err)
	}
}

func (i *Interpreter) callSystem(funcName string, args ...interface{}) (interface{}, error) {
	eng, err := i.Engine()
	if err != nil {
		return nil, err
	}
	return eng.CallModule(SystemModule, funcName, args...)
}

func (i *Interpreter) report(op string, err error) {
	Logger().Warn("runtime error", zap.String("op", op), zap.Error(err))
	fmt.Fprintln(i.diag, err)
}
