package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/robertkrimen/otto"
)

const (
	TypeEngineJs = "js"
)

const jsModuleNotFound = "ModuleNotFoundError"

type JsEngine struct {
	vm     *otto.Otto
	closed bool

	roots   []string
	natives map[string]map[string]interface{}
	modules map[string]otto.Value

	stdout io.Writer
	stderr io.Writer
}

func (e *JsEngine) New() error {
	e.vm = otto.New()
	e.closed = false
	e.roots = nil
	e.natives = make(map[string]map[string]interface{})
	e.modules = make(map[string]otto.Value)
	e.stdout = os.Stdout
	e.stderr = os.Stderr

	if err := e.vm.Set("require", e.jsRequire); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeStartup, err)
	}
	if err := e.installStreams(); err != nil {
		return fmt.Errorf("%w: %v", ErrRuntimeStartup, err)
	}
	return nil
}

func (e *JsEngine) installStreams() error {
	stdout := e.printer(func() io.Writer { return e.stdout })
	stderr := e.printer(func() io.Writer { return e.stderr })

	console, err := e.vm.Object(`({})`)
	if err != nil {
		return err
	}
	for name, fn := range map[string]func(otto.FunctionCall) otto.Value{
		"log":   stdout,
		"info":  stdout,
		"warn":  stderr,
		"error": stderr,
	} {
		if err := console.Set(name, fn); err != nil {
			return err
		}
	}
	if err := e.vm.Set("console", console); err != nil {
		return err
	}
	return e.vm.Set("print", stdout)
}

func (e *JsEngine) printer(target func() io.Writer) func(otto.FunctionCall) otto.Value {
	return func(call otto.FunctionCall) otto.Value {
		parts := make([]string, 0, len(call.ArgumentList))
		for _, arg := range call.ArgumentList {
			parts = append(parts, arg.String())
		}
		fmt.Fprintln(target(), strings.Join(parts, " "))
		return otto.UndefinedValue()
	}
}

func (e *JsEngine) IsInitialized() bool {
	return e.vm != nil && !e.closed
}

func (e *JsEngine) Close() {
	if !e.IsInitialized() {
		return
	}
	e.modules = nil
	e.closed = true
}

func (e *JsEngine) SearchPath() []string {
	return append([]string(nil), e.roots...)
}

func (e *JsEngine) PrependSearchPath(dir string) {
	e.roots = append([]string{dir}, e.roots...)
}

func (e *JsEngine) PackageMarker() string {
	return "index.js"
}

func (e *JsEngine) ParseString(source string) (err error) {
	defer recoverGoPanic("", &err)
	_, err = e.vm.Run(source)
	if err != nil {
		return e.wrapError("", err)
	}
	return nil
}

func (e *JsEngine) ParseFile(path string) (err error) {
	defer recoverGoPanic(path, &err)
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	script, err := e.vm.Compile(path, source)
	if err != nil {
		return e.wrapError(path, err)
	}
	_, err = e.vm.Run(script)
	if err != nil {
		return e.wrapError(path, err)
	}
	return nil
}

// recoverGoPanic turns a Go panic raised under the VM into an execution
// error. otto rethrows panics that are not its own, and Go methods called
// through reflection never pass through wrapGoFunc.
func recoverGoPanic(op string, err *error) {
	if r := recover(); r != nil {
		*err = &ExecutionError{Op: op, Cause: fmt.Errorf("go panic: %v", r)}
	}
}

func (e *JsEngine) wrapError(op string, err error) error {
	var notFound *ModuleNotFoundError
	if errors.As(err, &notFound) {
		return notFound
	}
	if strings.Contains(err.Error(), jsModuleNotFound) {
		name := strings.TrimPrefix(op, "import ")
		if m := notFoundMessage.FindStringSubmatch(err.Error()); m != nil {
			name = m[1]
		}
		return &ModuleNotFoundError{Name: name, Cause: err}
	}
	return &ExecutionError{Op: op, Cause: err}
}

// wrapGoFunc adapts a Go function to a JavaScript function. Only the first
// Go result is returned to the script.
func (e *JsEngine) wrapGoFunc(goFuncVal reflect.Value) func(otto.FunctionCall) otto.Value {
	return func(call otto.FunctionCall) otto.Value {
		args := make([]interface{}, len(call.ArgumentList))
		for i, jsParam := range call.ArgumentList {
			val, err := jsParam.Export()
			if err != nil {
				panic(call.Otto.MakeTypeError(err.Error()))
			}
			args[i] = val
		}
		goRets, err := callGoFunc(goFuncVal, args)
		if err != nil {
			panic(call.Otto.MakeTypeError(err.Error()))
		}
		if len(goRets) == 0 {
			return otto.NullValue()
		}
		result, err := call.Otto.ToValue(goRets[0])
		if err != nil {
			panic(call.Otto.MakeTypeError(err.Error()))
		}
		return result
	}
}

func (e *JsEngine) RegisterObject(objectName string, objectPtr interface{}) {
	e.vm.Set(objectName, objectPtr)
}

func (e *JsEngine) RegisterFunction(goFuncName string, goFuncPtr interface{}) {
	e.vm.Set(goFuncName, e.wrapGoFunc(mustFunc(goFuncPtr)))
}

func (e *JsEngine) RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) error {
	exports := make(map[string]interface{}, len(moduleFuncPtr))
	for goFuncName, goFuncPtr := range moduleFuncPtr {
		goFuncVal := reflect.ValueOf(goFuncPtr)
		if goFuncVal.Kind() != reflect.Func {
			return fmt.Errorf("module %s: %s is not a function", moduleName, goFuncName)
		}
		exports[goFuncName] = e.wrapGoFunc(goFuncVal)
	}
	e.natives[moduleName] = exports
	delete(e.modules, moduleName)
	return nil
}

func (e *JsEngine) jsRequire(call otto.FunctionCall) otto.Value {
	name := call.Argument(0).String()
	mod, err := e.load(name)
	if err != nil {
		if errors.Is(err, ErrModuleNotFound) {
			panic(call.Otto.MakeCustomError(jsModuleNotFound, err.Error()))
		}
		panic(call.Otto.MakeCustomError("Error", err.Error()))
	}
	return mod
}

func (e *JsEngine) findModule(name string) string {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, root := range e.roots {
		for _, candidate := range []string{
			filepath.Join(root, rel+".js"),
			filepath.Join(root, rel, "index.js"),
		} {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// load resolves a module the way CommonJS require does: native modules
// first, then files under the search roots. Module objects are cached.
func (e *JsEngine) load(name string) (_ otto.Value, err error) {
	defer func() {
		if err != nil {
			delete(e.modules, name)
		}
	}()
	defer recoverGoPanic("import "+name, &err)

	if mod, ok := e.modules[name]; ok {
		return mod, nil
	}

	if exports, ok := e.natives[name]; ok {
		obj, err := e.vm.Object(`({})`)
		if err != nil {
			return otto.UndefinedValue(), err
		}
		for fnName, fn := range exports {
			if err := obj.Set(fnName, fn); err != nil {
				return otto.UndefinedValue(), err
			}
		}
		obj.Set("name", name)
		e.modules[name] = obj.Value()
		return obj.Value(), nil
	}

	path := e.findModule(name)
	if path == "" {
		return otto.UndefinedValue(), &ModuleNotFoundError{Name: name}
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return otto.UndefinedValue(), &ExecutionError{Op: "import " + name, Cause: err}
	}
	script, err := e.vm.Compile(path, "(function (exports, module, require) {\n"+string(source)+"\n})")
	if err != nil {
		return otto.UndefinedValue(), &ExecutionError{Op: "import " + name, Cause: err}
	}
	factory, err := e.vm.Run(script)
	if err != nil {
		return otto.UndefinedValue(), e.wrapError("import "+name, err)
	}

	module, err := e.vm.Object(`({exports: {}})`)
	if err != nil {
		return otto.UndefinedValue(), err
	}
	exports, _ := module.Get("exports")
	require, _ := e.vm.Get("require")
	e.modules[name] = exports
	if _, err := factory.Call(otto.UndefinedValue(), exports, module.Value(), require); err != nil {
		return otto.UndefinedValue(), e.wrapError("import "+name, err)
	}
	exports, _ = module.Get("exports")
	e.modules[name] = exports
	return exports, nil
}

func (e *JsEngine) Import(moduleName string) error {
	_, err := e.load(moduleName)
	return err
}

func (e *JsEngine) BindGlobal(moduleName string) error {
	top := strings.SplitN(moduleName, ".", 2)[0]
	mod, err := e.load(top)
	if err != nil {
		return err
	}
	return e.vm.Set(top, mod)
}

func (e *JsEngine) IsFunction(scriptFuncName string) bool {
	val, err := e.vm.Get(scriptFuncName)
	if err != nil {
		return false
	}
	return val.IsFunction()
}

func (e *JsEngine) Call(scriptFuncName string, retNum int, args ...interface{}) (_ []interface{}, err error) {
	defer recoverGoPanic(scriptFuncName, &err)
	value, err := e.vm.Call(scriptFuncName, nil, args...)
	if err != nil {
		return nil, e.wrapError(scriptFuncName, err)
	}
	if retNum == 0 {
		return nil, nil
	}
	data, err := value.Export()
	if err != nil {
		return nil, err
	}
	return []interface{}{data}, nil
}

func (e *JsEngine) CallModule(moduleName, funcName string, args ...interface{}) (_ interface{}, err error) {
	defer recoverGoPanic(moduleName+"."+funcName, &err)
	mod, err := e.load(moduleName)
	if err != nil {
		return nil, err
	}
	if !mod.IsObject() {
		return nil, &ExecutionError{Op: moduleName, Cause: errors.New("module exports is not an object")}
	}
	fn, err := mod.Object().Get(funcName)
	if err != nil || !fn.IsFunction() {
		return nil, &ExecutionError{Op: moduleName, Cause: fmt.Errorf("%s is not a function", funcName)}
	}
	jsArgs := make([]interface{}, len(args))
	for i, arg := range args {
		jsArgs[i] = e.toJsValue(arg)
	}
	value, err := fn.Call(mod, jsArgs...)
	if err != nil {
		return nil, e.wrapError(moduleName+"."+funcName, err)
	}
	return value.Export()
}

// toJsValue turns Go string slices into plain arrays so scripts see a real
// Array rather than a wrapped Go slice.
func (e *JsEngine) toJsValue(src interface{}) interface{} {
	if s, ok := src.([]string); ok {
		arr := make([]interface{}, len(s))
		for i, v := range s {
			arr[i] = v
		}
		return arr
	}
	return src
}

func (e *JsEngine) Stdout() io.Writer     { return e.stdout }
func (e *JsEngine) SetStdout(w io.Writer) { e.stdout = w }
func (e *JsEngine) Stderr() io.Writer     { return e.stderr }
func (e *JsEngine) SetStderr(w io.Writer) { e.stderr = w }
