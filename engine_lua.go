package engine

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/ailncode/gluaxmlpath"
	"github.com/ciaos/gluahttp"
	"github.com/cjoudrey/gluaurl"
	"github.com/yuin/gluamapper"
	"github.com/yuin/gluare"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
	luar "layeh.com/gopher-luar"
)

const (
	TypeEngineLua = "lua"
)

// gopher-lua reports unresolvable requires as "module <name> not found:".
var notFoundMessage = regexp.MustCompile(`module (\S+) not found`)

type LuaEngine struct {
	vm     *lua.LState
	closed bool

	roots       []string
	defaultPath string

	stdout io.Writer
	stderr io.Writer
}

func (e *LuaEngine) New() error {
	e.vm = lua.NewState()
	e.closed = false
	e.roots = nil
	e.stdout = os.Stdout
	e.stderr = os.Stderr

	luajson.Preload(e.vm)
	e.vm.PreloadModule("url", gluaurl.Loader)
	e.vm.PreloadModule("re", gluare.Loader)
	e.vm.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{}).Loader)
	e.vm.PreloadModule("xmlpath", gluaxmlpath.Loader)

	pkg, ok := e.vm.GetGlobal("package").(*lua.LTable)
	if !ok {
		e.Close()
		return fmt.Errorf("%w: lua package library is missing", ErrRuntimeStartup)
	}
	e.defaultPath = lua.LVAsString(e.vm.GetField(pkg, "path"))

	if err := e.installStreams(); err != nil {
		e.Close()
		return err
	}
	return nil
}

func (e *LuaEngine) installStreams() error {
	stdout := func() io.Writer { return e.stdout }
	stderr := func() io.Writer { return e.stderr }

	e.vm.SetGlobal("print", e.vm.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(e.stdout, strings.Join(parts, "\t"))
		return 0
	}))

	ioLib, ok := e.vm.GetGlobal("io").(*lua.LTable)
	if !ok {
		return fmt.Errorf("%w: lua io library is missing", ErrRuntimeStartup)
	}
	stdoutStream := e.newStream(stdout)
	e.vm.SetField(ioLib, "stdout", stdoutStream)
	e.vm.SetField(ioLib, "stderr", e.newStream(stderr))
	e.vm.SetField(ioLib, "write", e.vm.NewFunction(func(L *lua.LState) int {
		for i := 1; i <= L.GetTop(); i++ {
			io.WriteString(e.stdout, L.Get(i).String())
		}
		L.Push(stdoutStream)
		return 1
	}))
	return nil
}

// newStream builds a file-like table whose write method targets the writer
// returned by target at call time.
func (e *LuaEngine) newStream(target func() io.Writer) *lua.LTable {
	stream := e.vm.NewTable()
	e.vm.SetField(stream, "write", e.vm.NewFunction(func(L *lua.LState) int {
		w := target()
		for i := 2; i <= L.GetTop(); i++ {
			io.WriteString(w, L.Get(i).String())
		}
		L.Push(stream)
		return 1
	}))
	e.vm.SetField(stream, "flush", e.vm.NewFunction(func(L *lua.LState) int {
		return 0
	}))
	return stream
}

func (e *LuaEngine) IsInitialized() bool {
	return e.vm != nil && !e.closed
}

func (e *LuaEngine) Close() {
	if !e.IsInitialized() {
		return
	}
	e.vm.Close()
	e.closed = true
}

func (e *LuaEngine) SearchPath() []string {
	return append([]string(nil), e.roots...)
}

func (e *LuaEngine) PrependSearchPath(dir string) {
	e.roots = append([]string{dir}, e.roots...)

	patterns := make([]string, 0, 2*len(e.roots)+1)
	for _, root := range e.roots {
		patterns = append(patterns,
			filepath.Join(root, "?.lua"),
			filepath.Join(root, "?", "init.lua"))
	}
	if e.defaultPath != "" {
		patterns = append(patterns, e.defaultPath)
	}
	e.vm.SetField(e.vm.GetGlobal("package"), "path", lua.LString(strings.Join(patterns, ";")))
}

func (e *LuaEngine) PackageMarker() string {
	return "init.lua"
}

func (e *LuaEngine) ParseString(source string) error {
	if err := e.vm.DoString(source); err != nil {
		return e.wrapError("", err)
	}
	return nil
}

func (e *LuaEngine) ParseFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return e.wrapError("", err)
	}
	return nil
}

func (e *LuaEngine) wrapError(op string, err error) error {
	if m := notFoundMessage.FindStringSubmatch(err.Error()); m != nil {
		return &ModuleNotFoundError{Name: m[1], Cause: err}
	}
	return &ExecutionError{Op: op, Cause: err}
}

func (e *LuaEngine) toLuaValue(src interface{}) lua.LValue {
	if src == nil {
		return lua.LNil
	}
	if lv, ok := src.(lua.LValue); ok {
		return lv
	}
	if reflect.ValueOf(src).Kind() == reflect.Map {
		dst := e.vm.NewTable()
		srcVal := reflect.ValueOf(src)
		for _, key := range srcVal.MapKeys() {
			dst.RawSet(luar.New(e.vm, key.Interface()), e.toLuaValue(srcVal.MapIndex(key).Interface()))
		}
		return dst
	} else if reflect.ValueOf(src).Kind() == reflect.Slice {
		dst := e.vm.NewTable()
		srcVal := reflect.ValueOf(src)
		for i := 0; i < srcVal.Len(); i++ {
			dst.Append(e.toLuaValue(srcVal.Index(i).Interface()))
		}
		return dst
	} else {
		return luar.New(e.vm, src)
	}
}

func (e *LuaEngine) toGoValue(src lua.LValue) interface{} {
	switch v := src.(type) {
	case *lua.LTable:
		maxn := v.MaxN()
		if maxn == 0 { // table
			ret := make(map[string]interface{})
			v.ForEach(func(key, value lua.LValue) {
				keyStr := fmt.Sprint(e.toGoValue(key))
				if keyStr != "" && unicode.IsLower(rune(keyStr[0])) {
					ret[gluamapper.ToUpperCamelCase(keyStr)] = e.toGoValue(value)
				} else {
					ret[keyStr] = e.toGoValue(value)
				}
			})
			return ret
		} else { // array
			ret := make([]interface{}, 0, maxn)
			for i := 1; i <= maxn; i++ {
				ret = append(ret, e.toGoValue(v.RawGetInt(i)))
			}
			return ret
		}
	case *lua.LUserData:
		return v.Value
	default:
		return gluamapper.ToGoValue(src, gluamapper.Option{NameFunc: gluamapper.ToUpperCamelCase})
	}
}

// wrapGoFunc adapts a Go function to a Lua function. Lua arguments are
// converted to the Go parameter types; results are pushed in order.
func (e *LuaEngine) wrapGoFunc(goFuncVal reflect.Value) lua.LGFunction {
	return func(L *lua.LState) int {
		args := make([]interface{}, L.GetTop())
		for i := range args {
			args[i] = e.toGoValue(L.Get(i + 1))
		}
		goRet, err := callGoFunc(goFuncVal, args)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		for _, ret := range goRet {
			L.Push(e.toLuaValue(ret))
		}
		return len(goRet)
	}
}

func (e *LuaEngine) RegisterObject(objectName string, objectPtr interface{}) {
	dst := e.toLuaValue(objectPtr)
	e.vm.SetGlobal(objectName, dst)
}

func (e *LuaEngine) RegisterFunction(goFuncName string, goFuncPtr interface{}) {
	e.vm.SetGlobal(goFuncName, e.vm.NewFunction(e.wrapGoFunc(mustFunc(goFuncPtr))))
}

func (e *LuaEngine) RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) error {
	exports := make(map[string]lua.LGFunction)
	for goFuncName, goFuncPtr := range moduleFuncPtr {
		goFuncVal := reflect.ValueOf(goFuncPtr)
		if goFuncVal.Kind() != reflect.Func {
			return fmt.Errorf("module %s: %s is not a function", moduleName, goFuncName)
		}
		exports[goFuncName] = e.wrapGoFunc(goFuncVal)
	}

	e.vm.PreloadModule(moduleName, func(L *lua.LState) int {
		// register functions to the table
		mod := L.SetFuncs(L.NewTable(), exports)
		// register other stuff
		L.SetField(mod, "name", lua.LString(moduleName))

		// returns the module
		L.Push(mod)
		return 1
	})
	return nil
}

func (e *LuaEngine) require(moduleName string) (lua.LValue, error) {
	if err := e.vm.CallByParam(lua.P{
		Fn:      e.vm.GetGlobal("require"),
		NRet:    1,
		Protect: true,
	}, lua.LString(moduleName)); err != nil {
		return lua.LNil, e.wrapError("import "+moduleName, err)
	}
	mod := e.vm.Get(-1)
	e.vm.Pop(1)
	return mod, nil
}

func (e *LuaEngine) Import(moduleName string) error {
	_, err := e.require(moduleName)
	return err
}

func (e *LuaEngine) BindGlobal(moduleName string) error {
	top := strings.SplitN(moduleName, ".", 2)[0]
	mod, err := e.require(top)
	if err != nil {
		return err
	}
	e.vm.SetGlobal(top, mod)
	return nil
}

func (e *LuaEngine) IsFunction(scriptFuncName string) bool {
	return e.vm.GetGlobal(scriptFuncName).Type() == lua.LTFunction
}

func (e *LuaEngine) callLua(fn lua.LValue, retNum int, args []interface{}) ([]interface{}, error) {
	luaArgs := make([]lua.LValue, len(args))
	for i := 0; i < len(args); i++ {
		luaArgs[i] = e.toLuaValue(args[i])
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    retNum,
		Protect: true,
		Handler: nil,
	}, luaArgs...); err != nil {
		return nil, err
	}

	rets := make([]interface{}, 0, retNum)
	for i := 0; i < retNum; i++ {
		luaRet := e.vm.Get(-1)
		e.vm.Pop(1)

		res := e.toGoValue(luaRet)
		rets = append([]interface{}{res}, rets...)
	}
	return rets, nil
}

func (e *LuaEngine) Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error) {
	rets, err := e.callLua(e.vm.GetGlobal(scriptFuncName), retNum, args)
	if err != nil {
		return nil, e.wrapError(scriptFuncName, err)
	}
	return rets, nil
}

func (e *LuaEngine) CallModule(moduleName, funcName string, args ...interface{}) (interface{}, error) {
	mod, err := e.require(moduleName)
	if err != nil {
		return nil, err
	}
	tbl, ok := mod.(*lua.LTable)
	if !ok {
		return nil, &ExecutionError{Op: moduleName, Cause: fmt.Errorf("module is a %s, not a table", mod.Type())}
	}
	fn := tbl.RawGetString(funcName)
	if fn.Type() != lua.LTFunction {
		return nil, &ExecutionError{Op: moduleName, Cause: fmt.Errorf("%s is not a function", funcName)}
	}
	rets, err := e.callLua(fn, 1, args)
	if err != nil {
		return nil, e.wrapError(moduleName+"."+funcName, err)
	}
	return rets[0], nil
}

func (e *LuaEngine) Stdout() io.Writer     { return e.stdout }
func (e *LuaEngine) SetStdout(w io.Writer) { e.stdout = w }
func (e *LuaEngine) Stderr() io.Writer     { return e.stderr }
func (e *LuaEngine) SetStderr(w io.Writer) { e.stderr = w }

func (e *LuaEngine) GetVM() *lua.LState {
	return e.vm
}
