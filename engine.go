package engine

import "io"

// Engine is an embedded scripting runtime driven by the Interpreter.
// Implementations are not safe for concurrent use.
type Engine interface {
	New() error
	IsInitialized() bool
	Close()

	// SearchPath returns the module search roots, most preferred first.
	SearchPath() []string
	PrependSearchPath(dir string)
	// PackageMarker is the file that marks a directory as an importable
	// package, e.g. "init.lua".
	PackageMarker() string

	ParseString(source string) error
	ParseFile(path string) error

	RegisterObject(objectName string, objectPtr interface{})
	RegisterFunction(goFuncName string, goFuncPtr interface{})
	RegisterModule(moduleName string, moduleFuncPtr map[string]interface{}) error

	Import(moduleName string) error
	BindGlobal(moduleName string) error

	IsFunction(scriptFuncName string) bool
	Call(scriptFuncName string, retNum int, args ...interface{}) ([]interface{}, error)
	CallModule(moduleName, funcName string, args ...interface{}) (interface{}, error)

	Stdout() io.Writer
	SetStdout(w io.Writer)
	Stderr() io.Writer
	SetStderr(w io.Writer)
}
