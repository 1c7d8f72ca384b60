package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRuntimeStartup reports that an embedded runtime could not be started.
	ErrRuntimeStartup = errors.New("runtime startup failed")
	// ErrRuntimeBridge reports a failed one-shot bridge initialization.
	ErrRuntimeBridge = errors.New("runtime bridge error")
	// ErrModuleNotFound reports an import target that does not exist.
	ErrModuleNotFound = errors.New("module not found")
	// ErrRuntimeExecution reports an error raised by script execution.
	ErrRuntimeExecution = errors.New("runtime execution error")

	ErrNotInitialized     = errors.New("interpreter is not initialized")
	ErrAlreadyInitialized = errors.New("interpreter is already initialized")
)

// ModuleNotFoundError is returned by Engine.Import when the runtime cannot
// resolve a module.
type ModuleNotFoundError struct {
	Name  string
	Cause error
}

func (e *ModuleNotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("module %s not found: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("module %s not found", e.Name)
}

func (e *ModuleNotFoundError) Unwrap() error { return e.Cause }

func (e *ModuleNotFoundError) Is(target error) bool { return target == ErrModuleNotFound }

// ExecutionError wraps an error raised inside the runtime while running
// script code.
type ExecutionError struct {
	Op    string
	Cause error
}

func (e *ExecutionError) Error() string {
	if e.Op == "" {
		return e.Cause.Error()
	}
	return e.Op + ": " + e.Cause.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Cause }

func (e *ExecutionError) Is(target error) bool { return target == ErrRuntimeExecution }

func bridgeError(msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrRuntimeBridge, msg)
	}
	return fmt.Errorf("%w: %s: %v", ErrRuntimeBridge, msg, cause)
}
