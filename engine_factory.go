package engine

import (
	"fmt"
	"sort"
	"sync"
)

var (
	factoriesMu sync.Mutex
	factories   = map[string]func() Engine{
		TypeEngineLua: func() Engine { return &LuaEngine{} },
		TypeEngineJs:  func() Engine { return &JsEngine{} },
	}
)

// RegisterEngine makes an engine type available to NewEngine. Registering an
// existing type replaces it.
func RegisterEngine(engineType string, factory func() Engine) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[engineType] = factory
}

// EngineTypes lists the registered engine types in sorted order.
func EngineTypes() []string {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	types := make([]string, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// NewEngine constructs and starts an engine of the given type.
func NewEngine(engineType string) (Engine, error) {
	factoriesMu.Lock()
	factory, ok := factories[engineType]
	factoriesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine type %q", ErrRuntimeStartup, engineType)
	}

	engine := factory()
	if err := engine.New(); err != nil {
		engine.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrRuntimeStartup, engineType, err)
	}
	return engine, nil
}
