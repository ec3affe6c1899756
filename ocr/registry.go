package ocr

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEngine is wrapped by the EngineUnavailableError returned when
// a chain names an engine that was never registered.
var ErrUnknownEngine = errors.New("unknown ocr engine")

var (
	registryMu sync.Mutex
	factories  = map[string]func() (Engine, error){}
	instances  = map[string]*Lazy{}
)

// Register makes an engine factory available under name. Engine
// implementations call it from their init functions. Register panics if
// name is already taken; duplicate registration is a programming error.
func Register(name string, factory func() (Engine, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("ocr: Register with nil factory")
	}
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("ocr: Register called twice for engine %q", name))
	}
	factories[name] = factory
}

// Lookup returns the shared engine registered under name. The underlying
// backend initializes lazily on first recognition; repeated lookups
// return the same instance. Unknown names yield an
// *EngineUnavailableError wrapping [ErrUnknownEngine].
func Lookup(name string) (*Lazy, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if eng, ok := instances[name]; ok {
		return eng, nil
	}
	factory, ok := factories[name]
	if !ok {
		return nil, &EngineUnavailableError{Engine: name, Err: ErrUnknownEngine}
	}
	eng := NewLazy(name, factory)
	instances[name] = eng
	return eng, nil
}

// Available returns the sorted names of all registered engines. A listed
// engine may still turn out unavailable at first use; the list reflects
// what this build knows how to construct.
func Available() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CloseAll tears down every engine that was actually initialized.
// Call it once after all recognition has finished.
func CloseAll() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var first error
	for _, eng := range instances {
		if err := eng.Close(); err != nil && first == nil {
			first = err
		}
	}
	instances = map[string]*Lazy{}
	return first
}
