package structure

import (
	"sort"
	"sync"

	"github.com/turtacn/chemindex/pkg/errors"
)

// Factory opens a new toolkit session.
type Factory func() (Session, error)

var (
	toolkitsMu sync.RWMutex
	toolkits   = make(map[string]Factory)
)

// ErrUnknownToolkit is returned by Open for names nobody registered.
var ErrUnknownToolkit = errors.New(errors.ErrCodeUnknownToolkit, "structure toolkit not registered")

// Register makes a toolkit available by name. Bindings call it from init.
// Registering the same name twice or a nil factory panics.
func Register(name string, f Factory) {
	toolkitsMu.Lock()
	defer toolkitsMu.Unlock()
	if f == nil {
		panic("structure: Register factory is nil")
	}
	if _, dup := toolkits[name]; dup {
		panic("structure: Register called twice for toolkit " + name)
	}
	toolkits[name] = f
}

// Open starts a new session of the named toolkit.
func Open(name string) (Session, error) {
	toolkitsMu.RLock()
	f, ok := toolkits[name]
	toolkitsMu.RUnlock()
	if !ok {
		return nil, ErrUnknownToolkit.WithDetail("toolkit=" + name)
	}
	s, err := f()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStructureBackendFailure, "open toolkit session").
			WithDetail("toolkit=" + name)
	}
	return s, nil
}

// Toolkits returns the sorted names of the registered toolkits.
func Toolkits() []string {
	toolkitsMu.RLock()
	defer toolkitsMu.RUnlock()
	names := make([]string, 0, len(toolkits))
	for name := range toolkits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

//Personal.AI order the ending
