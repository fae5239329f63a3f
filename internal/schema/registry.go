package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds a definition to the registry.
// Panics if a definition with the same name is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("definition already registered: %s", def.Name))
	}
	registry[def.Name] = def
}

// Get returns a definition by name.
// Returns false if not found.
func Get(name string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns all registered definitions.
// Sorted by group then by name for consistent ordering.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Name < result[j].Name
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// Count returns the number of registered definitions.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// RegisterDir loads every definition in dir into the registry and returns
// how many were added.
func RegisterDir(dir string) (int, error) {
	defs, err := LoadDir(dir)
	if err != nil {
		return 0, err
	}

	registryMu.RLock()
	for _, def := range defs {
		if _, exists := registry[def.Name]; exists {
			registryMu.RUnlock()
			return 0, fmt.Errorf("definition already registered: %s", def.Name)
		}
	}
	registryMu.RUnlock()

	for _, def := range defs {
		Register(def)
	}
	return len(defs), nil
}

// Clear removes all registered definitions.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Definition)
}
