package reader

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

func init() {
	Register("csv", NewCSV)
	Register("xls", NewXLS)
	Register("xlsx", NewXLSX)
}

// Register binds a file extension (without the dot) to a reader factory.
// Panics if the extension is already registered.
func Register(ext string, f Factory) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if _, exists := factories[ext]; exists {
		panic(fmt.Sprintf("reader already registered: %s", ext))
	}
	factories[ext] = f
}

// Lookup returns the factory registered for ext.
func Lookup(ext string) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	f, ok := factories[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// ForName picks a factory from the extension of name.
func ForName(name string) (Factory, error) {
	src := Source{name: name}
	ext := src.Ext()
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnresolvedReader, name)
	}
	f, ok := Lookup(ext)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrUnresolvedReader, ext)
	}
	return f, nil
}

// Extensions returns the registered extensions, sorted.
func Extensions() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	out := make([]string, 0, len(factories))
	for ext := range factories {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Open resolves a reader for src from its extension and opens it.
func Open(src *Source, opts Options) (Reader, error) {
	f, err := ForName(src.Name())
	if err != nil {
		return nil, err
	}
	return f(src, opts)
}
