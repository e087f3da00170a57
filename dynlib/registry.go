package dynlib

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/xr-loader/errors"
)

// Registry is an in-process Provider. Libraries are registered by path
// with an explicit symbol table and opened by that same path.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	libs map[string]map[string]any

	opens  atomic.Int64
	closes atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{libs: make(map[string]map[string]any)}
}

// Register adds or replaces the library at path.
func (r *Registry) Register(path string, symbols map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	table := make(map[string]any, len(symbols))
	for name, v := range symbols {
		table[name] = v
	}
	r.libs[path] = table
}

// Unregister removes the library at path.
func (r *Registry) Unregister(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.libs, path)
}

// Open returns a handle on the registered library at path.
func (r *Registry) Open(path string) (Library, error) {
	r.mu.RLock()
	table, ok := r.libs[path]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindNotFound).
			Library(path).
			Detail("not registered").
			Build()
	}

	r.opens.Add(1)
	return &registryLibrary{registry: r, path: path, symbols: table}, nil
}

// OpenCount returns how many handles have been opened. Test helper.
func (r *Registry) OpenCount() int64 { return r.opens.Load() }

// CloseCount returns how many handles have been closed. Test helper.
func (r *Registry) CloseCount() int64 { return r.closes.Load() }

type registryLibrary struct {
	registry *Registry
	path     string
	symbols  map[string]any
	closed   atomic.Bool
}

func (l *registryLibrary) Path() string { return l.path }

func (l *registryLibrary) Lookup(symbol string) (any, error) {
	if l.closed.Load() {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindSymbolMissing).
			Library(l.path).
			Symbol(symbol).
			Detail("library closed").
			Build()
	}
	v, ok := l.symbols[symbol]
	if !ok {
		return nil, errors.SymbolMissing(l.path, symbol, nil)
	}
	return v, nil
}

func (l *registryLibrary) Close() error {
	if l.closed.CompareAndSwap(false, true) {
		l.registry.closes.Add(1)
	}
	return nil
}
