package dynlib

import (
	"github.com/wippyai/xr-loader/errors"
)

// Library is an opened dynamic library.
type Library interface {
	// Path returns the path the library was opened with.
	Path() string

	// Lookup resolves an exported symbol to its Go value.
	Lookup(symbol string) (any, error)

	// Close releases the library. Every symbol obtained from it becomes
	// invalid. Close is idempotent.
	Close() error
}

// Provider opens libraries by path.
type Provider interface {
	Open(path string) (Library, error)
}

// chain tries providers in order, returning the first success.
type chain struct {
	providers []Provider
}

// NewChain returns a Provider that tries each given provider in order.
func NewChain(providers ...Provider) Provider {
	return &chain{providers: providers}
}

func (c *chain) Open(path string) (Library, error) {
	var lastErr error
	for _, p := range c.providers {
		lib, err := p.Open(path)
		if err == nil {
			return lib, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New(errors.PhaseNegotiate, errors.KindNotFound).
			Library(path).
			Detail("no provider configured").
			Build()
	}
	return nil, lastErr
}

// defaultRegistry holds in-process libraries registered at init time.
var defaultRegistry = NewRegistry()

// Register adds an in-process library to the process-wide registry under
// path. The manifest for such a library names the same path as its
// library_path. Registering twice for one path replaces the symbol table.
func Register(path string, symbols map[string]any) {
	defaultRegistry.Register(path, symbols)
}

// Default returns the process-wide provider: registered in-process
// libraries first, then the platform dynamic-library mechanism.
func Default() Provider {
	return NewChain(defaultRegistry, osProvider())
}
