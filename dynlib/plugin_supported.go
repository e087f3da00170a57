//go:build linux || darwin || freebsd

package dynlib

import (
	"plugin"
	"sync/atomic"

	"github.com/wippyai/xr-loader/errors"
)

// pluginProvider opens Go plugins built with -buildmode=plugin.
type pluginProvider struct{}

func osProvider() Provider { return pluginProvider{} }

func (pluginProvider) Open(path string) (Library, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindNotFound).
			Library(path).
			Cause(err).
			Detail("open plugin").
			Build()
	}
	return &pluginLibrary{path: path, plugin: p}, nil
}

type pluginLibrary struct {
	path   string
	plugin *plugin.Plugin
	closed atomic.Bool
}

func (l *pluginLibrary) Path() string { return l.path }

func (l *pluginLibrary) Lookup(symbol string) (any, error) {
	if l.closed.Load() {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindSymbolMissing).
			Library(l.path).
			Symbol(symbol).
			Detail("library closed").
			Build()
	}
	sym, err := l.plugin.Lookup(symbol)
	if err != nil {
		return nil, errors.SymbolMissing(l.path, symbol, err)
	}
	return sym, nil
}

// Close marks the library closed. Go plugins stay mapped until process
// exit, so this is bookkeeping only: further Lookup calls fail, which is
// what the loader's stale-pointer guarantee needs.
func (l *pluginLibrary) Close() error {
	l.closed.Store(true)
	return nil
}
