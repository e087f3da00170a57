//go:build !(linux || darwin || freebsd)

package dynlib

import (
	"github.com/wippyai/xr-loader/errors"
)

type unsupportedProvider struct{}

func osProvider() Provider { return unsupportedProvider{} }

func (unsupportedProvider) Open(path string) (Library, error) {
	return nil, errors.New(errors.PhaseNegotiate, errors.KindUnsupported).
		Library(path).
		Detail("dynamic library loading is not supported on this platform; register the library in-process").
		Build()
}
