package runtime

import (
	"sync"

	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/dynlib"
	"github.com/wippyai/xr-loader/errors"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/negotiate"
)

// Runtime is the negotiated active runtime. It owns the opened library;
// all function pointers obtained through it die with Close.
type Runtime struct {
	mf   *manifest.RuntimeManifestFile
	lib  dynlib.Library
	gipa xrloader.GetInstanceProcAddrFunc

	interfaceVersion uint32
	apiVersion       xrloader.Version
}

// Name returns the runtime's manifest name, or its library path when the
// manifest carries none.
func (r *Runtime) Name() string {
	if r.mf.Name != "" {
		return r.mf.Name
	}
	return r.mf.LibraryPath
}

// APIVersion returns the API version the runtime negotiated.
func (r *Runtime) APIVersion() xrloader.Version { return r.apiVersion }

// Manifest returns the manifest the runtime was loaded from.
func (r *Runtime) Manifest() *manifest.RuntimeManifestFile { return r.mf }

// GetInstanceProcAddr resolves an entry point from the runtime.
func (r *Runtime) GetInstanceProcAddr(instance xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
	return r.gipa(instance, name)
}

// close unloads the runtime library. Callers go through
// Interface.ReleaseRuntime, which calls this at refcount zero.
func (r *Runtime) close() error {
	return r.lib.Close()
}

// Interface is the process-wide runtime holder. Each live instance
// acquires one reference during creation and releases it on destruction
// or rollback; the runtime library stays loaded while any reference
// exists.
type Interface struct {
	provider dynlib.Provider
	info     negotiate.LoaderInfo

	mu     sync.Mutex
	active *Runtime
	refs   int
}

// NewInterface creates a runtime interface over the given provider.
func NewInterface(provider dynlib.Provider) *Interface {
	return &Interface{
		provider: provider,
		info:     negotiate.NewLoaderInfo(),
	}
}

// LoadRuntime returns the active runtime, discovering and negotiating it
// on first use and adding a reference on every call.
func (i *Interface) LoadRuntime(opts manifest.Options) (*Runtime, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active != nil {
		i.refs++
		return i.active, nil
	}

	mf, err := manifest.FindRuntimeManifest(opts)
	if err != nil {
		return nil, err
	}

	rt, err := i.negotiateRuntime(mf)
	if err != nil {
		return nil, err
	}

	i.active = rt
	i.refs = 1
	return rt, nil
}

// ReleaseRuntime drops one reference and unloads the library at zero.
func (i *Interface) ReleaseRuntime() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.active == nil || i.refs == 0 {
		return
	}
	i.refs--
	if i.refs > 0 {
		return
	}

	if err := i.active.close(); err != nil {
		Logger().Warn("closing runtime library",
			zap.String("library", i.active.mf.LibraryPath), zap.Error(err))
	}
	i.active = nil
}

// Loaded reports whether a runtime is currently resident. Test helper.
func (i *Interface) Loaded() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active != nil
}

// negotiateRuntime opens the manifest's library and performs the
// handshake. The library is closed on every failure path, including a
// panicking negotiation entry point.
func (i *Interface) negotiateRuntime(mf *manifest.RuntimeManifestFile) (_ *Runtime, err error) {
	lib, err := i.provider.Open(mf.LibraryPath)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseNegotiate, errors.KindRuntimeUnavailable, err,
			"cannot open runtime library "+mf.LibraryPath)
	}

	ok := false
	defer func() {
		if !ok {
			_ = lib.Close()
		}
	}()

	symbol := mf.RenamedFunction(negotiate.RuntimeSymbol)
	sym, err := lib.Lookup(symbol)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseNegotiate, errors.KindRuntimeUnavailable, err,
			"runtime library exports no negotiation symbol")
	}
	fn, castOK := negotiate.AsRuntimeNegotiate(sym)
	if !castOK {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindRuntimeUnavailable).
			Library(mf.LibraryPath).
			Symbol(symbol).
			Detail("symbol does not have the runtime negotiation signature").
			Build()
	}

	info := i.info
	req := negotiate.NewRuntimeRequest()
	if res := fn(&info, &req); res.IsError() {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindRuntimeUnavailable).
			Library(mf.LibraryPath).
			Detail("runtime negotiation returned %s", res).
			Build()
	}
	if verr := negotiate.ValidateRuntimeRequest(&i.info, &req, mf.LibraryPath); verr != nil {
		return nil, errors.Wrap(errors.PhaseNegotiate, errors.KindRuntimeUnavailable, verr,
			"runtime rejected")
	}

	Logger().Info("loaded runtime",
		zap.String("library", mf.LibraryPath),
		zap.Uint32("interface_version", req.RuntimeInterfaceVersion),
		zap.String("api_version", req.RuntimeAPIVersion.String()))

	ok = true
	return &Runtime{
		mf:               mf,
		lib:              lib,
		gipa:             req.GetInstanceProcAddr,
		interfaceVersion: req.RuntimeInterfaceVersion,
		apiVersion:       req.RuntimeAPIVersion,
	}, nil
}
