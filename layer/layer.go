package layer

import (
	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/dynlib"
	"github.com/wippyai/xr-loader/errors"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/negotiate"
)

// LoadedLayer is one negotiated API layer. It exclusively owns the opened
// library; Close releases it and invalidates both entry points.
type LoadedLayer struct {
	Name string

	GetInstanceProcAddr    xrloader.GetInstanceProcAddrFunc
	CreateAPILayerInstance negotiate.CreateAPILayerInstanceFunc

	lib        dynlib.Library
	extensions map[string]uint32
}

// SupportsExtension reports whether the layer's manifest declared the
// named instance extension.
func (l *LoadedLayer) SupportsExtension(name string) bool {
	_, ok := l.extensions[name]
	return ok
}

// Extensions returns the layer's declared instance extensions.
func (l *LoadedLayer) Extensions() []xrloader.ExtensionProperties {
	out := make([]xrloader.ExtensionProperties, 0, len(l.extensions))
	for name, version := range l.extensions {
		out = append(out, xrloader.ExtensionProperties{ExtensionName: name, ExtensionVersion: version})
	}
	return out
}

// LibraryPath returns the path of the owned library.
func (l *LoadedLayer) LibraryPath() string { return l.lib.Path() }

// Close unloads the layer's library. The layer's function pointers must
// not be called afterwards.
func (l *LoadedLayer) Close() error {
	return l.lib.Close()
}

// CloseAll closes layers in reverse order, runtime side first.
func CloseAll(layers []*LoadedLayer) {
	for i := len(layers) - 1; i >= 0; i-- {
		if err := layers[i].Close(); err != nil {
			Logger().Warn("closing layer library",
				zap.String("layer", layers[i].Name), zap.Error(err))
		}
	}
}

// Interface negotiates API layers for one instance-creation attempt.
type Interface struct {
	provider dynlib.Provider
	info     negotiate.LoaderInfo
}

// NewInterface creates a layer interface over the given library provider.
func NewInterface(provider dynlib.Provider) *Interface {
	return &Interface{
		provider: provider,
		info:     negotiate.NewLoaderInfo(),
	}
}

// LoadLayers negotiates every layer active for one instance creation:
// all discovered implicit layers, then the explicitly enabled layers in
// enablement order. On any hard failure every already-loaded layer is
// closed and nil layers are returned.
func (i *Interface) LoadLayers(
	enabledNames []string,
	implicit []*manifest.APILayerManifestFile,
	explicit []*manifest.APILayerManifestFile,
) (loaded []*LoadedLayer, err error) {
	byName := make(map[string]*manifest.APILayerManifestFile, len(implicit)+len(explicit))
	for _, mf := range implicit {
		byName[mf.LayerName] = mf
	}
	for _, mf := range explicit {
		if _, dup := byName[mf.LayerName]; !dup {
			byName[mf.LayerName] = mf
		}
	}

	ok := false
	defer func() {
		if !ok {
			CloseAll(loaded)
			loaded = nil
		}
	}()

	attempted := make(map[string]bool)
	active := make(map[string]bool)

	for _, mf := range implicit {
		if attempted[mf.LayerName] {
			continue
		}
		attempted[mf.LayerName] = true

		l, lerr := i.loadOne(mf)
		if lerr != nil {
			// Implicit layers are allowed to be silently absent. If the
			// application also requested this layer by name, the explicit
			// loop retries it and fails hard.
			Logger().Warn("skipping implicit layer",
				zap.String("layer", mf.LayerName), zap.Error(lerr))
			continue
		}
		active[mf.LayerName] = true
		loaded = append(loaded, l)
	}

	for _, name := range enabledNames {
		if active[name] {
			continue
		}
		active[name] = true

		mf := byName[name]
		if mf == nil {
			err = errors.LayerNotPresent(name)
			return
		}
		l, lerr := i.loadOne(mf)
		if lerr != nil {
			err = errors.Wrap(errors.PhaseNegotiate, errors.KindLayerNotPresent, lerr,
				"requested layer "+name+" failed negotiation")
			return
		}
		loaded = append(loaded, l)
	}

	ok = true
	return loaded, nil
}

// loadOne opens and negotiates a single layer. The library is closed on
// every failure path, including a panic in the layer's negotiation entry
// point.
func (i *Interface) loadOne(mf *manifest.APILayerManifestFile) (_ *LoadedLayer, err error) {
	lib, err := i.provider.Open(mf.LibraryPath)
	if err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			_ = lib.Close()
		}
	}()

	symbol := mf.RenamedFunction(negotiate.APILayerSymbol)
	sym, err := lib.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	fn, castOK := negotiate.AsAPILayerNegotiate(sym)
	if !castOK {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindStructMismatch).
			Library(mf.LibraryPath).
			Symbol(symbol).
			Detail("symbol does not have the layer negotiation signature").
			Build()
	}

	info := i.info
	req := negotiate.NewAPILayerRequest()
	if res := fn(&info, mf.LayerName, &req); res.IsError() {
		return nil, errors.New(errors.PhaseNegotiate, errors.KindInitialization).
			Library(mf.LibraryPath).
			Detail("layer negotiation returned %s", res).
			Build()
	}
	if err := negotiate.ValidateAPILayerRequest(&i.info, &req, mf.LibraryPath); err != nil {
		return nil, err
	}

	extensions := make(map[string]uint32, len(mf.InstanceExtensions))
	for _, ext := range mf.InstanceExtensions {
		extensions[ext.Name] = ext.ExtensionVersion
	}

	Logger().Info("loaded API layer",
		zap.String("layer", mf.LayerName),
		zap.String("library", mf.LibraryPath),
		zap.Uint32("interface_version", req.LayerInterfaceVersion),
		zap.String("api_version", req.LayerAPIVersion.String()))

	ok = true
	return &LoadedLayer{
		Name:                   mf.LayerName,
		GetInstanceProcAddr:    req.GetInstanceProcAddr,
		CreateAPILayerInstance: req.CreateAPILayerInstance,
		lib:                    lib,
		extensions:             extensions,
	}, nil
}
