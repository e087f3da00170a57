package manifest

import (
	xrloader "github.com/wippyai/xr-loader"
)

// Kind selects which class of manifest a search targets.
type Kind int

const (
	KindRuntime Kind = iota
	KindImplicitAPILayer
	KindExplicitAPILayer
)

func (k Kind) String() string {
	switch k {
	case KindRuntime:
		return "runtime"
	case KindImplicitAPILayer:
		return "implicit_api_layer"
	case KindExplicitAPILayer:
		return "explicit_api_layer"
	}
	return "unknown"
}

// ExtensionEntry is one extension listing from a manifest.
type ExtensionEntry struct {
	Name             string
	ExtensionVersion uint32
	Entrypoints      []string
}

// ManifestFile carries the fields common to runtime and layer manifests.
// Instances are only ever produced fully populated by the CreateIfValid
// factories.
type ManifestFile struct {
	// Path is the manifest file's own location.
	Path string

	// LibraryPath is the resolved library location: an absolute path, or a
	// bare filename left to the OS library search.
	LibraryPath string

	Kind Kind

	InstanceExtensions []ExtensionEntry
	DeviceExtensions   []ExtensionEntry

	// FunctionRenames maps an original entry-point name to the symbol the
	// library actually exports for it.
	FunctionRenames map[string]string
}

// RenamedFunction returns the exported symbol for name, applying the
// manifest's rename table when one entry matches.
func (m *ManifestFile) RenamedFunction(name string) string {
	if renamed, ok := m.FunctionRenames[name]; ok {
		return renamed
	}
	return name
}

// DeclaresInstanceExtension reports whether the manifest lists the named
// instance extension.
func (m *ManifestFile) DeclaresInstanceExtension(name string) bool {
	for _, ext := range m.InstanceExtensions {
		if ext.Name == name {
			return true
		}
	}
	return false
}

// RuntimeManifestFile describes the active runtime.
type RuntimeManifestFile struct {
	ManifestFile

	// Name is an optional human-readable runtime name.
	Name string
}

// APILayerManifestFile describes one API layer.
type APILayerManifestFile struct {
	ManifestFile

	LayerName             string
	Description           string
	APIVersion            xrloader.Version
	ImplementationVersion uint32

	// DisableEnvironment names the variable that suppresses an implicit
	// layer. Required for implicit layers, empty for explicit ones.
	DisableEnvironment string

	// EnableEnvironment, when non-empty, gates an implicit layer on the
	// named variable being set.
	EnableEnvironment string
}

// Properties returns the layer's discovery-time properties.
func (m *APILayerManifestFile) Properties() xrloader.APILayerProperties {
	return xrloader.APILayerProperties{
		LayerName:    m.LayerName,
		SpecVersion:  m.APIVersion,
		LayerVersion: m.ImplementationVersion,
		Description:  m.Description,
	}
}
