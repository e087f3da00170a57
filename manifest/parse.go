package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
)

// supportedFormatVersion is the only manifest format this loader accepts.
var supportedFormatVersion = semver.Version{Major: 1, Minor: 0, Patch: 0}

type rawExtension struct {
	Name             string   `json:"name"`
	ExtensionVersion uint32   `json:"extension_version"`
	Entrypoints      []string `json:"entrypoints"`
}

type rawRuntime struct {
	Name               string            `json:"name"`
	LibraryPath        string            `json:"library_path"`
	Functions          map[string]string `json:"functions"`
	InstanceExtensions []rawExtension    `json:"instance_extensions"`
	DeviceExtensions   []rawExtension    `json:"device_extensions"`
}

type rawAPILayer struct {
	Name                  string            `json:"name"`
	LibraryPath           string            `json:"library_path"`
	APIVersion            string            `json:"api_version"`
	ImplementationVersion string            `json:"implementation_version"`
	Description           string            `json:"description"`
	DisableEnvironment    string            `json:"disable_environment"`
	EnableEnvironment     string            `json:"enable_environment"`
	Functions             map[string]string `json:"functions"`
	InstanceExtensions    []rawExtension    `json:"instance_extensions"`
	DeviceExtensions      []rawExtension    `json:"device_extensions"`
}

type rawManifest struct {
	FileFormatVersion string       `json:"file_format_version"`
	Runtime           *rawRuntime  `json:"runtime"`
	APILayer          *rawAPILayer `json:"api_layer"`
}

// CreateRuntimeIfValid parses path as a runtime manifest. It returns a
// fully populated manifest or nil; every rejection reason is logged and
// discovery continues past it.
func CreateRuntimeIfValid(path string) *RuntimeManifestFile {
	raw := readManifest(path)
	if raw == nil {
		return nil
	}
	if raw.Runtime == nil {
		Logger().Warn("manifest has no runtime object", zap.String("path", path))
		return nil
	}
	if raw.Runtime.LibraryPath == "" {
		Logger().Warn("runtime manifest missing library_path", zap.String("path", path))
		return nil
	}

	libPath, ok := resolveLibraryPath(path, raw.Runtime.LibraryPath)
	if !ok {
		return nil
	}

	return &RuntimeManifestFile{
		ManifestFile: ManifestFile{
			Path:               path,
			LibraryPath:        libPath,
			Kind:               KindRuntime,
			InstanceExtensions: convertExtensions(raw.Runtime.InstanceExtensions),
			DeviceExtensions:   convertExtensions(raw.Runtime.DeviceExtensions),
			FunctionRenames:    raw.Runtime.Functions,
		},
		Name: raw.Runtime.Name,
	}
}

// CreateAPILayerIfValid parses path as an API layer manifest of the given
// kind. Same full-or-nothing contract as CreateRuntimeIfValid.
func CreateAPILayerIfValid(path string, kind Kind) *APILayerManifestFile {
	if kind != KindImplicitAPILayer && kind != KindExplicitAPILayer {
		Logger().Warn("layer manifest requested with non-layer kind",
			zap.String("path", path), zap.Stringer("kind", kind))
		return nil
	}

	raw := readManifest(path)
	if raw == nil {
		return nil
	}
	layer := raw.APILayer
	if layer == nil {
		Logger().Warn("manifest has no api_layer object", zap.String("path", path))
		return nil
	}
	if layer.Name == "" || layer.LibraryPath == "" || layer.APIVersion == "" || layer.ImplementationVersion == "" {
		Logger().Warn("layer manifest missing required fields",
			zap.String("path", path), zap.String("layer", layer.Name))
		return nil
	}

	apiVersion, ok := xrloader.ParseVersion(layer.APIVersion)
	if !ok {
		Logger().Warn("layer manifest has unparseable api_version",
			zap.String("path", path), zap.String("api_version", layer.APIVersion))
		return nil
	}

	implVersion, err := strconv.ParseUint(layer.ImplementationVersion, 10, 32)
	if err != nil {
		Logger().Warn("layer manifest has non-integer implementation_version",
			zap.String("path", path), zap.String("implementation_version", layer.ImplementationVersion))
		return nil
	}

	if kind == KindImplicitAPILayer && layer.DisableEnvironment == "" {
		Logger().Warn("implicit layer manifest missing disable_environment",
			zap.String("path", path), zap.String("layer", layer.Name))
		return nil
	}

	libPath, ok := resolveLibraryPath(path, layer.LibraryPath)
	if !ok {
		return nil
	}

	return &APILayerManifestFile{
		ManifestFile: ManifestFile{
			Path:               path,
			LibraryPath:        libPath,
			Kind:               kind,
			InstanceExtensions: convertExtensions(layer.InstanceExtensions),
			DeviceExtensions:   convertExtensions(layer.DeviceExtensions),
			FunctionRenames:    layer.Functions,
		},
		LayerName:             layer.Name,
		Description:           layer.Description,
		APIVersion:            apiVersion,
		ImplementationVersion: uint32(implVersion),
		DisableEnvironment:    layer.DisableEnvironment,
		EnableEnvironment:     layer.EnableEnvironment,
	}
}

// readManifest loads and format-checks one manifest file.
func readManifest(path string) *rawManifest {
	data, err := os.ReadFile(path)
	if err != nil {
		Logger().Warn("cannot read manifest", zap.String("path", path), zap.Error(err))
		return nil
	}

	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		Logger().Warn("manifest is not valid JSON", zap.String("path", path), zap.Error(err))
		return nil
	}

	format, err := semver.NewVersion(raw.FileFormatVersion)
	if err != nil {
		Logger().Warn("manifest has unparseable file_format_version",
			zap.String("path", path), zap.String("file_format_version", raw.FileFormatVersion))
		return nil
	}
	if !format.Equal(supportedFormatVersion) {
		Logger().Warn("manifest has unsupported file_format_version",
			zap.String("path", path),
			zap.String("file_format_version", raw.FileFormatVersion),
			zap.String("supported", supportedFormatVersion.String()))
		return nil
	}

	return &raw
}

// resolveLibraryPath applies the library-path rule: a bare filename is
// left to the OS library search; anything with a separator must exist as
// given or relative to the manifest's directory.
func resolveLibraryPath(manifestPath, libraryPath string) (string, bool) {
	if !strings.ContainsAny(libraryPath, `/\`) {
		return libraryPath, true
	}

	candidate := libraryPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(filepath.Dir(manifestPath), candidate)
	}
	if _, err := os.Stat(candidate); err != nil {
		Logger().Warn("manifest library_path does not resolve to a file",
			zap.String("path", manifestPath),
			zap.String("library_path", libraryPath),
			zap.String("resolved", candidate),
			zap.Error(err))
		return "", false
	}
	return candidate, true
}

func convertExtensions(raw []rawExtension) []ExtensionEntry {
	if len(raw) == 0 {
		return nil
	}
	out := make([]ExtensionEntry, 0, len(raw))
	for _, e := range raw {
		out = append(out, ExtensionEntry{
			Name:             e.Name,
			ExtensionVersion: e.ExtensionVersion,
			Entrypoints:      e.Entrypoints,
		})
	}
	return out
}
