package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/xr-loader/errors"
)

// Environment variables consumed by discovery.
const (
	// RuntimeOverrideEnvVar points directly at one runtime manifest,
	// bypassing the platform search entirely.
	RuntimeOverrideEnvVar = "XR_RUNTIME_JSON"

	// APILayerPathEnvVar is a path-list of directories searched for
	// explicit layer manifests instead of the standard directories.
	APILayerPathEnvVar = "XR_API_LAYER_PATH"
)

// Options configures discovery. The zero value uses the process
// environment and the platform's standard search locations.
type Options struct {
	// Environ reads one environment variable; nil means os.Getenv.
	Environ func(key string) string

	// RuntimeSearchPaths overrides the platform candidate list of active
	// runtime manifest files.
	RuntimeSearchPaths []string

	// ImplicitLayerDirs and ExplicitLayerDirs override the platform layer
	// manifest directories.
	ImplicitLayerDirs []string
	ExplicitLayerDirs []string

	// AdditiveLayerPath keeps the standard explicit-layer directories in
	// the search when APILayerPathEnvVar is set, instead of replacing
	// them. The runtime override has no such mode; the asymmetry is
	// deliberate and mirrors shipped loader behavior.
	AdditiveLayerPath bool
}

func (o Options) getenv(key string) string {
	if o.Environ != nil {
		return o.Environ(key)
	}
	return os.Getenv(key)
}

// FindRuntimeManifest resolves the single active runtime manifest.
//
// The override variable wins outright when set: if it does not name a
// valid manifest the search fails rather than falling back. Otherwise
// each platform candidate path is tried in order and the first valid
// manifest wins.
func FindRuntimeManifest(opts Options) (*RuntimeManifestFile, error) {
	if override := opts.getenv(RuntimeOverrideEnvVar); override != "" {
		Logger().Info("runtime manifest override set",
			zap.String("var", RuntimeOverrideEnvVar), zap.String("path", override))
		if mf := CreateRuntimeIfValid(override); mf != nil {
			return mf, nil
		}
		return nil, errors.RuntimeUnavailable("%s=%q does not name a valid runtime manifest",
			RuntimeOverrideEnvVar, override)
	}

	candidates := opts.RuntimeSearchPaths
	if len(candidates) == 0 {
		candidates = platformActiveRuntimePaths(opts.getenv)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if mf := CreateRuntimeIfValid(path); mf != nil {
			return mf, nil
		}
	}
	return nil, errors.RuntimeUnavailable("no valid active runtime manifest found in %d search locations", len(candidates))
}

// FindAPILayerManifests enumerates every valid layer manifest of the
// given kind. Implicit layers are filtered by their enable/disable
// environment variables here, at discovery time. Invalid files are
// skipped with a logged diagnostic; enumeration never fails outright.
func FindAPILayerManifests(kind Kind, opts Options) []*APILayerManifestFile {
	var paths []string

	switch kind {
	case KindExplicitAPILayer:
		if override := opts.getenv(APILayerPathEnvVar); override != "" {
			dirs := filepath.SplitList(override)
			paths = listManifestsInDirs(dirs)
			if opts.AdditiveLayerPath {
				paths = append(paths, explicitStandardPaths(opts)...)
			}
		} else {
			paths = explicitStandardPaths(opts)
		}
	case KindImplicitAPILayer:
		if len(opts.ImplicitLayerDirs) > 0 {
			paths = listManifestsInDirs(opts.ImplicitLayerDirs)
		} else {
			paths = platformAPILayerManifestPaths(opts.getenv, kind)
		}
	default:
		return nil
	}

	var out []*APILayerManifestFile
	for _, path := range paths {
		mf := CreateAPILayerIfValid(path, kind)
		if mf == nil {
			continue
		}
		if kind == KindImplicitAPILayer && !implicitLayerEnabled(mf, opts) {
			continue
		}
		out = append(out, mf)
	}
	return out
}

func explicitStandardPaths(opts Options) []string {
	if len(opts.ExplicitLayerDirs) > 0 {
		return listManifestsInDirs(opts.ExplicitLayerDirs)
	}
	return platformAPILayerManifestPaths(opts.getenv, KindExplicitAPILayer)
}

// implicitLayerEnabled evaluates the manifest's enable/disable variables:
// the disable variable set to anything suppresses the layer; an enable
// variable, when named, must be set for the layer to load.
func implicitLayerEnabled(mf *APILayerManifestFile, opts Options) bool {
	if mf.DisableEnvironment != "" && opts.getenv(mf.DisableEnvironment) != "" {
		Logger().Info("implicit layer disabled by environment",
			zap.String("layer", mf.LayerName),
			zap.String("var", mf.DisableEnvironment))
		return false
	}
	if mf.EnableEnvironment != "" && opts.getenv(mf.EnableEnvironment) == "" {
		Logger().Debug("implicit layer not enabled by environment",
			zap.String("layer", mf.LayerName),
			zap.String("var", mf.EnableEnvironment))
		return false
	}
	return true
}

// listManifestsInDirs returns every .json file across dirs, sorted within
// each directory for deterministic enumeration order.
func listManifestsInDirs(dirs []string) []string {
	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			Logger().Debug("skipping unreadable manifest directory",
				zap.String("dir", dir), zap.Error(err))
			continue
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
		sort.Strings(files)
		out = append(out, files...)
	}
	return out
}
