//go:build windows

package manifest

import (
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/registry"
)

const openXRRegistryRoot = `SOFTWARE\Khronos\OpenXR\1`

// platformActiveRuntimePaths reads the ActiveRuntime value under the
// OpenXR registry root.
func platformActiveRuntimePaths(func(string) string) []string {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, openXRRegistryRoot, registry.QUERY_VALUE)
	if err != nil {
		Logger().Debug("no OpenXR registry root", zap.Error(err))
		return nil
	}
	defer key.Close()

	path, _, err := key.GetStringValue("ActiveRuntime")
	if err != nil || path == "" {
		Logger().Debug("no ActiveRuntime registry value", zap.Error(err))
		return nil
	}
	return []string{path}
}

// platformAPILayerManifestPaths enumerates the layer keys: each value
// name is a manifest path, with a DWORD value of 0 meaning enabled.
func platformAPILayerManifestPaths(_ func(string) string, kind Kind) []string {
	subkey := openXRRegistryRoot + `\ApiLayers\Explicit`
	if kind == KindImplicitAPILayer {
		subkey = openXRRegistryRoot + `\ApiLayers\Implicit`
	}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, subkey, registry.QUERY_VALUE)
	if err != nil {
		Logger().Debug("no layer registry key", zap.String("key", subkey), zap.Error(err))
		return nil
	}
	defer key.Close()

	names, err := key.ReadValueNames(0)
	if err != nil {
		Logger().Debug("cannot enumerate layer registry values", zap.String("key", subkey), zap.Error(err))
		return nil
	}

	var paths []string
	for _, name := range names {
		disabled, _, err := key.GetIntegerValue(name)
		if err != nil || disabled != 0 {
			continue
		}
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths
}
