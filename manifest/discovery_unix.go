//go:build !windows

package manifest

import (
	"path/filepath"
)

// configBases returns the XDG-style base directories searched for
// openxr/1 data, most specific first.
func configBases(getenv func(string) string) []string {
	var bases []string
	if home := getenv("XDG_CONFIG_HOME"); home != "" {
		bases = append(bases, home)
	} else if home := getenv("HOME"); home != "" {
		bases = append(bases, filepath.Join(home, ".config"))
	}

	dirs := getenv("XDG_CONFIG_DIRS")
	if dirs == "" {
		dirs = "/etc/xdg"
	}
	bases = append(bases, filepath.SplitList(dirs)...)
	bases = append(bases, "/etc")
	return bases
}

func platformActiveRuntimePaths(getenv func(string) string) []string {
	bases := configBases(getenv)
	paths := make([]string, 0, len(bases))
	for _, base := range bases {
		paths = append(paths, filepath.Join(base, "openxr", "1", "active_runtime.json"))
	}
	return paths
}

func platformAPILayerManifestPaths(getenv func(string) string, kind Kind) []string {
	subdir := "explicit.d"
	if kind == KindImplicitAPILayer {
		subdir = "implicit.d"
	}
	var dirs []string
	for _, base := range configBases(getenv) {
		dirs = append(dirs, filepath.Join(base, "openxr", "1", "api_layers", subdir))
	}
	return listManifestsInDirs(dirs)
}
