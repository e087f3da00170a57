package manifest

import (
	"path/filepath"
	"testing"
)

// env builds an Environ func over a fixed map.
func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFindRuntimeManifest_Override(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, filepath.Join(dir, "rt.json"), runtimeJSON("1.0.0", "librt.so"))
	invalid := writeFile(t, filepath.Join(dir, "bad.json"), runtimeJSON("2.0.0", "librt.so"))

	t.Run("valid override wins", func(t *testing.T) {
		mf, err := FindRuntimeManifest(Options{Environ: env(map[string]string{RuntimeOverrideEnvVar: valid})})
		if err != nil {
			t.Fatalf("FindRuntimeManifest: %v", err)
		}
		if mf.Path != valid {
			t.Errorf("Path = %q, want %q", mf.Path, valid)
		}
	})

	t.Run("invalid override fails without fallback", func(t *testing.T) {
		_, err := FindRuntimeManifest(Options{
			Environ:            env(map[string]string{RuntimeOverrideEnvVar: invalid}),
			RuntimeSearchPaths: []string{valid}, // must not be consulted
		})
		if err == nil {
			t.Fatal("invalid override should fail discovery outright")
		}
	})
}

func TestFindRuntimeManifest_SearchOrder(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, filepath.Join(dir, "a", "active_runtime.json"), runtimeJSON("1.0.0", "liba.so"))
	second := writeFile(t, filepath.Join(dir, "b", "active_runtime.json"), runtimeJSON("1.0.0", "libb.so"))

	mf, err := FindRuntimeManifest(Options{
		Environ:            env(nil),
		RuntimeSearchPaths: []string{filepath.Join(dir, "missing.json"), first, second},
	})
	if err != nil {
		t.Fatalf("FindRuntimeManifest: %v", err)
	}
	if mf.Path != first {
		t.Errorf("Path = %q, want first candidate %q", mf.Path, first)
	}
}

func TestFindRuntimeManifest_InvalidCandidateSkipped(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, filepath.Join(dir, "bad.json"), runtimeJSON("9.9.9", "lib.so"))
	good := writeFile(t, filepath.Join(dir, "good.json"), runtimeJSON("1.0.0", "lib.so"))

	mf, err := FindRuntimeManifest(Options{
		Environ:            env(nil),
		RuntimeSearchPaths: []string{bad, good},
	})
	if err != nil {
		t.Fatalf("FindRuntimeManifest: %v", err)
	}
	if mf.Path != good {
		t.Errorf("Path = %q, want %q", mf.Path, good)
	}
}

func TestFindRuntimeManifest_NoneFound(t *testing.T) {
	_, err := FindRuntimeManifest(Options{
		Environ:            env(nil),
		RuntimeSearchPaths: []string{filepath.Join(t.TempDir(), "nope.json")},
	})
	if err == nil {
		t.Fatal("expected discovery error with no valid runtime manifest")
	}
}

func TestFindAPILayerManifests_ImplicitEnvironmentGating(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain.json"), layerJSON("XR_APILAYER_test_plain", "libplain.so", "DISABLE_PLAIN", ""))
	writeFile(t, filepath.Join(dir, "gated.json"), layerJSON("XR_APILAYER_test_gated", "libgated.so", "DISABLE_GATED", "ENABLE_GATED"))

	find := func(vars map[string]string) map[string]bool {
		t.Helper()
		got := map[string]bool{}
		for _, mf := range FindAPILayerManifests(KindImplicitAPILayer, Options{
			Environ:           env(vars),
			ImplicitLayerDirs: []string{dir},
		}) {
			got[mf.LayerName] = true
		}
		return got
	}

	t.Run("default", func(t *testing.T) {
		got := find(nil)
		if !got["XR_APILAYER_test_plain"] {
			t.Error("plain implicit layer should load")
		}
		if got["XR_APILAYER_test_gated"] {
			t.Error("enable-gated layer should not load without its enable variable")
		}
	})

	t.Run("disable wins", func(t *testing.T) {
		got := find(map[string]string{"DISABLE_PLAIN": "1"})
		if got["XR_APILAYER_test_plain"] {
			t.Error("disabled implicit layer loaded")
		}
	})

	t.Run("disable wins even over enable", func(t *testing.T) {
		got := find(map[string]string{"ENABLE_GATED": "1", "DISABLE_GATED": "1"})
		if got["XR_APILAYER_test_gated"] {
			t.Error("layer with both variables set should stay disabled")
		}
	})

	t.Run("enable variable admits layer", func(t *testing.T) {
		got := find(map[string]string{"ENABLE_GATED": "1"})
		if !got["XR_APILAYER_test_gated"] {
			t.Error("enable-gated layer should load with its enable variable set")
		}
	})
}

func TestFindAPILayerManifests_ExplicitOverridePath(t *testing.T) {
	standard := t.TempDir()
	override := t.TempDir()
	writeFile(t, filepath.Join(standard, "std.json"), layerJSON("XR_APILAYER_test_std", "libstd.so", "", ""))
	writeFile(t, filepath.Join(override, "ovr.json"), layerJSON("XR_APILAYER_test_ovr", "libovr.so", "", ""))

	names := func(opts Options) map[string]bool {
		got := map[string]bool{}
		for _, mf := range FindAPILayerManifests(KindExplicitAPILayer, opts) {
			got[mf.LayerName] = true
		}
		return got
	}

	t.Run("override replaces standard search", func(t *testing.T) {
		got := names(Options{
			Environ:           env(map[string]string{APILayerPathEnvVar: override}),
			ExplicitLayerDirs: []string{standard},
		})
		if !got["XR_APILAYER_test_ovr"] || got["XR_APILAYER_test_std"] {
			t.Errorf("override search found %v, want only the override layer", got)
		}
	})

	t.Run("additive mode merges both", func(t *testing.T) {
		got := names(Options{
			Environ:           env(map[string]string{APILayerPathEnvVar: override}),
			ExplicitLayerDirs: []string{standard},
			AdditiveLayerPath: true,
		})
		if !got["XR_APILAYER_test_ovr"] || !got["XR_APILAYER_test_std"] {
			t.Errorf("additive search found %v, want both layers", got)
		}
	})

	t.Run("no override uses standard dirs", func(t *testing.T) {
		got := names(Options{
			Environ:           env(nil),
			ExplicitLayerDirs: []string{standard},
		})
		if !got["XR_APILAYER_test_std"] || got["XR_APILAYER_test_ovr"] {
			t.Errorf("standard search found %v", got)
		}
	})
}

func TestFindAPILayerManifests_InvalidFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")
	writeFile(t, filepath.Join(dir, "good.json"), layerJSON("XR_APILAYER_test_good", "libgood.so", "", ""))
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored, not a manifest")

	layers := FindAPILayerManifests(KindExplicitAPILayer, Options{
		Environ:           env(nil),
		ExplicitLayerDirs: []string{dir},
	})
	if len(layers) != 1 || layers[0].LayerName != "XR_APILAYER_test_good" {
		t.Errorf("got %d layers, want exactly the valid one", len(layers))
	}
}
