// Package manifest locates and parses the JSON manifest files that
// describe installed runtimes and API layers.
//
// # Main Types
//
//   - RuntimeManifestFile: the single active runtime's manifest
//   - APILayerManifestFile: one implicit or explicit API layer's manifest
//   - Options: search configuration (environment access, search paths)
//
// # Discovery
//
// FindRuntimeManifest resolves exactly one active runtime, preferring the
// XR_RUNTIME_JSON override, then the platform mechanism (registry on
// Windows, XDG config search elsewhere). FindAPILayerManifests enumerates
// every valid layer manifest across the search path for its kind.
//
// # Validation
//
// Manifests are accepted whole or not at all. CreateRuntimeIfValid and
// CreateAPILayerIfValid parse one file and return nil (with a logged
// diagnostic) on any defect: malformed JSON, a file_format_version other
// than 1.0.0, missing required fields, or a library_path that does not
// resolve to an existing file. Discovery continues past rejected files;
// only the total absence of a valid runtime manifest is fatal to the
// triggering call.
//
// # Library Path Resolution
//
// A library_path with no path separator is a bare name left to the OS
// library search. Any other value must be an absolute path that exists,
// or a path relative to the manifest's own directory that exists once
// joined. Resolution anchors to the manifest file, never the process
// working directory, so a manifest moved together with its library keeps
// working.
package manifest
