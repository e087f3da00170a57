// Package dynlib abstracts the platform dynamic-library primitive used to
// load runtimes and API layers.
//
// # Main Types
//
//   - Library: an opened library; Lookup resolves exported symbols to Go
//     values, Close releases the library and invalidates every symbol
//     obtained from it
//   - Provider: opens libraries by path
//   - Registry: an in-process Provider for statically linked or test
//     libraries, registered by path with an explicit symbol table
//
// # Providers
//
// On linux, darwin and freebsd the OS provider is backed by the Go plugin
// mechanism: libraries are Go plugins built with -buildmode=plugin, and
// symbol lookup returns the exported Go function values negotiation needs.
// Elsewhere Open fails and only registered in-process libraries load.
//
// Registered libraries follow the preloaded-plugin pattern: a library that
// is linked into the process registers its symbol table under a well-known
// path, and the loader opens it exactly as it would a file on disk.
//
// # Ownership
//
// A Library exclusively owns its symbols. After Close, Lookup fails and
// previously resolved symbols must not be called; the loader enforces this
// by closing libraries only after the last call that could use them.
package dynlib
