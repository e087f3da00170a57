// Package core implements the loader's public entry points and the
// per-instance call-chain machinery.
//
// # Main Types
//
//   - Loader: an explicit service object holding the discovery lock, the
//     handle registries and the runtime reference; the package-level
//     functions delegate to Default
//   - LoaderInstance: one live instance: its layer chain, its dispatch
//     table and its debug-utils state
//   - DispatchTable: the per-instance struct of resolved entry points
//
// # Call Routing
//
// Every public function is a trampoline: it validates arguments, maps the
// opaque handle to its LoaderInstance, and forwards through the dispatch
// table. The table was populated once, at creation, by querying the
// composed GetInstanceProcAddr chain, so the hot path is a single
// indirect call.
//
// The loader's own terminators sit at the inner end of the chain. For
// debug-utils entry points the terminator answers with loader-emulated
// functions when the runtime does not implement the extension, so layers
// and applications see a uniform surface.
//
// # Locking
//
// Three lock levels, never inverted: the discovery lock serializes all
// manifest search and negotiation; each handle registry takes its own
// short lock around map mutation only; per-instance debug-utils state has
// an instance-scoped lock. The discovery lock is always acquired before
// any registry lock.
//
// # Failure Semantics
//
// No error escapes as a panic and no panic escapes at all: every
// trampoline recovers and reports a result code. Any failure before an
// instance reaches its active state rolls back completely: layer
// libraries closed, the runtime reference released, no registry entry
// left behind.
package core
