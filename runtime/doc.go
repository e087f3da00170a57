// Package runtime discovers, negotiates and owns the single active
// runtime.
//
// # Main Types
//
//   - Runtime: the negotiated runtime library and its entry points
//   - Interface: a reference-counted holder; each live instance holds one
//     reference, and the library is unloaded when the last one releases
//
// Negotiation follows the same handshake as API layers, with two
// differences: the runtime's well-known symbol differs, and the runtime
// returns no create-instance pointer; creation goes through its
// GetInstanceProcAddr like every other entry point.
//
// Runtime discovery failure is fatal to the triggering call. There is no
// soft-skip for runtimes: exactly one must resolve.
package runtime
