// Package layer loads and negotiates API layers.
//
// # Main Types
//
//   - LoadedLayer: one negotiated layer owning its library and the entry
//     points obtained from it
//   - Interface: performs candidate selection and negotiation for one
//     instance-creation attempt
//
// # Ordering
//
// LoadLayers returns layers in call-chain order: every enabled implicit
// layer first, in discovery order, then each explicitly requested layer in
// the caller's enablement order. That order is the order instance creation
// transits the layers, application side first.
//
// # Failure Isolation
//
// An implicit layer that fails to load is logged and skipped. An
// explicitly requested layer that is missing or fails negotiation is a
// hard failure: every layer already loaded for the attempt is closed and
// the error is surfaced. No partially negotiated layer object ever exists.
package layer
