// Package negotiate defines the versioned handshake exchanged with every
// runtime and API-layer library before any of its function pointers are
// trusted.
//
// # Protocol
//
// The loader resolves one well-known symbol per library kind
// (RuntimeSymbol or APILayerSymbol), then calls it with a LoaderInfo
// stating the loader's supported interface-version and API-version ranges.
// The library fills in the request record with its chosen versions and its
// entry points. Validate checks the echoed record: wrong struct tag or
// struct version, a chosen version outside the advertised range, or a nil
// mandatory function all reject the library outright.
//
// # Layer Chain Records
//
// APILayerCreateInfo and APILayerNextInfo are handed to each layer's
// CreateAPILayerInstance. The next-info list links each layer to the one
// below it in the call chain, ending at the runtime's entry points.
package negotiate
