// Package testrt provides in-process fake runtimes and API layers for
// loader tests. Fakes register their symbol tables with a
// dynlib.Registry and answer the negotiation handshake and the core
// entry points, recording enough to assert on call order and lifetimes.
package testrt
