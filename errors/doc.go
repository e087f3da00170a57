// Package errors provides structured error types for the xr-loader library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the manifest file or
// library involved, the symbol that failed to resolve, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseNegotiate, errors.KindVersionMismatch).
//		Library("/usr/lib/libfoo_runtime.so").
//		Detail("interface version 3 outside supported range [1, 2]").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.SymbolMissing(libPath, "NegotiateLoaderRuntimeInterface")
//	err := errors.InvalidManifest(path, "file_format_version %q unsupported", v)
//
// All errors implement the standard error interface and support errors.Is/As.
// ResultFor maps any error to the public result code reported across the
// loader's boundary; nothing else is allowed to escape a trampoline.
package errors
