package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	xrloader "github.com/wippyai/xr-loader"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDiscovery Phase = "discovery" // manifest search and parsing
	PhaseNegotiate Phase = "negotiate" // version handshake with a library
	PhaseCreate    Phase = "create"    // instance construction
	PhaseDispatch  Phase = "dispatch"  // dispatch-table population and calls
	PhaseRuntime   Phase = "runtime"   // calls forwarded to the runtime
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidManifest    Kind = "invalid_manifest"
	KindFileAccess         Kind = "file_access"
	KindVersionMismatch    Kind = "version_mismatch"
	KindStructMismatch     Kind = "struct_mismatch"
	KindSymbolMissing      Kind = "symbol_missing"
	KindNilPointer         Kind = "nil_pointer"
	KindLayerNotPresent    Kind = "layer_not_present"
	KindRuntimeUnavailable Kind = "runtime_unavailable"
	KindHandleInvalid      Kind = "handle_invalid"
	KindValidation         Kind = "validation"
	KindUnsupported        Kind = "unsupported"
	KindAllocation         Kind = "allocation"
	KindInitialization     Kind = "initialization"
	KindLimitReached       Kind = "limit_reached"
)

// Error is the structured error type used throughout the loader
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	File   string // manifest or library path involved, if any
	Symbol string // negotiation or entry-point symbol involved, if any
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.File != "" {
		b.WriteString(" in ")
		b.WriteString(e.File)
	}
	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// File sets the manifest or library path involved
func (b *Builder) File(path string) *Builder {
	b.err.File = path
	return b
}

// Library is an alias for File, used when the path names a shared library
func (b *Builder) Library(path string) *Builder {
	b.err.File = path
	return b
}

// Symbol sets the symbol involved
func (b *Builder) Symbol(name string) *Builder {
	b.err.Symbol = name
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidManifest creates a per-file manifest rejection error
func InvalidManifest(path, detail string, args ...any) *Error {
	return New(PhaseDiscovery, KindInvalidManifest).File(path).Detail(detail, args...).Build()
}

// FileAccess creates a file access error
func FileAccess(path string, cause error) *Error {
	return &Error{
		Phase: PhaseDiscovery,
		Kind:  KindFileAccess,
		File:  path,
		Cause: cause,
	}
}

// RuntimeUnavailable creates an active-runtime resolution failure
func RuntimeUnavailable(detail string, args ...any) *Error {
	return New(PhaseDiscovery, KindRuntimeUnavailable).Detail(detail, args...).Build()
}

// LayerNotPresent creates an explicitly-requested-layer-missing error
func LayerNotPresent(layerName string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindLayerNotPresent,
		Detail: fmt.Sprintf("API layer %q was requested but not discovered", layerName),
	}
}

// SymbolMissing creates a missing negotiation or entry-point symbol error
func SymbolMissing(libPath, symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseNegotiate,
		Kind:   KindSymbolMissing,
		File:   libPath,
		Symbol: symbol,
		Cause:  cause,
	}
}

// VersionMismatch creates a negotiation version rejection error
func VersionMismatch(libPath, detail string, args ...any) *Error {
	return New(PhaseNegotiate, KindVersionMismatch).Library(libPath).Detail(detail, args...).Build()
}

// StructMismatch creates a negotiation record tag/version rejection error
func StructMismatch(libPath, detail string, args ...any) *Error {
	return New(PhaseNegotiate, KindStructMismatch).Library(libPath).Detail(detail, args...).Build()
}

// NilPointer creates a null-mandatory-pointer error
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Detail: fmt.Sprintf("%s is nil", what),
	}
}

// HandleInvalid creates an unknown-or-destroyed-handle error
func HandleInvalid(what string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindHandleInvalid,
		Detail: fmt.Sprintf("%s does not name a live object", what),
	}
}

// Validation creates a caller-precondition violation error
func Validation(detail string, args ...any) *Error {
	return New(PhaseDispatch, KindValidation).Detail(detail, args...).Build()
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Allocation creates an out-of-memory error
func Allocation(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("allocation failed: %s", what),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ResultFor maps an error to the result code reported across the loader's
// public boundary. A nil error maps to Success; an error whose chain
// carries no *Error maps to ErrorRuntimeFailure.
func ResultFor(err error) xrloader.Result {
	if err == nil {
		return xrloader.Success
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return xrloader.ErrorRuntimeFailure
	}

	switch e.Kind {
	case KindRuntimeUnavailable:
		return xrloader.ErrorRuntimeUnavailable
	case KindFileAccess, KindNotFound:
		return xrloader.ErrorFileAccessError
	case KindLayerNotPresent:
		return xrloader.ErrorAPILayerNotPresent
	case KindHandleInvalid:
		return xrloader.ErrorHandleInvalid
	case KindValidation, KindNilPointer:
		return xrloader.ErrorValidationFailure
	case KindAllocation:
		return xrloader.ErrorOutOfMemory
	case KindVersionMismatch:
		return xrloader.ErrorAPIVersionUnsupported
	case KindUnsupported:
		return xrloader.ErrorFunctionUnsupported
	case KindLimitReached:
		return xrloader.ErrorLimitReached
	case KindInvalidManifest, KindStructMismatch, KindSymbolMissing, KindInitialization:
		return xrloader.ErrorInitializationFailed
	}
	return xrloader.ErrorRuntimeFailure
}
