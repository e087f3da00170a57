package xrloader

import "strconv"

// Result is the closed set of status codes every public entry point returns.
// Zero and positive values are success codes; negative values are errors.
type Result int32

const (
	Success          Result = 0
	TimeoutExpired   Result = 1
	EventUnavailable Result = 4

	ErrorValidationFailure     Result = -1
	ErrorRuntimeFailure        Result = -2
	ErrorOutOfMemory           Result = -3
	ErrorAPIVersionUnsupported Result = -4
	ErrorInitializationFailed  Result = -6
	ErrorFunctionUnsupported   Result = -7
	ErrorFeatureUnsupported    Result = -8
	ErrorExtensionNotPresent   Result = -9
	ErrorLimitReached          Result = -10
	ErrorSizeInsufficient      Result = -11
	ErrorHandleInvalid         Result = -12
	ErrorInstanceLost          Result = -13
	ErrorFileAccessError       Result = -23
	ErrorAPILayerNotPresent    Result = -28
	ErrorRuntimeUnavailable    Result = -51
)

// Succeeded reports whether r is a success code (zero or positive).
func (r Result) Succeeded() bool { return r >= 0 }

// IsError reports whether r is an error code.
func (r Result) IsError() bool { return r < 0 }

var resultNames = map[Result]string{
	Success:                    "SUCCESS",
	TimeoutExpired:             "TIMEOUT_EXPIRED",
	EventUnavailable:           "EVENT_UNAVAILABLE",
	ErrorValidationFailure:     "ERROR_VALIDATION_FAILURE",
	ErrorRuntimeFailure:        "ERROR_RUNTIME_FAILURE",
	ErrorOutOfMemory:           "ERROR_OUT_OF_MEMORY",
	ErrorAPIVersionUnsupported: "ERROR_API_VERSION_UNSUPPORTED",
	ErrorInitializationFailed:  "ERROR_INITIALIZATION_FAILED",
	ErrorFunctionUnsupported:   "ERROR_FUNCTION_UNSUPPORTED",
	ErrorFeatureUnsupported:    "ERROR_FEATURE_UNSUPPORTED",
	ErrorExtensionNotPresent:   "ERROR_EXTENSION_NOT_PRESENT",
	ErrorLimitReached:          "ERROR_LIMIT_REACHED",
	ErrorSizeInsufficient:      "ERROR_SIZE_INSUFFICIENT",
	ErrorHandleInvalid:         "ERROR_HANDLE_INVALID",
	ErrorInstanceLost:          "ERROR_INSTANCE_LOST",
	ErrorFileAccessError:       "ERROR_FILE_ACCESS_ERROR",
	ErrorAPILayerNotPresent:    "ERROR_API_LAYER_NOT_PRESENT",
	ErrorRuntimeUnavailable:    "ERROR_RUNTIME_UNAVAILABLE",
}

// String returns the symbolic name of r, or a numeric form for codes a
// newer runtime returned that this loader does not know.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "RESULT(" + strconv.Itoa(int(r)) + ")"
}
