package xrloader

// ExtDebugUtilsExtensionName names the debug-utils instance extension. The
// loader implements it itself when neither a layer nor the runtime does.
const ExtDebugUtilsExtensionName = "XR_EXT_debug_utils"

// DebugUtilsMessageSeverityFlags is a bitmask of message severities.
type DebugUtilsMessageSeverityFlags uint64

const (
	DebugUtilsSeverityVerbose DebugUtilsMessageSeverityFlags = 1 << 0
	DebugUtilsSeverityInfo    DebugUtilsMessageSeverityFlags = 1 << 4
	DebugUtilsSeverityWarning DebugUtilsMessageSeverityFlags = 1 << 8
	DebugUtilsSeverityError   DebugUtilsMessageSeverityFlags = 1 << 12
)

// DebugUtilsMessageTypeFlags is a bitmask of message categories.
type DebugUtilsMessageTypeFlags uint64

const (
	DebugUtilsTypeGeneral     DebugUtilsMessageTypeFlags = 1 << 0
	DebugUtilsTypeValidation  DebugUtilsMessageTypeFlags = 1 << 1
	DebugUtilsTypePerformance DebugUtilsMessageTypeFlags = 1 << 2
	DebugUtilsTypeConformance DebugUtilsMessageTypeFlags = 1 << 3
)

// Object type values used in DebugUtilsObjectNameInfo.
const (
	ObjectTypeUnknown             uint32 = 0
	ObjectTypeInstance            uint32 = 1
	ObjectTypeSession             uint32 = 2
	ObjectTypeSwapchain           uint32 = 3
	ObjectTypeDebugUtilsMessenger uint32 = 4
)

// DebugUtilsLabel is a named marker for session label regions.
type DebugUtilsLabel struct {
	LabelName string
}

// DebugUtilsObjectNameInfo attaches a debug name to a handle.
type DebugUtilsObjectNameInfo struct {
	ObjectType   uint32
	ObjectHandle uint64
	ObjectName   string
}

// DebugUtilsMessengerCallbackData is delivered to messenger callbacks.
type DebugUtilsMessengerCallbackData struct {
	MessageID       string
	FunctionName    string
	Message         string
	Objects         []DebugUtilsObjectNameInfo
	SessionLabels   []DebugUtilsLabel
	SessionLabelSet bool
}

// DebugUtilsMessengerCallback receives messages matching the messenger's
// severity and type masks. Returning true asks the caller to abort; the
// loader ignores the value and always continues.
type DebugUtilsMessengerCallback func(
	severity DebugUtilsMessageSeverityFlags,
	types DebugUtilsMessageTypeFlags,
	data *DebugUtilsMessengerCallbackData,
) bool

// DebugUtilsMessengerCreateInfo configures a messenger.
type DebugUtilsMessengerCreateInfo struct {
	MessageSeverities DebugUtilsMessageSeverityFlags
	MessageTypes      DebugUtilsMessageTypeFlags
	UserCallback      DebugUtilsMessengerCallback
}
