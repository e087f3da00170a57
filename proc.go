package xrloader

// ProcAddr holds a function obtained from GetInstanceProcAddr. The dynamic
// value is one of the *Func signature types below; callers assert to the
// signature matching the name they looked up. A nil ProcAddr means the
// function is unsupported for that instance.
type ProcAddr any

// Entry-point names used for dispatch-table lookup. These are the
// wire-level names layers and runtimes answer to.
const (
	NameGetInstanceProcAddr                  = "xrGetInstanceProcAddr"
	NameCreateInstance                       = "xrCreateInstance"
	NameDestroyInstance                      = "xrDestroyInstance"
	NameGetInstanceProperties                = "xrGetInstanceProperties"
	NameEnumerateInstanceExtensionProperties = "xrEnumerateInstanceExtensionProperties"
	NameEnumerateApiLayerProperties          = "xrEnumerateApiLayerProperties"
	NameCreateSession                        = "xrCreateSession"
	NameDestroySession                       = "xrDestroySession"
	NamePollEvent                            = "xrPollEvent"

	NameCreateDebugUtilsMessenger            = "xrCreateDebugUtilsMessengerEXT"
	NameDestroyDebugUtilsMessenger           = "xrDestroyDebugUtilsMessengerEXT"
	NameSubmitDebugUtilsMessage              = "xrSubmitDebugUtilsMessageEXT"
	NameSessionBeginDebugUtilsLabelRegion    = "xrSessionBeginDebugUtilsLabelRegionEXT"
	NameSessionEndDebugUtilsLabelRegion      = "xrSessionEndDebugUtilsLabelRegionEXT"
	NameSessionInsertDebugUtilsLabel         = "xrSessionInsertDebugUtilsLabelEXT"
	NameSetDebugUtilsObjectName              = "xrSetDebugUtilsObjectNameEXT"
)

// GetInstanceProcAddrFunc resolves an entry point by name for an instance.
// It returns a nil ProcAddr and ErrorFunctionUnsupported when no link in
// the call chain implements the named function.
type GetInstanceProcAddrFunc func(instance Instance, name string) (ProcAddr, Result)

// CreateInstanceFunc creates an instance and writes its handle.
type CreateInstanceFunc func(createInfo *InstanceCreateInfo, instance *Instance) Result

// DestroyInstanceFunc destroys an instance.
type DestroyInstanceFunc func(instance Instance) Result

// GetInstancePropertiesFunc fills props for the given instance.
type GetInstancePropertiesFunc func(instance Instance, props *InstanceProperties) Result

// EnumerateInstanceExtensionPropertiesFunc implements the two-call size
// idiom: with capacityInput zero only countOutput is written; with a
// non-zero capacityInput smaller than the available count it returns
// ErrorSizeInsufficient without touching properties.
type EnumerateInstanceExtensionPropertiesFunc func(
	layerName string,
	capacityInput uint32,
	countOutput *uint32,
	properties []ExtensionProperties,
) Result

// EnumerateApiLayerPropertiesFunc enumerates discoverable API layers using
// the same two-call idiom.
type EnumerateApiLayerPropertiesFunc func(
	capacityInput uint32,
	countOutput *uint32,
	properties []APILayerProperties,
) Result

// CreateSessionFunc creates a session on an instance.
type CreateSessionFunc func(instance Instance, createInfo *SessionCreateInfo, session *Session) Result

// DestroySessionFunc destroys a session.
type DestroySessionFunc func(session Session) Result

// PollEventFunc dequeues the next event, or returns EventUnavailable.
type PollEventFunc func(instance Instance, eventData *EventDataBuffer) Result

// CreateDebugUtilsMessengerFunc creates a debug-utils messenger.
type CreateDebugUtilsMessengerFunc func(
	instance Instance,
	createInfo *DebugUtilsMessengerCreateInfo,
	messenger *DebugUtilsMessenger,
) Result

// DestroyDebugUtilsMessengerFunc destroys a debug-utils messenger.
type DestroyDebugUtilsMessengerFunc func(messenger DebugUtilsMessenger) Result

// SubmitDebugUtilsMessageFunc delivers a message to every messenger whose
// masks match.
type SubmitDebugUtilsMessageFunc func(
	instance Instance,
	severity DebugUtilsMessageSeverityFlags,
	types DebugUtilsMessageTypeFlags,
	data *DebugUtilsMessengerCallbackData,
) Result

// SessionBeginDebugUtilsLabelRegionFunc opens a label region on a session.
type SessionBeginDebugUtilsLabelRegionFunc func(session Session, label *DebugUtilsLabel) Result

// SessionEndDebugUtilsLabelRegionFunc closes the innermost label region.
type SessionEndDebugUtilsLabelRegionFunc func(session Session) Result

// SessionInsertDebugUtilsLabelFunc inserts a standalone label.
type SessionInsertDebugUtilsLabelFunc func(session Session, label *DebugUtilsLabel) Result

// SetDebugUtilsObjectNameFunc names an object for diagnostics.
type SetDebugUtilsObjectNameFunc func(instance Instance, nameInfo *DebugUtilsObjectNameInfo) Result
