package xrloader

// ApplicationInfo describes the calling application and the API version it
// was written against.
type ApplicationInfo struct {
	ApplicationName    string
	ApplicationVersion uint32
	EngineName         string
	EngineVersion      uint32
	APIVersion         Version
}

// InstanceCreateInfo is the input to CreateInstance.
//
// DebugUtilsMessenger, when non-nil, asks the loader to create a messenger
// that is live for the duration of instance creation and becomes the
// instance's default messenger afterwards.
type InstanceCreateInfo struct {
	ApplicationInfo       ApplicationInfo
	EnabledAPILayerNames  []string
	EnabledExtensionNames []string
	DebugUtilsMessenger   *DebugUtilsMessengerCreateInfo
}

// InstanceProperties is filled by GetInstanceProperties.
type InstanceProperties struct {
	RuntimeName    string
	RuntimeVersion Version
}

// ExtensionProperties describes one instance extension.
type ExtensionProperties struct {
	ExtensionName    string
	ExtensionVersion uint32
}

// APILayerProperties describes one discoverable API layer.
type APILayerProperties struct {
	LayerName    string
	SpecVersion  Version
	LayerVersion uint32
	Description  string
}

// SessionCreateInfo is the input to CreateSession. The graphics binding is
// opaque to the loader and handed through to the runtime untouched.
type SessionCreateInfo struct {
	SystemID        uint64
	GraphicsBinding any
}

// EventDataBuffer receives one event from PollEvent. The loader treats the
// payload as opaque runtime data.
type EventDataBuffer struct {
	Type uint32
	Data any
}
