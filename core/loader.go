package core

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/dynlib"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/runtime"
)

// Loader routes application calls to the active runtime through each
// instance's layer chain. The zero value is not usable; construct with
// NewLoader.
type Loader struct {
	provider dynlib.Provider
	mfOpts   manifest.Options
	log      *zap.Logger

	// discoveryMu serializes manifest search and library negotiation.
	// It is always taken before any registry lock below.
	discoveryMu sync.Mutex

	runtimes *runtime.Interface

	instMu    sync.Mutex
	instances map[xrloader.Instance]*LoaderInstance

	sessMu   sync.Mutex
	sessions map[xrloader.Session]*LoaderInstance

	msgrMu     sync.Mutex
	messengers map[xrloader.DebugUtilsMessenger]*LoaderInstance

	// nextHandle backs every loader-issued handle. Monotonic, so a
	// destroyed handle value is never observed again.
	nextHandle atomic.Uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger. The default is the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) { ld.log = l }
}

// WithProvider sets the library provider used to open runtime and layer
// libraries. The default is dynlib.Default.
func WithProvider(p dynlib.Provider) Option {
	return func(ld *Loader) { ld.provider = p }
}

// WithManifestOptions sets the discovery options, including environment
// access and search-path overrides.
func WithManifestOptions(opts manifest.Options) Option {
	return func(ld *Loader) { ld.mfOpts = opts }
}

// NewLoader returns a ready loader with empty registries.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		provider:   dynlib.Default(),
		instances:  make(map[xrloader.Instance]*LoaderInstance),
		sessions:   make(map[xrloader.Session]*LoaderInstance),
		messengers: make(map[xrloader.DebugUtilsMessenger]*LoaderInstance),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = Logger()
	}
	l.runtimes = runtime.NewInterface(l.provider)
	return l
}

// Default is the loader behind the package-level entry points. Embedders
// that need isolated state construct their own Loader instead.
var Default = NewLoader()

func (l *Loader) newHandle() uint64 {
	return l.nextHandle.Add(1)
}

// instanceFor maps a handle to its live instance, nil when unknown.
func (l *Loader) instanceFor(h xrloader.Instance) *LoaderInstance {
	l.instMu.Lock()
	defer l.instMu.Unlock()
	return l.instances[h]
}

func (l *Loader) sessionOwner(h xrloader.Session) *LoaderInstance {
	l.sessMu.Lock()
	defer l.sessMu.Unlock()
	return l.sessions[h]
}

func (l *Loader) messengerOwner(h xrloader.DebugUtilsMessenger) *LoaderInstance {
	l.msgrMu.Lock()
	defer l.msgrMu.Unlock()
	return l.messengers[h]
}

// recoverToResult is deferred at every trampoline boundary. A panic from
// a runtime or layer library must surface as a result code, never unwind
// into the application.
func (l *Loader) recoverToResult(res *xrloader.Result, entry string, fallback xrloader.Result) {
	if r := recover(); r != nil {
		l.log.Error("panic crossing loader boundary",
			zap.String("entry", entry),
			zap.Any("panic", r))
		*res = fallback
	}
}

// CreateInstance discovers manifests, loads the enabled layers and the
// active runtime, and builds the instance's call chain. See the method on
// Loader for the full contract.
func CreateInstance(createInfo *xrloader.InstanceCreateInfo, instance *xrloader.Instance) xrloader.Result {
	return Default.CreateInstance(createInfo, instance)
}

// DestroyInstance tears down an instance created by CreateInstance.
func DestroyInstance(instance xrloader.Instance) xrloader.Result {
	return Default.DestroyInstance(instance)
}

// GetInstanceProcAddr resolves an entry point against the default loader.
func GetInstanceProcAddr(instance xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
	return Default.GetInstanceProcAddr(instance, name)
}

// GetInstanceProperties reports the active runtime's identity.
func GetInstanceProperties(instance xrloader.Instance, props *xrloader.InstanceProperties) xrloader.Result {
	return Default.GetInstanceProperties(instance, props)
}

// EnumerateInstanceExtensionProperties lists available instance
// extensions using the two-call size idiom.
func EnumerateInstanceExtensionProperties(
	layerName string,
	capacityInput uint32,
	countOutput *uint32,
	properties []xrloader.ExtensionProperties,
) xrloader.Result {
	return Default.EnumerateInstanceExtensionProperties(layerName, capacityInput, countOutput, properties)
}

// EnumerateApiLayerProperties lists discoverable API layers using the
// two-call size idiom.
func EnumerateApiLayerProperties(
	capacityInput uint32,
	countOutput *uint32,
	properties []xrloader.APILayerProperties,
) xrloader.Result {
	return Default.EnumerateApiLayerProperties(capacityInput, countOutput, properties)
}

// CreateSession creates a session on an instance.
func CreateSession(instance xrloader.Instance, createInfo *xrloader.SessionCreateInfo, session *xrloader.Session) xrloader.Result {
	return Default.CreateSession(instance, createInfo, session)
}

// DestroySession destroys a session.
func DestroySession(session xrloader.Session) xrloader.Result {
	return Default.DestroySession(session)
}

// PollEvent dequeues the next runtime event.
func PollEvent(instance xrloader.Instance, eventData *xrloader.EventDataBuffer) xrloader.Result {
	return Default.PollEvent(instance, eventData)
}

// CreateDebugUtilsMessenger creates a debug-utils messenger.
func CreateDebugUtilsMessenger(
	instance xrloader.Instance,
	createInfo *xrloader.DebugUtilsMessengerCreateInfo,
	messenger *xrloader.DebugUtilsMessenger,
) xrloader.Result {
	return Default.CreateDebugUtilsMessenger(instance, createInfo, messenger)
}

// DestroyDebugUtilsMessenger destroys a debug-utils messenger.
func DestroyDebugUtilsMessenger(messenger xrloader.DebugUtilsMessenger) xrloader.Result {
	return Default.DestroyDebugUtilsMessenger(messenger)
}

// SubmitDebugUtilsMessage delivers a message to matching messengers.
func SubmitDebugUtilsMessage(
	instance xrloader.Instance,
	severity xrloader.DebugUtilsMessageSeverityFlags,
	types xrloader.DebugUtilsMessageTypeFlags,
	data *xrloader.DebugUtilsMessengerCallbackData,
) xrloader.Result {
	return Default.SubmitDebugUtilsMessage(instance, severity, types, data)
}

// SessionBeginDebugUtilsLabelRegion opens a label region on a session.
func SessionBeginDebugUtilsLabelRegion(session xrloader.Session, label *xrloader.DebugUtilsLabel) xrloader.Result {
	return Default.SessionBeginDebugUtilsLabelRegion(session, label)
}

// SessionEndDebugUtilsLabelRegion closes the innermost label region.
func SessionEndDebugUtilsLabelRegion(session xrloader.Session) xrloader.Result {
	return Default.SessionEndDebugUtilsLabelRegion(session)
}

// SessionInsertDebugUtilsLabel inserts a standalone label.
func SessionInsertDebugUtilsLabel(session xrloader.Session, label *xrloader.DebugUtilsLabel) xrloader.Result {
	return Default.SessionInsertDebugUtilsLabel(session, label)
}

// SetDebugUtilsObjectName attaches a debug name to an object.
func SetDebugUtilsObjectName(instance xrloader.Instance, nameInfo *xrloader.DebugUtilsObjectNameInfo) xrloader.Result {
	return Default.SetDebugUtilsObjectName(instance, nameInfo)
}
