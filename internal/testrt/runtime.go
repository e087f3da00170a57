package testrt

import (
	"sync"
	"sync/atomic"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/negotiate"
)

// FakeRuntime is an in-process runtime library.
type FakeRuntime struct {
	Name             string
	APIVersion       xrloader.Version
	InterfaceVersion uint32

	// Extensions reported by the runtime's own extension enumeration.
	Extensions []xrloader.ExtensionProperties

	// FailNegotiation makes the negotiation entry point return an error.
	FailNegotiation bool

	// CreateInstanceResult, when not Success, is returned by
	// xrCreateInstance instead of creating an instance.
	CreateInstanceResult xrloader.Result

	// PanicOnCreate makes xrCreateInstance panic, for boundary tests.
	PanicOnCreate bool

	nextHandle atomic.Uint64

	mu        sync.Mutex
	instances map[xrloader.Instance]bool
	sessions  map[xrloader.Session]xrloader.Instance
}

// NewFakeRuntime returns a runtime negotiating current versions.
func NewFakeRuntime(name string) *FakeRuntime {
	return &FakeRuntime{
		Name:             name,
		APIVersion:       xrloader.CurrentAPIVersion,
		InterfaceVersion: negotiate.CurrentInterfaceVersion,
		instances:        make(map[xrloader.Instance]bool),
		sessions:         make(map[xrloader.Session]xrloader.Instance),
	}
}

// Symbols returns the symbol table to register with a dynlib.Registry.
func (r *FakeRuntime) Symbols() map[string]any {
	return map[string]any{
		negotiate.RuntimeSymbol: negotiate.RuntimeNegotiateFunc(r.negotiate),
	}
}

// LiveInstances returns how many runtime instances are currently live.
func (r *FakeRuntime) LiveInstances() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, live := range r.instances {
		if live {
			n++
		}
	}
	return n
}

func (r *FakeRuntime) negotiate(info *negotiate.LoaderInfo, req *negotiate.RuntimeRequest) xrloader.Result {
	if r.FailNegotiation {
		return xrloader.ErrorInitializationFailed
	}
	if info.StructType != negotiate.StructTypeLoaderInfo {
		return xrloader.ErrorInitializationFailed
	}
	req.RuntimeInterfaceVersion = r.InterfaceVersion
	req.RuntimeAPIVersion = r.APIVersion
	req.GetInstanceProcAddr = r.getInstanceProcAddr
	return xrloader.Success
}

func (r *FakeRuntime) getInstanceProcAddr(_ xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
	switch name {
	case xrloader.NameGetInstanceProcAddr:
		return xrloader.GetInstanceProcAddrFunc(r.getInstanceProcAddr), xrloader.Success
	case xrloader.NameCreateInstance:
		return xrloader.CreateInstanceFunc(r.createInstance), xrloader.Success
	case xrloader.NameDestroyInstance:
		return xrloader.DestroyInstanceFunc(r.destroyInstance), xrloader.Success
	case xrloader.NameGetInstanceProperties:
		return xrloader.GetInstancePropertiesFunc(r.getInstanceProperties), xrloader.Success
	case xrloader.NameEnumerateInstanceExtensionProperties:
		return xrloader.EnumerateInstanceExtensionPropertiesFunc(r.enumerateExtensions), xrloader.Success
	case xrloader.NameCreateSession:
		return xrloader.CreateSessionFunc(r.createSession), xrloader.Success
	case xrloader.NameDestroySession:
		return xrloader.DestroySessionFunc(r.destroySession), xrloader.Success
	case xrloader.NamePollEvent:
		return xrloader.PollEventFunc(r.pollEvent), xrloader.Success
	}
	return nil, xrloader.ErrorFunctionUnsupported
}

func (r *FakeRuntime) createInstance(createInfo *xrloader.InstanceCreateInfo, instance *xrloader.Instance) xrloader.Result {
	if r.PanicOnCreate {
		panic("fake runtime create panic")
	}
	if r.CreateInstanceResult.IsError() {
		return r.CreateInstanceResult
	}
	if createInfo == nil || instance == nil {
		return xrloader.ErrorValidationFailure
	}

	h := xrloader.Instance(r.nextHandle.Add(1))
	r.mu.Lock()
	r.instances[h] = true
	r.mu.Unlock()

	*instance = h
	return xrloader.Success
}

func (r *FakeRuntime) destroyInstance(instance xrloader.Instance) xrloader.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.instances[instance] {
		return xrloader.ErrorHandleInvalid
	}
	r.instances[instance] = false
	return xrloader.Success
}

func (r *FakeRuntime) getInstanceProperties(instance xrloader.Instance, props *xrloader.InstanceProperties) xrloader.Result {
	if props == nil {
		return xrloader.ErrorValidationFailure
	}
	props.RuntimeName = r.Name
	props.RuntimeVersion = r.APIVersion
	return xrloader.Success
}

func (r *FakeRuntime) enumerateExtensions(
	_ string,
	capacityInput uint32,
	countOutput *uint32,
	properties []xrloader.ExtensionProperties,
) xrloader.Result {
	if countOutput == nil {
		return xrloader.ErrorValidationFailure
	}
	*countOutput = uint32(len(r.Extensions))
	if capacityInput == 0 {
		return xrloader.Success
	}
	if capacityInput < uint32(len(r.Extensions)) {
		return xrloader.ErrorSizeInsufficient
	}
	copy(properties, r.Extensions)
	return xrloader.Success
}

func (r *FakeRuntime) createSession(instance xrloader.Instance, createInfo *xrloader.SessionCreateInfo, session *xrloader.Session) xrloader.Result {
	if createInfo == nil || session == nil {
		return xrloader.ErrorValidationFailure
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.instances[instance] {
		return xrloader.ErrorHandleInvalid
	}
	h := xrloader.Session(r.nextHandle.Add(1))
	r.sessions[h] = instance
	*session = h
	return xrloader.Success
}

func (r *FakeRuntime) destroySession(session xrloader.Session) xrloader.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session]; !ok {
		return xrloader.ErrorHandleInvalid
	}
	delete(r.sessions, session)
	return xrloader.Success
}

func (r *FakeRuntime) pollEvent(_ xrloader.Instance, _ *xrloader.EventDataBuffer) xrloader.Result {
	return xrloader.EventUnavailable
}
