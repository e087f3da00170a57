package core

import (
	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/errors"
	"github.com/wippyai/xr-loader/negotiate"
	"github.com/wippyai/xr-loader/runtime"
)

// DispatchTable holds the entry points resolved once, at instance
// creation, through the composed GetInstanceProcAddr chain. Core fields
// are always non-nil on a live instance; extension fields are nil when
// the extension was not enabled.
type DispatchTable struct {
	GetInstanceProcAddr   xrloader.GetInstanceProcAddrFunc
	DestroyInstance       xrloader.DestroyInstanceFunc
	GetInstanceProperties xrloader.GetInstancePropertiesFunc
	CreateSession         xrloader.CreateSessionFunc
	DestroySession        xrloader.DestroySessionFunc
	PollEvent             xrloader.PollEventFunc

	CreateDebugUtilsMessenger         xrloader.CreateDebugUtilsMessengerFunc
	DestroyDebugUtilsMessenger        xrloader.DestroyDebugUtilsMessengerFunc
	SubmitDebugUtilsMessage           xrloader.SubmitDebugUtilsMessageFunc
	SessionBeginDebugUtilsLabelRegion xrloader.SessionBeginDebugUtilsLabelRegionFunc
	SessionEndDebugUtilsLabelRegion   xrloader.SessionEndDebugUtilsLabelRegionFunc
	SessionInsertDebugUtilsLabel      xrloader.SessionInsertDebugUtilsLabelFunc
	SetDebugUtilsObjectName           xrloader.SetDebugUtilsObjectNameFunc
}

// proc resolves one entry point through gipa and asserts its signature.
// An unsupported name yields the zero func, not an error; the caller
// decides which entries are mandatory.
func proc[T any](gipa xrloader.GetInstanceProcAddrFunc, instance xrloader.Instance, name string) T {
	var zero T
	p, res := gipa(instance, name)
	if res.IsError() || p == nil {
		return zero
	}
	fn, ok := p.(T)
	if !ok {
		return zero
	}
	return fn
}

// newDispatchTable populates a table for instance via gipa. Every core
// entry point must resolve; a hole there means the chain is unusable.
func newDispatchTable(gipa xrloader.GetInstanceProcAddrFunc, instance xrloader.Instance) (*DispatchTable, error) {
	t := &DispatchTable{
		GetInstanceProcAddr:   gipa,
		DestroyInstance:       proc[xrloader.DestroyInstanceFunc](gipa, instance, xrloader.NameDestroyInstance),
		GetInstanceProperties: proc[xrloader.GetInstancePropertiesFunc](gipa, instance, xrloader.NameGetInstanceProperties),
		CreateSession:         proc[xrloader.CreateSessionFunc](gipa, instance, xrloader.NameCreateSession),
		DestroySession:        proc[xrloader.DestroySessionFunc](gipa, instance, xrloader.NameDestroySession),
		PollEvent:             proc[xrloader.PollEventFunc](gipa, instance, xrloader.NamePollEvent),

		CreateDebugUtilsMessenger:         proc[xrloader.CreateDebugUtilsMessengerFunc](gipa, instance, xrloader.NameCreateDebugUtilsMessenger),
		DestroyDebugUtilsMessenger:        proc[xrloader.DestroyDebugUtilsMessengerFunc](gipa, instance, xrloader.NameDestroyDebugUtilsMessenger),
		SubmitDebugUtilsMessage:           proc[xrloader.SubmitDebugUtilsMessageFunc](gipa, instance, xrloader.NameSubmitDebugUtilsMessage),
		SessionBeginDebugUtilsLabelRegion: proc[xrloader.SessionBeginDebugUtilsLabelRegionFunc](gipa, instance, xrloader.NameSessionBeginDebugUtilsLabelRegion),
		SessionEndDebugUtilsLabelRegion:   proc[xrloader.SessionEndDebugUtilsLabelRegionFunc](gipa, instance, xrloader.NameSessionEndDebugUtilsLabelRegion),
		SessionInsertDebugUtilsLabel:      proc[xrloader.SessionInsertDebugUtilsLabelFunc](gipa, instance, xrloader.NameSessionInsertDebugUtilsLabel),
		SetDebugUtilsObjectName:           proc[xrloader.SetDebugUtilsObjectNameFunc](gipa, instance, xrloader.NameSetDebugUtilsObjectName),
	}

	for _, core := range []struct {
		name string
		ok   bool
	}{
		{xrloader.NameDestroyInstance, t.DestroyInstance != nil},
		{xrloader.NameGetInstanceProperties, t.GetInstanceProperties != nil},
		{xrloader.NameCreateSession, t.CreateSession != nil},
		{xrloader.NameDestroySession, t.DestroySession != nil},
		{xrloader.NamePollEvent, t.PollEvent != nil},
	} {
		if !core.ok {
			return nil, errors.New(errors.PhaseCreate, errors.KindInitialization).
				Symbol(core.name).
				Detail("call chain does not resolve core entry point").
				Build()
		}
	}
	return t, nil
}

// isDebugUtilsName reports whether name is one of the debug-utils entry
// points the loader can emulate.
func isDebugUtilsName(name string) bool {
	switch name {
	case xrloader.NameCreateDebugUtilsMessenger,
		xrloader.NameDestroyDebugUtilsMessenger,
		xrloader.NameSubmitDebugUtilsMessage,
		xrloader.NameSessionBeginDebugUtilsLabelRegion,
		xrloader.NameSessionEndDebugUtilsLabelRegion,
		xrloader.NameSessionInsertDebugUtilsLabel,
		xrloader.NameSetDebugUtilsObjectName:
		return true
	}
	return false
}

// terminatorGIPA is the chain's innermost resolver. It forwards to the
// runtime, except that enabled debug-utils entry points the runtime lacks
// are answered with the loader's own emulation so layers and the
// application see a uniform extension surface.
func (l *Loader) terminatorGIPA(li *LoaderInstance, rt *runtime.Runtime) xrloader.GetInstanceProcAddrFunc {
	return func(instance xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
		if isDebugUtilsName(name) && li.extensionEnabled(xrloader.ExtDebugUtilsExtensionName) {
			if p, res := rt.GetInstanceProcAddr(instance, name); res == xrloader.Success && p != nil {
				return p, res
			}
			li.du.emulated = true
			return li.emulatedDebugUtilsProc(name), xrloader.Success
		}
		return rt.GetInstanceProcAddr(instance, name)
	}
}

// terminatorCreateInstance resolves the runtime's instance creation
// function and calls it. Layer chain traffic above this point has already
// run; the chain info is intentionally unused here.
func (l *Loader) terminatorCreateInstance(rt *runtime.Runtime) negotiate.CreateAPILayerInstanceFunc {
	return func(createInfo *xrloader.InstanceCreateInfo, _ *negotiate.APILayerCreateInfo, instance *xrloader.Instance) xrloader.Result {
		p, res := rt.GetInstanceProcAddr(xrloader.NullInstance, xrloader.NameCreateInstance)
		if res.IsError() || p == nil {
			return xrloader.ErrorInitializationFailed
		}
		create, ok := p.(xrloader.CreateInstanceFunc)
		if !ok {
			return xrloader.ErrorInitializationFailed
		}
		return create(createInfo, instance)
	}
}

// buildLayerChain links the loaded layers, in enablement order, above the
// terminators. The returned entry points belong to the topmost link; when
// no layer is loaded they are the terminators themselves. Each node in
// the returned list carries the entry points of the link below it, so a
// layer forwards by calling its node's Next* fields with node.Next as the
// remainder.
func buildLayerChain(
	layers []*layerLink,
	termGIPA xrloader.GetInstanceProcAddrFunc,
	termCreate negotiate.CreateAPILayerInstanceFunc,
) (xrloader.GetInstanceProcAddrFunc, negotiate.CreateAPILayerInstanceFunc, *negotiate.APILayerNextInfo) {
	topGIPA := termGIPA
	topCreate := termCreate
	var head *negotiate.APILayerNextInfo
	for k := len(layers) - 1; k >= 0; k-- {
		head = &negotiate.APILayerNextInfo{
			StructType:                 negotiate.StructTypeAPILayerNextInfo,
			StructVersion:              negotiate.APILayerInfoStructVersion,
			LayerName:                  layers[k].name,
			NextGetInstanceProcAddr:    topGIPA,
			NextCreateAPILayerInstance: topCreate,
			Next:                       head,
		}
		topGIPA = layers[k].gipa
		topCreate = layers[k].create
	}
	return topGIPA, topCreate, head
}

// layerLink is the slice element buildLayerChain consumes.
type layerLink struct {
	name   string
	gipa   xrloader.GetInstanceProcAddrFunc
	create negotiate.CreateAPILayerInstanceFunc
}
