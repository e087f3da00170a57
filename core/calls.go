package core

import (
	"sort"

	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/errors"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/runtime"
)

func (li *LoaderInstance) active() bool {
	return instanceState(li.state.Load()) == stateActive
}

// GetInstanceProcAddr is the loader's own resolver. With a null instance
// only the pre-instance functions resolve; with a live instance it
// returns the loader trampoline for every supported entry point, so the
// application always dispatches through handle validation.
func (l *Loader) GetInstanceProcAddr(instance xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
	if instance == xrloader.NullInstance {
		switch name {
		case xrloader.NameGetInstanceProcAddr:
			return xrloader.GetInstanceProcAddrFunc(l.GetInstanceProcAddr), xrloader.Success
		case xrloader.NameCreateInstance:
			return xrloader.CreateInstanceFunc(l.CreateInstance), xrloader.Success
		case xrloader.NameEnumerateInstanceExtensionProperties:
			return xrloader.EnumerateInstanceExtensionPropertiesFunc(l.EnumerateInstanceExtensionProperties), xrloader.Success
		case xrloader.NameEnumerateApiLayerProperties:
			return xrloader.EnumerateApiLayerPropertiesFunc(l.EnumerateApiLayerProperties), xrloader.Success
		}
		return nil, xrloader.ErrorHandleInvalid
	}

	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return nil, xrloader.ErrorHandleInvalid
	}

	switch name {
	case xrloader.NameGetInstanceProcAddr:
		return xrloader.GetInstanceProcAddrFunc(l.GetInstanceProcAddr), xrloader.Success
	case xrloader.NameDestroyInstance:
		return xrloader.DestroyInstanceFunc(l.DestroyInstance), xrloader.Success
	case xrloader.NameGetInstanceProperties:
		return xrloader.GetInstancePropertiesFunc(l.GetInstanceProperties), xrloader.Success
	case xrloader.NameEnumerateInstanceExtensionProperties:
		return xrloader.EnumerateInstanceExtensionPropertiesFunc(l.EnumerateInstanceExtensionProperties), xrloader.Success
	case xrloader.NameEnumerateApiLayerProperties:
		return xrloader.EnumerateApiLayerPropertiesFunc(l.EnumerateApiLayerProperties), xrloader.Success
	case xrloader.NameCreateSession:
		return xrloader.CreateSessionFunc(l.CreateSession), xrloader.Success
	case xrloader.NameDestroySession:
		return xrloader.DestroySessionFunc(l.DestroySession), xrloader.Success
	case xrloader.NamePollEvent:
		return xrloader.PollEventFunc(l.PollEvent), xrloader.Success
	case xrloader.NameCreateDebugUtilsMessenger:
		if li.table.CreateDebugUtilsMessenger != nil {
			return xrloader.CreateDebugUtilsMessengerFunc(l.CreateDebugUtilsMessenger), xrloader.Success
		}
	case xrloader.NameDestroyDebugUtilsMessenger:
		if li.table.DestroyDebugUtilsMessenger != nil {
			return xrloader.DestroyDebugUtilsMessengerFunc(l.DestroyDebugUtilsMessenger), xrloader.Success
		}
	case xrloader.NameSubmitDebugUtilsMessage:
		if li.table.SubmitDebugUtilsMessage != nil {
			return xrloader.SubmitDebugUtilsMessageFunc(l.SubmitDebugUtilsMessage), xrloader.Success
		}
	case xrloader.NameSessionBeginDebugUtilsLabelRegion:
		if li.table.SessionBeginDebugUtilsLabelRegion != nil {
			return xrloader.SessionBeginDebugUtilsLabelRegionFunc(l.SessionBeginDebugUtilsLabelRegion), xrloader.Success
		}
	case xrloader.NameSessionEndDebugUtilsLabelRegion:
		if li.table.SessionEndDebugUtilsLabelRegion != nil {
			return xrloader.SessionEndDebugUtilsLabelRegionFunc(l.SessionEndDebugUtilsLabelRegion), xrloader.Success
		}
	case xrloader.NameSessionInsertDebugUtilsLabel:
		if li.table.SessionInsertDebugUtilsLabel != nil {
			return xrloader.SessionInsertDebugUtilsLabelFunc(l.SessionInsertDebugUtilsLabel), xrloader.Success
		}
	case xrloader.NameSetDebugUtilsObjectName:
		if li.table.SetDebugUtilsObjectName != nil {
			return xrloader.SetDebugUtilsObjectNameFunc(l.SetDebugUtilsObjectName), xrloader.Success
		}
	}
	return nil, xrloader.ErrorFunctionUnsupported
}

// GetInstanceProperties reports the active runtime's identity for a live
// instance.
func (l *Loader) GetInstanceProperties(instance xrloader.Instance, props *xrloader.InstanceProperties) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameGetInstanceProperties, xrloader.ErrorRuntimeFailure)

	if props == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	return li.table.GetInstanceProperties(li.runtimeInstance, props)
}

// CreateSession creates a session through the instance's call chain and
// registers the returned handle for later routing.
func (l *Loader) CreateSession(instance xrloader.Instance, createInfo *xrloader.SessionCreateInfo, session *xrloader.Session) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameCreateSession, xrloader.ErrorRuntimeFailure)

	if createInfo == nil || session == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}

	var s xrloader.Session
	r := li.table.CreateSession(li.runtimeInstance, createInfo, &s)
	if r.IsError() {
		return r
	}
	if s == xrloader.NullSession {
		return xrloader.ErrorRuntimeFailure
	}

	l.sessMu.Lock()
	l.sessions[s] = li
	l.sessMu.Unlock()

	*session = s
	return r
}

// DestroySession destroys a session. A null handle is a successful no-op.
func (l *Loader) DestroySession(session xrloader.Session) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameDestroySession, xrloader.ErrorRuntimeFailure)

	if session == xrloader.NullSession {
		return xrloader.Success
	}
	li := l.sessionOwner(session)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}

	l.sessMu.Lock()
	delete(l.sessions, session)
	l.sessMu.Unlock()

	li.du.dropSession(session)

	return li.table.DestroySession(session)
}

// PollEvent forwards to the runtime's event queue.
func (l *Loader) PollEvent(instance xrloader.Instance, eventData *xrloader.EventDataBuffer) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NamePollEvent, xrloader.ErrorRuntimeFailure)

	if eventData == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	return li.table.PollEvent(li.runtimeInstance, eventData)
}

// EnumerateApiLayerProperties lists every discoverable API layer,
// implicit first, using the two-call size idiom. No instance is needed.
func (l *Loader) EnumerateApiLayerProperties(
	capacityInput uint32,
	countOutput *uint32,
	properties []xrloader.APILayerProperties,
) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameEnumerateApiLayerProperties, xrloader.ErrorRuntimeFailure)

	l.discoveryMu.Lock()
	implicit := manifest.FindAPILayerManifests(manifest.KindImplicitAPILayer, l.mfOpts)
	explicit := manifest.FindAPILayerManifests(manifest.KindExplicitAPILayer, l.mfOpts)
	l.discoveryMu.Unlock()

	all := make([]xrloader.APILayerProperties, 0, len(implicit)+len(explicit))
	seen := make(map[string]bool, len(implicit)+len(explicit))
	for _, mf := range implicit {
		if !seen[mf.LayerName] {
			seen[mf.LayerName] = true
			all = append(all, mf.Properties())
		}
	}
	for _, mf := range explicit {
		if !seen[mf.LayerName] {
			seen[mf.LayerName] = true
			all = append(all, mf.Properties())
		}
	}
	return writeTwoCall(capacityInput, countOutput, properties, all)
}

// EnumerateInstanceExtensionProperties lists instance extensions using
// the two-call size idiom.
//
// A non-empty layerName restricts the answer to that layer's manifest
// declarations. Otherwise the answer merges what the active runtime
// declares and reports, what the enabled implicit layers declare, and
// the loader's own debug-utils extension; without a usable runtime the
// call fails.
func (l *Loader) EnumerateInstanceExtensionProperties(
	layerName string,
	capacityInput uint32,
	countOutput *uint32,
	properties []xrloader.ExtensionProperties,
) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameEnumerateInstanceExtensionProperties, xrloader.ErrorRuntimeFailure)

	l.discoveryMu.Lock()
	defer l.discoveryMu.Unlock()

	if layerName != "" {
		implicit := manifest.FindAPILayerManifests(manifest.KindImplicitAPILayer, l.mfOpts)
		explicit := manifest.FindAPILayerManifests(manifest.KindExplicitAPILayer, l.mfOpts)
		for _, mf := range append(implicit, explicit...) {
			if mf.LayerName != layerName {
				continue
			}
			exts := make(map[string]uint32, len(mf.InstanceExtensions))
			for _, e := range mf.InstanceExtensions {
				mergeExtension(exts, e.Name, e.ExtensionVersion)
			}
			return writeTwoCall(capacityInput, countOutput, properties, sortedExtensions(exts))
		}
		return xrloader.ErrorAPILayerNotPresent
	}

	rt, err := l.runtimes.LoadRuntime(l.mfOpts)
	if err != nil {
		l.log.Warn("extension enumeration without a usable runtime", zap.Error(err))
		return errors.ResultFor(err)
	}
	defer l.runtimes.ReleaseRuntime()

	exts := make(map[string]uint32)
	for _, e := range rt.Manifest().InstanceExtensions {
		mergeExtension(exts, e.Name, e.ExtensionVersion)
	}
	for _, e := range runtimeReportedExtensions(rt) {
		mergeExtension(exts, e.ExtensionName, e.ExtensionVersion)
	}
	for _, mf := range manifest.FindAPILayerManifests(manifest.KindImplicitAPILayer, l.mfOpts) {
		for _, e := range mf.InstanceExtensions {
			mergeExtension(exts, e.Name, e.ExtensionVersion)
		}
	}
	mergeExtension(exts, xrloader.ExtDebugUtilsExtensionName, 1)

	return writeTwoCall(capacityInput, countOutput, properties, sortedExtensions(exts))
}

// runtimeReportedExtensions queries the runtime's own enumeration entry
// point. Runtimes may report extensions their manifest does not declare;
// those count as available both for enumeration and for enablement at
// instance creation.
func runtimeReportedExtensions(rt *runtime.Runtime) []xrloader.ExtensionProperties {
	p, r := rt.GetInstanceProcAddr(xrloader.NullInstance, xrloader.NameEnumerateInstanceExtensionProperties)
	if r != xrloader.Success || p == nil {
		return nil
	}
	enum, ok := p.(xrloader.EnumerateInstanceExtensionPropertiesFunc)
	if !ok {
		return nil
	}
	var n uint32
	if enum("", 0, &n, nil) != xrloader.Success || n == 0 {
		return nil
	}
	buf := make([]xrloader.ExtensionProperties, n)
	if enum("", n, &n, buf) != xrloader.Success {
		return nil
	}
	return buf[:n]
}

// mergeExtension records an extension, keeping the highest version when
// several sources declare the same name.
func mergeExtension(dst map[string]uint32, name string, version uint32) {
	if v, ok := dst[name]; !ok || version > v {
		dst[name] = version
	}
}

func sortedExtensions(src map[string]uint32) []xrloader.ExtensionProperties {
	out := make([]xrloader.ExtensionProperties, 0, len(src))
	for name, version := range src {
		out = append(out, xrloader.ExtensionProperties{ExtensionName: name, ExtensionVersion: version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExtensionName < out[j].ExtensionName })
	return out
}

// writeTwoCall implements the two-call size idiom shared by the
// enumeration entry points. With capacityInput zero only the count is
// written; with a capacity smaller than the result the destination stays
// untouched and the caller learns the required size from countOutput.
func writeTwoCall[T any](capacityInput uint32, countOutput *uint32, dst []T, src []T) xrloader.Result {
	if countOutput == nil {
		return xrloader.ErrorValidationFailure
	}
	*countOutput = uint32(len(src))
	if capacityInput == 0 {
		return xrloader.Success
	}
	if capacityInput < uint32(len(src)) || len(dst) < len(src) {
		return xrloader.ErrorSizeInsufficient
	}
	copy(dst, src)
	return xrloader.Success
}
