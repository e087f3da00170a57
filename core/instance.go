package core

import (
	"sync/atomic"

	"go.uber.org/zap"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/errors"
	"github.com/wippyai/xr-loader/layer"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/negotiate"
	"github.com/wippyai/xr-loader/runtime"
)

// instanceState tracks where an instance is in its lifecycle. Transitions
// only move forward; a handle that reached stateGone is never reissued.
type instanceState int32

const (
	stateUninitialized instanceState = iota
	stateLayersLoading
	stateRuntimeLoading
	stateActive
	stateDestroying
	stateGone
)

// LoaderInstance is the loader-side record of one created instance. The
// handle the application holds maps to this; the runtime's own handle
// stays private to the dispatch path.
type LoaderInstance struct {
	handle          xrloader.Instance
	runtimeInstance xrloader.Instance

	layers []*layer.LoadedLayer
	table  *DispatchTable
	rt     *runtime.Runtime

	enabledExtensions map[string]bool

	state atomic.Int32

	defaultMessenger xrloader.DebugUtilsMessenger

	du *debugUtilsState

	loader *Loader
}

// Handle returns the application-visible handle.
func (li *LoaderInstance) Handle() xrloader.Instance { return li.handle }

// Layers returns the names of the loaded layers in chain order.
func (li *LoaderInstance) Layers() []string {
	names := make([]string, len(li.layers))
	for i, l := range li.layers {
		names[i] = l.Name
	}
	return names
}

func (li *LoaderInstance) extensionEnabled(name string) bool {
	return li.enabledExtensions[name]
}

func (li *LoaderInstance) setState(s instanceState) {
	li.state.Store(int32(s))
}

// CreateInstance performs discovery, loads the enabled API layers and the
// active runtime, builds the call chain, and publishes the new handle.
//
// Any failure before the instance becomes active rolls back completely:
// layer libraries are closed, the runtime reference is released and no
// registry entry remains. Results from the runtime's own creation call
// are reported verbatim.
func (l *Loader) CreateInstance(createInfo *xrloader.InstanceCreateInfo, instance *xrloader.Instance) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameCreateInstance, xrloader.ErrorInitializationFailed)

	if createInfo == nil || instance == nil {
		return xrloader.ErrorValidationFailure
	}

	li := &LoaderInstance{
		loader:            l,
		du:                newDebugUtilsState(),
		enabledExtensions: make(map[string]bool, len(createInfo.EnabledExtensionNames)),
	}
	for _, name := range createInfo.EnabledExtensionNames {
		li.enabledExtensions[name] = true
	}

	// Discovery and negotiation of every library for this instance happen
	// under one hold of the discovery lock.
	l.discoveryMu.Lock()
	implicit := manifest.FindAPILayerManifests(manifest.KindImplicitAPILayer, l.mfOpts)
	explicit := manifest.FindAPILayerManifests(manifest.KindExplicitAPILayer, l.mfOpts)

	li.setState(stateLayersLoading)
	layers, err := layer.NewInterface(l.provider).LoadLayers(createInfo.EnabledAPILayerNames, implicit, explicit)
	if err != nil {
		l.discoveryMu.Unlock()
		li.setState(stateGone)
		l.log.Warn("layer loading failed", zap.Error(err))
		return errors.ResultFor(err)
	}

	li.setState(stateRuntimeLoading)
	rt, err := l.runtimes.LoadRuntime(l.mfOpts)
	l.discoveryMu.Unlock()
	if err != nil {
		layer.CloseAll(layers)
		li.setState(stateGone)
		l.log.Warn("runtime loading failed", zap.Error(err))
		return errors.ResultFor(err)
	}

	ok := false
	defer func() {
		if !ok {
			layer.CloseAll(layers)
			l.runtimes.ReleaseRuntime()
			li.setState(stateGone)
		}
	}()

	li.layers = layers
	li.rt = rt

	if missing := unsupportedExtension(createInfo.EnabledExtensionNames, rt, layers); missing != "" {
		l.log.Warn("requested extension not present", zap.String("extension", missing))
		return xrloader.ErrorExtensionNotPresent
	}

	links := make([]*layerLink, len(layers))
	for i, ly := range layers {
		links[i] = &layerLink{name: ly.Name, gipa: ly.GetInstanceProcAddr, create: ly.CreateAPILayerInstance}
	}
	topGIPA, topCreate, head := buildLayerChain(links, l.terminatorGIPA(li, rt), l.terminatorCreateInstance(rt))

	var runtimeInstance xrloader.Instance
	createRes := topCreate(createInfo, &negotiate.APILayerCreateInfo{
		StructType:    negotiate.StructTypeAPILayerCreateInfo,
		StructVersion: negotiate.APILayerInfoStructVersion,
		NextInfo:      head,
	}, &runtimeInstance)
	if createRes.IsError() {
		return createRes
	}
	if runtimeInstance == xrloader.NullInstance {
		l.log.Warn("runtime reported success but wrote a null instance handle")
		return xrloader.ErrorInitializationFailed
	}

	table, err := newDispatchTable(topGIPA, runtimeInstance)
	if err != nil {
		// The runtime instance exists but the chain cannot drive it.
		if destroy := proc[xrloader.DestroyInstanceFunc](topGIPA, runtimeInstance, xrloader.NameDestroyInstance); destroy != nil {
			destroy(runtimeInstance)
		}
		l.log.Warn("dispatch table incomplete", zap.Error(err))
		return errors.ResultFor(err)
	}
	li.runtimeInstance = runtimeInstance
	li.table = table

	handle := xrloader.Instance(l.newHandle())
	li.handle = handle

	if createInfo.DebugUtilsMessenger != nil &&
		li.extensionEnabled(xrloader.ExtDebugUtilsExtensionName) &&
		table.CreateDebugUtilsMessenger != nil {
		var m xrloader.DebugUtilsMessenger
		if r := table.CreateDebugUtilsMessenger(runtimeInstance, createInfo.DebugUtilsMessenger, &m); r == xrloader.Success {
			li.defaultMessenger = m
			l.msgrMu.Lock()
			l.messengers[m] = li
			l.msgrMu.Unlock()
		} else {
			l.log.Warn("default debug messenger creation failed", zap.Int32("result", int32(r)))
		}
	}

	l.instMu.Lock()
	l.instances[handle] = li
	l.instMu.Unlock()

	li.setState(stateActive)
	ok = true
	*instance = handle
	l.log.Info("instance created",
		zap.Uint64("handle", uint64(handle)),
		zap.String("runtime", rt.Name()),
		zap.Strings("layers", li.Layers()))
	return xrloader.Success
}

// DestroyInstance tears an instance down: default messenger first, then
// dependent handle registrations, then the runtime instance through the
// chain, then layer libraries and the runtime reference. Destroying a
// null handle is a successful no-op.
func (l *Loader) DestroyInstance(instance xrloader.Instance) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameDestroyInstance, xrloader.ErrorRuntimeFailure)

	if instance == xrloader.NullInstance {
		return xrloader.Success
	}
	li := l.instanceFor(instance)
	if li == nil {
		return xrloader.ErrorHandleInvalid
	}
	// Exactly one caller wins the transition out of active; everyone else
	// sees an invalid handle.
	if !li.state.CompareAndSwap(int32(stateActive), int32(stateDestroying)) {
		return xrloader.ErrorHandleInvalid
	}

	if li.defaultMessenger != xrloader.NullDebugUtilsMessenger && li.table.DestroyDebugUtilsMessenger != nil {
		li.table.DestroyDebugUtilsMessenger(li.defaultMessenger)
		li.defaultMessenger = xrloader.NullDebugUtilsMessenger
	}

	l.msgrMu.Lock()
	for h, owner := range l.messengers {
		if owner == li {
			delete(l.messengers, h)
		}
	}
	l.msgrMu.Unlock()

	l.sessMu.Lock()
	for h, owner := range l.sessions {
		if owner == li {
			delete(l.sessions, h)
		}
	}
	l.sessMu.Unlock()

	res = li.table.DestroyInstance(li.runtimeInstance)

	l.instMu.Lock()
	delete(l.instances, instance)
	l.instMu.Unlock()

	layer.CloseAll(li.layers)
	li.layers = nil
	l.runtimes.ReleaseRuntime()
	li.setState(stateGone)

	l.log.Info("instance destroyed", zap.Uint64("handle", uint64(instance)))
	return res
}

// unsupportedExtension returns the first requested extension that neither
// the runtime (manifest-declared or live-reported), nor any loaded layer,
// nor the loader itself provides. Empty means all requests are
// satisfiable.
func unsupportedExtension(requested []string, rt *runtime.Runtime, layers []*layer.LoadedLayer) string {
	if len(requested) == 0 {
		return ""
	}
	reported := make(map[string]bool)
	for _, e := range runtimeReportedExtensions(rt) {
		reported[e.ExtensionName] = true
	}
	for _, name := range requested {
		if name == xrloader.ExtDebugUtilsExtensionName {
			continue // loader-implemented when nothing below provides it
		}
		if rt.Manifest().DeclaresInstanceExtension(name) || reported[name] {
			continue
		}
		supported := false
		for _, ly := range layers {
			if ly.SupportsExtension(name) {
				supported = true
				break
			}
		}
		if !supported {
			return name
		}
	}
	return ""
}
