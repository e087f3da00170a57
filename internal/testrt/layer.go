package testrt

import (
	"sync"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/negotiate"
)

// CallRecord collects ordered events from fake layers.
type CallRecord struct {
	mu     sync.Mutex
	events []string
}

// Append records one event.
func (r *CallRecord) Append(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *CallRecord) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// FakeLayer is an in-process API layer library. Its create-instance hook
// records the layer name and forwards down the chain, so tests can assert
// exact chain order.
type FakeLayer struct {
	Name             string
	APIVersion       xrloader.Version
	InterfaceVersion uint32
	Record           *CallRecord

	// FailNegotiation makes the negotiation entry point return an error.
	FailNegotiation bool

	// OmitCreate leaves CreateAPILayerInstance nil in the negotiation
	// response, which must reject the layer.
	OmitCreate bool

	// Intercept maps entry-point names the layer answers itself instead
	// of forwarding to the next link.
	Intercept map[string]xrloader.ProcAddr

	mu   sync.Mutex
	next xrloader.GetInstanceProcAddrFunc
}

// NewFakeLayer returns a layer negotiating current versions.
func NewFakeLayer(name string, record *CallRecord) *FakeLayer {
	return &FakeLayer{
		Name:             name,
		APIVersion:       xrloader.CurrentAPIVersion,
		InterfaceVersion: negotiate.CurrentInterfaceVersion,
		Record:           record,
	}
}

// Symbols returns the symbol table to register with a dynlib.Registry.
func (l *FakeLayer) Symbols() map[string]any {
	return map[string]any{
		negotiate.APILayerSymbol: negotiate.APILayerNegotiateFunc(l.negotiate),
	}
}

func (l *FakeLayer) negotiate(info *negotiate.LoaderInfo, layerName string, req *negotiate.APILayerRequest) xrloader.Result {
	if l.FailNegotiation {
		return xrloader.ErrorInitializationFailed
	}
	if info.StructType != negotiate.StructTypeLoaderInfo || layerName != l.Name {
		return xrloader.ErrorInitializationFailed
	}
	req.LayerInterfaceVersion = l.InterfaceVersion
	req.LayerAPIVersion = l.APIVersion
	req.GetInstanceProcAddr = l.getInstanceProcAddr
	if !l.OmitCreate {
		req.CreateAPILayerInstance = l.createAPILayerInstance
	}
	return xrloader.Success
}

func (l *FakeLayer) createAPILayerInstance(
	createInfo *xrloader.InstanceCreateInfo,
	layerInfo *negotiate.APILayerCreateInfo,
	instance *xrloader.Instance,
) xrloader.Result {
	if layerInfo == nil || layerInfo.NextInfo == nil {
		return xrloader.ErrorInitializationFailed
	}
	entry := layerInfo.NextInfo
	if entry.LayerName != l.Name {
		return xrloader.ErrorInitializationFailed
	}

	l.mu.Lock()
	l.next = entry.NextGetInstanceProcAddr
	l.mu.Unlock()

	if l.Record != nil {
		l.Record.Append("create:" + l.Name)
	}

	nextCreateInfo := &negotiate.APILayerCreateInfo{
		StructType:    negotiate.StructTypeAPILayerCreateInfo,
		StructVersion: negotiate.APILayerInfoStructVersion,
		NextInfo:      entry.Next,
	}
	return entry.NextCreateAPILayerInstance(createInfo, nextCreateInfo, instance)
}

func (l *FakeLayer) getInstanceProcAddr(instance xrloader.Instance, name string) (xrloader.ProcAddr, xrloader.Result) {
	if proc, ok := l.Intercept[name]; ok {
		return proc, xrloader.Success
	}

	l.mu.Lock()
	next := l.next
	l.mu.Unlock()
	if next == nil {
		return nil, xrloader.ErrorFunctionUnsupported
	}
	return next(instance, name)
}
