package negotiate

import (
	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/errors"
)

// Well-known symbols resolved from every candidate library. A library that
// does not export the symbol for its kind is discarded.
const (
	RuntimeSymbol  = "NegotiateLoaderRuntimeInterface"
	APILayerSymbol = "NegotiateLoaderApiLayerInterface"
)

// StructType tags each handshake record so a library can reject a record
// it does not recognize.
type StructType uint32

const (
	StructTypeLoaderInfo StructType = iota + 1
	StructTypeRuntimeRequest
	StructTypeAPILayerRequest
	StructTypeAPILayerCreateInfo
	StructTypeAPILayerNextInfo
)

// Record versions. A bumped version means new fields; both sides check the
// version before reading anything version-gated.
const (
	LoaderInfoStructVersion      uint32 = 1
	RuntimeRequestStructVersion  uint32 = 1
	APILayerRequestStructVersion uint32 = 1
	APILayerInfoStructVersion    uint32 = 1
)

// CurrentInterfaceVersion is the newest loader/library interface version
// this loader speaks.
const CurrentInterfaceVersion uint32 = 1

// MinInterfaceVersion is the oldest interface version this loader accepts.
const MinInterfaceVersion uint32 = 1

// LoaderInfo states what the loader supports. The callee must choose
// versions inside both ranges.
type LoaderInfo struct {
	StructType    StructType
	StructVersion uint32

	MinInterfaceVersion uint32
	MaxInterfaceVersion uint32

	MinAPIVersion xrloader.Version
	MaxAPIVersion xrloader.Version
}

// NewLoaderInfo returns a LoaderInfo advertising this loader's supported
// ranges.
func NewLoaderInfo() LoaderInfo {
	return LoaderInfo{
		StructType:          StructTypeLoaderInfo,
		StructVersion:       LoaderInfoStructVersion,
		MinInterfaceVersion: MinInterfaceVersion,
		MaxInterfaceVersion: CurrentInterfaceVersion,
		MinAPIVersion:       xrloader.Version{Major: 1},
		MaxAPIVersion:       xrloader.CurrentAPIVersion,
	}
}

// RuntimeRequest is filled in by a runtime's negotiation entry point.
type RuntimeRequest struct {
	StructType    StructType
	StructVersion uint32

	RuntimeInterfaceVersion uint32
	RuntimeAPIVersion       xrloader.Version

	GetInstanceProcAddr xrloader.GetInstanceProcAddrFunc
}

// NewRuntimeRequest returns an empty request with its header set.
func NewRuntimeRequest() RuntimeRequest {
	return RuntimeRequest{
		StructType:    StructTypeRuntimeRequest,
		StructVersion: RuntimeRequestStructVersion,
	}
}

// APILayerRequest is filled in by an API layer's negotiation entry point.
type APILayerRequest struct {
	StructType    StructType
	StructVersion uint32

	LayerInterfaceVersion uint32
	LayerAPIVersion       xrloader.Version

	GetInstanceProcAddr    xrloader.GetInstanceProcAddrFunc
	CreateAPILayerInstance CreateAPILayerInstanceFunc
}

// NewAPILayerRequest returns an empty request with its header set.
func NewAPILayerRequest() APILayerRequest {
	return APILayerRequest{
		StructType:    StructTypeAPILayerRequest,
		StructVersion: APILayerRequestStructVersion,
	}
}

// RuntimeNegotiateFunc is the signature of RuntimeSymbol.
type RuntimeNegotiateFunc func(loaderInfo *LoaderInfo, request *RuntimeRequest) xrloader.Result

// APILayerNegotiateFunc is the signature of APILayerSymbol. layerName
// selects which layer to negotiate when one library implements several.
type APILayerNegotiateFunc func(loaderInfo *LoaderInfo, layerName string, request *APILayerRequest) xrloader.Result

// CreateAPILayerInstanceFunc creates an instance through one layer.
// The layer forwards to the next link named in layerInfo.NextInfo.
type CreateAPILayerInstanceFunc func(
	createInfo *xrloader.InstanceCreateInfo,
	layerInfo *APILayerCreateInfo,
	instance *xrloader.Instance,
) xrloader.Result

// APILayerNextInfo links one layer to the link below it in the call chain.
type APILayerNextInfo struct {
	StructType    StructType
	StructVersion uint32

	LayerName string

	NextGetInstanceProcAddr    xrloader.GetInstanceProcAddrFunc
	NextCreateAPILayerInstance CreateAPILayerInstanceFunc

	Next *APILayerNextInfo
}

// APILayerCreateInfo is passed to each layer's CreateAPILayerInstance.
type APILayerCreateInfo struct {
	StructType    StructType
	StructVersion uint32

	// NextInfo heads the chain entry for the layer being called; the layer
	// forwards creation through NextInfo.NextCreateAPILayerInstance with
	// NextInfo.Next as the remaining chain.
	NextInfo *APILayerNextInfo
}

// ValidateRuntimeRequest checks a runtime's echoed request against the
// advertised loader ranges. Any failure is a hard rejection of the
// library.
func ValidateRuntimeRequest(info *LoaderInfo, req *RuntimeRequest, libPath string) error {
	if req.StructType != StructTypeRuntimeRequest || req.StructVersion != RuntimeRequestStructVersion {
		return errors.StructMismatch(libPath,
			"runtime request has tag %d version %d, want tag %d version %d",
			req.StructType, req.StructVersion, StructTypeRuntimeRequest, RuntimeRequestStructVersion)
	}
	if req.RuntimeInterfaceVersion < info.MinInterfaceVersion || req.RuntimeInterfaceVersion > info.MaxInterfaceVersion {
		return errors.VersionMismatch(libPath,
			"runtime chose interface version %d outside [%d, %d]",
			req.RuntimeInterfaceVersion, info.MinInterfaceVersion, info.MaxInterfaceVersion)
	}
	if !req.RuntimeAPIVersion.InRange(info.MinAPIVersion, info.MaxAPIVersion) {
		return errors.VersionMismatch(libPath,
			"runtime chose API version %s outside [%s, %s]",
			req.RuntimeAPIVersion, info.MinAPIVersion, info.MaxAPIVersion)
	}
	if req.GetInstanceProcAddr == nil {
		return errors.New(errors.PhaseNegotiate, errors.KindNilPointer).
			Library(libPath).
			Detail("runtime returned nil GetInstanceProcAddr").
			Build()
	}
	return nil
}

// ValidateAPILayerRequest checks a layer's echoed request the same way,
// including the layer-only CreateAPILayerInstance pointer.
func ValidateAPILayerRequest(info *LoaderInfo, req *APILayerRequest, libPath string) error {
	if req.StructType != StructTypeAPILayerRequest || req.StructVersion != APILayerRequestStructVersion {
		return errors.StructMismatch(libPath,
			"layer request has tag %d version %d, want tag %d version %d",
			req.StructType, req.StructVersion, StructTypeAPILayerRequest, APILayerRequestStructVersion)
	}
	if req.LayerInterfaceVersion < info.MinInterfaceVersion || req.LayerInterfaceVersion > info.MaxInterfaceVersion {
		return errors.VersionMismatch(libPath,
			"layer chose interface version %d outside [%d, %d]",
			req.LayerInterfaceVersion, info.MinInterfaceVersion, info.MaxInterfaceVersion)
	}
	if !req.LayerAPIVersion.InRange(info.MinAPIVersion, info.MaxAPIVersion) {
		return errors.VersionMismatch(libPath,
			"layer chose API version %s outside [%s, %s]",
			req.LayerAPIVersion, info.MinAPIVersion, info.MaxAPIVersion)
	}
	if req.GetInstanceProcAddr == nil {
		return errors.New(errors.PhaseNegotiate, errors.KindNilPointer).
			Library(libPath).
			Detail("layer returned nil GetInstanceProcAddr").
			Build()
	}
	if req.CreateAPILayerInstance == nil {
		return errors.New(errors.PhaseNegotiate, errors.KindNilPointer).
			Library(libPath).
			Detail("layer returned nil CreateAPILayerInstance").
			Build()
	}
	return nil
}
