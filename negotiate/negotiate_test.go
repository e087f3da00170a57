package negotiate

import (
	"testing"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/errors"
)

func nopGIPA(_ xrloader.Instance, _ string) (xrloader.ProcAddr, xrloader.Result) {
	return nil, xrloader.ErrorFunctionUnsupported
}

func nopCreateLayerInstance(_ *xrloader.InstanceCreateInfo, _ *APILayerCreateInfo, _ *xrloader.Instance) xrloader.Result {
	return xrloader.Success
}

func validRuntimeRequest() RuntimeRequest {
	req := NewRuntimeRequest()
	req.RuntimeInterfaceVersion = CurrentInterfaceVersion
	req.RuntimeAPIVersion = xrloader.CurrentAPIVersion
	req.GetInstanceProcAddr = nopGIPA
	return req
}

func validLayerRequest() APILayerRequest {
	req := NewAPILayerRequest()
	req.LayerInterfaceVersion = CurrentInterfaceVersion
	req.LayerAPIVersion = xrloader.CurrentAPIVersion
	req.GetInstanceProcAddr = nopGIPA
	req.CreateAPILayerInstance = nopCreateLayerInstance
	return req
}

func TestValidateRuntimeRequest(t *testing.T) {
	info := NewLoaderInfo()

	tests := []struct {
		name     string
		mutate   func(*RuntimeRequest)
		wantKind errors.Kind
	}{
		{"valid", func(r *RuntimeRequest) {}, ""},
		{"wrong struct tag", func(r *RuntimeRequest) { r.StructType = StructTypeLoaderInfo }, errors.KindStructMismatch},
		{"wrong struct version", func(r *RuntimeRequest) { r.StructVersion = 99 }, errors.KindStructMismatch},
		{"interface version too high", func(r *RuntimeRequest) { r.RuntimeInterfaceVersion = CurrentInterfaceVersion + 1 }, errors.KindVersionMismatch},
		{"interface version zero", func(r *RuntimeRequest) { r.RuntimeInterfaceVersion = 0 }, errors.KindVersionMismatch},
		{"api version too low", func(r *RuntimeRequest) { r.RuntimeAPIVersion = xrloader.Version{Major: 0, Minor: 9} }, errors.KindVersionMismatch},
		{"api version too high", func(r *RuntimeRequest) { r.RuntimeAPIVersion = xrloader.Version{Major: 2} }, errors.KindVersionMismatch},
		{"nil proc addr", func(r *RuntimeRequest) { r.GetInstanceProcAddr = nil }, errors.KindNilPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRuntimeRequest()
			tt.mutate(&req)
			err := ValidateRuntimeRequest(&info, &req, "/lib/rt.so")
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("ValidateRuntimeRequest: %v", err)
				}
				return
			}
			var e *errors.Error
			if !asError(err, &e) || e.Kind != tt.wantKind {
				t.Fatalf("got %v, want kind %s", err, tt.wantKind)
			}
		})
	}
}

func TestValidateAPILayerRequest(t *testing.T) {
	info := NewLoaderInfo()

	tests := []struct {
		name     string
		mutate   func(*APILayerRequest)
		wantKind errors.Kind
	}{
		{"valid", func(r *APILayerRequest) {}, ""},
		{"wrong struct tag", func(r *APILayerRequest) { r.StructType = StructTypeRuntimeRequest }, errors.KindStructMismatch},
		{"interface out of range", func(r *APILayerRequest) { r.LayerInterfaceVersion = 77 }, errors.KindVersionMismatch},
		{"api out of range", func(r *APILayerRequest) { r.LayerAPIVersion = xrloader.Version{Major: 3} }, errors.KindVersionMismatch},
		{"nil proc addr", func(r *APILayerRequest) { r.GetInstanceProcAddr = nil }, errors.KindNilPointer},
		{"nil create", func(r *APILayerRequest) { r.CreateAPILayerInstance = nil }, errors.KindNilPointer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validLayerRequest()
			tt.mutate(&req)
			err := ValidateAPILayerRequest(&info, &req, "/lib/layer.so")
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("ValidateAPILayerRequest: %v", err)
				}
				return
			}
			var e *errors.Error
			if !asError(err, &e) || e.Kind != tt.wantKind {
				t.Fatalf("got %v, want kind %s", err, tt.wantKind)
			}
		})
	}
}

func asError(err error, target **errors.Error) bool {
	e, ok := err.(*errors.Error)
	if ok {
		*target = e
	}
	return ok
}

func TestNewLoaderInfoRanges(t *testing.T) {
	info := NewLoaderInfo()
	if info.StructType != StructTypeLoaderInfo || info.StructVersion != LoaderInfoStructVersion {
		t.Errorf("header = %d/%d", info.StructType, info.StructVersion)
	}
	if info.MinInterfaceVersion > info.MaxInterfaceVersion {
		t.Error("interface range inverted")
	}
	if !xrloader.CurrentAPIVersion.InRange(info.MinAPIVersion, info.MaxAPIVersion) {
		t.Error("current API version outside advertised range")
	}
}
