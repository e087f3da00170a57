package negotiate

import (
	xrloader "github.com/wippyai/xr-loader"
)

// Symbol values come back from dynlib as whatever the library exported: a
// named or unnamed function value, or a pointer to an exported variable
// (the Go plugin mechanism returns variable addresses). These helpers
// coerce all of those shapes to the negotiation signatures.

// AsRuntimeNegotiate coerces sym to a RuntimeNegotiateFunc.
func AsRuntimeNegotiate(sym any) (RuntimeNegotiateFunc, bool) {
	switch f := sym.(type) {
	case RuntimeNegotiateFunc:
		return f, f != nil
	case *RuntimeNegotiateFunc:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	case func(*LoaderInfo, *RuntimeRequest) xrloader.Result:
		return f, f != nil
	case *func(*LoaderInfo, *RuntimeRequest) xrloader.Result:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	}
	return nil, false
}

// AsAPILayerNegotiate coerces sym to an APILayerNegotiateFunc.
func AsAPILayerNegotiate(sym any) (APILayerNegotiateFunc, bool) {
	switch f := sym.(type) {
	case APILayerNegotiateFunc:
		return f, f != nil
	case *APILayerNegotiateFunc:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	case func(*LoaderInfo, string, *APILayerRequest) xrloader.Result:
		return f, f != nil
	case *func(*LoaderInfo, string, *APILayerRequest) xrloader.Result:
		if f == nil || *f == nil {
			return nil, false
		}
		return *f, true
	}
	return nil, false
}
