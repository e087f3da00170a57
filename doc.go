// Package xrloader provides the API surface shared by every part of the
// OpenXR-style loader: opaque handles, version records, result codes,
// create-info records, and the typed signatures of every dispatched entry
// point.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	xrloader/            Root package with handles, versions, results, and
//	                     dispatch signatures
//	├── core/            Loader instances, dispatch-table composition, and
//	                     the public trampoline entry points
//	├── manifest/        Runtime and API-layer manifest discovery and parsing
//	├── negotiate/       Versioned handshake records exchanged with loaded
//	                     libraries
//	├── layer/           API-layer loading and negotiation
//	├── runtime/         Active-runtime loading and negotiation
//	├── dynlib/          Dynamic-library providers (OS plugins, in-process
//	                     registry)
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// Create an instance through the default loader and call through its
// dispatch table:
//
//	var instance xrloader.Instance
//	res := core.CreateInstance(&xrloader.InstanceCreateInfo{
//	    ApplicationInfo: xrloader.ApplicationInfo{
//	        ApplicationName: "hello",
//	        APIVersion:      xrloader.CurrentAPIVersion,
//	    },
//	}, &instance)
//	if res != xrloader.Success {
//	    log.Fatal(res)
//	}
//	defer core.DestroyInstance(instance)
//
// # Call Routing
//
// Every application-visible call enters a trampoline in core/, which looks
// up the owning loader instance by handle and forwards through a dispatch
// table assembled at instance creation. The table routes each call through
// the enabled API layers, in enablement order, down to the active runtime.
//
// # Thread Safety
//
// All public entry points are safe for concurrent use. Manifest discovery
// is serialized process-wide; handle-table lookups take only short
// per-table locks.
package xrloader
