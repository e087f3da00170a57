package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	xrloader "github.com/wippyai/xr-loader"
	"github.com/wippyai/xr-loader/dynlib"
	"github.com/wippyai/xr-loader/internal/testrt"
	"github.com/wippyai/xr-loader/manifest"
)

// testEnv wires a fake runtime and fake layers into a loader through real
// manifest files on disk, so tests exercise the full discovery and
// negotiation path.
type testEnv struct {
	t   *testing.T
	reg *dynlib.Registry
	rt  *testrt.FakeRuntime
	rec *testrt.CallRecord

	runtimePath string
	implicitDir string
	explicitDir string

	vars map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		t:           t,
		reg:         dynlib.NewRegistry(),
		rt:          testrt.NewFakeRuntime("CoreRT"),
		rec:         &testrt.CallRecord{},
		implicitDir: t.TempDir(),
		explicitDir: t.TempDir(),
		vars:        make(map[string]string),
	}

	// Bare filenames pass the manifest library-path rule untouched and
	// resolve against the registry instead of the filesystem.
	libPath := "libcorert.so"
	e.reg.Register(libPath, e.rt.Symbols())

	e.runtimePath = filepath.Join(t.TempDir(), "active_runtime.json")
	content := fmt.Sprintf(`{
		"file_format_version": "1.0.0",
		"runtime": {
			"name": "CoreRT",
			"library_path": %q,
			"instance_extensions": [{"name": "XR_KHR_headless", "extension_version": 2}]
		}
	}`, libPath)
	if err := os.WriteFile(e.runtimePath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return e
}

// addLayer registers a fake layer and writes its manifest. Implicit
// layers get a disable variable named after the layer.
func (e *testEnv) addLayer(fake *testrt.FakeLayer, kind manifest.Kind, extensions ...string) {
	e.t.Helper()
	libPath := "lib" + fake.Name + ".so"
	e.reg.Register(libPath, fake.Symbols())

	dir := e.explicitDir
	disable := ""
	if kind == manifest.KindImplicitAPILayer {
		dir = e.implicitDir
		disable = strings.ToUpper(fake.Name) + "_DISABLE"
	}

	exts := make([]string, len(extensions))
	for i, name := range extensions {
		exts[i] = fmt.Sprintf(`{"name": %q, "extension_version": 1}`, name)
	}
	content := fmt.Sprintf(`{
		"file_format_version": "1.0.0",
		"api_layer": {
			"name": %q,
			"library_path": %q,
			"api_version": "1.0",
			"implementation_version": "1",
			"description": "test layer",
			"disable_environment": %q,
			"instance_extensions": [%s]
		}
	}`, fake.Name, libPath, disable, strings.Join(exts, ","))
	if err := os.WriteFile(filepath.Join(dir, fake.Name+".json"), []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
}

func (e *testEnv) options() manifest.Options {
	return manifest.Options{
		Environ:            func(key string) string { return e.vars[key] },
		RuntimeSearchPaths: []string{e.runtimePath},
		ImplicitLayerDirs:  []string{e.implicitDir},
		ExplicitLayerDirs:  []string{e.explicitDir},
	}
}

func (e *testEnv) loader() *Loader {
	return NewLoader(WithProvider(e.reg), WithManifestOptions(e.options()))
}

// checkNoLeaks asserts every opened library was closed again.
func (e *testEnv) checkNoLeaks() {
	e.t.Helper()
	if e.reg.OpenCount() != e.reg.CloseCount() {
		e.t.Errorf("library leak: %d opens, %d closes", e.reg.OpenCount(), e.reg.CloseCount())
	}
}

func mustCreate(t *testing.T, l *Loader, createInfo *xrloader.InstanceCreateInfo) xrloader.Instance {
	t.Helper()
	var inst xrloader.Instance
	if res := l.CreateInstance(createInfo, &inst); res != xrloader.Success {
		t.Fatalf("CreateInstance = %v", res)
	}
	if inst == xrloader.NullInstance {
		t.Fatal("CreateInstance wrote a null handle")
	}
	return inst
}

func TestCreateDestroyInstance(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	if n := e.rt.LiveInstances(); n != 1 {
		t.Fatalf("runtime has %d live instances, want 1", n)
	}

	var props xrloader.InstanceProperties
	if res := l.GetInstanceProperties(inst, &props); res != xrloader.Success {
		t.Fatalf("GetInstanceProperties = %v", res)
	}
	if props.RuntimeName != "CoreRT" {
		t.Errorf("RuntimeName = %q", props.RuntimeName)
	}

	if res := l.DestroyInstance(inst); res != xrloader.Success {
		t.Fatalf("DestroyInstance = %v", res)
	}
	if n := e.rt.LiveInstances(); n != 0 {
		t.Errorf("runtime has %d live instances after destroy", n)
	}
	e.checkNoLeaks()

	if res := l.DestroyInstance(inst); res != xrloader.ErrorHandleInvalid {
		t.Errorf("second destroy = %v, want ErrorHandleInvalid", res)
	}
	if res := l.DestroyInstance(xrloader.NullInstance); res != xrloader.Success {
		t.Errorf("destroy of null handle = %v, want Success", res)
	}
}

func TestCreateInstanceValidation(t *testing.T) {
	l := newTestEnv(t).loader()

	var inst xrloader.Instance
	if res := l.CreateInstance(nil, &inst); res != xrloader.ErrorValidationFailure {
		t.Errorf("nil createInfo = %v", res)
	}
	if res := l.CreateInstance(&xrloader.InstanceCreateInfo{}, nil); res != xrloader.ErrorValidationFailure {
		t.Errorf("nil instance out = %v", res)
	}
}

func TestLayerChainOrder(t *testing.T) {
	e := newTestEnv(t)
	e.addLayer(testrt.NewFakeLayer("imp_a", e.rec), manifest.KindImplicitAPILayer)
	e.addLayer(testrt.NewFakeLayer("exp_b", e.rec), manifest.KindExplicitAPILayer)
	e.addLayer(testrt.NewFakeLayer("exp_c", e.rec), manifest.KindExplicitAPILayer)
	l := e.loader()

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{
		EnabledAPILayerNames: []string{"exp_c", "exp_b"},
	})
	defer l.DestroyInstance(inst)

	// Implicit layers first, then explicit layers in enablement order,
	// each forwarding down toward the runtime.
	want := []string{"create:imp_a", "create:exp_c", "create:exp_b"}
	got := e.rec.Events()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	li := l.instanceFor(inst)
	names := li.Layers()
	if len(names) != 3 || names[0] != "imp_a" || names[1] != "exp_c" || names[2] != "exp_b" {
		t.Errorf("Layers() = %v", names)
	}
}

func TestLayerNotPresentFailsWithoutSideEffects(t *testing.T) {
	e := newTestEnv(t)
	e.addLayer(testrt.NewFakeLayer("exp_b", e.rec), manifest.KindExplicitAPILayer)
	l := e.loader()

	inst := xrloader.NullInstance
	res := l.CreateInstance(&xrloader.InstanceCreateInfo{
		EnabledAPILayerNames: []string{"exp_b", "no_such_layer"},
	}, &inst)
	if res != xrloader.ErrorAPILayerNotPresent {
		t.Fatalf("CreateInstance = %v, want ErrorAPILayerNotPresent", res)
	}
	if inst != xrloader.NullInstance {
		t.Error("instance handle written on failure")
	}
	if n := e.rt.LiveInstances(); n != 0 {
		t.Errorf("runtime has %d live instances", n)
	}
	e.checkNoLeaks()
}

func TestRequestedImplicitLayerFailureIsHard(t *testing.T) {
	e := newTestEnv(t)
	broken := testrt.NewFakeLayer("imp_broken", e.rec)
	broken.FailNegotiation = true
	e.addLayer(broken, manifest.KindImplicitAPILayer)
	l := e.loader()

	// Unrequested, the broken implicit layer is skipped silently.
	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	l.DestroyInstance(inst)

	// Requested by name, its failure must surface instead of the layer
	// silently dropping out of the chain.
	var failed xrloader.Instance
	res := l.CreateInstance(&xrloader.InstanceCreateInfo{
		EnabledAPILayerNames: []string{"imp_broken"},
	}, &failed)
	if res != xrloader.ErrorAPILayerNotPresent {
		t.Fatalf("CreateInstance = %v, want ErrorAPILayerNotPresent", res)
	}
	if failed != xrloader.NullInstance {
		t.Error("instance handle written on failure")
	}
	e.checkNoLeaks()
}

func TestImplicitLayerDisableEnvironment(t *testing.T) {
	e := newTestEnv(t)
	e.addLayer(testrt.NewFakeLayer("imp_a", e.rec), manifest.KindImplicitAPILayer)
	e.vars["IMP_A_DISABLE"] = "1"
	l := e.loader()

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	defer l.DestroyInstance(inst)

	if events := e.rec.Events(); len(events) != 0 {
		t.Errorf("disabled implicit layer still ran: %v", events)
	}
}

func TestRuntimeResultReportedVerbatim(t *testing.T) {
	e := newTestEnv(t)
	e.rt.CreateInstanceResult = xrloader.ErrorLimitReached
	l := e.loader()

	var inst xrloader.Instance
	if res := l.CreateInstance(&xrloader.InstanceCreateInfo{}, &inst); res != xrloader.ErrorLimitReached {
		t.Fatalf("CreateInstance = %v, want the runtime's ErrorLimitReached", res)
	}
	e.checkNoLeaks()
}

func TestCreateInstancePanicStaysInside(t *testing.T) {
	e := newTestEnv(t)
	e.rt.PanicOnCreate = true
	l := e.loader()

	var inst xrloader.Instance
	if res := l.CreateInstance(&xrloader.InstanceCreateInfo{}, &inst); res != xrloader.ErrorInitializationFailed {
		t.Fatalf("CreateInstance = %v, want ErrorInitializationFailed", res)
	}
	e.checkNoLeaks()
}

func TestCreateInstanceWithoutRuntime(t *testing.T) {
	l := NewLoader(
		WithProvider(dynlib.NewRegistry()),
		WithManifestOptions(manifest.Options{
			Environ:            func(string) string { return "" },
			RuntimeSearchPaths: []string{"/nonexistent/active_runtime.json"},
			ImplicitLayerDirs:  []string{},
			ExplicitLayerDirs:  []string{},
		}),
	)

	var inst xrloader.Instance
	if res := l.CreateInstance(&xrloader.InstanceCreateInfo{}, &inst); res != xrloader.ErrorRuntimeUnavailable {
		t.Fatalf("CreateInstance = %v, want ErrorRuntimeUnavailable", res)
	}
}

func TestExtensionNotPresent(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	var inst xrloader.Instance
	res := l.CreateInstance(&xrloader.InstanceCreateInfo{
		EnabledExtensionNames: []string{"XR_EXT_no_such_extension"},
	}, &inst)
	if res != xrloader.ErrorExtensionNotPresent {
		t.Fatalf("CreateInstance = %v, want ErrorExtensionNotPresent", res)
	}
	if n := e.rt.LiveInstances(); n != 0 {
		t.Errorf("runtime has %d live instances", n)
	}
	e.checkNoLeaks()
}

func TestRuntimeManifestExtensionAccepted(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{
		EnabledExtensionNames: []string{"XR_KHR_headless"},
	})
	l.DestroyInstance(inst)
	e.checkNoLeaks()
}

func TestRuntimeReportedExtensionAccepted(t *testing.T) {
	e := newTestEnv(t)
	// Reported through the runtime's own enumeration only, never declared
	// in its manifest. Enumerate and enable must agree on it.
	e.rt.Extensions = []xrloader.ExtensionProperties{
		{ExtensionName: "XR_KHR_runtime_only", ExtensionVersion: 3},
	}
	l := e.loader()

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{
		EnabledExtensionNames: []string{"XR_KHR_runtime_only"},
	})
	l.DestroyInstance(inst)
	e.checkNoLeaks()
}

func TestConcurrentCreateInstance(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	const n = 2
	handles := make([]xrloader.Instance, n)
	results := make([]xrloader.Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.CreateInstance(&xrloader.InstanceCreateInfo{}, &handles[i])
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if results[i] != xrloader.Success {
			t.Fatalf("create %d = %v", i, results[i])
		}
	}
	if handles[0] == handles[1] {
		t.Fatalf("both creates returned handle %d", handles[0])
	}

	l.instMu.Lock()
	live := len(l.instances)
	l.instMu.Unlock()
	if live != n {
		t.Errorf("registry holds %d instances, want %d", live, n)
	}

	for i := 0; i < n; i++ {
		if res := l.DestroyInstance(handles[i]); res != xrloader.Success {
			t.Errorf("destroy %d = %v", i, res)
		}
	}
	e.checkNoLeaks()
}

func TestHandlesNeverReused(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	first := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	l.DestroyInstance(first)
	second := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	defer l.DestroyInstance(second)

	if first == second {
		t.Errorf("handle %d was reused", first)
	}
	if res := l.DestroyInstance(first); res != xrloader.ErrorHandleInvalid {
		t.Errorf("destroy of stale handle = %v", res)
	}
}

func TestGetInstanceProcAddr(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	// Pre-instance functions resolve against a null handle.
	if p, res := l.GetInstanceProcAddr(xrloader.NullInstance, xrloader.NameCreateInstance); res != xrloader.Success {
		t.Fatalf("resolve xrCreateInstance = %v", res)
	} else if _, ok := p.(xrloader.CreateInstanceFunc); !ok {
		t.Fatalf("xrCreateInstance proc has type %T", p)
	}
	if _, res := l.GetInstanceProcAddr(xrloader.NullInstance, xrloader.NameCreateSession); res != xrloader.ErrorHandleInvalid {
		t.Errorf("instance-scoped name on null handle = %v", res)
	}

	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	defer l.DestroyInstance(inst)

	p, res := l.GetInstanceProcAddr(inst, xrloader.NameCreateSession)
	if res != xrloader.Success {
		t.Fatalf("resolve xrCreateSession = %v", res)
	}
	createSession, ok := p.(xrloader.CreateSessionFunc)
	if !ok {
		t.Fatalf("xrCreateSession proc has type %T", p)
	}
	var sess xrloader.Session
	if r := createSession(inst, &xrloader.SessionCreateInfo{}, &sess); r != xrloader.Success {
		t.Errorf("resolved xrCreateSession call = %v", r)
	}

	if _, res := l.GetInstanceProcAddr(inst, "xrNoSuchFunction"); res != xrloader.ErrorFunctionUnsupported {
		t.Errorf("unknown name = %v", res)
	}
	if _, res := l.GetInstanceProcAddr(inst, xrloader.NameCreateDebugUtilsMessenger); res != xrloader.ErrorFunctionUnsupported {
		t.Errorf("disabled extension entry point = %v", res)
	}
	if _, res := l.GetInstanceProcAddr(xrloader.Instance(0xdead), xrloader.NameCreateSession); res != xrloader.ErrorHandleInvalid {
		t.Errorf("unknown handle = %v", res)
	}
}

func TestCallsRejectUnknownHandles(t *testing.T) {
	l := newTestEnv(t).loader()

	var props xrloader.InstanceProperties
	if res := l.GetInstanceProperties(xrloader.Instance(7), &props); res != xrloader.ErrorHandleInvalid {
		t.Errorf("GetInstanceProperties = %v", res)
	}
	var event xrloader.EventDataBuffer
	if res := l.PollEvent(xrloader.Instance(7), &event); res != xrloader.ErrorHandleInvalid {
		t.Errorf("PollEvent = %v", res)
	}
	var sess xrloader.Session
	if res := l.CreateSession(xrloader.Instance(7), &xrloader.SessionCreateInfo{}, &sess); res != xrloader.ErrorHandleInvalid {
		t.Errorf("CreateSession = %v", res)
	}
	if res := l.DestroySession(xrloader.Session(7)); res != xrloader.ErrorHandleInvalid {
		t.Errorf("DestroySession = %v", res)
	}
}
