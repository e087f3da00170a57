package core

import (
	"sync"
	"testing"

	xrloader "github.com/wippyai/xr-loader"
)

// callbackRecord captures delivered debug messages.
type callbackRecord struct {
	mu       sync.Mutex
	messages []xrloader.DebugUtilsMessengerCallbackData
}

func (r *callbackRecord) callback(
	_ xrloader.DebugUtilsMessageSeverityFlags,
	_ xrloader.DebugUtilsMessageTypeFlags,
	data *xrloader.DebugUtilsMessengerCallbackData,
) bool {
	r.mu.Lock()
	r.messages = append(r.messages, *data)
	r.mu.Unlock()
	return false
}

func (r *callbackRecord) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *callbackRecord) last(t *testing.T) xrloader.DebugUtilsMessengerCallbackData {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		t.Fatal("no message delivered")
	}
	return r.messages[len(r.messages)-1]
}

func debugUtilsInstance(t *testing.T, e *testEnv, l *Loader) xrloader.Instance {
	t.Helper()
	return mustCreate(t, l, &xrloader.InstanceCreateInfo{
		EnabledExtensionNames: []string{xrloader.ExtDebugUtilsExtensionName},
	})
}

func TestEmulatedMessengerFanOut(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()
	inst := debugUtilsInstance(t, e, l)
	defer l.DestroyInstance(inst)

	rec := &callbackRecord{}
	var m xrloader.DebugUtilsMessenger
	res := l.CreateDebugUtilsMessenger(inst, &xrloader.DebugUtilsMessengerCreateInfo{
		MessageSeverities: xrloader.DebugUtilsSeverityError | xrloader.DebugUtilsSeverityWarning,
		MessageTypes:      xrloader.DebugUtilsTypeGeneral,
		UserCallback:      rec.callback,
	}, &m)
	if res != xrloader.Success {
		t.Fatalf("CreateDebugUtilsMessenger = %v", res)
	}
	if m == xrloader.NullDebugUtilsMessenger {
		t.Fatal("null messenger handle")
	}

	data := &xrloader.DebugUtilsMessengerCallbackData{MessageID: "test", Message: "boom"}
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("SubmitDebugUtilsMessage = %v", res)
	}
	if rec.count() != 1 {
		t.Fatalf("delivered %d messages, want 1", rec.count())
	}

	// Severity outside the mask: not delivered.
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityVerbose, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("verbose submit = %v", res)
	}
	// Type outside the mask: not delivered.
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypePerformance, data); res != xrloader.Success {
		t.Fatalf("performance submit = %v", res)
	}
	if rec.count() != 1 {
		t.Errorf("masked messages were delivered: %d total", rec.count())
	}

	if res := l.DestroyDebugUtilsMessenger(m); res != xrloader.Success {
		t.Fatalf("DestroyDebugUtilsMessenger = %v", res)
	}
	if res := l.DestroyDebugUtilsMessenger(m); res != xrloader.ErrorHandleInvalid {
		t.Errorf("second destroy = %v", res)
	}
	if res := l.DestroyDebugUtilsMessenger(xrloader.NullDebugUtilsMessenger); res != xrloader.Success {
		t.Errorf("destroy of null messenger = %v", res)
	}

	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("submit after destroy = %v", res)
	}
	if rec.count() != 1 {
		t.Errorf("destroyed messenger still fired")
	}
}

func TestDebugUtilsRequiresExtension(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()
	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{})
	defer l.DestroyInstance(inst)

	rec := &callbackRecord{}
	var m xrloader.DebugUtilsMessenger
	res := l.CreateDebugUtilsMessenger(inst, &xrloader.DebugUtilsMessengerCreateInfo{
		MessageSeverities: xrloader.DebugUtilsSeverityError,
		MessageTypes:      xrloader.DebugUtilsTypeGeneral,
		UserCallback:      rec.callback,
	}, &m)
	if res != xrloader.ErrorFunctionUnsupported {
		t.Errorf("create without the extension = %v, want ErrorFunctionUnsupported", res)
	}
}

func TestDefaultMessengerFromCreateInfo(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()

	rec := &callbackRecord{}
	inst := mustCreate(t, l, &xrloader.InstanceCreateInfo{
		EnabledExtensionNames: []string{xrloader.ExtDebugUtilsExtensionName},
		DebugUtilsMessenger: &xrloader.DebugUtilsMessengerCreateInfo{
			MessageSeverities: xrloader.DebugUtilsSeverityError,
			MessageTypes:      xrloader.DebugUtilsTypeGeneral,
			UserCallback:      rec.callback,
		},
	})

	data := &xrloader.DebugUtilsMessengerCallbackData{MessageID: "default", Message: "via default messenger"}
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("SubmitDebugUtilsMessage = %v", res)
	}
	if rec.count() != 1 {
		t.Fatalf("default messenger delivered %d messages, want 1", rec.count())
	}

	if res := l.DestroyInstance(inst); res != xrloader.Success {
		t.Fatalf("DestroyInstance = %v", res)
	}
	e.checkNoLeaks()
}

func TestSessionLabelStacks(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()
	inst := debugUtilsInstance(t, e, l)
	defer l.DestroyInstance(inst)

	rec := &callbackRecord{}
	var m xrloader.DebugUtilsMessenger
	if res := l.CreateDebugUtilsMessenger(inst, &xrloader.DebugUtilsMessengerCreateInfo{
		MessageSeverities: xrloader.DebugUtilsSeverityError,
		MessageTypes:      xrloader.DebugUtilsTypeGeneral,
		UserCallback:      rec.callback,
	}, &m); res != xrloader.Success {
		t.Fatalf("CreateDebugUtilsMessenger = %v", res)
	}

	var sess xrloader.Session
	if res := l.CreateSession(inst, &xrloader.SessionCreateInfo{}, &sess); res != xrloader.Success {
		t.Fatalf("CreateSession = %v", res)
	}

	if res := l.SessionBeginDebugUtilsLabelRegion(sess, &xrloader.DebugUtilsLabel{LabelName: "outer"}); res != xrloader.Success {
		t.Fatalf("begin = %v", res)
	}
	if res := l.SessionInsertDebugUtilsLabel(sess, &xrloader.DebugUtilsLabel{LabelName: "mark"}); res != xrloader.Success {
		t.Fatalf("insert = %v", res)
	}

	data := &xrloader.DebugUtilsMessengerCallbackData{
		MessageID: "labeled",
		Message:   "inside region",
		Objects: []xrloader.DebugUtilsObjectNameInfo{
			{ObjectType: xrloader.ObjectTypeSession, ObjectHandle: uint64(sess)},
		},
	}
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("submit = %v", res)
	}

	got := rec.last(t)
	if !got.SessionLabelSet {
		t.Fatal("session labels not attached")
	}
	if len(got.SessionLabels) != 2 || got.SessionLabels[0].LabelName != "mark" || got.SessionLabels[1].LabelName != "outer" {
		t.Fatalf("labels = %+v, want mark then outer", got.SessionLabels)
	}

	// A second insert replaces the standing individual label.
	if res := l.SessionInsertDebugUtilsLabel(sess, &xrloader.DebugUtilsLabel{LabelName: "mark2"}); res != xrloader.Success {
		t.Fatalf("second insert = %v", res)
	}
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("second submit = %v", res)
	}
	got = rec.last(t)
	if len(got.SessionLabels) != 2 || got.SessionLabels[0].LabelName != "mark2" {
		t.Fatalf("labels after replace = %+v", got.SessionLabels)
	}

	// End closes the region and drops the standing label with it.
	if res := l.SessionEndDebugUtilsLabelRegion(sess); res != xrloader.Success {
		t.Fatalf("end = %v", res)
	}
	if res := l.SessionEndDebugUtilsLabelRegion(sess); res != xrloader.ErrorValidationFailure {
		t.Errorf("end on empty stack = %v, want ErrorValidationFailure", res)
	}

	if res := l.DestroySession(sess); res != xrloader.Success {
		t.Fatalf("DestroySession = %v", res)
	}
}

func TestSetObjectNameEnrichesMessages(t *testing.T) {
	e := newTestEnv(t)
	l := e.loader()
	inst := debugUtilsInstance(t, e, l)
	defer l.DestroyInstance(inst)

	rec := &callbackRecord{}
	var m xrloader.DebugUtilsMessenger
	if res := l.CreateDebugUtilsMessenger(inst, &xrloader.DebugUtilsMessengerCreateInfo{
		MessageSeverities: xrloader.DebugUtilsSeverityError,
		MessageTypes:      xrloader.DebugUtilsTypeGeneral,
		UserCallback:      rec.callback,
	}, &m); res != xrloader.Success {
		t.Fatalf("CreateDebugUtilsMessenger = %v", res)
	}

	if res := l.SetDebugUtilsObjectName(inst, &xrloader.DebugUtilsObjectNameInfo{
		ObjectType:   xrloader.ObjectTypeInstance,
		ObjectHandle: 42,
		ObjectName:   "main instance",
	}); res != xrloader.Success {
		t.Fatalf("SetDebugUtilsObjectName = %v", res)
	}

	data := &xrloader.DebugUtilsMessengerCallbackData{
		MessageID: "named",
		Objects:   []xrloader.DebugUtilsObjectNameInfo{{ObjectType: xrloader.ObjectTypeInstance, ObjectHandle: 42}},
	}
	if res := l.SubmitDebugUtilsMessage(inst, xrloader.DebugUtilsSeverityError, xrloader.DebugUtilsTypeGeneral, data); res != xrloader.Success {
		t.Fatalf("submit = %v", res)
	}
	if got := rec.last(t); len(got.Objects) != 1 || got.Objects[0].ObjectName != "main instance" {
		t.Errorf("objects = %+v", rec.last(t).Objects)
	}
	if data.Objects[0].ObjectName != "" {
		t.Error("caller's data was mutated")
	}
}
