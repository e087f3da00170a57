package core

import (
	"sync"

	xrloader "github.com/wippyai/xr-loader"
)

// debugUtilsState is the loader-side debug-utils bookkeeping for one
// instance. It only fills up when the loader emulates the extension; a
// runtime-provided implementation keeps its own state.
type debugUtilsState struct {
	mu sync.Mutex

	// emulated is set while the call chain is built, before the instance
	// becomes visible, and read-only afterwards.
	emulated bool

	messengers  map[xrloader.DebugUtilsMessenger]xrloader.DebugUtilsMessengerCreateInfo
	labels      map[xrloader.Session][]sessionLabel
	objectNames map[uint64]string
}

// sessionLabel is one entry on a session's label stack. A region entry
// stays until its matching end; a non-region entry is replaced by the
// next label operation on the session.
type sessionLabel struct {
	label  xrloader.DebugUtilsLabel
	region bool
}

func newDebugUtilsState() *debugUtilsState {
	return &debugUtilsState{
		messengers:  make(map[xrloader.DebugUtilsMessenger]xrloader.DebugUtilsMessengerCreateInfo),
		labels:      make(map[xrloader.Session][]sessionLabel),
		objectNames: make(map[uint64]string),
	}
}

func (d *debugUtilsState) dropSession(s xrloader.Session) {
	d.mu.Lock()
	delete(d.labels, s)
	d.mu.Unlock()
}

// emulatedDebugUtilsProc returns the loader's implementation of one
// debug-utils entry point, bound to this instance. Only called by the
// chain terminator for names the runtime does not serve.
func (li *LoaderInstance) emulatedDebugUtilsProc(name string) xrloader.ProcAddr {
	switch name {
	case xrloader.NameCreateDebugUtilsMessenger:
		return xrloader.CreateDebugUtilsMessengerFunc(li.emuCreateMessenger)
	case xrloader.NameDestroyDebugUtilsMessenger:
		return xrloader.DestroyDebugUtilsMessengerFunc(li.emuDestroyMessenger)
	case xrloader.NameSubmitDebugUtilsMessage:
		return xrloader.SubmitDebugUtilsMessageFunc(li.emuSubmitMessage)
	case xrloader.NameSessionBeginDebugUtilsLabelRegion:
		return xrloader.SessionBeginDebugUtilsLabelRegionFunc(li.emuBeginLabelRegion)
	case xrloader.NameSessionEndDebugUtilsLabelRegion:
		return xrloader.SessionEndDebugUtilsLabelRegionFunc(li.emuEndLabelRegion)
	case xrloader.NameSessionInsertDebugUtilsLabel:
		return xrloader.SessionInsertDebugUtilsLabelFunc(li.emuInsertLabel)
	case xrloader.NameSetDebugUtilsObjectName:
		return xrloader.SetDebugUtilsObjectNameFunc(li.emuSetObjectName)
	}
	return nil
}

func (li *LoaderInstance) emuCreateMessenger(
	_ xrloader.Instance,
	createInfo *xrloader.DebugUtilsMessengerCreateInfo,
	messenger *xrloader.DebugUtilsMessenger,
) xrloader.Result {
	if createInfo == nil || messenger == nil || createInfo.UserCallback == nil {
		return xrloader.ErrorValidationFailure
	}
	h := xrloader.DebugUtilsMessenger(li.loader.newHandle())
	li.du.mu.Lock()
	li.du.messengers[h] = *createInfo
	li.du.mu.Unlock()
	*messenger = h
	return xrloader.Success
}

func (li *LoaderInstance) emuDestroyMessenger(messenger xrloader.DebugUtilsMessenger) xrloader.Result {
	li.du.mu.Lock()
	defer li.du.mu.Unlock()
	if _, ok := li.du.messengers[messenger]; !ok {
		return xrloader.ErrorHandleInvalid
	}
	delete(li.du.messengers, messenger)
	return xrloader.Success
}

// emuSubmitMessage fans the message out to every registered messenger
// whose masks match. Session labels for any session object named in the
// message are attached to the delivered copy; the caller's data is never
// mutated. Callbacks run outside the state lock.
func (li *LoaderInstance) emuSubmitMessage(
	_ xrloader.Instance,
	severity xrloader.DebugUtilsMessageSeverityFlags,
	types xrloader.DebugUtilsMessageTypeFlags,
	data *xrloader.DebugUtilsMessengerCallbackData,
) xrloader.Result {
	if data == nil {
		return xrloader.ErrorValidationFailure
	}

	li.du.mu.Lock()
	callbacks := make([]xrloader.DebugUtilsMessengerCallback, 0, len(li.du.messengers))
	for _, info := range li.du.messengers {
		if info.MessageSeverities&severity != 0 && info.MessageTypes&types != 0 {
			callbacks = append(callbacks, info.UserCallback)
		}
	}
	delivered := *data
	delivered.Objects = make([]xrloader.DebugUtilsObjectNameInfo, len(data.Objects))
	copy(delivered.Objects, data.Objects)
	for i, obj := range delivered.Objects {
		if obj.ObjectName == "" {
			delivered.Objects[i].ObjectName = li.du.objectNames[obj.ObjectHandle]
		}
		if obj.ObjectType == xrloader.ObjectTypeSession {
			if stack := li.du.labels[xrloader.Session(obj.ObjectHandle)]; len(stack) > 0 {
				delivered.SessionLabelSet = true
				// Innermost label first, mirroring how a reader walks back
				// out of nested regions.
				for k := len(stack) - 1; k >= 0; k-- {
					delivered.SessionLabels = append(delivered.SessionLabels, stack[k].label)
				}
			}
		}
	}
	li.du.mu.Unlock()

	for _, cb := range callbacks {
		cb(severity, types, &delivered)
	}
	return xrloader.Success
}

func (li *LoaderInstance) emuBeginLabelRegion(session xrloader.Session, label *xrloader.DebugUtilsLabel) xrloader.Result {
	if label == nil {
		return xrloader.ErrorValidationFailure
	}
	if li.loader.sessionOwner(session) != li {
		return xrloader.ErrorHandleInvalid
	}
	li.du.mu.Lock()
	li.du.labels[session] = append(li.du.labels[session], sessionLabel{label: *label, region: true})
	li.du.mu.Unlock()
	return xrloader.Success
}

func (li *LoaderInstance) emuEndLabelRegion(session xrloader.Session) xrloader.Result {
	if li.loader.sessionOwner(session) != li {
		return xrloader.ErrorHandleInvalid
	}
	li.du.mu.Lock()
	defer li.du.mu.Unlock()
	stack := li.du.labels[session]
	if n := len(stack); n > 0 && !stack[n-1].region {
		stack = stack[:n-1]
	}
	if len(stack) == 0 || !stack[len(stack)-1].region {
		return xrloader.ErrorValidationFailure
	}
	li.du.labels[session] = stack[:len(stack)-1]
	return xrloader.Success
}

func (li *LoaderInstance) emuInsertLabel(session xrloader.Session, label *xrloader.DebugUtilsLabel) xrloader.Result {
	if label == nil {
		return xrloader.ErrorValidationFailure
	}
	if li.loader.sessionOwner(session) != li {
		return xrloader.ErrorHandleInvalid
	}
	li.du.mu.Lock()
	defer li.du.mu.Unlock()
	stack := li.du.labels[session]
	if n := len(stack); n > 0 && !stack[n-1].region {
		stack[n-1] = sessionLabel{label: *label}
	} else {
		stack = append(stack, sessionLabel{label: *label})
	}
	li.du.labels[session] = stack
	return xrloader.Success
}

func (li *LoaderInstance) emuSetObjectName(_ xrloader.Instance, nameInfo *xrloader.DebugUtilsObjectNameInfo) xrloader.Result {
	if nameInfo == nil {
		return xrloader.ErrorValidationFailure
	}
	li.du.mu.Lock()
	if nameInfo.ObjectName == "" {
		delete(li.du.objectNames, nameInfo.ObjectHandle)
	} else {
		li.du.objectNames[nameInfo.ObjectHandle] = nameInfo.ObjectName
	}
	li.du.mu.Unlock()
	return xrloader.Success
}

// CreateDebugUtilsMessenger creates a messenger through the instance's
// call chain and registers the handle for routing.
func (l *Loader) CreateDebugUtilsMessenger(
	instance xrloader.Instance,
	createInfo *xrloader.DebugUtilsMessengerCreateInfo,
	messenger *xrloader.DebugUtilsMessenger,
) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameCreateDebugUtilsMessenger, xrloader.ErrorRuntimeFailure)

	if createInfo == nil || messenger == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.CreateDebugUtilsMessenger == nil {
		return xrloader.ErrorFunctionUnsupported
	}

	var m xrloader.DebugUtilsMessenger
	r := li.table.CreateDebugUtilsMessenger(li.runtimeInstance, createInfo, &m)
	if r.IsError() {
		return r
	}

	l.msgrMu.Lock()
	l.messengers[m] = li
	l.msgrMu.Unlock()

	*messenger = m
	return r
}

// DestroyDebugUtilsMessenger destroys a messenger. A null handle is a
// successful no-op.
func (l *Loader) DestroyDebugUtilsMessenger(messenger xrloader.DebugUtilsMessenger) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameDestroyDebugUtilsMessenger, xrloader.ErrorRuntimeFailure)

	if messenger == xrloader.NullDebugUtilsMessenger {
		return xrloader.Success
	}
	li := l.messengerOwner(messenger)
	if li == nil {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.DestroyDebugUtilsMessenger == nil {
		return xrloader.ErrorFunctionUnsupported
	}

	l.msgrMu.Lock()
	delete(l.messengers, messenger)
	l.msgrMu.Unlock()

	return li.table.DestroyDebugUtilsMessenger(messenger)
}

// SubmitDebugUtilsMessage delivers a message through the call chain.
func (l *Loader) SubmitDebugUtilsMessage(
	instance xrloader.Instance,
	severity xrloader.DebugUtilsMessageSeverityFlags,
	types xrloader.DebugUtilsMessageTypeFlags,
	data *xrloader.DebugUtilsMessengerCallbackData,
) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameSubmitDebugUtilsMessage, xrloader.ErrorRuntimeFailure)

	if data == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.SubmitDebugUtilsMessage == nil {
		return xrloader.ErrorFunctionUnsupported
	}
	return li.table.SubmitDebugUtilsMessage(li.runtimeInstance, severity, types, data)
}

// SessionBeginDebugUtilsLabelRegion opens a label region on a session.
func (l *Loader) SessionBeginDebugUtilsLabelRegion(session xrloader.Session, label *xrloader.DebugUtilsLabel) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameSessionBeginDebugUtilsLabelRegion, xrloader.ErrorRuntimeFailure)

	if label == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.sessionOwner(session)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.SessionBeginDebugUtilsLabelRegion == nil {
		return xrloader.ErrorFunctionUnsupported
	}
	return li.table.SessionBeginDebugUtilsLabelRegion(session, label)
}

// SessionEndDebugUtilsLabelRegion closes the innermost open label region.
func (l *Loader) SessionEndDebugUtilsLabelRegion(session xrloader.Session) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameSessionEndDebugUtilsLabelRegion, xrloader.ErrorRuntimeFailure)

	li := l.sessionOwner(session)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.SessionEndDebugUtilsLabelRegion == nil {
		return xrloader.ErrorFunctionUnsupported
	}
	return li.table.SessionEndDebugUtilsLabelRegion(session)
}

// SessionInsertDebugUtilsLabel inserts a standalone label on a session.
func (l *Loader) SessionInsertDebugUtilsLabel(session xrloader.Session, label *xrloader.DebugUtilsLabel) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameSessionInsertDebugUtilsLabel, xrloader.ErrorRuntimeFailure)

	if label == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.sessionOwner(session)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.SessionInsertDebugUtilsLabel == nil {
		return xrloader.ErrorFunctionUnsupported
	}
	return li.table.SessionInsertDebugUtilsLabel(session, label)
}

// SetDebugUtilsObjectName attaches a debug name to an object.
func (l *Loader) SetDebugUtilsObjectName(instance xrloader.Instance, nameInfo *xrloader.DebugUtilsObjectNameInfo) (res xrloader.Result) {
	defer l.recoverToResult(&res, xrloader.NameSetDebugUtilsObjectName, xrloader.ErrorRuntimeFailure)

	if nameInfo == nil {
		return xrloader.ErrorValidationFailure
	}
	li := l.instanceFor(instance)
	if li == nil || !li.active() {
		return xrloader.ErrorHandleInvalid
	}
	if li.table.SetDebugUtilsObjectName == nil {
		return xrloader.ErrorFunctionUnsupported
	}
	return li.table.SetDebugUtilsObjectName(li.runtimeInstance, nameInfo)
}
