package driver

import (
	"sync"
	"sync/atomic"
)

// Bound forwards every capability to the entry points resolved by Bind.
//
// Required entry points are never nil once Bind has returned (a missing one
// terminates the process). Optional ones may be nil and are skipped.
type Bound struct {
	attach                     func(string, string)
	setAPIKey                  func(string)
	profileExecution           func(string)
	addProfilerEvent           func(string, string)
	recordCommandLineArguments func([]string) []string
	value                      func(ThreadID, string, uintptr) uintptr
	bytes                      func(ThreadID, string, []byte)
	print                      func(string)
	diagnostic                 func(string)
	saveRecording              func(string)
	rememberRecording          func()
	finishRecording            func()
	registerPointer            func(uintptr)
	unregisterPointer          func(uintptr)
	pointerID                  func(uintptr) int
	idPointer                  func(int) uintptr
	assert                     func(ThreadID, string)
	assertBytes                func(ThreadID, string, []byte)
	progressCounter            func() *atomic.Uint64
	setProgressCallback        func(func(uint64))
	enableProgressCheckpoints  func()
	progressReached            func()
	beginPassThroughEvents     func(ThreadID)
	endPassThroughEvents       func(ThreadID)
	beginDisallowEvents        func(ThreadID)
	endDisallowEvents          func(ThreadID)
	hasDivergedFromRecording   func() bool
	allowSideEffects           func() bool
	newCheckpoint              func()
	isReplaying                func() bool
	createOrderedLock          func(string) int
	orderedLock                func(ThreadID, int)
	orderedUnlock              func(ThreadID, int)
	onMouseEvent               func(string, int, int)
	onKeyEvent                 func(string, string)
	onNavigationEvent          func(string, string)
	getRecordingID             func() string
	processRecording           func()
	setCrashReasonCallback     func(func() string)
	invalidateRecording        func(string)
	setCrashNote               func(string)
	notifyActivity             func()
	newStableHashTable         func(uintptr, KeyEqualsEntry, any)
	moveStableHashTable        func(uintptr, uintptr)
	deleteStableHashTable      func(uintptr)
	lookupStableHashCode       func(uintptr, any, uint32) (uint32, bool)
	addEntryForLastLookup      func(uintptr, uintptr)
	moveEntry                  func(uintptr, uintptr, uintptr)
	deleteEntry                func(uintptr, uintptr)
	isRecordingCreated         func() bool
	waitForRecordingCreated    func() bool
	nativeLocks                map[LockKind]func(string, sync.Locker)
}

// Bind resolves the whole Catalog against res.
//
// Missing required entries are reported through fatal, one call per entry.
// The returned Table records which entries were resolved.
func Bind(res Resolver, fatal FatalFunc) (*Bound, *Table) {
	b := &binder{
		res:      res,
		fatal:    fatal,
		table:    newTable(),
		required: make(map[string]bool),
	}
	for _, c := range Catalog() {
		b.required[c.Name] = c.Required
	}

	d := &Bound{
		attach:                     bindFunc[func(string, string)](b, SymAttach),
		setAPIKey:                  bindFunc[func(string)](b, SymSetAPIKey),
		profileExecution:           bindFunc[func(string)](b, SymProfileExecution),
		addProfilerEvent:           bindFunc[func(string, string)](b, SymAddProfilerEvent),
		recordCommandLineArguments: bindFunc[func([]string) []string](b, SymRecordCommandLineArguments),
		value:                      bindFunc[func(ThreadID, string, uintptr) uintptr](b, SymValue),
		bytes:                      bindFunc[func(ThreadID, string, []byte)](b, SymBytes),
		print:                      bindFunc[func(string)](b, SymPrint),
		diagnostic:                 bindFunc[func(string)](b, SymDiagnostic),
		saveRecording:              bindFunc[func(string)](b, SymSaveRecording),
		rememberRecording:          bindFunc[func()](b, SymRememberRecording),
		finishRecording:            bindFunc[func()](b, SymFinishRecording),
		registerPointer:            bindFunc[func(uintptr)](b, SymRegisterPointer),
		unregisterPointer:          bindFunc[func(uintptr)](b, SymUnregisterPointer),
		pointerID:                  bindFunc[func(uintptr) int](b, SymPointerID),
		idPointer:                  bindFunc[func(int) uintptr](b, SymIDPointer),
		assert:                     bindFunc[func(ThreadID, string)](b, SymAssert),
		assertBytes:                bindFunc[func(ThreadID, string, []byte)](b, SymAssertBytes),
		progressCounter:            bindFunc[func() *atomic.Uint64](b, SymProgressCounter),
		setProgressCallback:        bindFunc[func(func(uint64))](b, SymSetProgressCallback),
		enableProgressCheckpoints:  bindFunc[func()](b, SymEnableProgressCheckpoints),
		progressReached:            bindFunc[func()](b, SymProgressReached),
		beginPassThroughEvents:     bindFunc[func(ThreadID)](b, SymBeginPassThroughEvents),
		endPassThroughEvents:       bindFunc[func(ThreadID)](b, SymEndPassThroughEvents),
		beginDisallowEvents:        bindFunc[func(ThreadID)](b, SymBeginDisallowEvents),
		endDisallowEvents:          bindFunc[func(ThreadID)](b, SymEndDisallowEvents),
		hasDivergedFromRecording:   bindFunc[func() bool](b, SymHasDivergedFromRecording),
		allowSideEffects:           bindFunc[func() bool](b, SymAllowSideEffects),
		newCheckpoint:              bindFunc[func()](b, SymNewCheckpoint),
		isReplaying:                bindFunc[func() bool](b, SymIsReplaying),
		createOrderedLock:          bindFunc[func(string) int](b, SymCreateOrderedLock),
		orderedLock:                bindFunc[func(ThreadID, int)](b, SymOrderedLock),
		orderedUnlock:              bindFunc[func(ThreadID, int)](b, SymOrderedUnlock),
		onMouseEvent:               bindFunc[func(string, int, int)](b, SymOnMouseEvent),
		onKeyEvent:                 bindFunc[func(string, string)](b, SymOnKeyEvent),
		onNavigationEvent:          bindFunc[func(string, string)](b, SymOnNavigationEvent),
		getRecordingID:             bindFunc[func() string](b, SymGetRecordingID),
		processRecording:           bindFunc[func()](b, SymProcessRecording),
		setCrashReasonCallback:     bindFunc[func(func() string)](b, SymSetCrashReasonCallback),
		invalidateRecording:        bindFunc[func(string)](b, SymInvalidateRecording),
		setCrashNote:               bindFunc[func(string)](b, SymSetCrashNote),
		notifyActivity:             bindFunc[func()](b, SymNotifyActivity),
		newStableHashTable:         bindFunc[func(uintptr, KeyEqualsEntry, any)](b, SymNewStableHashTable),
		moveStableHashTable:        bindFunc[func(uintptr, uintptr)](b, SymMoveStableHashTable),
		deleteStableHashTable:      bindFunc[func(uintptr)](b, SymDeleteStableHashTable),
		lookupStableHashCode:       bindFunc[func(uintptr, any, uint32) (uint32, bool)](b, SymLookupStableHashCode),
		addEntryForLastLookup:      bindFunc[func(uintptr, uintptr)](b, SymStableHashTableAddEntry),
		moveEntry:                  bindFunc[func(uintptr, uintptr, uintptr)](b, SymStableHashTableMoveEntry),
		deleteEntry:                bindFunc[func(uintptr, uintptr)](b, SymStableHashTableDeleteEntry),
		isRecordingCreated:         bindFunc[func() bool](b, SymIsRecordingCreated),
		waitForRecordingCreated:    bindFunc[func() bool](b, SymWaitForRecordingCreated),
		nativeLocks:                make(map[LockKind]func(string, sync.Locker)),
	}

	for _, kind := range []LockKind{LockKindPthreadMutex, LockKindCriticalSection, LockKindSRWLock} {
		if fn := bindFunc[func(string, sync.Locker)](b, nativeLockSymbols[kind]); fn != nil {
			d.nativeLocks[kind] = fn
		}
	}

	return d, b.table
}

var _ Driver = (*Bound)(nil)

func (d *Bound) Attach(dispatch, buildID string) { d.attach(dispatch, buildID) }
func (d *Bound) SetAPIKey(key string)            { d.setAPIKey(key) }
func (d *Bound) ProfileExecution(path string)    { d.profileExecution(path) }
func (d *Bound) AddProfilerEvent(event, json string) {
	d.addProfilerEvent(event, json)
}
func (d *Bound) RecordCommandLineArguments(args []string) []string {
	return d.recordCommandLineArguments(args)
}
func (d *Bound) ProcessRecording()              { d.processRecording() }
func (d *Bound) SaveRecording(dir string)       { d.saveRecording(dir) }
func (d *Bound) RememberRecording()             { d.rememberRecording() }
func (d *Bound) FinishRecording()               { d.finishRecording() }
func (d *Bound) InvalidateRecording(why string) { d.invalidateRecording(why) }
func (d *Bound) IsReplaying() bool              { return d.isReplaying() }
func (d *Bound) RecordingID() string            { return d.getRecordingID() }
func (d *Bound) IsRecordingCreated() bool       { return d.isRecordingCreated() }
func (d *Bound) WaitForRecordingCreated() bool  { return d.waitForRecordingCreated() }

func (d *Bound) RecordReplayValue(tid ThreadID, why string, value uintptr) uintptr {
	return d.value(tid, why, value)
}
func (d *Bound) RecordReplayBytes(tid ThreadID, why string, buf []byte) { d.bytes(tid, why, buf) }
func (d *Bound) Assert(tid ThreadID, msg string)                        { d.assert(tid, msg) }
func (d *Bound) AssertBytes(tid ThreadID, why string, data []byte) {
	d.assertBytes(tid, why, data)
}
func (d *Bound) Print(msg string)      { d.print(msg) }
func (d *Bound) Diagnostic(msg string) { d.diagnostic(msg) }
func (d *Bound) NotifyActivity()       { d.notifyActivity() }

func (d *Bound) RegisterThing(thing uintptr)   { d.registerPointer(thing) }
func (d *Bound) UnregisterThing(thing uintptr) { d.unregisterPointer(thing) }
func (d *Bound) ThingIndex(thing uintptr) int  { return d.pointerID(thing) }
func (d *Bound) IndexThing(id int) uintptr     { return d.idPointer(id) }

func (d *Bound) ProgressCounter() *atomic.Uint64     { return d.progressCounter() }
func (d *Bound) SetProgressCallback(cb func(uint64)) { d.setProgressCallback(cb) }
func (d *Bound) EnableProgressCheckpoints()          { d.enableProgressCheckpoints() }
func (d *Bound) ProgressReached()                    { d.progressReached() }

func (d *Bound) BeginPassThroughEvents(tid ThreadID) { d.beginPassThroughEvents(tid) }
func (d *Bound) EndPassThroughEvents(tid ThreadID)   { d.endPassThroughEvents(tid) }
func (d *Bound) BeginDisallowEvents(tid ThreadID)    { d.beginDisallowEvents(tid) }
func (d *Bound) EndDisallowEvents(tid ThreadID)      { d.endDisallowEvents(tid) }
func (d *Bound) HasDivergedFromRecording() bool      { return d.hasDivergedFromRecording() }
func (d *Bound) AllowSideEffects() bool              { return d.allowSideEffects() }

func (d *Bound) NewCheckpoint() { d.newCheckpoint() }

func (d *Bound) CreateOrderedLock(name string) int    { return d.createOrderedLock(name) }
func (d *Bound) OrderedLock(tid ThreadID, lock int)   { d.orderedLock(tid, lock) }
func (d *Bound) OrderedUnlock(tid ThreadID, lock int) { d.orderedUnlock(tid, lock) }
func (d *Bound) AddOrderedNativeLock(kind LockKind, name string, lock sync.Locker) {
	if fn := d.nativeLocks[kind]; fn != nil {
		fn(name, lock)
	}
}

func (d *Bound) OnMouseEvent(kind string, x, y int) { d.onMouseEvent(kind, x, y) }
func (d *Bound) OnKeyEvent(kind, key string)        { d.onKeyEvent(kind, key) }
func (d *Bound) OnNavigationEvent(kind, url string) { d.onNavigationEvent(kind, url) }

func (d *Bound) SetCrashReasonCallback(cb func() string) { d.setCrashReasonCallback(cb) }

// SetCrashNote is optional; older drivers do not export it.
func (d *Bound) SetCrashNote(note string) {
	if d.setCrashNote != nil {
		d.setCrashNote(note)
	}
}

// HasCrashNotes reports whether the optional crash note entry was resolved.
func (d *Bound) HasCrashNotes() bool { return d.setCrashNote != nil }

func (d *Bound) NewStableHashTable(table uintptr, eq KeyEqualsEntry, private any) {
	d.newStableHashTable(table, eq, private)
}
func (d *Bound) MoveStableHashTable(src, dst uintptr) { d.moveStableHashTable(src, dst) }
func (d *Bound) DeleteStableHashTable(table uintptr)  { d.deleteStableHashTable(table) }
func (d *Bound) LookupStableHashCode(table uintptr, key any, unstable uint32) (uint32, bool) {
	return d.lookupStableHashCode(table, key, unstable)
}
func (d *Bound) StableHashTableAddEntryForLastLookup(table, entry uintptr) {
	d.addEntryForLastLookup(table, entry)
}
func (d *Bound) StableHashTableMoveEntry(table, src, dst uintptr) { d.moveEntry(table, src, dst) }
func (d *Bound) StableHashTableDeleteEntry(table, entry uintptr)  { d.deleteEntry(table, entry) }
