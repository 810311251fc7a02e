package driver

// Symbol names exported by a record/replay driver.
const (
	SymAttach                     = "RecordReplayAttach"
	SymSetAPIKey                  = "RecordReplaySetApiKey"
	SymProfileExecution           = "RecordReplayProfileExecution"
	SymAddProfilerEvent           = "RecordReplayAddProfilerEvent"
	SymRecordCommandLineArguments = "RecordReplayRecordCommandLineArguments"
	SymValue                      = "RecordReplayValue"
	SymBytes                      = "RecordReplayBytes"
	SymPrint                      = "RecordReplayPrint"
	SymDiagnostic                 = "RecordReplayDiagnostic"
	SymSaveRecording              = "RecordReplaySaveRecording"
	SymRememberRecording          = "RecordReplayRememberRecording"
	SymFinishRecording            = "RecordReplayFinishRecording"
	SymRegisterPointer            = "RecordReplayRegisterPointer"
	SymUnregisterPointer          = "RecordReplayUnregisterPointer"
	SymPointerID                  = "RecordReplayPointerId"
	SymIDPointer                  = "RecordReplayIdPointer"
	SymAssert                     = "RecordReplayAssert"
	SymAssertBytes                = "RecordReplayAssertBytes"
	SymProgressCounter            = "RecordReplayProgressCounter"
	SymSetProgressCallback        = "RecordReplaySetProgressCallback"
	SymEnableProgressCheckpoints  = "RecordReplayEnableProgressCheckpoints"
	SymProgressReached            = "RecordReplayProgressReached"
	SymBeginPassThroughEvents     = "RecordReplayBeginPassThroughEvents"
	SymEndPassThroughEvents       = "RecordReplayEndPassThroughEvents"
	SymBeginDisallowEvents        = "RecordReplayBeginDisallowEvents"
	SymEndDisallowEvents          = "RecordReplayEndDisallowEvents"
	SymHasDivergedFromRecording   = "RecordReplayHasDivergedFromRecording"
	SymAllowSideEffects           = "RecordReplayAllowSideEffects"
	SymNewCheckpoint              = "RecordReplayNewCheckpoint"
	SymIsReplaying                = "RecordReplayIsReplaying"
	SymCreateOrderedLock          = "RecordReplayCreateOrderedLock"
	SymOrderedLock                = "RecordReplayOrderedLock"
	SymOrderedUnlock              = "RecordReplayOrderedUnlock"
	SymOnMouseEvent               = "RecordReplayOnMouseEvent"
	SymOnKeyEvent                 = "RecordReplayOnKeyEvent"
	SymOnNavigationEvent          = "RecordReplayOnNavigationEvent"
	SymGetRecordingID             = "RecordReplayGetRecordingId"
	SymProcessRecording           = "RecordReplayProcessRecording"
	SymSetCrashReasonCallback     = "RecordReplaySetCrashReasonCallback"
	SymInvalidateRecording        = "RecordReplayInvalidateRecording"
	SymSetCrashNote               = "RecordReplaySetCrashNote"
	SymNotifyActivity             = "RecordReplayNotifyActivity"
	SymNewStableHashTable         = "RecordReplayNewStableHashTable"
	SymMoveStableHashTable        = "RecordReplayMoveStableHashTable"
	SymDeleteStableHashTable      = "RecordReplayDeleteStableHashTable"
	SymLookupStableHashCode       = "RecordReplayLookupStableHashCode"
	SymStableHashTableAddEntry    = "RecordReplayStableHashTableAddEntryForLastLookup"
	SymStableHashTableMoveEntry   = "RecordReplayStableHashTableMoveEntry"
	SymStableHashTableDeleteEntry = "RecordReplayStableHashTableDeleteEntry"
	SymIsRecordingCreated         = "RecordReplayIsRecordingCreated"
	SymWaitForRecordingCreated    = "RecordReplayWaitForRecordingCreated"

	SymAddOrderedPthreadMutex    = "RecordReplayAddOrderedPthreadMutex"
	SymAddOrderedCriticalSection = "RecordReplayAddOrderedCriticalSection"
	SymAddOrderedSRWLock         = "RecordReplayAddOrderedSRWLock"
)

// Capability describes one entry of the driver's capability table.
type Capability struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// nativeLockSymbols maps each native lock kind to its registration symbol.
var nativeLockSymbols = map[LockKind]string{
	LockKindPthreadMutex:    SymAddOrderedPthreadMutex,
	LockKindCriticalSection: SymAddOrderedCriticalSection,
	LockKindSRWLock:         SymAddOrderedSRWLock,
}

// NativeLockSymbol returns the registration symbol for a native lock kind.
func NativeLockSymbol(kind LockKind) (string, bool) {
	name, ok := nativeLockSymbols[kind]
	return name, ok
}

// Catalog returns the capability table in binding order.
//
// The native lock registration entries are required only for the lock kinds
// native to the build platform (see requiredNativeLockKinds).
func Catalog() []Capability {
	caps := []Capability{
		{Name: SymAttach, Required: true},
		{Name: SymSetAPIKey, Required: true},
		{Name: SymProfileExecution, Required: true},
		{Name: SymAddProfilerEvent, Required: true},
		{Name: SymRecordCommandLineArguments, Required: true},
		{Name: SymValue, Required: true},
		{Name: SymBytes, Required: true},
		{Name: SymPrint, Required: true},
		{Name: SymDiagnostic, Required: true},
		{Name: SymSaveRecording, Required: true},
		{Name: SymRememberRecording, Required: true},
		{Name: SymFinishRecording, Required: true},
		{Name: SymRegisterPointer, Required: true},
		{Name: SymUnregisterPointer, Required: true},
		{Name: SymPointerID, Required: true},
		{Name: SymIDPointer, Required: true},
		{Name: SymAssert, Required: true},
		{Name: SymAssertBytes, Required: true},
		{Name: SymProgressCounter, Required: true},
		{Name: SymSetProgressCallback, Required: true},
		{Name: SymEnableProgressCheckpoints, Required: true},
		{Name: SymProgressReached, Required: true},
		{Name: SymBeginPassThroughEvents, Required: true},
		{Name: SymEndPassThroughEvents, Required: true},
		{Name: SymBeginDisallowEvents, Required: true},
		{Name: SymEndDisallowEvents, Required: true},
		{Name: SymHasDivergedFromRecording, Required: true},
		{Name: SymAllowSideEffects, Required: true},
		{Name: SymNewCheckpoint, Required: true},
		{Name: SymIsReplaying, Required: true},
		{Name: SymCreateOrderedLock, Required: true},
		{Name: SymOrderedLock, Required: true},
		{Name: SymOrderedUnlock, Required: true},
		{Name: SymOnMouseEvent, Required: true},
		{Name: SymOnKeyEvent, Required: true},
		{Name: SymOnNavigationEvent, Required: true},
		{Name: SymGetRecordingID, Required: true},
		{Name: SymProcessRecording, Required: true},
		{Name: SymSetCrashReasonCallback, Required: true},
		{Name: SymInvalidateRecording, Required: true},
		{Name: SymSetCrashNote, Required: false},
		{Name: SymNotifyActivity, Required: true},
		{Name: SymNewStableHashTable, Required: true},
		{Name: SymMoveStableHashTable, Required: true},
		{Name: SymDeleteStableHashTable, Required: true},
		{Name: SymLookupStableHashCode, Required: true},
		{Name: SymStableHashTableAddEntry, Required: true},
		{Name: SymStableHashTableMoveEntry, Required: true},
		{Name: SymStableHashTableDeleteEntry, Required: true},
		{Name: SymIsRecordingCreated, Required: true},
		{Name: SymWaitForRecordingCreated, Required: true},
	}

	for _, kind := range []LockKind{LockKindPthreadMutex, LockKindCriticalSection, LockKindSRWLock} {
		caps = append(caps, Capability{
			Name:     nativeLockSymbols[kind],
			Required: isRequiredNativeLockKind(kind),
		})
	}
	return caps
}

func isRequiredNativeLockKind(kind LockKind) bool {
	for _, k := range requiredNativeLockKinds {
		if k == kind {
			return true
		}
	}
	return false
}
