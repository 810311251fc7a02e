package driver

import (
	"sync"
	"sync/atomic"
)

// Absent is the Driver used when no driver module is present.
// Every capability degrades to a no-op, false, zero, or its input.
type Absent struct {
	progress atomic.Uint64
}

var _ Driver = (*Absent)(nil)

func (*Absent) Attach(string, string)        {}
func (*Absent) SetAPIKey(string)             {}
func (*Absent) ProfileExecution(string)      {}
func (*Absent) AddProfilerEvent(_, _ string) {}

// RecordCommandLineArguments returns args unchanged.
func (*Absent) RecordCommandLineArguments(args []string) []string { return args }

func (*Absent) ProcessRecording()             {}
func (*Absent) SaveRecording(string)          {}
func (*Absent) RememberRecording()            {}
func (*Absent) FinishRecording()              {}
func (*Absent) InvalidateRecording(string)    {}
func (*Absent) IsReplaying() bool             { return false }
func (*Absent) RecordingID() string           { return "" }
func (*Absent) IsRecordingCreated() bool      { return false }
func (*Absent) WaitForRecordingCreated() bool { return false }

// RecordReplayValue returns value unchanged.
func (*Absent) RecordReplayValue(_ ThreadID, _ string, value uintptr) uintptr { return value }
func (*Absent) RecordReplayBytes(ThreadID, string, []byte)                    {}
func (*Absent) Assert(ThreadID, string)                                       {}
func (*Absent) AssertBytes(ThreadID, string, []byte)                          {}
func (*Absent) Print(string)                                                  {}
func (*Absent) Diagnostic(string)                                             {}
func (*Absent) NotifyActivity()                                               {}

func (*Absent) RegisterThing(uintptr)   {}
func (*Absent) UnregisterThing(uintptr) {}
func (*Absent) ThingIndex(uintptr) int  { return 0 }
func (*Absent) IndexThing(int) uintptr  { return 0 }

// ProgressCounter returns a private counter that nothing observes.
func (a *Absent) ProgressCounter() *atomic.Uint64 { return &a.progress }
func (*Absent) SetProgressCallback(func(uint64))  {}
func (*Absent) EnableProgressCheckpoints()        {}
func (*Absent) ProgressReached()                  {}

func (*Absent) BeginPassThroughEvents(ThreadID) {}
func (*Absent) EndPassThroughEvents(ThreadID)   {}
func (*Absent) BeginDisallowEvents(ThreadID)    {}
func (*Absent) EndDisallowEvents(ThreadID)      {}
func (*Absent) HasDivergedFromRecording() bool  { return false }
func (*Absent) AllowSideEffects() bool          { return true }

func (*Absent) NewCheckpoint() {}

func (*Absent) CreateOrderedLock(string) int                       { return 0 }
func (*Absent) OrderedLock(ThreadID, int)                          {}
func (*Absent) OrderedUnlock(ThreadID, int)                        {}
func (*Absent) AddOrderedNativeLock(LockKind, string, sync.Locker) {}

func (*Absent) OnMouseEvent(string, int, int)    {}
func (*Absent) OnKeyEvent(string, string)        {}
func (*Absent) OnNavigationEvent(string, string) {}

func (*Absent) SetCrashReasonCallback(func() string) {}
func (*Absent) SetCrashNote(string)                  {}

func (*Absent) NewStableHashTable(uintptr, KeyEqualsEntry, any) {}
func (*Absent) MoveStableHashTable(uintptr, uintptr)            {}
func (*Absent) DeleteStableHashTable(uintptr)                   {}
func (*Absent) LookupStableHashCode(_ uintptr, _ any, unstable uint32) (uint32, bool) {
	return unstable, false
}
func (*Absent) StableHashTableAddEntryForLastLookup(uintptr, uintptr) {}
func (*Absent) StableHashTableMoveEntry(uintptr, uintptr, uintptr)    {}
func (*Absent) StableHashTableDeleteEntry(uintptr, uintptr)           {}
