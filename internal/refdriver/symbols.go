package refdriver

import "github.com/roach88/rrgate/internal/driver"

var _ driver.Driver = (*Driver)(nil)

// Symbols exports every catalog entry point of d, keyed by symbol name.
func (d *Driver) Symbols() driver.MapResolver {
	return driver.MapResolver{
		driver.SymAttach:                     d.Attach,
		driver.SymSetAPIKey:                  d.SetAPIKey,
		driver.SymProfileExecution:           d.ProfileExecution,
		driver.SymAddProfilerEvent:           d.AddProfilerEvent,
		driver.SymRecordCommandLineArguments: d.RecordCommandLineArguments,
		driver.SymValue:                      d.RecordReplayValue,
		driver.SymBytes:                      d.RecordReplayBytes,
		driver.SymPrint:                      d.Print,
		driver.SymDiagnostic:                 d.Diagnostic,
		driver.SymSaveRecording:              d.SaveRecording,
		driver.SymRememberRecording:          d.RememberRecording,
		driver.SymFinishRecording:            d.FinishRecording,
		driver.SymRegisterPointer:            d.RegisterThing,
		driver.SymUnregisterPointer:          d.UnregisterThing,
		driver.SymPointerID:                  d.ThingIndex,
		driver.SymIDPointer:                  d.IndexThing,
		driver.SymAssert:                     d.Assert,
		driver.SymAssertBytes:                d.AssertBytes,
		driver.SymProgressCounter:            d.ProgressCounter,
		driver.SymSetProgressCallback:        d.SetProgressCallback,
		driver.SymEnableProgressCheckpoints:  d.EnableProgressCheckpoints,
		driver.SymProgressReached:            d.ProgressReached,
		driver.SymBeginPassThroughEvents:     d.BeginPassThroughEvents,
		driver.SymEndPassThroughEvents:       d.EndPassThroughEvents,
		driver.SymBeginDisallowEvents:        d.BeginDisallowEvents,
		driver.SymEndDisallowEvents:          d.EndDisallowEvents,
		driver.SymHasDivergedFromRecording:   d.HasDivergedFromRecording,
		driver.SymAllowSideEffects:           d.AllowSideEffects,
		driver.SymNewCheckpoint:              d.NewCheckpoint,
		driver.SymIsReplaying:                d.IsReplaying,
		driver.SymCreateOrderedLock:          d.CreateOrderedLock,
		driver.SymOrderedLock:                d.OrderedLock,
		driver.SymOrderedUnlock:              d.OrderedUnlock,
		driver.SymOnMouseEvent:               d.OnMouseEvent,
		driver.SymOnKeyEvent:                 d.OnKeyEvent,
		driver.SymOnNavigationEvent:          d.OnNavigationEvent,
		driver.SymGetRecordingID:             d.RecordingID,
		driver.SymProcessRecording:           d.ProcessRecording,
		driver.SymSetCrashReasonCallback:     d.SetCrashReasonCallback,
		driver.SymInvalidateRecording:        d.InvalidateRecording,
		driver.SymSetCrashNote:               d.SetCrashNote,
		driver.SymNotifyActivity:             d.NotifyActivity,
		driver.SymNewStableHashTable:         d.NewStableHashTable,
		driver.SymMoveStableHashTable:        d.MoveStableHashTable,
		driver.SymDeleteStableHashTable:      d.DeleteStableHashTable,
		driver.SymLookupStableHashCode:       d.LookupStableHashCode,
		driver.SymStableHashTableAddEntry:    d.StableHashTableAddEntryForLastLookup,
		driver.SymStableHashTableMoveEntry:   d.StableHashTableMoveEntry,
		driver.SymStableHashTableDeleteEntry: d.StableHashTableDeleteEntry,
		driver.SymIsRecordingCreated:         d.IsRecordingCreated,
		driver.SymWaitForRecordingCreated:    d.WaitForRecordingCreated,
		driver.SymAddOrderedPthreadMutex:     d.addNativeLock(driver.LockKindPthreadMutex),
		driver.SymAddOrderedCriticalSection:  d.addNativeLock(driver.LockKindCriticalSection),
		driver.SymAddOrderedSRWLock:          d.addNativeLock(driver.LockKindSRWLock),
	}
}
