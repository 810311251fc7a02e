package gateway

import (
	"fmt"
	"sync/atomic"
)

// ExecutionProgressHook asserts the execution progress of a source location
// when the execution assertion filter selects it.
func (g *Gateway) ExecutionProgressHook(t *Thread, sourceID uint32, file string, line, column uint32) {
	if g.execAsserts.Matches(file, int(line)) {
		g.Assert(t, "ExecutionProgress %d:%s:%d:%d", sourceID, file, line, column)
	}
}

// ShouldEmitAssert reports whether the value assertion filter selects a source
// location.
func (g *Gateway) ShouldEmitAssert(file string, line, column uint32) bool {
	return g.jsAsserts.Matches(file, int(line))
}

// PrintLog sends a message to the driver's log.
func (g *Gateway) PrintLog(format string, args ...any) {
	g.drv.Print(fmt.Sprintf(format, args...))
}

// Diagnostic sends a diagnostic message to the driver.
func (g *Gateway) Diagnostic(format string, args ...any) {
	g.drv.Diagnostic(fmt.Sprintf(format, args...))
}

func (g *Gateway) NotifyActivity() { g.rr.NotifyActivity() }

// RegisterThing gives thing an ID that is the same while recording and
// replaying.
func (g *Gateway) RegisterThing(thing uintptr)   { g.rr.RegisterThing(thing) }
func (g *Gateway) UnregisterThing(thing uintptr) { g.rr.UnregisterThing(thing) }
func (g *Gateway) ThingIndex(thing uintptr) int  { return g.rr.ThingIndex(thing) }
func (g *Gateway) IndexThing(id int) uintptr     { return g.rr.IndexThing(id) }

// ExecutionProgressCounter returns the driver's execution progress counter.
func (g *Gateway) ExecutionProgressCounter() *atomic.Uint64 {
	return g.rr.ProgressCounter()
}

// AdvanceExecutionProgressCounter increments the progress counter.
func (g *Gateway) AdvanceExecutionProgressCounter() {
	g.rr.ProgressCounter().Add(1)
}

// SetExecutionProgressCallback registers cb and enables progress checkpoints.
func (g *Gateway) SetExecutionProgressCallback(cb func(uint64)) {
	g.rr.SetProgressCallback(cb)
	g.rr.EnableProgressCheckpoints()
}

func (g *Gateway) ExecutionProgressReached() { g.rr.ProgressReached() }

// AddProfilerEvent adds an event to the driver's profile. It is dropped unless
// recording, replaying, or profiling.
func (g *Gateway) AddProfilerEvent(event, json string) {
	if g.recordingOrReplaying || g.profiling {
		g.drv.AddProfilerEvent(event, json)
	}
}

func (g *Gateway) IsRecordingCreated() bool { return g.rr.IsRecordingCreated() }
func (g *Gateway) RecordingID() string      { return g.rr.RecordingID() }

// UI events. The uievents adapters decide which host events reach these.

func (g *Gateway) OnMouseEvent(kind string, x, y int) { g.rr.OnMouseEvent(kind, x, y) }
func (g *Gateway) OnKeyEvent(kind, key string)        { g.rr.OnKeyEvent(kind, key) }
func (g *Gateway) OnNavigationEvent(kind, url string) { g.rr.OnNavigationEvent(kind, url) }
