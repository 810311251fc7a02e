package gateway

import (
	"fmt"

	"github.com/roach88/rrgate/internal/driver"
)

// Recordable events. While recording they are journaled by the driver; while
// replaying the driver returns the recorded data.
//
// An event on a passed-through thread bypasses the driver. An event on a
// thread that disallows events is reported to the driver as an assertion
// failure instead of being recorded.

// RecordReplayValue records value, or returns the recorded value when
// replaying.
func (g *Gateway) RecordReplayValue(t *Thread, why string, value uintptr) uintptr {
	if !g.gate(t, why) {
		return value
	}
	return g.rr.RecordReplayValue(t.id, why, value)
}

// RecordReplayBytes records buf, or fills it with the recorded bytes when
// replaying.
func (g *Gateway) RecordReplayBytes(t *Thread, why string, buf []byte) {
	if g.gate(t, why) {
		g.rr.RecordReplayBytes(t.id, why, buf)
	}
}

// Assert checks that the formatted message matches between recording and
// replay.
func (g *Gateway) Assert(t *Thread, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if g.gate(t, msg) {
		g.rr.Assert(t.id, msg)
	}
}

// AssertBytes checks that data matches between recording and replay.
func (g *Gateway) AssertBytes(t *Thread, why string, data []byte) {
	if g.gate(t, why) {
		g.rr.AssertBytes(t.id, why, data)
	}
}

// gate reports whether an event on t goes to the driver.
func (g *Gateway) gate(t *Thread, why string) bool {
	if !g.recordingOrReplaying || t.AreEventsPassedThrough() {
		return false
	}
	if t.AreEventsDisallowed() {
		g.metrics.disallowedEvents.Inc()
		g.rr.Assert(t.id, driver.DisallowedEventPrefix+why)
		return false
	}
	return true
}

// HasDivergedFromRecording reports whether replay has diverged from the
// recording. Once true it stays true.
func (g *Gateway) HasDivergedFromRecording() bool {
	if g.diverged.Load() {
		return true
	}
	if !g.recordingOrReplaying || !g.rr.HasDivergedFromRecording() {
		return false
	}
	g.diverged.Store(true)
	return true
}

// AllowSideEffects reports whether the host may perform side effects.
// A host that is not recording or replaying always may.
func (g *Gateway) AllowSideEffects() bool {
	if !g.recordingOrReplaying {
		return true
	}
	return g.rr.AllowSideEffects()
}
