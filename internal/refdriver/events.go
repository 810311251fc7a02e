package refdriver

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/store"
)

// DisallowedPrefix prefixes the assertion message of an event observed while
// its thread was in a disallow scope.
const DisallowedPrefix = driver.DisallowedEventPrefix

// RecordReplayValue records value, or returns the recorded value when replaying.
func (d *Driver) RecordReplayValue(tid driver.ThreadID, why string, value uintptr) uintptr {
	d.observe(Call{Name: driver.SymValue, Thread: tid, Args: []any{why, uint64(value)}})
	if d.skip(tid, why) {
		return value
	}

	if !d.replaying() {
		d.journal(store.Event{ThreadID: uint64(tid), Kind: store.EventValue, Why: why, Value: uint64(value)})
		return value
	}

	ev, ok := d.next(tid, store.EventValue, why)
	if !ok {
		return value
	}
	return uintptr(ev.Value)
}

// RecordReplayBytes records buf, or overwrites it with the recorded bytes
// when replaying.
func (d *Driver) RecordReplayBytes(tid driver.ThreadID, why string, buf []byte) {
	d.observe(Call{Name: driver.SymBytes, Thread: tid, Args: []any{why, len(buf)}})
	if d.skip(tid, why) {
		return
	}

	if !d.replaying() {
		d.journal(store.Event{ThreadID: uint64(tid), Kind: store.EventBytes, Why: why, Payload: bytes.Clone(buf)})
		return
	}

	ev, ok := d.next(tid, store.EventBytes, why)
	if !ok {
		return
	}
	if len(ev.Payload) != len(buf) {
		d.diverge(fmt.Sprintf("thread %d: %s: recorded %d bytes, replaying %d", tid, why, len(ev.Payload), len(buf)))
		return
	}
	copy(buf, ev.Payload)
}

// Assert records msg, or compares it with the recorded message when replaying.
//
// Messages starting with DisallowedPrefix report a contract violation: they
// are logged and invalidate the recording instead of being journaled.
func (d *Driver) Assert(tid driver.ThreadID, msg string) {
	d.observe(Call{Name: driver.SymAssert, Thread: tid, Args: []any{msg}})
	if strings.HasPrefix(msg, DisallowedPrefix) {
		d.logger.Error("disallowed event", "thread", uint64(tid), "message", msg)
		d.invalidate(msg)
		return
	}
	d.compare(tid, store.EventAssert, "Assert", []byte(msg))
}

// AssertBytes records data, or compares it with the recorded data when replaying.
func (d *Driver) AssertBytes(tid driver.ThreadID, why string, data []byte) {
	d.observe(Call{Name: driver.SymAssertBytes, Thread: tid, Args: []any{why, len(data)}})
	d.compare(tid, store.EventAssertBytes, why, data)
}

// OnMouseEvent records a mouse event on the main thread.
func (d *Driver) OnMouseEvent(kind string, x, y int) {
	d.observe(Call{Name: driver.SymOnMouseEvent, Args: []any{kind, x, y}})
	d.compare(driver.MainThreadID, store.EventMouse, kind, []byte(fmt.Sprintf("%d,%d", x, y)))
}

// OnKeyEvent records a keyboard event on the main thread.
func (d *Driver) OnKeyEvent(kind, key string) {
	d.observe(Call{Name: driver.SymOnKeyEvent, Args: []any{kind, key}})
	d.compare(driver.MainThreadID, store.EventKey, kind, []byte(key))
}

// OnNavigationEvent records a navigation on the main thread.
func (d *Driver) OnNavigationEvent(kind, url string) {
	d.observe(Call{Name: driver.SymOnNavigationEvent, Args: []any{kind, url}})
	d.compare(driver.MainThreadID, store.EventNavigation, kind, []byte(url))
}

// compare journals payload when recording, and checks it against the next
// recorded event of the thread when replaying.
func (d *Driver) compare(tid driver.ThreadID, kind store.EventKind, why string, payload []byte) {
	if d.skip(tid, why) {
		return
	}
	if !d.replaying() {
		d.journal(store.Event{ThreadID: uint64(tid), Kind: kind, Why: why, Payload: bytes.Clone(payload)})
		return
	}

	ev, ok := d.next(tid, kind, why)
	if !ok {
		return
	}
	if !bytes.Equal(ev.Payload, payload) {
		d.diverge(fmt.Sprintf("thread %d: %s %s mismatch: recorded %q, replaying %q", tid, kind, why, ev.Payload, payload))
	}
}

// skip reports whether an event on tid bypasses the journal: the thread is
// passed through, or replay already diverged.
func (d *Driver) skip(tid driver.ThreadID, why string) bool {
	d.mu.Lock()
	passed := d.passThrough[tid] > 0
	d.mu.Unlock()
	if passed {
		d.logger.Debug("event passed through", "thread", uint64(tid), "why", why)
		return true
	}
	return d.replaying() && d.diverged.Load()
}

// journal appends an event to the recording.
func (d *Driver) journal(ev store.Event) {
	if !d.journaling() {
		return
	}
	ev.RecordingID = d.recordingID
	ev.Seq = d.clock.Next()
	if err := d.store.WriteEvent(context.Background(), ev); err != nil {
		d.journalError(err)
	}
}

// next returns the next recorded event of tid. A missing event or one of
// another kind latches divergence and returns false.
func (d *Driver) next(tid driver.ThreadID, kind store.EventKind, why string) (store.Event, bool) {
	d.mu.Lock()
	s := d.streams[tid]
	if s == nil || s.pos >= len(s.events) {
		d.mu.Unlock()
		d.diverge(fmt.Sprintf("thread %d: unexpected %s %q past end of recording", tid, kind, why))
		return store.Event{}, false
	}
	ev := s.events[s.pos]
	s.pos++
	d.mu.Unlock()

	if ev.Kind != kind || ev.Why != why {
		d.diverge(fmt.Sprintf("thread %d: recorded %s %q, replaying %s %q", tid, ev.Kind, ev.Why, kind, why))
		return store.Event{}, false
	}
	return ev, true
}

// journaling reports whether journal rows can be written: the recording row
// exists once Attach ran.
func (d *Driver) journaling() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attached && d.store != nil
}

// Remaining returns the number of recorded events not yet replayed, across
// all threads.
func (d *Driver) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		n += len(s.events) - s.pos
	}
	return n
}
