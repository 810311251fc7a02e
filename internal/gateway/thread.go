package gateway

import (
	"fmt"
	"sync/atomic"

	"github.com/roach88/rrgate/internal/driver"
)

// Thread is the gateway state of one host thread of control.
//
// A Thread is owned by one goroutine at a time. Its nesting counters are
// call-stack-local: a Begin and its End must run on the same Thread.
type Thread struct {
	g    *Gateway
	id   driver.ThreadID
	name string

	passThrough atomic.Int32
	disallow    atomic.Int32
}

func (g *Gateway) newThread(name string) *Thread {
	return &Thread{g: g, id: driver.ThreadID(g.nextThread.Add(1)), name: name}
}

// MainThread returns the designated coordinating thread.
func (g *Gateway) MainThread() *Thread {
	return g.main
}

// NewThread registers a host thread. IDs are assigned in creation order, so
// a host that creates its threads in the same order while recording and
// replaying gets the same IDs.
func (g *Gateway) NewThread(name string) *Thread {
	return g.newThread(name)
}

func (t *Thread) ID() driver.ThreadID { return t.id }
func (t *Thread) Name() string        { return t.name }
func (t *Thread) IsMain() bool        { return t.id == driver.MainThreadID }

func (t *Thread) String() string {
	return fmt.Sprintf("%s#%d", t.name, t.id)
}

// BeginPassThrough starts a scope in which this thread's events bypass
// recording.
func (t *Thread) BeginPassThrough() {
	t.passThrough.Add(1)
	t.g.rr.BeginPassThroughEvents(t.id)
}

// EndPassThrough ends the innermost pass-through scope.
func (t *Thread) EndPassThrough() {
	if t.passThrough.Add(-1) < 0 {
		t.passThrough.Add(1)
		t.g.fatal(&FatalError{Code: CodeUnbalancedScope, Message: "EndPassThrough without BeginPassThrough", Thread: t.id})
		return
	}
	t.g.rr.EndPassThroughEvents(t.id)
}

// AreEventsPassedThrough reports whether a pass-through scope is open.
func (t *Thread) AreEventsPassedThrough() bool {
	return t.passThrough.Load() > 0
}

// BeginDisallow starts a scope in which any recordable event on this thread is
// a contract violation.
func (t *Thread) BeginDisallow() {
	t.disallow.Add(1)
	t.g.rr.BeginDisallowEvents(t.id)
}

// EndDisallow ends the innermost disallow scope.
func (t *Thread) EndDisallow() {
	if t.disallow.Add(-1) < 0 {
		t.disallow.Add(1)
		t.g.fatal(&FatalError{Code: CodeUnbalancedScope, Message: "EndDisallow without BeginDisallow", Thread: t.id})
		return
	}
	t.g.rr.EndDisallowEvents(t.id)
}

// AreEventsDisallowed reports whether a disallow scope is open.
func (t *Thread) AreEventsDisallowed() bool {
	return t.disallow.Load() > 0
}

// PassThrough runs fn in a pass-through scope.
func (t *Thread) PassThrough(fn func()) {
	t.BeginPassThrough()
	defer t.EndPassThrough()
	fn()
}

// Disallow runs fn in a disallow scope.
func (t *Thread) Disallow(fn func()) {
	t.BeginDisallow()
	defer t.EndDisallow()
	fn()
}
