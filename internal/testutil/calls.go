package testutil

import (
	"sync"

	"github.com/roach88/rrgate/internal/refdriver"
)

// CallLog collects the calls a reference driver observes.
//
// Pass Observe as refdriver.Options.Observer.
//
// Thread-safety: all methods are safe for concurrent use.
type CallLog struct {
	mu    sync.Mutex
	calls []refdriver.Call
}

// Observe appends c. It has the refdriver.Observer signature.
func (l *CallLog) Observe(c refdriver.Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Calls returns a copy of the calls observed so far.
func (l *CallLog) Calls() []refdriver.Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]refdriver.Call(nil), l.calls...)
}

// Named returns the calls to the capability name, in order.
func (l *CallLog) Named(name string) []refdriver.Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []refdriver.Call
	for _, c := range l.calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of calls to the capability name.
func (l *CallLog) Count(name string) int {
	return len(l.Named(name))
}

// Names returns the capability names called, in order.
func (l *CallLog) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	for i, c := range l.calls {
		out[i] = c.Name
	}
	return out
}

// Reset forgets every call.
func (l *CallLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
