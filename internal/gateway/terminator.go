package gateway

// Terminator performs the gateway's terminal effect: ending the process
// without normal teardown. Terminate must not return.
type Terminator interface {
	Terminate(reason string)
}

// TerminatorFunc adapts a function to Terminator.
type TerminatorFunc func(reason string)

// Terminate calls f.
func (f TerminatorFunc) Terminate(reason string) { f(reason) }

// Abort is the default Terminator. It aborts the process the way a crashing
// native program does, so an external supervisor sees an abnormal exit.
type Abort struct{}

// Terminate aborts the process.
func (Abort) Terminate(string) { abort() }
