// Package refdriver is an in-process reference implementation of the
// record/replay driver.
//
// It exports every capability of the driver catalog through Symbols, so a
// host binds it through the same capability table as a loaded driver module:
//
//	d, err := refdriver.New(refdriver.Options{Mode: refdriver.ModeRecord, Store: st})
//	gw, args, err := gateway.Initialize(cfg, os.Args, gateway.WithResolver(d.Symbols()))
//
// # Recording
//
// In ModeRecord every recordable event is journaled to the store with a
// logical seq from the driver's Clock: values, byte buffers, asserts, UI
// events, checkpoints, the command line, and the order in which threads
// acquire each ordered lock.
//
// # Replaying
//
// In ModeReplay the journal is loaded up front and served back:
//   - RecordReplayValue and RecordReplayBytes return the recorded data of the
//     calling thread, in order
//   - Assert and AssertBytes compare against the recorded message
//   - OrderedLock blocks until the calling thread is the next recorded owner
//     of that lock
//
// Any mismatch latches divergence (HasDivergedFromRecording). After
// divergence, values pass through unchanged and lock order is no longer
// enforced, so the host keeps running on a best-effort basis.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. Per-thread streams assume
// one goroutine per ThreadID.
package refdriver
