// Package harness runs conformance scenarios against the gateway.
//
// A scenario is a list of gateway operations. The harness runs them against a
// gateway bound to the reference driver, records the driver calls they make,
// optionally replays the recording and runs them again, and evaluates
// assertions on the result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	replay: true
//	steps:
//	  - op: value
//	    why: random
//	    value: 42
//	    replay_value: 7
//	    expect_value: 42
//	  - op: assert
//	    thread: worker
//	    message: "step 1"
//	  - op: checkpoint
//	assertions:
//	  - type: trace_contains
//	    call: Value
//	    args: [random, 42]
//	  - type: final_state
//	    table: events
//	    where: { kind: value, why: random }
//	    expect: { value: 42 }
//	  - type: gateway_state
//	    expect: { diverged: false, remaining: 0 }
//
// Steps run on the main thread unless they name another thread; named
// threads are created on first use. A step may expect a fatal error by code
// (expect_fatal: TABLE_DELETED); the harness recovers from the terminal
// effect and continues.
//
// # Assertion Types
//
//   - trace_contains: a driver call appears in the trace with matching leading args
//   - trace_order: driver calls appear in the specified order
//   - trace_count: a driver call appears exactly N times
//   - final_state: a journal table row matches expected values
//   - gateway_state: the final gateway state matches expected values
//
// Trace assertions see the recording phase. Call names drop their
// RecordReplay prefix.
//
// # Deterministic Testing
//
// Every scenario runs with a fixed build ID, a fixed recording ID and a fresh
// in-memory journal, and the trace excludes the calls gateway initialization
// makes. The same scenario always produces the same trace, which makes
// traces suitable for golden file comparison (see RunWithGolden).
package harness
