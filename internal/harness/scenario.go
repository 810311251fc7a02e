package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rrgate/internal/gateway"
)

// Scenario defines a conformance scenario: a sequence of gateway operations
// run against the reference driver, and assertions on the resulting driver
// trace, journal and gateway state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config overrides the gateway configuration.
	Config *ScenarioConfig `yaml:"config,omitempty"`

	// Dispatch is the dispatch argument of the recorded command line.
	// Empty means "*" (save to disk).
	Dispatch string `yaml:"dispatch,omitempty"`

	// Replay replays the recording after the steps ran and re-runs the steps
	// against it.
	Replay bool `yaml:"replay,omitempty"`

	// Steps are the gateway operations, run in order on their threads.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state,
	// gateway_state
	Assertions []Assertion `yaml:"assertions"`

	// RecordingID is the fixed recording ID. Default: "scenario-0000".
	RecordingID string `yaml:"recording_id,omitempty"`
}

// ScenarioConfig is the subset of the gateway configuration a scenario may set.
type ScenarioConfig struct {
	RecordAllContent      bool   `yaml:"record_all_content,omitempty"`
	PretendNotRecording   bool   `yaml:"pretend_not_recording,omitempty"`
	DontProcessRecordings bool   `yaml:"dont_process_recordings,omitempty"`
	ExecutionAsserts      string `yaml:"execution_asserts,omitempty"`
	JSAsserts             string `yaml:"js_asserts,omitempty"`
}

// Step is one gateway operation.
type Step struct {
	// Op selects the operation. See the Op constants.
	Op string `yaml:"op"`

	// Thread names the thread the operation runs on. Empty means the main
	// thread. Other threads are created on first use.
	Thread string `yaml:"thread,omitempty"`

	// Why labels value, bytes and assert_bytes events.
	Why string `yaml:"why,omitempty"`

	// Value is the value of a value step.
	Value uint64 `yaml:"value,omitempty"`

	// ReplayValue replaces Value when the step runs against the replay.
	ReplayValue *uint64 `yaml:"replay_value,omitempty"`

	// Data is the payload of bytes and assert_bytes steps.
	Data string `yaml:"data,omitempty"`

	// Message is the assert message, the crash note, or the invalidation reason.
	Message string `yaml:"message,omitempty"`

	// ReplayMessage replaces Message when the step runs against the replay.
	ReplayMessage *string `yaml:"replay_message,omitempty"`

	// Name names an ordered lock.
	Name string `yaml:"name,omitempty"`

	// Table names a stable hash table.
	Table string `yaml:"table,omitempty"`

	// Addr is the address of a new or moved table.
	Addr uint64 `yaml:"addr,omitempty"`

	// Key and Unstable are the lookup key and its unstable hash code.
	Key      string `yaml:"key,omitempty"`
	Unstable uint32 `yaml:"unstable,omitempty"`

	// Entry is a hash table entry address; Dst is its new address.
	Entry uint64 `yaml:"entry,omitempty"`
	Dst   uint64 `yaml:"dst,omitempty"`

	// Kind is the UI event kind: down, up, move, enter, leave or wheel for
	// mouse steps; press, down, up or repeat for key steps.
	Kind string `yaml:"kind,omitempty"`

	X int `yaml:"x,omitempty"`
	Y int `yaml:"y,omitempty"`

	// URL and SameDocument describe a location step.
	URL          string `yaml:"url,omitempty"`
	SameDocument bool   `yaml:"same_document,omitempty"`

	// ExpectValue is the value a value step must return.
	ExpectValue *uint64 `yaml:"expect_value,omitempty"`

	// ExpectData is the payload a bytes step must leave in its buffer.
	ExpectData *string `yaml:"expect_data,omitempty"`

	// ExpectFound is the Found flag a hash_lookup must return.
	ExpectFound *bool `yaml:"expect_found,omitempty"`

	// ExpectError is the pairing error a hash_add must return:
	// matched, stale or foreign.
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectFatal is the fatal error code the step must raise.
	ExpectFatal gateway.FatalCode `yaml:"expect_fatal,omitempty"`
}

// Step operations.
const (
	OpValue            = "value"
	OpBytes            = "bytes"
	OpAssert           = "assert"
	OpAssertBytes      = "assert_bytes"
	OpBeginPassThrough = "pass_through_begin"
	OpEndPassThrough   = "pass_through_end"
	OpBeginDisallow    = "disallow_begin"
	OpEndDisallow      = "disallow_end"
	OpCheckpoint       = "checkpoint"
	OpMaybeCheckpoint  = "maybe_checkpoint"
	OpInvalidate       = "invalidate"
	OpCreateLock       = "create_lock"
	OpLock             = "lock"
	OpUnlock           = "unlock"
	OpPushNote         = "push_note"
	OpPopNote          = "pop_note"
	OpHashNew          = "hash_new"
	OpHashMove         = "hash_move"
	OpHashDelete       = "hash_delete"
	OpHashLookup       = "hash_lookup"
	OpHashAdd          = "hash_add"
	OpHashMoveEntry    = "hash_move_entry"
	OpHashDeleteEntry  = "hash_delete_entry"
	OpMouse            = "mouse"
	OpKey              = "key"
	OpLocation         = "location"
	OpFinish           = "finish"
)

// Pairing errors a hash_add step may expect.
const (
	PairingMatched = "matched"
	PairingStale   = "stale"
	PairingForeign = "foreign"
)

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check a call appears in the trace with args
	// - "trace_order": Check calls appear in order
	// - "trace_count": Check a call appears exactly N times
	// - "final_state": Query a journal table and verify expected values
	// - "gateway_state": Verify values of the run's final state
	Type string `yaml:"type"`

	// Call is the driver call name without its RecordReplay prefix
	// (used by trace_contains and trace_count).
	Call string `yaml:"call,omitempty"`

	// Args are the expected leading call arguments (used by trace_contains).
	Args []interface{} `yaml:"args,omitempty"`

	// Table is the journal table name (used by final_state).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]interface{} `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state and
	// gateway_state). Subset match - only specified fields are validated.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Count is the expected number of occurrences (used by trace_count).
	Count int `yaml:"count,omitempty"`

	// Calls is the expected call order (used by trace_order).
	Calls []string `yaml:"calls,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertGatewayState  = "gateway_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields an operation requires.
func validateStep(index int, s *Step) error {
	need := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("steps[%d]: %s is required for %s", index, field, s.Op)
		}
		return nil
	}

	switch s.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpValue, OpBytes, OpAssertBytes:
		return need("why", s.Why)
	case OpAssert, OpPushNote, OpInvalidate:
		return need("message", s.Message)
	case OpCreateLock, OpLock, OpUnlock:
		return need("name", s.Name)
	case OpHashNew, OpHashMove, OpHashDelete, OpHashLookup, OpHashMoveEntry, OpHashDeleteEntry:
		return need("table", s.Table)
	case OpHashAdd:
		if err := need("table", s.Table); err != nil {
			return err
		}
		switch s.ExpectError {
		case "", PairingMatched, PairingStale, PairingForeign:
		default:
			return fmt.Errorf("steps[%d]: unknown expect_error %q", index, s.ExpectError)
		}
	case OpMouse:
		if _, ok := mouseMessages[s.Kind]; !ok {
			return fmt.Errorf("steps[%d]: unknown mouse kind %q", index, s.Kind)
		}
	case OpKey:
		if _, ok := keyMessages[s.Kind]; !ok {
			return fmt.Errorf("steps[%d]: unknown key kind %q", index, s.Kind)
		}
	case OpLocation:
		return need("url", s.URL)
	case OpBeginPassThrough, OpEndPassThrough, OpBeginDisallow, OpEndDisallow,
		OpCheckpoint, OpMaybeCheckpoint, OpPopNote, OpFinish:
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, s.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertGatewayState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for gateway_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
