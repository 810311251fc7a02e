package harness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func basicScenario() *Scenario {
	return &Scenario{
		Name:        "basic_record",
		Description: "One value, one assertion on a worker, one checkpoint",
		Steps: []Step{
			{Op: OpValue, Why: "random", Value: 42},
			{Op: OpAssert, Thread: "worker", Message: "step 1"},
			{Op: OpCheckpoint},
		},
	}
}

func TestRunWithGolden_BasicRecord(t *testing.T) {
	// Regenerate with:
	//   go test ./internal/harness -run TestRunWithGolden_BasicRecord -update
	require.NoError(t, RunWithGolden(t, basicScenario()))
}

func TestAssertGolden_FromResult(t *testing.T) {
	result, err := Run(basicScenario())
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	require.NoError(t, AssertGolden(t, "basic_record", result))
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	var outputs [][]byte
	for i := 0; i < 3; i++ {
		result, err := Run(basicScenario())
		require.NoError(t, err)
		out, err := MarshalSnapshot("basic_record", result)
		require.NoError(t, err)
		outputs = append(outputs, out)
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}

func TestMarshalSnapshot_OmitsEmptyReplayTrace(t *testing.T) {
	result := NewResult()
	result.RecordingID = "r"
	result.Trace = []TraceEvent{{Seq: 1, Call: "NewCheckpoint"}}

	out, err := MarshalSnapshot("s", result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.NotContains(t, decoded, "replay_trace")
	assert.Equal(t, "s", decoded["scenario_name"])
	assert.Equal(t, byte('\n'), out[len(out)-1])
}
