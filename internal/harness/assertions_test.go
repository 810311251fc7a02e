package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rrgate/internal/store"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Call: "CreateOrderedLock", Args: []any{"log", 1}},
		{Seq: 2, Call: "OrderedLock", Thread: 2, Args: []any{1}},
		{Seq: 3, Call: "Value", Thread: 2, Args: []any{"random", uint64(42)}},
		{Seq: 4, Call: "OrderedUnlock", Thread: 2, Args: []any{1}},
		{Seq: 5, Call: "Value", Thread: 1, Args: []any{"clock", uint64(7)}},
		{Seq: 6, Call: "NewCheckpoint"},
	}
}

func TestAssertTraceContains(t *testing.T) {
	tests := []struct {
		name string
		call string
		args []interface{}
		ok   bool
	}{
		{name: "call only", call: "NewCheckpoint", ok: true},
		{name: "leading args", call: "Value", args: []interface{}{"random"}, ok: true},
		{name: "all args", call: "Value", args: []interface{}{"clock", 7}, ok: true},
		{name: "wrong args", call: "Value", args: []interface{}{"random", 7}},
		{name: "too many args", call: "NewCheckpoint", args: []interface{}{"x"}},
		{name: "missing call", call: "FinishRecording"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(sampleTrace(), Assertion{Type: AssertTraceContains, Call: tt.call, Args: tt.args})
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var assertErr *AssertionError
			require.ErrorAs(t, err, &assertErr)
			assert.Equal(t, AssertTraceContains, assertErr.Type)
			assert.Equal(t, "not found in trace", assertErr.Actual)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name    string
		calls   []string
		wantErr string
	}{
		{name: "in order", calls: []string{"CreateOrderedLock", "Value", "NewCheckpoint"}},
		{name: "intervening calls allowed", calls: []string{"OrderedLock", "NewCheckpoint"}},
		{name: "repeated call", calls: []string{"Value", "OrderedUnlock", "Value"}},
		{name: "wrong order", calls: []string{"NewCheckpoint", "Value"}, wantErr: "no Value after NewCheckpoint"},
		{name: "missing call", calls: []string{"FinishRecording"}, wantErr: "missing call: FinishRecording"},
		{name: "too many repeats", calls: []string{"Value", "Value", "Value"}, wantErr: "no Value after Value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(sampleTrace(), Assertion{Type: AssertTraceOrder, Calls: tt.calls})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Call: "Value", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Call: "FinishRecording", Count: 0}))

	err := assertTraceCount(sampleTrace(), Assertion{Call: "Value", Count: 3})
	require.Error(t, err)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, "3 occurrences of Value", assertErr.Expected)
	assert.Equal(t, "2 occurrences", assertErr.Actual)
}

func TestAssertGatewayState(t *testing.T) {
	state := map[string]interface{}{
		StateCheckpoints: int64(2),
		StateDiverged:    false,
		StateCrashNote:   "loading",
	}

	assert.NoError(t, assertGatewayState(state, Assertion{Expect: map[string]interface{}{"checkpoints": 2, "diverged": false}}))

	err := assertGatewayState(state, Assertion{Expect: map[string]interface{}{"crash_note": "idle"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `state "crash_note" = loading`)

	err = assertGatewayState(state, Assertion{Expect: map[string]interface{}{"nope": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such state")
}

func TestMatchArgs(t *testing.T) {
	actual := []any{"random", uint64(42), true}

	assert.True(t, matchArgs(actual, nil))
	assert.True(t, matchArgs(actual, []interface{}{"random"}))
	assert.True(t, matchArgs(actual, []interface{}{"random", 42, true}))
	assert.False(t, matchArgs(actual, []interface{}{"random", 43}))
	assert.False(t, matchArgs(actual, []interface{}{42}))
	assert.False(t, matchArgs(actual, []interface{}{"random", 42, true, "extra"}))
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, 1))
	assert.False(t, valuesEqual(1, nil))
	assert.True(t, valuesEqual(uint64(4096), 4096))
	assert.True(t, valuesEqual(uintptr(16), 16))
	assert.True(t, valuesEqual("a", "a"))
	assert.False(t, valuesEqual("1", 2))
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of Value",
		Actual:   "0 occurrences",
		Trace:    []TraceEvent{{Seq: 1, Call: "NewCheckpoint"}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 1 occurrences of Value")
	assert.Contains(t, msg, "Actual: 0 occurrences")
	assert.Contains(t, msg, "[1] NewCheckpoint thread=0 []")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.State[StateDiverged] = false

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Call: "Value"},
		{Type: AssertTraceCount, Call: "Value", Count: 5},
		{Type: AssertGatewayState, Expect: map[string]interface{}{"diverged": false}},
		{Type: "vibes"},
		{Type: AssertFinalState, Table: "events", Expect: map[string]interface{}{"value": 1}},
	}, nil)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "5 occurrences of Value")
	assert.Contains(t, errs[1], `unknown assertion type "vibes"`)
	assert.Contains(t, errs[2], "final_state requires database context")
}

func TestBuildWhereClause(t *testing.T) {
	sql, args, err := buildWhereClause(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Nil(t, args)

	sql, args, err = buildWhereClause(map[string]interface{}{"why": "random", "kind": "value", "seq": 3})
	require.NoError(t, err)
	assert.Equal(t, "kind = ? AND seq = ? AND why = ?", sql)
	assert.Equal(t, []interface{}{"value", 3, "random"}, args)

	_, _, err = buildWhereClause(map[string]interface{}{"why; DROP TABLE events": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid column name")
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "a=1 AND b=x", formatWhereClause(map[string]interface{}{"b": "x", "a": 1}))
}

func TestToSQLValue(t *testing.T) {
	assert.Equal(t, "x", toSQLValue("x"))
	assert.Equal(t, 3, toSQLValue(3))
	assert.Equal(t, uint64(3), toSQLValue(uint64(3)))
	assert.Equal(t, true, toSQLValue(true))
	assert.Equal(t, "1.5", toSQLValue(1.5))
}

func TestStateValuesEqual(t *testing.T) {
	assert.True(t, stateValuesEqual("a", "a"))
	assert.True(t, stateValuesEqual("abc", []byte("abc")))
	assert.False(t, stateValuesEqual("a", 1))
	assert.True(t, stateValuesEqual(1, int64(1)))
	assert.True(t, stateValuesEqual(int64(1), int64(1)))
	assert.False(t, stateValuesEqual(2, int64(1)))
	assert.True(t, stateValuesEqual(true, int64(1)))
	assert.True(t, stateValuesEqual(false, false))
	assert.True(t, stateValuesEqual(nil, nil))
	assert.False(t, stateValuesEqual("a", nil))
}

// Journal-backed final_state assertions

func journalStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.WriteRecording(ctx, store.Recording{ID: "r1", BuildID: "b1", Status: store.StatusFinished, CreatedSeq: 1}))
	require.NoError(t, st.WriteEvent(ctx, store.Event{RecordingID: "r1", Seq: 2, ThreadID: 1, Kind: store.EventValue, Why: "random", Value: 42}))
	require.NoError(t, st.WriteEvent(ctx, store.Event{RecordingID: "r1", Seq: 3, ThreadID: 2, Kind: store.EventAssert, Why: "Assert", Payload: []byte("step 1")}))
	require.NoError(t, st.WriteEvent(ctx, store.Event{RecordingID: "r1", Seq: 4, ThreadID: 2, Kind: store.EventAssert, Why: "Assert", Payload: []byte("step 2")}))
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := journalStore(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name: "row matches",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"recording_id": "r1", "why": "random"},
				Expect: map[string]interface{}{"value": 42, "thread_id": 1, "kind": "value"},
			},
		},
		{
			name: "payload compares as text",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"seq": 3},
				Expect: map[string]interface{}{"payload": "step 1"},
			},
		},
		{
			name: "status column",
			assertion: Assertion{
				Table:  "recordings",
				Where:  map[string]interface{}{"id": "r1"},
				Expect: map[string]interface{}{"status": "finished", "build_id": "b1"},
			},
		},
		{
			name: "value mismatch",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"why": "random"},
				Expect: map[string]interface{}{"value": 41},
			},
			wantErr: `field "value" = 42`,
		},
		{
			name: "row not found",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"why": "nothing"},
				Expect: map[string]interface{}{"value": 1},
			},
			wantErr: "row not found",
		},
		{
			name: "ambiguous",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"kind": "assert"},
				Expect: map[string]interface{}{"thread_id": 2},
			},
			wantErr: "multiple rows matched",
		},
		{
			name: "missing column",
			assertion: Assertion{
				Table:  "events",
				Where:  map[string]interface{}{"why": "random"},
				Expect: map[string]interface{}{"colour": "red"},
			},
			wantErr: `field "colour" to exist`,
		},
		{
			name: "unknown table",
			assertion: Assertion{
				Table:  "nothing_here",
				Expect: map[string]interface{}{"a": 1},
			},
			wantErr: "query error",
		},
		{
			name: "invalid table name",
			assertion: Assertion{
				Table:  "events; DROP TABLE events",
				Expect: map[string]interface{}{"a": 1},
			},
			wantErr: "invalid table name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertFinalState
			err := assertFinalState(ctx, st, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_FinalStateWithContext(t *testing.T) {
	st := journalStore(t)

	errs := EvaluateAssertions(NewResult(), []Assertion{
		{Type: AssertFinalState, Table: "recordings", Where: map[string]interface{}{"id": "r1"}, Expect: map[string]interface{}{"created_seq": 1}},
	}, &AssertionContext{Store: st, Ctx: context.Background()})

	assert.Empty(t, errs)
}
