package store

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording_WriteAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	want := createTestRecording(t, s, "rec-1", 1)

	got, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, "test-build", got.BuildID)
	assert.Equal(t, "*", got.Dispatch)
	assert.Equal(t, StatusRecording, got.Status)
	assert.Equal(t, []string{"host", "--flag"}, got.Arguments)
}

func TestRecording_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	createTestRecording(t, s, "rec-1", 1)
	err := s.WriteRecording(ctx, Recording{ID: "rec-1", BuildID: "other", Dispatch: "x", CreatedSeq: 9})
	require.NoError(t, err)

	got, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "test-build", got.BuildID)
}

func TestRecording_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRecording(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListRecordings_OrderedAndNeverNil(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	recs, err := s.ListRecordings(ctx)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	createTestRecording(t, s, "b", 2)
	createTestRecording(t, s, "a", 2)
	createTestRecording(t, s, "z", 1)

	recs, err = s.ListRecordings(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "z", recs[0].ID)
	assert.Equal(t, "a", recs[1].ID)
	assert.Equal(t, "b", recs[2].ID)
}

func TestSetStatus_InvalidIsSticky(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRecording(t, s, "rec-1", 1)

	require.NoError(t, s.SetStatus(ctx, "rec-1", StatusInvalid, "diverged"))
	require.NoError(t, s.SetStatus(ctx, "rec-1", StatusFinished, ""))
	require.NoError(t, s.SetStatus(ctx, "rec-1", StatusInvalid, "second reason"))

	got, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, got.Status)
	assert.Equal(t, "diverged", got.InvalidReason)
}

func TestSetArguments(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRecording(t, s, "rec-1", 1)

	require.NoError(t, s.SetArguments(ctx, "rec-1", nil))
	got, err := s.ReadRecording(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Arguments)
}

func TestEvents_PreserveFullWidthValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRecording(t, s, "rec-1", 1)

	events := []Event{
		{RecordingID: "rec-1", Seq: 3, ThreadID: 2, Kind: EventValue, Why: "b", Value: math.MaxUint64},
		{RecordingID: "rec-1", Seq: 1, ThreadID: 1, Kind: EventValue, Why: "a", Value: 42},
		{RecordingID: "rec-1", Seq: 2, ThreadID: 1, Kind: EventBytes, Why: "buf", Payload: []byte{1, 2, 3}},
	}
	for _, ev := range events {
		require.NoError(t, s.WriteEvent(ctx, ev))
	}

	all, err := s.ReadEvents(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.Equal(t, int64(2), all[1].Seq)
	assert.Equal(t, []byte{1, 2, 3}, all[1].Payload)
	assert.Equal(t, uint64(math.MaxUint64), all[2].Value)

	thread1, err := s.ReadThreadEvents(ctx, "rec-1", 1)
	require.NoError(t, err)
	require.Len(t, thread1, 2)
	assert.Equal(t, "a", thread1[0].Why)
	assert.Equal(t, EventBytes, thread1[1].Kind)
}

func TestEvents_RequireRecording(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteEvent(context.Background(), Event{RecordingID: "missing", Seq: 1, Kind: EventValue, Why: "x"})
	assert.Error(t, err)
}

func TestCheckpointsAndLocks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRecording(t, s, "rec-1", 1)

	require.NoError(t, s.WriteCheckpoint(ctx, Checkpoint{RecordingID: "rec-1", Number: 2, Seq: 10, Progress: 7}))
	require.NoError(t, s.WriteCheckpoint(ctx, Checkpoint{RecordingID: "rec-1", Number: 1, Seq: 4, Progress: 3}))
	require.NoError(t, s.WriteLockAcquisition(ctx, LockAcquisition{RecordingID: "rec-1", Seq: 5, LockID: 1, LockName: "counter", ThreadID: 3}))
	require.NoError(t, s.WriteLockAcquisition(ctx, LockAcquisition{RecordingID: "rec-1", Seq: 6, LockID: 1, LockName: "counter", ThreadID: 2}))

	cps, err := s.ReadCheckpoints(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, cps, 2)
	assert.Equal(t, 1, cps[0].Number)
	assert.Equal(t, uint64(7), cps[1].Progress)

	acqs, err := s.ReadLockAcquisitions(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, acqs, 2)
	assert.Equal(t, uint64(3), acqs[0].ThreadID)
	assert.Equal(t, uint64(2), acqs[1].ThreadID)
}

func TestSummarize(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRecording(t, s, "rec-1", 1)

	require.NoError(t, s.WriteEvent(ctx, Event{RecordingID: "rec-1", Seq: 1, ThreadID: 1, Kind: EventValue, Why: "a"}))
	require.NoError(t, s.WriteEvent(ctx, Event{RecordingID: "rec-1", Seq: 2, ThreadID: 2, Kind: EventValue, Why: "b"}))
	require.NoError(t, s.WriteCheckpoint(ctx, Checkpoint{RecordingID: "rec-1", Number: 1, Seq: 3}))
	require.NoError(t, s.WriteLockAcquisition(ctx, LockAcquisition{RecordingID: "rec-1", Seq: 4, LockID: 1, LockName: "l", ThreadID: 1}))

	sum, err := s.Summarize(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Events)
	assert.Equal(t, 2, sum.Threads)
	assert.Equal(t, 1, sum.Checkpoints)
	assert.Equal(t, 1, sum.LockAcquisition)
	assert.Equal(t, int64(4), sum.LastSeq)

	_, err = s.Summarize(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
