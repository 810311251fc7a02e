package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/workload"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkloadArgsRoundTrip(t *testing.T) {
	args := workloadArgs("record", workload.Config{Workers: 3, Rounds: 7}, config.SaveToDisk)
	assert.Equal(t, []string{"rrgate", "record", "--workers=3", "--rounds=7", config.DispatchFlag, config.SaveToDisk}, args)

	dispatch, err := config.ParseDispatch(args)
	require.NoError(t, err)
	assert.True(t, dispatch.Present)

	cfg, err := workloadFromArgs(args)
	require.NoError(t, err)
	assert.Equal(t, workload.Config{Workers: 3, Rounds: 7}, cfg)
}

func TestWorkloadFromArgsMissingSizes(t *testing.T) {
	cfg, err := workloadFromArgs([]string{"rrgate", "record", config.DispatchFlag, "*"})
	require.NoError(t, err)
	assert.Equal(t, workload.Config{}, cfg)
}

func TestWorkloadFromArgsBadSize(t *testing.T) {
	_, err := workloadFromArgs([]string{"rrgate", "--rounds=many"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--rounds=many")
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultControlTopic, cfg.ControlTopic)
}

func TestFinishTerminatorReturnsWhileFinishing(t *testing.T) {
	var logs bytes.Buffer
	term := &finishTerminator{logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	term.finishing.Store(true)

	term.Terminate("recording finished")
	assert.Contains(t, logs.String(), "gateway finished")
}

func TestSessionFinishAndMetrics(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	args := workloadArgs("record", workload.Config{Workers: 1, Rounds: 2}, config.SaveToDisk)
	s, err := openSession(ctx, config.Default(), args, refdriver.Options{
		Store:       st,
		RecordingID: "rec-session",
	}, discardLogger())
	require.NoError(t, err)
	defer s.close()

	assert.Equal(t, args, s.args)
	assert.True(t, s.g.IsRecordingOrReplaying())

	_, err = workload.Run(ctx, s.g, workload.Config{Workers: 1, Rounds: 2})
	require.NoError(t, err)
	s.finish()

	rec, err := st.ReadRecording(ctx, "rec-session")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFinished, rec.Status)
	assert.Equal(t, args, rec.Arguments)

	m, err := s.metrics()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m["rrgate_gateway_checkpoints_total"], float64(1))
	assert.GreaterOrEqual(t, m["rrgate_gateway_ordered_lock_acquisitions_total"], float64(2))
}

func TestOpenSessionReplayUnknownRecording(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = openSession(context.Background(), config.Default(), nil, refdriver.Options{
		Mode:        refdriver.ModeReplay,
		Store:       st,
		RecordingID: "rec-missing",
	}, discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
