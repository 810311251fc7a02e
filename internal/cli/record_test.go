package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/testutil"
	"github.com/roach88/rrgate/internal/workload"
)

// recordResponse mirrors CLIResponse with a typed payload.
type recordResponse struct {
	Status  string       `json:"status"`
	Data    RecordResult `json:"data"`
	TraceID string       `json:"trace_id"`
}

// recordInto runs the record command against dbPath and returns its output.
func recordInto(t *testing.T, dbPath string, format string, extra ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	cmd.SetArgs(append([]string{"--db", dbPath, "--workers", "2", "--rounds", "5"}, extra...))
	return buf, cmd.Execute()
}

// recordWithFixedID records with IDs rec-0001, rec-0002, ...
func recordWithFixedID(t *testing.T, dbPath string, wcfg workload.Config) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &RecordOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    dbPath,
		Dispatch:    config.SaveToDisk,
		Workers:     wcfg.Workers,
		Rounds:      wcfg.Rounds,
		IDGen:       testutil.NewFixedGenerator("rec"),
	}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	return buf, runRecord(opts, cmd)
}

func TestRecordMissingDatabaseFlag(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRecordInvalidSizes(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := recordInto(t, dbPath, "text", "--workers", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "must be positive")
}

func TestRecordBadConfigFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := recordInto(t, dbPath, "text", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRecordText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	buf, err := recordInto(t, dbPath, "text", "--id", "rec-text")
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Recording: rec-text")
	assert.Contains(t, output, "Counter:     10")
	assert.Contains(t, output, "✓ Recording finished")
	assert.NotContains(t, output, "Metrics:")
}

func TestRecordJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	buf, err := recordWithFixedID(t, dbPath, workload.Config{Workers: 3, Rounds: 4})
	require.NoError(t, err)

	var resp recordResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "rec-0001", resp.TraceID)
	assert.Equal(t, "rec-0001", resp.Data.RecordingID)
	assert.Equal(t, 12, resp.Data.Workload.Counter)
	assert.False(t, resp.Data.Workload.Replaying)
	assert.Len(t, resp.Data.Workload.Digest, 64)
	assert.GreaterOrEqual(t, resp.Data.Checkpoints, 1)
	assert.Empty(t, resp.Data.InvalidReason)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.ReadRecording(context.Background(), "rec-0001")
	require.NoError(t, err)
	assert.Equal(t, store.StatusFinished, rec.Status)
	assert.Equal(t, "", rec.Dispatch)
	assert.Equal(t, workloadArgs("record", workload.Config{Workers: 3, Rounds: 4}, "*"), rec.Arguments)
}

func TestRecordVerboseMetrics(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json", Verbose: true}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, "--workers", "2", "--rounds", "3"})

	require.NoError(t, cmd.Execute())

	var resp recordResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Metrics)
	assert.GreaterOrEqual(t, resp.Data.Metrics["rrgate_gateway_checkpoints_total"], float64(1))
	assert.GreaterOrEqual(t, resp.Data.Metrics["rrgate_gateway_ordered_lock_acquisitions_total"], float64(6))
}

func TestRecordDispatchAddress(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	_, err := recordInto(t, dbPath, "json", "--id", "rec-up", "--dispatch", "wss://dispatch.example")
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	rec, err := st.ReadRecording(context.Background(), "rec-up")
	require.NoError(t, err)
	assert.Equal(t, "wss://dispatch.example", rec.Dispatch)
}
