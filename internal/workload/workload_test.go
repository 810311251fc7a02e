package workload

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/gateway"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/testutil"
)

var args = []string{"workload", config.DispatchFlag, config.SaveToDisk}

func newGateway(t *testing.T, opts refdriver.Options) (*gateway.Gateway, *refdriver.Driver) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Logger = logger
	d, err := refdriver.New(opts)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.BuildID = "build-1"
	g, _ := gateway.Initialize(cfg, args,
		gateway.WithResolver(d.Symbols()),
		gateway.WithLogger(logger),
		gateway.WithPlatformCheck(func(config.Config) string { return "" }),
	)
	return g, d
}

func TestRun_Inactive(t *testing.T) {
	res, err := Run(context.Background(), gateway.New(), Config{Workers: 3, Rounds: 5})
	require.NoError(t, err)

	assert.Equal(t, 15, res.Counter)
	assert.False(t, res.Replaying)
	assert.False(t, res.Diverged)
	assert.Len(t, res.Digest, 64)
	assert.LessOrEqual(t, res.Entries, 15)
}

func TestRun_Defaults(t *testing.T) {
	res, err := Run(context.Background(), gateway.New(), Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Workers*DefaultConfig.Rounds, res.Counter)
}

func TestRun_RecordThenReplay(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := Config{Workers: 4, Rounds: 10}

	g, d := newGateway(t, refdriver.Options{Store: st, IDGen: testutil.NewFixedGenerator("wl")})
	recorded, err := Run(context.Background(), g, cfg)
	require.NoError(t, err)
	d.FinishRecording()
	assert.Equal(t, "wl-0001", recorded.RecordingID)
	assert.Equal(t, 40, recorded.Counter)
	assert.Empty(t, d.InvalidReason())

	g, d = newGateway(t, refdriver.Options{Mode: refdriver.ModeReplay, Store: st, RecordingID: recorded.RecordingID})
	replayed, err := Run(context.Background(), g, cfg)
	require.NoError(t, err)

	assert.True(t, replayed.Replaying)
	assert.False(t, replayed.Diverged, d.Divergence())
	assert.Equal(t, recorded.Digest, replayed.Digest)
	assert.Equal(t, recorded.Entries, replayed.Entries)
	assert.Zero(t, d.Remaining())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, gateway.New(), Config{Workers: 2, Rounds: 3})
	assert.ErrorIs(t, err, context.Canceled)
}
