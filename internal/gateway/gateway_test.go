package gateway

import (
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/testutil"
)

const testBuild = "build-1"

var recordArgs = []string{"host", "--flag", config.DispatchFlag, config.SaveToDisk}

// terminations records terminal effects instead of exiting.
type terminations struct {
	mu      sync.Mutex
	reasons []string
}

func (r *terminations) Terminate(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *terminations) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.reasons...)
}

// notices records control notices.
type notices struct {
	mu   sync.Mutex
	list []control.Notice
}

func (n *notices) add(notice control.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *notices) RecordingUnsupported(reason string) {
	n.add(control.Notice{Kind: control.KindRecordingUnsupported, Reason: reason})
}

func (n *notices) RecordingUnusable(reason string) {
	n.add(control.Notice{Kind: control.KindRecordingUnusable, Reason: reason})
}

func (n *notices) RecordingFinished(id string, created bool) {
	n.add(control.Notice{Kind: control.KindRecordingFinished, RecordingID: id, Created: created})
}

func (n *notices) List() []control.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]control.Notice(nil), n.list...)
}

type fixture struct {
	g     *Gateway
	drv   *refdriver.Driver
	calls *testutil.CallLog
	term  *terminations
	notes *notices
	reg   *prometheus.Registry
	args  []string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func supported(config.Config) string { return "" }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.BuildID = testBuild
	return cfg
}

func (f *fixture) options(extra ...Option) []Option {
	return append([]Option{
		WithTerminator(f.term),
		WithControl(f.notes),
		WithRegisterer(f.reg),
		WithLogger(discardLogger()),
		WithPlatformCheck(supported),
	}, extra...)
}

// newFixture initializes a gateway bound to a reference driver.
func newFixture(t *testing.T, cfg config.Config, args []string, opts refdriver.Options) *fixture {
	t.Helper()
	f := &fixture{
		calls: &testutil.CallLog{},
		term:  &terminations{},
		notes: &notices{},
		reg:   prometheus.NewRegistry(),
	}
	opts.Observer = f.calls.Observe
	opts.Logger = discardLogger()
	if opts.IDGen == nil {
		opts.IDGen = testutil.NewFixedGenerator("")
	}
	d, err := refdriver.New(opts)
	require.NoError(t, err)
	f.drv = d
	f.g, f.args = Initialize(cfg, args, f.options(WithResolver(d.Symbols()))...)
	return f
}

func record(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, testConfig(), recordArgs, refdriver.Options{})
}

// inactive returns a gateway with no driver.
func inactive() (*Gateway, *terminations, *notices) {
	term := &terminations{}
	notes := &notices{}
	g := New(WithTerminator(term), WithControl(notes), WithLogger(discardLogger()))
	return g, term, notes
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInitialize_NoDispatchRunsNatively(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"host", "--flag"}, refdriver.Options{})

	assert.False(t, f.g.IsRecordingOrReplaying())
	assert.False(t, f.g.IsRecording())
	assert.False(t, f.g.IsReplaying())
	assert.Nil(t, f.g.Capabilities())
	assert.NoError(t, f.g.DriverError())
	assert.Equal(t, []string{"host", "--flag"}, f.args)
	assert.Empty(t, f.calls.Calls(), "driver must not be touched")
}

func TestInitialize_Recording(t *testing.T) {
	cfg := testConfig()
	cfg.AuthToken = "secret"
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})

	assert.True(t, f.g.IsRecordingOrReplaying())
	assert.True(t, f.g.IsRecording())
	assert.False(t, f.g.IsReplaying())
	assert.False(t, f.g.IsUploadingRecording())
	assert.False(t, f.g.IsProfiling())
	require.NotNil(t, f.g.Capabilities())
	assert.Empty(t, f.g.Capabilities().Missing())
	assert.Equal(t, recordArgs, f.args)

	attach := f.calls.Named(driver.SymAttach)
	require.Len(t, attach, 1)
	assert.Equal(t, []any{"", testBuild}, attach[0].Args)
	assert.Equal(t, []any{true}, f.calls.Named(driver.SymSetAPIKey)[0].Args)
	assert.Equal(t, 1, f.calls.Count(driver.SymProcessRecording))
	assert.Equal(t, 1, f.calls.Count(driver.SymSetCrashReasonCallback))
	assert.Equal(t, 0, f.calls.Count(driver.SymSaveRecording))

	uploading := f.calls.Named(driver.SymValue)
	require.Len(t, uploading, 1)
	assert.Equal(t, driver.MainThreadID, uploading[0].Thread)
	assert.Equal(t, []any{"UploadingRecording", uint64(0)}, uploading[0].Args)
}

func TestInitialize_Uploading(t *testing.T) {
	f := newFixture(t, testConfig(), []string{"host", config.DispatchFlag, "wss://dispatch.example"}, refdriver.Options{})

	assert.True(t, f.g.IsUploadingRecording())
	assert.Equal(t, []any{"wss://dispatch.example", testBuild}, f.calls.Named(driver.SymAttach)[0].Args)
	assert.Equal(t, 0, f.calls.Count(driver.SymSetAPIKey), "no token, no key")
}

func TestInitialize_RecordAllContent(t *testing.T) {
	cfg := testConfig()
	cfg.RecordAllContent = true
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})

	assert.True(t, f.g.IsRecordAllContent())
	save := f.calls.Named(driver.SymSaveRecording)
	require.Len(t, save, 1)
	assert.Equal(t, []any{""}, save[0].Args)
	assert.Equal(t, 0, f.calls.Count(driver.SymProcessRecording))
}

func TestInitialize_DontProcessRecordings(t *testing.T) {
	cfg := testConfig()
	cfg.DontProcessRecordings = true
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})

	assert.True(t, f.g.IsRecording())
	assert.Equal(t, 0, f.calls.Count(driver.SymProcessRecording))
}

func TestInitialize_PretendNotRecording(t *testing.T) {
	cfg := testConfig()
	cfg.PretendNotRecording = true
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})

	assert.False(t, f.g.IsRecordingOrReplaying())
	assert.NotNil(t, f.g.Capabilities(), "driver is still loaded")
	assert.Equal(t, 1, f.calls.Count(driver.SymAttach))
	assert.Equal(t, 0, f.calls.Count(driver.SymValue))

	assert.Equal(t, uintptr(9), f.g.RecordReplayValue(f.g.MainThread(), "v", 9))
	assert.Equal(t, 0, f.calls.Count(driver.SymValue))

	// Locks still come from the driver.
	h := f.g.CreateOrderedLock("lock")
	assert.Equal(t, OrderedLock(1), h)
	assert.Equal(t, 1, f.calls.Count(driver.SymCreateOrderedLock))
}

func TestInitialize_Profiling(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.ProfileDirectory = dir
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})

	assert.True(t, f.g.IsProfiling())
	path := f.g.ProfilePath()
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, regexp.MustCompile(`^profile-\d+\.log$`), filepath.Base(path))
	assert.Equal(t, []any{path}, f.calls.Named(driver.SymProfileExecution)[0].Args)

	f.g.AddProfilerEvent("paint", `{"ms":3}`)
	assert.Equal(t, 1, f.calls.Count(driver.SymAddProfilerEvent))
}

func TestInitialize_Unsupported(t *testing.T) {
	term := &terminations{}
	notes := &notices{}
	g, args := Initialize(testConfig(), recordArgs,
		WithTerminator(term),
		WithControl(notes),
		WithLogger(discardLogger()),
		WithPlatformCheck(func(config.Config) string { return macOSUnsupported }),
	)

	assert.Equal(t, recordArgs, args)
	assert.False(t, g.IsRecordingOrReplaying())
	assert.Equal(t, macOSUnsupported, g.UnsupportedReason())

	g.CreateCheckpoint()
	g.CreateCheckpoint()
	assert.Equal(t, []control.Notice{{Kind: control.KindRecordingUnsupported, Reason: macOSUnsupported}}, notes.List())
	assert.False(t, g.HasCheckpoint())
}

func TestInitialize_DriverLoadFailure(t *testing.T) {
	cfg := testConfig()
	cfg.DriverPath = filepath.Join(t.TempDir(), "missing-driver.so")

	g, args := Initialize(cfg, recordArgs, WithLogger(discardLogger()), WithPlatformCheck(supported))

	assert.Error(t, g.DriverError())
	assert.False(t, g.IsRecordingOrReplaying())
	assert.Nil(t, g.Capabilities())
	assert.Equal(t, recordArgs, args)
}

func TestInitialize_BadDispatchIsFatal(t *testing.T) {
	term := &terminations{}
	assert.PanicsWithError(t, ErrTerminatorReturned.Error(), func() {
		Initialize(testConfig(), []string{"host", config.DispatchFlag},
			WithTerminator(term), WithLogger(discardLogger()), WithPlatformCheck(supported))
	})
	require.Len(t, term.Reasons(), 1)
	assert.Contains(t, term.Reasons()[0], string(CodeBadDispatch))
}

func TestInitialize_MissingCapabilityIsFatal(t *testing.T) {
	d, err := refdriver.New(refdriver.Options{Logger: discardLogger()})
	require.NoError(t, err)
	term := &terminations{}

	assert.PanicsWithError(t, ErrTerminatorReturned.Error(), func() {
		Initialize(testConfig(), recordArgs,
			WithResolver(d.Symbols().Without(driver.SymGetRecordingID)),
			WithTerminator(term), WithLogger(discardLogger()), WithPlatformCheck(supported))
	})
	require.Len(t, term.Reasons(), 1)
	assert.Contains(t, term.Reasons()[0], string(CodeMissingCapability))
	assert.Contains(t, term.Reasons()[0], driver.SymGetRecordingID)
}

func TestInitialize_OptionalCrashNoteMissing(t *testing.T) {
	d, err := refdriver.New(refdriver.Options{Logger: discardLogger()})
	require.NoError(t, err)

	g, _ := Initialize(testConfig(), recordArgs,
		WithResolver(d.Symbols().Without(driver.SymSetCrashNote)),
		WithLogger(discardLogger()), WithPlatformCheck(supported))

	assert.True(t, g.IsRecording())
	assert.Equal(t, []string{driver.SymSetCrashNote}, g.Capabilities().Missing())

	main := g.MainThread()
	main.PushCrashNote("note")
	assert.Equal(t, "note", g.CrashNote())
	assert.Empty(t, d.CrashNote())
	main.PopCrashNote()
}

func TestInitialize_Filters(t *testing.T) {
	cfg := testConfig()
	cfg.ExecutionAsserts = "app.js@1@10"
	cfg.JSAsserts = "*"
	f := newFixture(t, cfg, recordArgs, refdriver.Options{})
	main := f.g.MainThread()

	f.g.ExecutionProgressHook(main, 3, "src/app.js", 5, 2)
	f.g.ExecutionProgressHook(main, 3, "src/app.js", 11, 2)
	f.g.ExecutionProgressHook(main, 4, "src/lib.js", 5, 2)

	asserts := f.calls.Named(driver.SymAssert)
	require.Len(t, asserts, 1)
	assert.Equal(t, []any{"ExecutionProgress 3:src/app.js:5:2"}, asserts[0].Args)

	assert.True(t, f.g.ShouldEmitAssert("anything.js", 1, 1))
}

func TestNew_Inactive(t *testing.T) {
	g, term, _ := inactive()
	main := g.MainThread()

	assert.False(t, g.IsRecordingOrReplaying())
	assert.Equal(t, uintptr(7), g.RecordReplayValue(main, "v", 7))
	assert.True(t, g.AllowSideEffects())
	assert.False(t, g.HasDivergedFromRecording())
	assert.Empty(t, g.RecordingID())
	assert.False(t, g.IsRecordingCreated())
	assert.False(t, g.ShouldEmitAssert("a.js", 1, 1))

	g.CreateCheckpoint()
	assert.False(t, g.HasCheckpoint())

	assert.NotPanics(t, g.FinishRecording)
	assert.Empty(t, term.Reasons())
	assert.False(t, g.IsTearingDown())
}

func TestThreads(t *testing.T) {
	g, _, _ := inactive()

	main := g.MainThread()
	assert.Equal(t, driver.MainThreadID, main.ID())
	assert.True(t, main.IsMain())

	a := g.NewThread("worker")
	b := g.NewThread("io")
	assert.Equal(t, driver.ThreadID(2), a.ID())
	assert.Equal(t, driver.ThreadID(3), b.ID())
	assert.False(t, a.IsMain())
	assert.Equal(t, "worker#2", a.String())
	assert.Equal(t, "io", b.Name())
}

func TestMetrics_Registered(t *testing.T) {
	f := record(t)
	f.g.CreateCheckpoint()

	families, err := f.reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["rrgate_gateway_checkpoints_total"])
	assert.True(t, names["rrgate_gateway_crash_note_depth"])
}
