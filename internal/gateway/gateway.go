package gateway

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/filter"
)

// Gateway coordinates the host's calls into the record/replay driver.
//
// Thread-safety model:
//   - New/Initialize: single-threaded; the gateway's configuration is
//     read-only once they return
//   - Thread methods: called by the goroutine that owns the Thread
//   - CreateCheckpoint/MaybeCreateCheckpoint/FinishRecording: main thread
//   - StableHashTable methods: serialized by the table's own locking
//   - everything else: safe from any goroutine
type Gateway struct {
	logger  *slog.Logger
	control control.Channel
	term    Terminator
	metrics *metrics

	// drv is the loaded driver, or absent. rr is drv while recording or
	// replaying, and absent otherwise; calls the host gates on
	// IsRecordingOrReplaying go through rr.
	drv       driver.Driver
	rr        driver.Driver
	absent    *driver.Absent
	table     *driver.Table
	driverErr error

	unsupported          string
	recordingOrReplaying bool
	recording            bool
	replaying            bool
	profiling            bool
	uploading            bool
	recordAllContent     bool
	profilePath          string

	execAsserts filter.Set
	jsAsserts   filter.Set

	hasCheckpoint   atomic.Bool
	sentUnsupported atomic.Bool
	unusable        atomic.Pointer[string]
	sentUnusable    atomic.Bool
	tearingDown     atomic.Bool
	diverged        atomic.Bool

	main       *Thread
	nextThread atomic.Uint64

	locksMu    sync.Mutex
	lockNames  map[OrderedLock]string
	localLocks int

	notes       []string
	crashNote   atomic.Pointer[string]
	crashReason atomic.Pointer[string]
}

// New returns an inactive gateway: no driver, every capability at its safe
// default. Initialize is the usual constructor.
func New(opts ...Option) *Gateway {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.control == nil {
		o.control = control.Nop{}
	}
	if o.terminator == nil {
		o.terminator = Abort{}
	}

	absent := &driver.Absent{}
	g := &Gateway{
		logger:    o.logger.With("component", "gateway"),
		control:   o.control,
		term:      o.terminator,
		metrics:   newMetrics(o.registerer),
		drv:       absent,
		rr:        absent,
		absent:    absent,
		lockNames: make(map[OrderedLock]string),
	}
	g.main = g.newThread("main")
	return g
}

// Initialize creates the process gateway from cfg and the command line.
//
// The host records only when args carry the dispatch argument. Otherwise, or
// when the platform cannot record, or the driver module cannot be loaded, the
// returned gateway is inactive and the host runs natively.
//
// The returned arguments are the ones the host must use: when replaying they
// are the recorded command line.
//
// Initialize must run once, before any other goroutine uses the gateway.
func Initialize(cfg config.Config, args []string, opts ...Option) (*Gateway, []string) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.platform == nil {
		o.platform = checkPlatform
	}

	g := New(opts...)

	if reason := o.platform(cfg); reason != "" {
		g.unsupported = reason
		g.logger.Warn("recording unsupported", "reason", reason)
		return g, args
	}

	dispatch, err := config.ParseDispatch(args)
	if err != nil {
		g.fatal(&FatalError{Code: CodeBadDispatch, Message: "invalid command line", Err: err})
		return g, args
	}
	if !dispatch.Present {
		return g, args
	}

	res := o.resolver
	if res == nil {
		path, err := driver.ResolvePath(cfg.DriverPath, cfg.TempDir, cfg.BuildID)
		if err == nil {
			res, err = driver.Open(path)
		}
		if err != nil {
			g.driverErr = err
			g.logger.Error("Loading recorder library failed.", "error", err)
			return g, args
		}
	}

	bound, table := driver.Bind(res, func(err error) {
		g.fatal(&FatalError{Code: CodeMissingCapability, Message: "incompatible record/replay driver", Err: err})
	})
	g.drv = bound
	g.table = table

	if cfg.AuthToken != "" {
		g.drv.SetAPIKey(cfg.AuthToken)
		cfg.AuthToken = ""
	}

	g.drv.Attach(dispatch.Address, cfg.BuildID)

	if cfg.RecordAllContent {
		g.recordAllContent = true
		g.drv.SaveRecording("")
	}

	if !cfg.PretendNotRecording {
		g.rr = g.drv
		g.recordingOrReplaying = true
		g.replaying = g.drv.IsReplaying()
		g.recording = !g.replaying
	}

	g.execAsserts = g.parseFilter(config.EnvExecutionAsserts, cfg.ExecutionAsserts)
	g.jsAsserts = g.parseFilter(config.EnvJSAsserts, cfg.JSAsserts)

	args = g.drv.RecordCommandLineArguments(args)
	g.drv.SetCrashReasonCallback(g.CrashReason)

	var uploading uintptr
	if dispatch.Uploading() {
		uploading = 1
	}
	g.uploading = g.RecordReplayValue(g.main, "UploadingRecording", uploading) != 0

	if !cfg.DontProcessRecordings && !cfg.RecordAllContent {
		g.drv.ProcessRecording()
	}

	if cfg.ProfileDirectory != "" {
		g.profilePath = filepath.Join(cfg.ProfileDirectory, fmt.Sprintf("profile-%d.log", rand.Int32()))
		g.drv.ProfileExecution(g.profilePath)
		g.profiling = true
	}

	g.logger.Info("gateway initialized",
		"recording", g.recording,
		"replaying", g.replaying,
		"uploading", g.uploading,
		"record_all_content", g.recordAllContent,
		"profiling", g.profiling,
	)
	return g, args
}

func (g *Gateway) parseFilter(name, spec string) filter.Set {
	set := filter.Parse(spec)
	for _, f := range set {
		g.drv.Print(fmt.Sprintf("ParseJSFilter %s %s %d %d", name, f.Filename, f.StartLine, f.EndLine))
	}
	return set
}

// fatal logs err, makes it the crash reason, and terminates.
func (g *Gateway) fatal(err *FatalError) {
	msg := err.Error()
	g.crashReason.Store(&msg)
	g.metrics.fatalErrors.WithLabelValues(string(err.Code)).Inc()
	g.logger.Error("fatal gateway error", "code", string(err.Code), "error", msg)
	g.terminate(msg)
}

// terminate runs the terminal effect. It never returns.
func (g *Gateway) terminate(reason string) {
	g.term.Terminate(reason)
	panic(ErrTerminatorReturned)
}

// CrashReason returns the diagnostic of the last fatal error, or "".
// It is registered with the driver as the crash reason supplier.
func (g *Gateway) CrashReason() string {
	if p := g.crashReason.Load(); p != nil {
		return *p
	}
	return ""
}

// IsRecordingOrReplaying reports whether the driver is recording or replaying
// this process.
func (g *Gateway) IsRecordingOrReplaying() bool { return g.recordingOrReplaying }
func (g *Gateway) IsRecording() bool            { return g.recording }
func (g *Gateway) IsReplaying() bool            { return g.replaying }

// IsProfiling reports whether the driver profiles execution.
func (g *Gateway) IsProfiling() bool { return g.profiling }

// ProfilePath returns the profile file passed to the driver, or "".
func (g *Gateway) ProfilePath() string { return g.profilePath }

// IsUploadingRecording reports whether the recording is uploaded to the
// dispatch address rather than saved to disk.
func (g *Gateway) IsUploadingRecording() bool { return g.uploading }

// IsRecordAllContent reports whether every content process records.
func (g *Gateway) IsRecordAllContent() bool { return g.recordAllContent }

// UnsupportedReason returns why this platform cannot record, or "".
func (g *Gateway) UnsupportedReason() string { return g.unsupported }

// DriverError returns the driver module load failure, if any.
func (g *Gateway) DriverError() error { return g.driverErr }

// Capabilities returns the bound capability table, or nil without a driver.
func (g *Gateway) Capabilities() *driver.Table { return g.table }

// IsTearingDown reports whether the process is terminating after finishing
// its recording.
func (g *Gateway) IsTearingDown() bool { return g.tearingDown.Load() }
