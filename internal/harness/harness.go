package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/control"
	"github.com/roach88/rrgate/internal/gateway"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/testutil"
	"github.com/roach88/rrgate/internal/uievents"
)

// BuildID is the build ID every scenario records with.
const BuildID = "harness"

var mouseMessages = map[string]uievents.MouseMessage{
	"down":  uievents.MouseDown,
	"up":    uievents.MouseUp,
	"move":  uievents.MouseMove,
	"enter": uievents.MouseEnter,
	"leave": uievents.MouseLeave,
	"wheel": uievents.MouseWheel,
}

var keyMessages = map[string]uievents.KeyMessage{
	"press":  uievents.KeyPress,
	"down":   uievents.KeyDown,
	"up":     uievents.KeyUp,
	"repeat": uievents.KeyRepeat,
}

// session is one gateway bound to a reference driver, running steps.
type session struct {
	g       *gateway.Gateway
	drv     *refdriver.Driver
	calls   *testutil.CallLog
	ui      *uievents.Adapter
	replay  bool
	threads map[string]*gateway.Thread
	locks   map[string]gateway.OrderedLock
	tables  map[string]*table

	// The last lookup on any table, and the key it looked up.
	last    gateway.Lookup
	lastKey string

	finished bool
}

// table is a simulated host hash table: entries are addresses holding keys.
type table struct {
	t    *gateway.StableHashTable
	keys map[uintptr]string
}

func keyEquals(private, key any, entry uintptr) bool {
	return private.(*table).keys[entry] == key.(string)
}

// noticeLog collects control notices.
type noticeLog struct {
	mu   sync.Mutex
	list []control.Notice
}

func (n *noticeLog) add(notice control.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *noticeLog) RecordingUnsupported(reason string) {
	n.add(control.Notice{Kind: control.KindRecordingUnsupported, Reason: reason})
}

func (n *noticeLog) RecordingUnusable(reason string) {
	n.add(control.Notice{Kind: control.KindRecordingUnusable, Reason: reason})
}

func (n *noticeLog) RecordingFinished(id string, created bool) {
	n.add(control.Notice{Kind: control.KindRecordingFinished, RecordingID: id, Created: created})
}

func (n *noticeLog) List() []control.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]control.Notice(nil), n.list...)
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal, a fixed recording ID
// and the fixed build ID, so the same scenario always produces the same trace.
//
// Execution flow:
// 1. Initialize a recording gateway over the reference driver
// 2. Execute the steps, checking their expectations
// 3. If the scenario replays, finish the recording, initialize a replaying
// gateway and execute the steps again
// 4. Evaluate assertions against the trace, the journal and the final state
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg := scenario.gatewayConfig()
	args := scenario.commandLine()
	recordingID := scenario.RecordingID
	if recordingID == "" {
		recordingID = testutil.NewFixedGenerator("scenario").Generate()
	}
	notes := &noticeLog{}

	result := NewResult()
	result.RecordingID = recordingID

	rec, err := newSession(cfg, args, notes, refdriver.Options{Store: st, RecordingID: recordingID})
	if err != nil {
		return nil, err
	}
	rec.runSteps("record", scenario.Steps, result)
	result.Trace = traceOf(rec.calls.Calls())

	result.State[StateCheckpoints] = int64(rec.drv.Checkpoints())
	result.State[StateInvalidReason] = rec.drv.InvalidReason()
	result.State[StateCrashNote] = rec.g.CrashNote()
	result.State[StateCrashReason] = rec.g.CrashReason()
	result.State[StateDiverged] = false
	result.State[StateDivergence] = ""
	result.State[StateRemaining] = int64(0)

	if scenario.Replay {
		if !rec.finished {
			rec.finish()
		}
		rep, err := newSession(cfg, args, notes, refdriver.Options{
			Mode:        refdriver.ModeReplay,
			Store:       st,
			RecordingID: recordingID,
		})
		if err != nil {
			result.AddError(fmt.Sprintf("replay: %v", err))
		} else {
			rep.replay = true
			rep.runSteps("replay", scenario.Steps, result)
			result.ReplayTrace = traceOf(rep.calls.Calls())
			result.State[StateDiverged] = rep.g.HasDivergedFromRecording()
			result.State[StateDivergence] = rep.drv.Divergence()
			result.State[StateRemaining] = int64(rep.drv.Remaining())
		}
	}

	result.Notices = notes.List()

	actx := &AssertionContext{
		Store: st,
		Ctx:   context.Background(),
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func (s *Scenario) gatewayConfig() config.Config {
	cfg := config.Default()
	cfg.BuildID = BuildID
	if c := s.Config; c != nil {
		cfg.RecordAllContent = c.RecordAllContent
		cfg.PretendNotRecording = c.PretendNotRecording
		cfg.DontProcessRecordings = c.DontProcessRecordings
		cfg.ExecutionAsserts = c.ExecutionAsserts
		cfg.JSAsserts = c.JSAsserts
	}
	return cfg
}

func (s *Scenario) commandLine() []string {
	dispatch := s.Dispatch
	if dispatch == "" {
		dispatch = config.SaveToDisk
	}
	return []string{"harness", config.DispatchFlag, dispatch}
}

// newSession initializes a gateway over a new reference driver. The calls
// Initialize makes are not part of the trace.
func newSession(cfg config.Config, args []string, notes *noticeLog, opts refdriver.Options) (*session, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	calls := &testutil.CallLog{}
	opts.Observer = calls.Observe
	opts.Logger = logger

	drv, err := refdriver.New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", opts.Mode, err)
	}

	var g *gateway.Gateway
	terminated := protect(func() {
		g, _ = gateway.Initialize(cfg, args,
			gateway.WithResolver(drv.Symbols()),
			gateway.WithLogger(logger),
			gateway.WithControl(notes),
			gateway.WithTerminator(gateway.TerminatorFunc(func(string) {})),
			gateway.WithPlatformCheck(func(config.Config) string { return "" }),
		)
	})
	if terminated {
		return nil, fmt.Errorf("failed to initialize gateway: fatal error during initialization")
	}
	calls.Reset()

	return &session{
		g:       g,
		drv:     drv,
		calls:   calls,
		ui:      uievents.New(g),
		threads: make(map[string]*gateway.Thread),
		locks:   make(map[string]gateway.OrderedLock),
		tables:  make(map[string]*table),
	}, nil
}

// protect runs fn and reports whether fn reached the gateway's terminal effect.
func protect(fn func()) (terminated bool) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok || !errors.Is(err, gateway.ErrTerminatorReturned) {
				panic(r)
			}
			terminated = true
		}
	}()
	fn()
	return false
}

// runSteps executes steps in order. An unexpected fatal error stops the run.
func (s *session) runSteps(phase string, steps []Step, result *Result) {
	for i, step := range steps {
		var stepErr error
		var reason string
		if protect(func() { stepErr = s.exec(step) }) {
			reason = s.g.CrashReason()
		}

		switch {
		case step.ExpectFatal != "" && reason == "":
			result.AddError(fmt.Sprintf("%s steps[%d] (%s): expected fatal %s, step completed", phase, i, step.Op, step.ExpectFatal))
		case step.ExpectFatal != "" && !strings.HasPrefix(reason, string(step.ExpectFatal)+":"):
			result.AddError(fmt.Sprintf("%s steps[%d] (%s): expected fatal %s, got %q", phase, i, step.Op, step.ExpectFatal, reason))
		case step.ExpectFatal == "" && reason != "":
			result.AddError(fmt.Sprintf("%s steps[%d] (%s): unexpected fatal error: %s", phase, i, step.Op, reason))
			return
		case stepErr != nil:
			result.AddError(fmt.Sprintf("%s steps[%d] (%s): %v", phase, i, step.Op, stepErr))
		}
		if s.finished {
			return
		}
	}
}

func (s *session) thread(name string) *gateway.Thread {
	if name == "" || name == "main" {
		return s.g.MainThread()
	}
	t, ok := s.threads[name]
	if !ok {
		t = s.g.NewThread(name)
		s.threads[name] = t
	}
	return t
}

// finish finishes the recording. FinishRecording ends in the terminal
// effect; the session stops there.
func (s *session) finish() {
	protect(s.g.FinishRecording)
	s.finished = true
}

// exec runs one step. It returns an error when an expectation fails.
func (s *session) exec(step Step) error {
	t := s.thread(step.Thread)

	value, message := step.Value, step.Message
	if s.replay {
		if step.ReplayValue != nil {
			value = *step.ReplayValue
		}
		if step.ReplayMessage != nil {
			message = *step.ReplayMessage
		}
	}

	switch step.Op {
	case OpValue:
		got := uint64(s.g.RecordReplayValue(t, step.Why, uintptr(value)))
		if step.ExpectValue != nil && got != *step.ExpectValue {
			return fmt.Errorf("value %s = %d, expected %d", step.Why, got, *step.ExpectValue)
		}
	case OpBytes:
		buf := []byte(step.Data)
		s.g.RecordReplayBytes(t, step.Why, buf)
		if step.ExpectData != nil && string(buf) != *step.ExpectData {
			return fmt.Errorf("bytes %s = %q, expected %q", step.Why, buf, *step.ExpectData)
		}
	case OpAssert:
		s.g.Assert(t, "%s", message)
	case OpAssertBytes:
		s.g.AssertBytes(t, step.Why, []byte(step.Data))
	case OpBeginPassThrough:
		t.BeginPassThrough()
	case OpEndPassThrough:
		t.EndPassThrough()
	case OpBeginDisallow:
		t.BeginDisallow()
	case OpEndDisallow:
		t.EndDisallow()
	case OpCheckpoint:
		s.g.CreateCheckpoint()
	case OpMaybeCheckpoint:
		s.g.MaybeCreateCheckpoint()
	case OpInvalidate:
		s.g.InvalidateRecording(message)
	case OpCreateLock:
		s.locks[step.Name] = s.g.CreateOrderedLock(step.Name)
	case OpLock, OpUnlock:
		h, ok := s.locks[step.Name]
		if !ok {
			return fmt.Errorf("unknown lock %q", step.Name)
		}
		if step.Op == OpLock {
			t.OrderedLock(h)
		} else {
			t.OrderedUnlock(h)
		}
	case OpPushNote:
		t.PushCrashNote(message)
	case OpPopNote:
		t.PopCrashNote()
	case OpHashNew:
		tbl := &table{keys: make(map[uintptr]string)}
		tbl.t = s.g.NewStableHashTable(uintptr(step.Addr), keyEquals, tbl)
		s.tables[step.Table] = tbl
	case OpHashMove, OpHashDelete, OpHashLookup, OpHashAdd, OpHashMoveEntry, OpHashDeleteEntry:
		tbl, ok := s.tables[step.Table]
		if !ok {
			return fmt.Errorf("unknown table %q", step.Table)
		}
		return s.execHash(tbl, step)
	case OpMouse:
		s.ui.Mouse(mouseMessages[step.Kind], step.X, step.Y)
	case OpKey:
		s.ui.Key(keyMessages[step.Kind], step.Key)
	case OpLocation:
		s.ui.Location(step.URL, step.SameDocument)
	case OpFinish:
		s.finish()
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func (s *session) execHash(tbl *table, step Step) error {
	switch step.Op {
	case OpHashMove:
		tbl.t.Move(uintptr(step.Dst))
	case OpHashDelete:
		tbl.t.Delete()
	case OpHashLookup:
		l := tbl.t.LookupHashCode(step.Key, step.Unstable)
		s.last, s.lastKey = l, step.Key
		if step.ExpectFound != nil && l.Found != *step.ExpectFound {
			return fmt.Errorf("lookup %q found = %t, expected %t", step.Key, l.Found, *step.ExpectFound)
		}
	case OpHashAdd:
		err := tbl.t.AddEntryForLastLookup(s.last, uintptr(step.Entry))
		if err == nil {
			tbl.keys[uintptr(step.Entry)] = s.lastKey
		}
		return checkPairing(err, step.ExpectError)
	case OpHashMoveEntry:
		tbl.t.MoveEntry(uintptr(step.Entry), uintptr(step.Dst))
		tbl.keys[uintptr(step.Dst)] = tbl.keys[uintptr(step.Entry)]
		delete(tbl.keys, uintptr(step.Entry))
	case OpHashDeleteEntry:
		tbl.t.DeleteEntry(uintptr(step.Entry))
		delete(tbl.keys, uintptr(step.Entry))
	}
	return nil
}

var pairingErrors = map[string]error{
	PairingMatched: gateway.ErrLookupMatched,
	PairingStale:   gateway.ErrStaleLookup,
	PairingForeign: gateway.ErrForeignLookup,
}

func checkPairing(err error, expect string) error {
	if expect == "" {
		if err != nil {
			return fmt.Errorf("add entry: %w", err)
		}
		return nil
	}
	if !errors.Is(err, pairingErrors[expect]) {
		return fmt.Errorf("add entry: expected %s error, got %v", expect, err)
	}
	return nil
}
