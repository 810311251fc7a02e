package refdriver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/stablehash"
	"github.com/roach88/rrgate/internal/store"
)

// Mode selects whether the driver records or replays.
type Mode string

const (
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

// ErrNoRecording is returned when replay is requested without a recording ID.
var ErrNoRecording = errors.New("replay requires a recording ID")

// Options configures a Driver.
type Options struct {
	// Mode is ModeRecord or ModeReplay. Defaults to ModeRecord.
	Mode Mode

	// Store is the journal. Optional in ModeRecord (nothing is persisted
	// without it), required in ModeReplay.
	Store *store.Store

	// RecordingID names the recording. In ModeRecord it is generated by IDGen
	// when empty; in ModeReplay it selects the recording to serve.
	RecordingID string

	// IDGen generates recording IDs. Defaults to UUIDv7Generator.
	IDGen IDGenerator

	// Logger receives driver output. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer, if set, is called for every driver call.
	Observer Observer
}

// Driver is the reference record/replay driver.
type Driver struct {
	mode     Mode
	store    *store.Store
	logger   *slog.Logger
	observer Observer
	clock    *Clock

	recordingID string

	mu            sync.Mutex
	attached      bool
	created       bool
	dispatch      string
	buildID       string
	hasAPIKey     bool
	processed     bool
	remembered    bool
	finished      bool
	saveDir       string
	profilePath   string
	profileEvents []ProfilerEvent
	invalidReason string
	checkpoints   int
	activity      int
	passThrough   map[driver.ThreadID]int
	disallow      map[driver.ThreadID]int
	crashReason   func() string
	crashNote     string
	nativeLocks   map[string]driver.LockKind

	pointerIDs map[uintptr]int
	pointers   map[int]uintptr
	nextPtrID  int

	progress         atomic.Uint64
	progressCallback func(uint64)
	progressEnabled  bool

	diverged   atomic.Bool
	divergence atomic.Pointer[string]

	// Replay journal, loaded at construction.
	recorded            store.Recording
	recordedCheckpoints int
	streams             map[driver.ThreadID]*stream

	lockMu   sync.Mutex
	lockCond *sync.Cond
	locks    []*orderedLock

	shadowMu sync.Mutex
	shadow   *stablehash.Shadow
}

// ProfilerEvent is one event passed to AddProfilerEvent.
type ProfilerEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// stream is the replay cursor over one thread's recorded events.
type stream struct {
	events []store.Event
	pos    int
}

// New creates a Driver. In ModeReplay the recording is loaded from the store.
func New(opts Options) (*Driver, error) {
	if opts.Mode == "" {
		opts.Mode = ModeRecord
	}
	if opts.Mode != ModeRecord && opts.Mode != ModeReplay {
		return nil, fmt.Errorf("unknown driver mode %q", opts.Mode)
	}
	if opts.IDGen == nil {
		opts.IDGen = UUIDv7Generator{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	d := &Driver{
		mode:        opts.Mode,
		store:       opts.Store,
		logger:      opts.Logger.With("component", "refdriver", "mode", string(opts.Mode)),
		observer:    opts.Observer,
		clock:       NewClock(),
		recordingID: opts.RecordingID,
		passThrough: make(map[driver.ThreadID]int),
		disallow:    make(map[driver.ThreadID]int),
		nativeLocks: make(map[string]driver.LockKind),
		pointerIDs:  make(map[uintptr]int),
		pointers:    make(map[int]uintptr),
		streams:     make(map[driver.ThreadID]*stream),
		shadow:      stablehash.New(),
	}
	d.lockCond = sync.NewCond(&d.lockMu)

	switch d.mode {
	case ModeRecord:
		if d.recordingID == "" {
			d.recordingID = opts.IDGen.Generate()
		}
	case ModeReplay:
		if d.recordingID == "" {
			return nil, ErrNoRecording
		}
		if d.store == nil {
			return nil, fmt.Errorf("replay %s: no journal store", d.recordingID)
		}
		if err := d.load(context.Background()); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// load reads the journal of the recording being replayed.
func (d *Driver) load(ctx context.Context) error {
	rec, err := d.store.ReadRecording(ctx, d.recordingID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if rec.Status == store.StatusInvalid {
		return fmt.Errorf("load recording %s: recording is unusable: %s", rec.ID, rec.InvalidReason)
	}
	d.recorded = rec

	events, err := d.store.ReadEvents(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	for _, ev := range events {
		tid := driver.ThreadID(ev.ThreadID)
		s, ok := d.streams[tid]
		if !ok {
			s = &stream{}
			d.streams[tid] = s
		}
		s.events = append(s.events, ev)
	}

	checkpoints, err := d.store.ReadCheckpoints(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	d.recordedCheckpoints = len(checkpoints)

	acquisitions, err := d.store.ReadLockAcquisitions(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	for _, acq := range acquisitions {
		l := d.lockLocked(acq.LockID)
		l.order = append(l.order, driver.ThreadID(acq.ThreadID))
	}

	d.logger.Debug("recording loaded",
		"recording", rec.ID,
		"events", len(events),
		"checkpoints", len(checkpoints),
		"lock_acquisitions", len(acquisitions),
	)
	return nil
}

// Mode returns the driver mode.
func (d *Driver) Mode() Mode {
	return d.mode
}

func (d *Driver) replaying() bool {
	return d.mode == ModeReplay
}

// journalError reports a failed journal write. The recording can no longer
// be trusted, so it is invalidated.
func (d *Driver) journalError(err error) {
	d.logger.Error("journal write failed", "recording", d.recordingID, "error", err)
	d.invalidate(fmt.Sprintf("journal write failed: %v", err))
}

// Attach starts recording or attaches to the replayed recording.
func (d *Driver) Attach(dispatch, buildID string) {
	d.observe(Call{Name: driver.SymAttach, Args: []any{dispatch, buildID}})

	d.mu.Lock()
	if d.attached {
		d.mu.Unlock()
		return
	}
	d.attached = true
	d.dispatch = dispatch
	d.buildID = buildID
	d.mu.Unlock()

	if d.replaying() {
		if d.recorded.BuildID != buildID {
			d.diverge(fmt.Sprintf("build ID mismatch: recorded %q, replaying %q", d.recorded.BuildID, buildID))
		}
		d.markCreated()
		return
	}

	if d.store != nil {
		err := d.store.WriteRecording(context.Background(), store.Recording{
			ID:         d.recordingID,
			BuildID:    buildID,
			Dispatch:   dispatch,
			Status:     store.StatusRecording,
			CreatedSeq: d.clock.Next(),
		})
		if err != nil {
			d.logger.Error("create recording failed", "recording", d.recordingID, "error", err)
			d.mu.Lock()
			d.invalidReason = fmt.Sprintf("create recording failed: %v", err)
			d.mu.Unlock()
		}
	}
	d.markCreated()
	d.logger.Info("recording started", "recording", d.recordingID, "dispatch", dispatch, "build_id", buildID)
}

func (d *Driver) markCreated() {
	d.mu.Lock()
	d.created = true
	d.mu.Unlock()
}

// SetAPIKey accepts the auth token. The key is never logged or stored.
func (d *Driver) SetAPIKey(key string) {
	d.observe(Call{Name: driver.SymSetAPIKey, Args: []any{key != ""}})
	d.mu.Lock()
	d.hasAPIKey = key != ""
	d.mu.Unlock()
}

// ProfileExecution enables profiling output to path.
func (d *Driver) ProfileExecution(path string) {
	d.observe(Call{Name: driver.SymProfileExecution, Args: []any{path}})
	d.mu.Lock()
	d.profilePath = path
	d.mu.Unlock()
}

// AddProfilerEvent appends a profiler event. Invalid JSON payloads are
// stored as JSON strings.
func (d *Driver) AddProfilerEvent(event, data string) {
	d.observe(Call{Name: driver.SymAddProfilerEvent, Args: []any{event, data}})
	raw := json.RawMessage(data)
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(data)
		raw = quoted
	}
	d.mu.Lock()
	d.profileEvents = append(d.profileEvents, ProfilerEvent{Event: event, Data: raw})
	d.mu.Unlock()
}

// RecordCommandLineArguments records the command line, or replaces it with the
// recorded one when replaying.
func (d *Driver) RecordCommandLineArguments(args []string) []string {
	d.observe(Call{Name: driver.SymRecordCommandLineArguments, Args: []any{args}})
	if d.replaying() {
		out := make([]string, len(d.recorded.Arguments))
		copy(out, d.recorded.Arguments)
		return out
	}
	if d.store != nil {
		if err := d.store.SetArguments(context.Background(), d.recordingID, args); err != nil {
			d.journalError(err)
		}
	}
	return args
}

func (d *Driver) ProcessRecording() {
	d.observe(Call{Name: driver.SymProcessRecording})
	d.mu.Lock()
	d.processed = true
	d.mu.Unlock()
}

// SaveRecording makes FinishRecording write a recording manifest into dir.
func (d *Driver) SaveRecording(dir string) {
	d.observe(Call{Name: driver.SymSaveRecording, Args: []any{dir}})
	d.mu.Lock()
	d.saveDir = dir
	d.mu.Unlock()
}

func (d *Driver) RememberRecording() {
	d.observe(Call{Name: driver.SymRememberRecording})
	d.mu.Lock()
	d.remembered = true
	d.mu.Unlock()
}

// FinishRecording persists the recording status, the manifest (after
// SaveRecording) and the profile (after ProfileExecution).
func (d *Driver) FinishRecording() {
	d.observe(Call{Name: driver.SymFinishRecording})

	d.mu.Lock()
	if d.finished {
		d.mu.Unlock()
		return
	}
	d.finished = true
	saveDir := d.saveDir
	profilePath := d.profilePath
	profile := append([]ProfilerEvent(nil), d.profileEvents...)
	d.mu.Unlock()

	if !d.replaying() && d.store != nil {
		if err := d.store.SetStatus(context.Background(), d.recordingID, store.StatusFinished, ""); err != nil {
			d.logger.Error("finish recording failed", "recording", d.recordingID, "error", err)
		}
	}

	if saveDir != "" && !d.replaying() {
		if err := d.writeManifest(saveDir); err != nil {
			d.logger.Error("save recording failed", "dir", saveDir, "error", err)
		}
	}
	if profilePath != "" {
		if err := writeJSON(profilePath, profile); err != nil {
			d.logger.Error("write profile failed", "path", profilePath, "error", err)
		}
	}

	d.logger.Info("recording finished", "recording", d.recordingID, "diverged", d.diverged.Load())
}

// Manifest is the file SaveRecording directories receive for each recording.
type Manifest struct {
	RecordingID string `json:"recording_id"`
	BuildID     string `json:"build_id"`
	Dispatch    string `json:"dispatch"`
	Checkpoints int    `json:"checkpoints"`
	Invalid     string `json:"invalid,omitempty"`
}

// ManifestPath returns the manifest file path for a recording in dir.
func ManifestPath(dir, recordingID string) string {
	return filepath.Join(dir, "recording-"+recordingID+".json")
}

func (d *Driver) writeManifest(dir string) error {
	d.mu.Lock()
	m := Manifest{
		RecordingID: d.recordingID,
		BuildID:     d.buildID,
		Dispatch:    d.dispatch,
		Checkpoints: d.checkpoints,
		Invalid:     d.invalidReason,
	}
	d.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}
	return writeJSON(ManifestPath(dir, m.RecordingID), m)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// InvalidateRecording marks the recording unusable.
func (d *Driver) InvalidateRecording(why string) {
	d.observe(Call{Name: driver.SymInvalidateRecording, Args: []any{why}})
	d.invalidate(why)
}

func (d *Driver) invalidate(why string) {
	if d.replaying() {
		return
	}
	d.mu.Lock()
	first := d.invalidReason == ""
	if first {
		d.invalidReason = why
	}
	d.mu.Unlock()
	if !first {
		return
	}

	d.logger.Warn("recording invalidated", "recording", d.recordingID, "reason", why)
	if d.store != nil {
		if err := d.store.SetStatus(context.Background(), d.recordingID, store.StatusInvalid, why); err != nil {
			d.logger.Error("invalidate recording failed", "recording", d.recordingID, "error", err)
		}
	}
}

// InvalidReason returns why the recording was invalidated, or "".
func (d *Driver) InvalidReason() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invalidReason
}

func (d *Driver) IsReplaying() bool {
	return d.replaying()
}

func (d *Driver) RecordingID() string {
	return d.recordingID
}

func (d *Driver) IsRecordingCreated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// WaitForRecordingCreated reports whether the recording exists and is usable.
// The reference driver creates the recording synchronously in Attach, so this
// never blocks.
func (d *Driver) WaitForRecordingCreated() bool {
	d.observe(Call{Name: driver.SymWaitForRecordingCreated})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created && d.invalidReason == ""
}

func (d *Driver) Print(msg string) {
	d.logger.Info(msg)
}

func (d *Driver) Diagnostic(msg string) {
	d.logger.Debug(msg, "diagnostic", true)
}

func (d *Driver) NotifyActivity() {
	d.mu.Lock()
	d.activity++
	d.mu.Unlock()
}

// Activity returns the number of NotifyActivity calls.
func (d *Driver) Activity() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activity
}

// RegisterThing assigns the next pointer ID to thing. IDs start at 1 and are
// assigned in registration order.
func (d *Driver) RegisterThing(thing uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pointerIDs[thing]; ok {
		return
	}
	d.nextPtrID++
	d.pointerIDs[thing] = d.nextPtrID
	d.pointers[d.nextPtrID] = thing
}

func (d *Driver) UnregisterThing(thing uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.pointerIDs[thing]; ok {
		delete(d.pointerIDs, thing)
		delete(d.pointers, id)
	}
}

// ThingIndex returns the ID of a registered pointer, or 0.
func (d *Driver) ThingIndex(thing uintptr) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pointerIDs[thing]
}

// IndexThing returns the pointer registered under id, or 0.
func (d *Driver) IndexThing(id int) uintptr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pointers[id]
}

func (d *Driver) ProgressCounter() *atomic.Uint64 {
	return &d.progress
}

func (d *Driver) SetProgressCallback(cb func(uint64)) {
	d.mu.Lock()
	d.progressCallback = cb
	d.mu.Unlock()
}

func (d *Driver) EnableProgressCheckpoints() {
	d.mu.Lock()
	d.progressEnabled = true
	d.mu.Unlock()
}

// ProgressReached invokes the progress callback with the current counter,
// when progress checkpoints are enabled.
func (d *Driver) ProgressReached() {
	d.mu.Lock()
	cb := d.progressCallback
	enabled := d.progressEnabled
	d.mu.Unlock()
	if cb != nil && enabled {
		cb(d.progress.Load())
	}
}

func (d *Driver) BeginPassThroughEvents(tid driver.ThreadID) {
	d.observe(Call{Name: driver.SymBeginPassThroughEvents, Thread: tid})
	d.mu.Lock()
	d.passThrough[tid]++
	d.mu.Unlock()
}

func (d *Driver) EndPassThroughEvents(tid driver.ThreadID) {
	d.observe(Call{Name: driver.SymEndPassThroughEvents, Thread: tid})
	d.mu.Lock()
	if d.passThrough[tid] > 0 {
		d.passThrough[tid]--
	}
	d.mu.Unlock()
}

func (d *Driver) BeginDisallowEvents(tid driver.ThreadID) {
	d.observe(Call{Name: driver.SymBeginDisallowEvents, Thread: tid})
	d.mu.Lock()
	d.disallow[tid]++
	d.mu.Unlock()
}

func (d *Driver) EndDisallowEvents(tid driver.ThreadID) {
	d.observe(Call{Name: driver.SymEndDisallowEvents, Thread: tid})
	d.mu.Lock()
	if d.disallow[tid] > 0 {
		d.disallow[tid]--
	}
	d.mu.Unlock()
}

// Depths returns the driver-side pass-through and disallow depth of a thread.
func (d *Driver) Depths(tid driver.ThreadID) (passThrough, disallow int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.passThrough[tid], d.disallow[tid]
}

func (d *Driver) HasDivergedFromRecording() bool {
	return d.diverged.Load()
}

// Divergence returns the first divergence reason, or "".
func (d *Driver) Divergence() string {
	if p := d.divergence.Load(); p != nil {
		return *p
	}
	return ""
}

// AllowSideEffects reports whether the host may perform side effects. A
// replay only allows them after it diverged from the recording.
func (d *Driver) AllowSideEffects() bool {
	return !d.replaying() || d.diverged.Load()
}

// setDiverged latches divergence. Returns false if already diverged.
func (d *Driver) setDiverged(reason string) bool {
	if !d.diverged.CompareAndSwap(false, true) {
		return false
	}
	d.divergence.Store(&reason)
	d.logger.Warn("replay diverged from recording", "recording", d.recordingID, "reason", reason)
	return true
}

// diverge latches divergence and wakes threads waiting for their lock turn.
// Must not be called with lockMu held.
func (d *Driver) diverge(reason string) {
	if d.setDiverged(reason) {
		d.lockMu.Lock()
		d.lockCond.Broadcast()
		d.lockMu.Unlock()
	}
}

// NewCheckpoint records a checkpoint. A replay that creates more checkpoints
// than were recorded has diverged.
func (d *Driver) NewCheckpoint() {
	d.observe(Call{Name: driver.SymNewCheckpoint})
	d.mu.Lock()
	d.checkpoints++
	number := d.checkpoints
	d.mu.Unlock()

	if d.replaying() {
		if number > d.recordedCheckpoints {
			d.diverge(fmt.Sprintf("checkpoint %d not in recording (%d recorded)", number, d.recordedCheckpoints))
		}
		return
	}

	if d.journaling() {
		err := d.store.WriteCheckpoint(context.Background(), store.Checkpoint{
			RecordingID: d.recordingID,
			Number:      number,
			Seq:         d.clock.Next(),
			Progress:    d.progress.Load(),
		})
		if err != nil {
			d.journalError(err)
		}
	}
}

// Checkpoints returns the number of checkpoints created.
func (d *Driver) Checkpoints() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checkpoints
}

func (d *Driver) SetCrashReasonCallback(cb func() string) {
	d.observe(Call{Name: driver.SymSetCrashReasonCallback})
	d.mu.Lock()
	d.crashReason = cb
	d.mu.Unlock()
}

// CrashReason invokes the registered crash reason supplier.
func (d *Driver) CrashReason() string {
	d.mu.Lock()
	cb := d.crashReason
	d.mu.Unlock()
	if cb == nil {
		return ""
	}
	return cb()
}

func (d *Driver) SetCrashNote(note string) {
	d.observe(Call{Name: driver.SymSetCrashNote, Args: []any{note}})
	d.mu.Lock()
	d.crashNote = note
	d.mu.Unlock()
}

// CrashNote returns the note last passed to SetCrashNote.
func (d *Driver) CrashNote() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.crashNote
}
