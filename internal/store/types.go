package store

// RecordingStatus is the lifecycle state of a recording.
type RecordingStatus string

const (
	// StatusRecording is a recording still being written.
	StatusRecording RecordingStatus = "recording"

	// StatusFinished is a recording whose process finished recording.
	StatusFinished RecordingStatus = "finished"

	// StatusInvalid is a recording marked unusable.
	StatusInvalid RecordingStatus = "invalid"
)

// EventKind classifies journal events.
type EventKind string

const (
	EventValue       EventKind = "value"
	EventBytes       EventKind = "bytes"
	EventAssert      EventKind = "assert"
	EventAssertBytes EventKind = "assert_bytes"
	EventMouse       EventKind = "mouse"
	EventKey         EventKind = "key"
	EventNavigation  EventKind = "navigation"
)

// Recording is one recording row.
type Recording struct {
	ID            string          `json:"id"`
	BuildID       string          `json:"build_id"`
	Dispatch      string          `json:"dispatch"`
	Status        RecordingStatus `json:"status"`
	InvalidReason string          `json:"invalid_reason,omitempty"`
	Arguments     []string        `json:"arguments"`
	CreatedSeq    int64           `json:"created_seq"`
}

// Checkpoint is a checkpoint taken while recording.
type Checkpoint struct {
	RecordingID string `json:"recording_id"`
	Number      int    `json:"number"`
	Seq         int64  `json:"seq"`
	Progress    uint64 `json:"progress"`
}

// Event is one recorded event on one thread.
//
// Why is the caller-supplied label; for UI events it holds the event kind.
// Payload holds byte buffers, assert messages, and UI event details.
type Event struct {
	RecordingID string    `json:"recording_id"`
	Seq         int64     `json:"seq"`
	ThreadID    uint64    `json:"thread_id"`
	Kind        EventKind `json:"kind"`
	Why         string    `json:"why"`
	Value       uint64    `json:"value"`
	Payload     []byte    `json:"payload,omitempty"`
}

// LockAcquisition records that a thread acquired an ordered lock.
type LockAcquisition struct {
	RecordingID string `json:"recording_id"`
	Seq         int64  `json:"seq"`
	LockID      int    `json:"lock_id"`
	LockName    string `json:"lock_name"`
	ThreadID    uint64 `json:"thread_id"`
}

// Summary describes the contents of one recording.
type Summary struct {
	Recording       Recording `json:"recording"`
	Checkpoints     int       `json:"checkpoints"`
	Events          int       `json:"events"`
	Threads         int       `json:"threads"`
	LockAcquisition int       `json:"lock_acquisitions"`
	LastSeq         int64     `json:"last_seq"`
}
