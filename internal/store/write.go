package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// WriteRecording inserts a recording row.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRecording(ctx context.Context, rec Recording) error {
	args := rec.Arguments
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}

	status := rec.Status
	if status == "" {
		status = StatusRecording
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recordings
		(id, build_id, dispatch, status, invalid_reason, arguments, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.BuildID,
		rec.Dispatch,
		string(status),
		rec.InvalidReason,
		string(argsJSON),
		rec.CreatedSeq,
	)
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}

	return nil
}

// SetArguments replaces the recorded command line of a recording.
func (s *Store) SetArguments(ctx context.Context, id string, args []string) error {
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("set arguments: %w", err)
	}
	return s.update(ctx, "set arguments", `UPDATE recordings SET arguments = ? WHERE id = ?`, string(argsJSON), id)
}

// SetStatus updates the status of a recording.
// An invalid recording keeps its status and first reason; later updates are ignored.
func (s *Store) SetStatus(ctx context.Context, id string, status RecordingStatus, reason string) error {
	return s.update(ctx, "set status", `
		UPDATE recordings SET status = ?, invalid_reason = ?
		WHERE id = ? AND status != 'invalid'
	`, string(status), reason, id)
}

func (s *Store) update(ctx context.Context, op, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// WriteCheckpoint inserts a checkpoint row.
// Uses ON CONFLICT DO NOTHING for idempotency.
func (s *Store) WriteCheckpoint(ctx context.Context, cp Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (recording_id, number, seq, progress)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		cp.RecordingID,
		cp.Number,
		cp.Seq,
		int64(cp.Progress),
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// WriteEvent inserts an event row.
// Uses ON CONFLICT DO NOTHING for idempotency.
//
// Note: The recording referenced by RecordingID must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (recording_id, seq, thread_id, kind, why, value, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.RecordingID,
		ev.Seq,
		int64(ev.ThreadID),
		string(ev.Kind),
		ev.Why,
		int64(ev.Value),
		ev.Payload,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// WriteLockAcquisition inserts a lock acquisition row.
// Uses ON CONFLICT DO NOTHING for idempotency.
func (s *Store) WriteLockAcquisition(ctx context.Context, acq LockAcquisition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lock_acquisitions (recording_id, seq, lock_id, lock_name, thread_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		acq.RecordingID,
		acq.Seq,
		acq.LockID,
		acq.LockName,
		int64(acq.ThreadID),
	)
	if err != nil {
		return fmt.Errorf("write lock acquisition: %w", err)
	}
	return nil
}
