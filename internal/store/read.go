package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ReadRecording returns the recording with the given ID.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) ReadRecording(ctx context.Context, id string) (Recording, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, build_id, dispatch, status, invalid_reason, arguments, created_seq
		FROM recordings
		WHERE id = ?
	`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Recording{}, fmt.Errorf("recording %s: %w", id, ErrNotFound)
	}
	return rec, err
}

// ListRecordings returns all recordings ordered by creation.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRecordings(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, build_id, dispatch, status, invalid_reason, arguments, created_seq
		FROM recordings
		ORDER BY created_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	recordings := []Recording{}
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recordings = append(recordings, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return recordings, nil
}

// ReadEvents returns every event of a recording in seq order.
func (s *Store) ReadEvents(ctx context.Context, recordingID string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT recording_id, seq, thread_id, kind, why, value, payload
		FROM events
		WHERE recording_id = ?
		ORDER BY seq ASC
	`, recordingID)
}

// ReadThreadEvents returns the events one thread recorded, in seq order.
func (s *Store) ReadThreadEvents(ctx context.Context, recordingID string, threadID uint64) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT recording_id, seq, thread_id, kind, why, value, payload
		FROM events
		WHERE recording_id = ? AND thread_id = ?
		ORDER BY seq ASC
	`, recordingID, int64(threadID))
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			ev       Event
			kind     string
			threadID int64
			value    int64
		)
		if err := rows.Scan(&ev.RecordingID, &ev.Seq, &threadID, &kind, &ev.Why, &value, &ev.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = EventKind(kind)
		ev.ThreadID = uint64(threadID)
		ev.Value = uint64(value)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadCheckpoints returns the checkpoints of a recording in order.
func (s *Store) ReadCheckpoints(ctx context.Context, recordingID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recording_id, number, seq, progress
		FROM checkpoints
		WHERE recording_id = ?
		ORDER BY number ASC
	`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []Checkpoint{}
	for rows.Next() {
		var (
			cp       Checkpoint
			progress int64
		)
		if err := rows.Scan(&cp.RecordingID, &cp.Number, &cp.Seq, &progress); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Progress = uint64(progress)
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return checkpoints, nil
}

// ReadLockAcquisitions returns every lock acquisition of a recording in seq order.
func (s *Store) ReadLockAcquisitions(ctx context.Context, recordingID string) ([]LockAcquisition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT recording_id, seq, lock_id, lock_name, thread_id
		FROM lock_acquisitions
		WHERE recording_id = ?
		ORDER BY seq ASC
	`, recordingID)
	if err != nil {
		return nil, fmt.Errorf("query lock acquisitions: %w", err)
	}
	defer rows.Close()

	acquisitions := []LockAcquisition{}
	for rows.Next() {
		var (
			acq      LockAcquisition
			threadID int64
		)
		if err := rows.Scan(&acq.RecordingID, &acq.Seq, &acq.LockID, &acq.LockName, &threadID); err != nil {
			return nil, fmt.Errorf("scan lock acquisition: %w", err)
		}
		acq.ThreadID = uint64(threadID)
		acquisitions = append(acquisitions, acq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lock acquisitions: %w", err)
	}
	return acquisitions, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var (
		rec      Recording
		status   string
		argsJSON string
	)
	err := row.Scan(&rec.ID, &rec.BuildID, &rec.Dispatch, &status, &rec.InvalidReason, &argsJSON, &rec.CreatedSeq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recording{}, err
		}
		return Recording{}, fmt.Errorf("scan recording: %w", err)
	}
	rec.Status = RecordingStatus(status)
	if err := json.Unmarshal([]byte(argsJSON), &rec.Arguments); err != nil {
		return Recording{}, fmt.Errorf("unmarshal arguments: %w", err)
	}
	if rec.Arguments == nil {
		rec.Arguments = []string{}
	}
	return rec, nil
}
