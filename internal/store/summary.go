package store

import (
	"context"
	"fmt"
)

// Summarize returns counts describing a recording.
func (s *Store) Summarize(ctx context.Context, recordingID string) (Summary, error) {
	rec, err := s.ReadRecording(ctx, recordingID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	summary := Summary{Recording: rec}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT thread_id), COALESCE(MAX(seq), 0)
		FROM events WHERE recording_id = ?
	`, recordingID).Scan(&summary.Events, &summary.Threads, &summary.LastSeq)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize events: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM checkpoints WHERE recording_id = ?
	`, recordingID).Scan(&summary.Checkpoints)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize checkpoints: %w", err)
	}

	var lockLast int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seq), 0) FROM lock_acquisitions WHERE recording_id = ?
	`, recordingID).Scan(&summary.LockAcquisition, &lockLast)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize lock acquisitions: %w", err)
	}
	if lockLast > summary.LastSeq {
		summary.LastSeq = lockLast
	}

	return summary, nil
}
