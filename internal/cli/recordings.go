package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/store"
)

// RecordingsOptions holds flags for the recordings command.
type RecordingsOptions struct {
	*RootOptions
	Database    string
	RecordingID string
	Thread      uint64 // optional - filter to one thread
}

// TimelineEvent represents a single journal entry in a recording timeline.
type TimelineEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"` // event kind, or "lock"
	Thread  uint64 `json:"thread"`
	Why     string `json:"why,omitempty"`
	Value   uint64 `json:"value,omitempty"`
	Payload string `json:"payload,omitempty"`
	Lock    string `json:"lock,omitempty"`
}

// RecordingDetail holds the complete output for one recording.
type RecordingDetail struct {
	Summary  store.Summary   `json:"summary"`
	Timeline []TimelineEvent `json:"timeline"`
}

// RecordingsList holds the output when no recording is selected.
type RecordingsList struct {
	Recordings []store.Summary `json:"recordings"`
}

// NewRecordingsCommand creates the recordings command.
func NewRecordingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "Inspect journaled recordings",
		Long: `List the recordings in a journal, or show one recording.

Without --id, every recording is listed with its status and event
counts. With --id, the recording's timeline is shown: journaled
events and ordered lock acquisitions in sequence order.

Examples:
  rrgate recordings --db ./journal.db
  rrgate recordings --db ./journal.db --id 0190a0c4-...
  rrgate recordings --db ./journal.db --id 0190a0c4-... --thread 2 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecordings(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RecordingID, "id", "", "recording to show")
	cmd.Flags().Uint64Var(&opts.Thread, "thread", 0, "filter the timeline to one thread ID")

	return cmd
}

func runRecordings(opts *RecordingsOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RecordingID == "" {
		return listRecordings(ctx, st, opts, cmd)
	}

	summary, err := st.Summarize(ctx, opts.RecordingID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("recording not found: %s", opts.RecordingID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize recording", err)
	}

	timeline, err := buildTimeline(ctx, st, opts.RecordingID, opts.Thread)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read recording", err)
	}

	detail := RecordingDetail{Summary: summary, Timeline: timeline}
	if opts.Format == "json" {
		return outputRecordingsJSON(cmd, detail)
	}
	return outputRecordingText(cmd, detail, opts.Verbose)
}

func listRecordings(ctx context.Context, st *store.Store, opts *RecordingsOptions, cmd *cobra.Command) error {
	recs, err := st.ListRecordings(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list recordings", err)
	}

	list := RecordingsList{Recordings: make([]store.Summary, 0, len(recs))}
	for _, rec := range recs {
		summary, err := st.Summarize(ctx, rec.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to summarize recording", err)
		}
		list.Recordings = append(list.Recordings, summary)
	}

	if opts.Format == "json" {
		return outputRecordingsJSON(cmd, list)
	}

	w := cmd.OutOrStdout()
	if len(list.Recordings) == 0 {
		fmt.Fprintln(w, "No recordings found in database.")
		return nil
	}
	for _, s := range list.Recordings {
		fmt.Fprintf(w, "%s  %-9s  %d event(s), %d checkpoint(s), %d thread(s)\n",
			s.Recording.ID, s.Recording.Status, s.Events, s.Checkpoints, s.Threads)
		if s.Recording.InvalidReason != "" {
			fmt.Fprintf(w, "  Invalid: %s\n", s.Recording.InvalidReason)
		}
	}
	return nil
}

// buildTimeline merges a recording's events and lock acquisitions in seq
// order. When thread is non-zero only that thread's entries are included.
func buildTimeline(ctx context.Context, st *store.Store, recordingID string, thread uint64) ([]TimelineEvent, error) {
	var events []store.Event
	var err error
	if thread != 0 {
		events, err = st.ReadThreadEvents(ctx, recordingID, thread)
	} else {
		events, err = st.ReadEvents(ctx, recordingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	acquisitions, err := st.ReadLockAcquisitions(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock acquisitions: %w", err)
	}

	timeline := make([]TimelineEvent, 0, len(events)+len(acquisitions))
	i, j := 0, 0
	for i < len(events) || j < len(acquisitions) {
		if j >= len(acquisitions) || (i < len(events) && events[i].Seq < acquisitions[j].Seq) {
			ev := events[i]
			timeline = append(timeline, TimelineEvent{
				Seq:     ev.Seq,
				Type:    string(ev.Kind),
				Thread:  ev.ThreadID,
				Why:     ev.Why,
				Value:   ev.Value,
				Payload: formatPayload(ev.Payload),
			})
			i++
			continue
		}
		acq := acquisitions[j]
		j++
		if thread != 0 && acq.ThreadID != thread {
			continue
		}
		timeline = append(timeline, TimelineEvent{
			Seq:    acq.Seq,
			Type:   "lock",
			Thread: acq.ThreadID,
			Lock:   acq.LockName,
		})
	}
	return timeline, nil
}

// formatPayload renders text payloads as is and binary payloads as hex.
func formatPayload(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	if utf8.Valid(payload) {
		return string(payload)
	}
	return fmt.Sprintf("%x", payload)
}

// outputRecordingsJSON outputs a recordings result as JSON.
func outputRecordingsJSON(cmd *cobra.Command, data interface{}) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}
	if detail, ok := data.(RecordingDetail); ok {
		response.TraceID = detail.Summary.Recording.ID
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputRecordingText outputs one recording as text.
func outputRecordingText(cmd *cobra.Command, detail RecordingDetail, verbose bool) error {
	w := cmd.OutOrStdout()
	rec := detail.Summary.Recording

	fmt.Fprintf(w, "Recording: %s\n", rec.ID)
	fmt.Fprintf(w, "Status: %s\n", rec.Status)
	if rec.InvalidReason != "" {
		fmt.Fprintf(w, "Invalid: %s\n", rec.InvalidReason)
	}
	fmt.Fprintln(w)

	// Timeline section
	fmt.Fprintln(w, "=== Timeline ===")
	if len(detail.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	} else {
		for _, event := range detail.Timeline {
			formatTimelineEvent(w, event, verbose)
		}
	}
	fmt.Fprintln(w)

	// Stats section
	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Build:             %s\n", rec.BuildID)
	fmt.Fprintf(w, "  Dispatch:          %s\n", dispatchLabel(rec.Dispatch))
	fmt.Fprintf(w, "  Events:            %d\n", detail.Summary.Events)
	fmt.Fprintf(w, "  Threads:           %d\n", detail.Summary.Threads)
	fmt.Fprintf(w, "  Checkpoints:       %d\n", detail.Summary.Checkpoints)
	fmt.Fprintf(w, "  Lock Acquisitions: %d\n", detail.Summary.LockAcquisition)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, event TimelineEvent, verbose bool) {
	switch event.Type {
	case "lock":
		fmt.Fprintf(w, "  [%d] t%d LOCK %s\n", event.Seq, event.Thread, event.Lock)

	case string(store.EventValue):
		fmt.Fprintf(w, "  [%d] t%d VALUE %s = %d\n", event.Seq, event.Thread, event.Why, event.Value)

	default:
		fmt.Fprintf(w, "  [%d] t%d %s %s\n", event.Seq, event.Thread, event.Type, event.Why)
		if verbose && event.Payload != "" {
			fmt.Fprintf(w, "       Payload: %s\n", truncate(event.Payload))
		}
	}
}

// truncate shortens a long payload for display.
func truncate(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:28] + "..." + s[len(s)-28:]
}

func dispatchLabel(dispatch string) string {
	if dispatch == "" {
		return "(saved to disk)"
	}
	return dispatch
}
