package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/workload"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database    string
	ConfigFile  string
	RecordingID string // optional - specific recording only
}

// ReplayRecordingResult holds the replay result for a single recording.
type ReplayRecordingResult struct {
	RecordingID   string `json:"recording_id"`
	Workers       int    `json:"workers"`
	Rounds        int    `json:"rounds"`
	Digest        string `json:"digest"`
	Diverged      bool   `json:"diverged"`
	Divergence    string `json:"divergence,omitempty"`
	Remaining     int    `json:"remaining"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Recordings       []ReplayRecordingResult `json:"recordings"`
	TotalRecordings  int                     `json:"total_recordings"`
	AllDeterministic bool                    `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recordings and verify they do not diverge",
		Long: `Replay journaled recordings of the workload and verify determinism.

Each finished recording is replayed through the gateway with the
reference driver in replay mode. Values come from the journal, ordered
locks are granted in the recorded order, and every assert is compared
with the recorded one. A replay is deterministic when it does not
diverge and consumes every recorded event.

Exit codes:
  0 - All replays are deterministic
  1 - A replay diverged
  2 - Command error (database not found, unusable recording, etc.)

Examples:
  rrgate replay --db ./journal.db
  rrgate replay --db ./journal.db --id 0190a0c4-...
  rrgate replay --db ./journal.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "gateway configuration file (YAML)")
	cmd.Flags().StringVar(&opts.RecordingID, "id", "", "replay specific recording only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	// Open database
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	// Get recordings to process
	var ids []string
	if opts.RecordingID != "" {
		ids = []string{opts.RecordingID}
	} else {
		recs, err := st.ListRecordings(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list recordings", err)
		}
		for _, rec := range recs {
			if rec.Status == store.StatusFinished {
				ids = append(ids, rec.ID)
			}
		}
	}

	if len(ids) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Recordings:       []ReplayRecordingResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No finished recordings found in database.")
		return nil
	}

	result := ReplayResult{
		Recordings:       make([]ReplayRecordingResult, 0, len(ids)),
		TotalRecordings:  len(ids),
		AllDeterministic: true,
	}

	for _, id := range ids {
		recResult, err := replayRecording(ctx, st, cfg, id, opts, cmd)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay recording %s", id), err)
		}

		result.Recordings = append(result.Recordings, recResult)
		if !recResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	// Output results
	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}

	return outputReplayText(cmd, result, opts.Verbose)
}

// replayRecording reruns the recorded workload against the recording.
func replayRecording(ctx context.Context, st *store.Store, cfg config.Config, id string, opts *ReplayOptions, cmd *cobra.Command) (ReplayRecordingResult, error) {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr()).With("recording", id)

	s, err := openSession(ctx, cfg, []string{"rrgate", "replay", config.DispatchFlag, config.SaveToDisk}, refdriver.Options{
		Mode:        refdriver.ModeReplay,
		Store:       st,
		RecordingID: id,
	}, logger)
	if err != nil {
		return ReplayRecordingResult{}, err
	}
	defer s.close()

	// Initialize hands back the recorded command line.
	wcfg, err := workloadFromArgs(s.args)
	if err != nil {
		return ReplayRecordingResult{}, err
	}

	res, err := workload.Run(ctx, s.g, wcfg)
	if err != nil {
		return ReplayRecordingResult{}, err
	}
	s.finish()

	if wcfg.Workers <= 0 {
		wcfg.Workers = workload.DefaultConfig.Workers
	}
	if wcfg.Rounds <= 0 {
		wcfg.Rounds = workload.DefaultConfig.Rounds
	}
	remaining := s.drv.Remaining()
	return ReplayRecordingResult{
		RecordingID:   id,
		Workers:       wcfg.Workers,
		Rounds:        wcfg.Rounds,
		Digest:        res.Digest,
		Diverged:      res.Diverged,
		Divergence:    s.drv.Divergence(),
		Remaining:     remaining,
		Deterministic: !res.Diverged && remaining == 0,
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DIVERGED",
			Message: "replay diverged from recording",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Divergence = exit code 1
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d recording(s)\n", result.TotalRecordings)
	fmt.Fprintln(w)

	for _, rec := range result.Recordings {
		status := "✓"
		if !rec.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Recording: %s\n", status, rec.RecordingID)

		if verbose {
			fmt.Fprintf(w, "  Workers: %d\n", rec.Workers)
			fmt.Fprintf(w, "  Rounds: %d\n", rec.Rounds)
			fmt.Fprintf(w, "  Digest: %s\n", rec.Digest)
			fmt.Fprintf(w, "  Remaining events: %d\n", rec.Remaining)
		} else {
			fmt.Fprintf(w, "  Workload: %d workers x %d rounds\n", rec.Workers, rec.Rounds)
		}

		if rec.Diverged {
			fmt.Fprintf(w, "  Diverged: %s\n", rec.Divergence)
		} else if rec.Remaining > 0 {
			fmt.Fprintf(w, "  Warning: %d recorded event(s) not replayed\n", rec.Remaining)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All recordings replayed deterministically")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	// Divergence = exit code 1
	return NewExitError(ExitFailure, "replay diverged from recording")
}
