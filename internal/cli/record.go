package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/refdriver"
	"github.com/roach88/rrgate/internal/store"
	"github.com/roach88/rrgate/internal/workload"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database    string
	ConfigFile  string
	Dispatch    string
	RecordingID string
	Workers     int
	Rounds      int

	// IDGen allows overriding the recording ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGen refdriver.IDGenerator
}

// RecordResult is the outcome of a record run.
type RecordResult struct {
	RecordingID   string             `json:"recording_id"`
	Workload      workload.Result    `json:"workload"`
	Checkpoints   int                `json:"checkpoints"`
	InvalidReason string             `json:"invalid_reason,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record the workload into a journal",
		Long: `Record the multi-threaded workload through the gateway.

The gateway is bound to the reference driver, which journals values,
asserts, checkpoints and ordered lock acquisitions into a SQLite
database (creating it if it doesn't exist). The workload sizes are
recorded on the command line, so "rrgate replay" reruns the same work.

Exit codes:
  0 - Recording finished
  1 - Workload failed or the recording was invalidated
  2 - Command error (bad config, database error, etc.)

Examples:
  rrgate record --db ./journal.db
  rrgate record --db ./journal.db --workers 8 --rounds 64
  rrgate record --db ./journal.db --config ./rrgate.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "gateway configuration file (YAML)")
	cmd.Flags().StringVar(&opts.Dispatch, "dispatch", config.SaveToDisk, "recording dispatch address")
	cmd.Flags().StringVar(&opts.RecordingID, "id", "", "recording ID (generated when empty)")
	cmd.Flags().IntVar(&opts.Workers, "workers", workload.DefaultConfig.Workers, "worker threads")
	cmd.Flags().IntVar(&opts.Rounds, "rounds", workload.DefaultConfig.Rounds, "rounds per worker")

	return cmd
}

func runRecord(opts *RecordOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	if opts.Workers <= 0 || opts.Rounds <= 0 {
		return NewExitError(ExitCommandError, "--workers and --rounds must be positive")
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping workload", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	wcfg := workload.Config{Workers: opts.Workers, Rounds: opts.Rounds}
	s, err := openSession(ctx, cfg, workloadArgs("record", wcfg, opts.Dispatch), refdriver.Options{
		Store:       st,
		RecordingID: opts.RecordingID,
		IDGen:       opts.IDGen,
	}, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start recording", err)
	}
	defer s.close()

	logger.Info("workload starting", "recording", s.g.RecordingID(), "workers", wcfg.Workers, "rounds", wcfg.Rounds)
	res, err := workload.Run(ctx, s.g, wcfg)
	if err != nil {
		return WrapExitError(ExitFailure, "workload failed", err)
	}
	s.finish()

	result := RecordResult{
		RecordingID:   s.drv.RecordingID(),
		Workload:      res,
		Checkpoints:   s.drv.Checkpoints(),
		InvalidReason: s.drv.InvalidReason(),
	}
	if opts.Verbose {
		if result.Metrics, err = s.metrics(); err != nil {
			return WrapExitError(ExitCommandError, "failed to read metrics", err)
		}
	}

	if opts.Format == "json" {
		return outputRecordJSON(cmd, result)
	}
	return outputRecordText(cmd, result)
}

func outputRecordJSON(cmd *cobra.Command, result RecordResult) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    result,
		TraceID: result.RecordingID,
	}
	if result.InvalidReason != "" {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_INVALIDATED",
			Message: result.InvalidReason,
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.InvalidReason != "" {
		return NewExitError(ExitFailure, "recording invalidated: "+result.InvalidReason)
	}
	return nil
}

func outputRecordText(cmd *cobra.Command, result RecordResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Recording: %s\n", result.RecordingID)
	fmt.Fprintf(w, "  Counter:     %d\n", result.Workload.Counter)
	fmt.Fprintf(w, "  Entries:     %d\n", result.Workload.Entries)
	fmt.Fprintf(w, "  Checkpoints: %d\n", result.Checkpoints)
	fmt.Fprintf(w, "  Digest:      %s\n", result.Workload.Digest)

	if len(result.Metrics) > 0 {
		names := make([]string, 0, len(result.Metrics))
		for name := range result.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "  Metrics:")
		for _, name := range names {
			fmt.Fprintf(w, "    %s %g\n", name, result.Metrics[name])
		}
	}

	if result.InvalidReason != "" {
		fmt.Fprintf(w, "✗ Recording invalidated: %s\n", result.InvalidReason)
		return NewExitError(ExitFailure, "recording invalidated: "+result.InvalidReason)
	}
	fmt.Fprintln(w, "✓ Recording finished")
	return nil
}
