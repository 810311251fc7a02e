package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/config"
	"github.com/roach88/rrgate/internal/filter"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	File string
}

// ConfigResult holds the effective configuration.
type ConfigResult struct {
	Valid   bool          `json:"valid"`
	Config  config.Config `json:"config"`
	HasAuth bool          `json:"has_auth"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate and show the gateway configuration",
		Long: `Validate a gateway configuration file and show the effective
configuration: defaults, then the file, then the RECORD_REPLAY_*
environment variables.

The file is checked against the configuration schema; unknown fields
are rejected. The auth token is never shown.

Examples:
  rrgate config
  rrgate config --file ./rrgate.yaml
  rrgate config --file ./rrgate.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "configuration file (YAML)")

	return cmd
}

func runConfig(opts *ConfigOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	if opts.File != "" {
		formatter.VerboseLog("Loading %s", opts.File)
	}
	cfg, err := loadConfig(opts.File)
	if err != nil {
		var verr *config.ValidationError
		switch {
		case errors.As(err, &verr):
			_ = formatter.Error("E_CONFIG_INVALID", err.Error(), map[string]string{"path": verr.Path})
			// Schema violations = exit code 1 (validation failure)
			return NewExitError(ExitFailure, err.Error())
		case errors.Is(err, fs.ErrNotExist):
			_ = formatter.Error("E_CONFIG_NOT_FOUND", err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		default:
			_ = formatter.Error("E_CONFIG", err.Error(), nil)
			return NewExitError(ExitCommandError, err.Error())
		}
	}

	result := ConfigResult{Valid: true, Config: cfg, HasAuth: cfg.AuthToken != ""}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✓ Configuration valid")
	fmt.Fprintf(w, "  build_id:                %s\n", cfg.BuildID)
	fmt.Fprintf(w, "  driver_path:             %s\n", orDefault(cfg.DriverPath, "(resolved from temp_dir)"))
	fmt.Fprintf(w, "  temp_dir:                %s\n", cfg.TempDir)
	fmt.Fprintf(w, "  control_topic:           %s\n", cfg.ControlTopic)
	fmt.Fprintf(w, "  record_all_content:      %v\n", cfg.RecordAllContent)
	fmt.Fprintf(w, "  pretend_not_recording:   %v\n", cfg.PretendNotRecording)
	fmt.Fprintf(w, "  dont_process_recordings: %v\n", cfg.DontProcessRecordings)
	fmt.Fprintf(w, "  profile_directory:       %s\n", orDefault(cfg.ProfileDirectory, "(off)"))
	fmt.Fprintf(w, "  execution_asserts:       %s\n", orDefault(filter.Parse(cfg.ExecutionAsserts).String(), "(none)"))
	fmt.Fprintf(w, "  js_asserts:              %s\n", orDefault(filter.Parse(cfg.JSAsserts).String(), "(none)"))
	fmt.Fprintf(w, "  auth token:              %v\n", result.HasAuth)
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
