package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/driver"
	"github.com/roach88/rrgate/internal/refdriver"
)

// CapabilitiesOptions holds flags for the capabilities command.
type CapabilitiesOptions struct {
	*RootOptions
	Driver string
}

// CapabilitiesResult is the bound capability table.
type CapabilitiesResult struct {
	Driver       string         `json:"driver"`
	Capabilities []driver.Entry `json:"capabilities"`
	Missing      []string       `json:"missing,omitempty"`
	Errors       []string       `json:"errors,omitempty"`
}

// NewCapabilitiesCommand creates the capabilities command.
func NewCapabilitiesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CapabilitiesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Bind the driver capability table",
		Long: `Bind every driver entry point the gateway uses and report the result.

Without --driver the reference driver is bound. With --driver the
driver module at that path is loaded and bound. Required entry points
that are missing or have the wrong type make the driver incompatible.

Exit codes:
  0 - Every required capability is bound
  1 - A required capability is missing
  2 - Command error (driver module cannot be loaded)

Examples:
  rrgate capabilities
  rrgate capabilities --driver /tmp/recordreplay-dev.so --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapabilities(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "driver module to bind (default: reference driver)")

	return cmd
}

func runCapabilities(opts *CapabilitiesOptions, cmd *cobra.Command) error {
	var res driver.Resolver
	name := "reference"
	if opts.Driver != "" {
		var err error
		res, err = driver.Open(opts.Driver)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load driver", err)
		}
		name = opts.Driver
	} else {
		ref, err := refdriver.New(refdriver.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create reference driver", err)
		}
		res = ref.Symbols()
	}

	result := bindCapabilities(name, res)

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if len(result.Missing) > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_MISSING_CAPABILITY",
				Message: fmt.Sprintf("%d required capability(ies) missing", len(result.Missing)),
				Details: result.Missing,
			}
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
	} else {
		outputCapabilitiesText(cmd.OutOrStdout(), result, opts.Verbose)
	}

	if len(result.Missing) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d required capability(ies) missing", len(result.Missing)))
	}
	return nil
}

// bindCapabilities binds res and collects binding errors instead of
// terminating.
func bindCapabilities(name string, res driver.Resolver) CapabilitiesResult {
	result := CapabilitiesResult{Driver: name}
	_, table := driver.Bind(res, func(err error) {
		result.Errors = append(result.Errors, err.Error())
	})
	result.Capabilities = table.Entries()
	for _, e := range result.Capabilities {
		if e.Required && !e.Resolved {
			result.Missing = append(result.Missing, e.Name)
		}
	}
	return result
}

func outputCapabilitiesText(w io.Writer, result CapabilitiesResult, verbose bool) {
	resolved := 0
	for _, e := range result.Capabilities {
		if e.Resolved {
			resolved++
		}
		if !verbose && e.Resolved {
			continue
		}
		mark := "✓"
		switch {
		case !e.Resolved && e.Required:
			mark = "✗"
		case !e.Resolved:
			mark = "-"
		}
		kind := "required"
		if !e.Required {
			kind = "optional"
		}
		fmt.Fprintf(w, "%s %s (%s)\n", mark, e.Name, kind)
	}

	fmt.Fprintf(w, "Driver %s: %d of %d capabilities bound\n", result.Driver, resolved, len(result.Capabilities))
	for _, msg := range result.Errors {
		fmt.Fprintf(w, "  %s\n", msg)
	}
	if len(result.Missing) == 0 {
		fmt.Fprintln(w, "✓ Driver is compatible")
	} else {
		fmt.Fprintln(w, "✗ Driver is incompatible")
	}
}
