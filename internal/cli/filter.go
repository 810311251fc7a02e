package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/rrgate/internal/filter"
)

// FilterOptions holds flags for the filter command.
type FilterOptions struct {
	*RootOptions
	Check []string
}

// FilterMatch is the result of checking one location against a filter set.
type FilterMatch struct {
	Location string `json:"location"`
	Matches  bool   `json:"matches"`
}

// FilterResult holds a parsed filter specification.
type FilterResult struct {
	Spec    string          `json:"spec"`
	Filters []filter.Filter `json:"filters"`
	Checks  []FilterMatch   `json:"checks,omitempty"`
}

// NewFilterCommand creates the filter command.
func NewFilterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "filter <spec>",
		Short: "Parse an assertion filter specification",
		Long: `Parse a RECORD_REPLAY_RECORD_*_ASSERTS filter specification.

A specification is "*" or a sequence of file@start@end triples joined
by "@". Each --check location (file:line) is tested against the set.

Examples:
  rrgate filter '*'
  rrgate filter 'app.js@10@20@lib.js@1@5' --check app.js:12 --check lib.js:9`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFilter(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Check, "check", nil, "location to test, as file:line (repeatable)")

	return cmd
}

func runFilter(opts *FilterOptions, spec string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	set := filter.Parse(spec)
	result := FilterResult{Spec: spec, Filters: []filter.Filter(set)}
	if result.Filters == nil {
		result.Filters = []filter.Filter{}
	}

	for _, loc := range opts.Check {
		file, line, err := parseLocation(loc)
		if err != nil {
			return NewExitError(ExitCommandError, err.Error())
		}
		formatter.VerboseLog("Checking %s line %d", file, line)
		result.Checks = append(result.Checks, FilterMatch{Location: loc, Matches: set.Matches(file, line)})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if set.Empty() {
		fmt.Fprintln(w, "Filter set is empty: nothing matches")
	}
	for _, f := range set {
		if f.IsWildcard() {
			fmt.Fprintln(w, "  * (every location)")
			continue
		}
		fmt.Fprintf(w, "  %s lines %d-%d\n", f.Filename, f.StartLine, f.EndLine)
	}
	for _, c := range result.Checks {
		mark := "✗"
		if c.Matches {
			mark = "✓"
		}
		fmt.Fprintf(w, "%s %s\n", mark, c.Location)
	}
	return nil
}

// parseLocation splits file:line at the last colon.
func parseLocation(loc string) (string, int, error) {
	i := strings.LastIndex(loc, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("invalid location %q: want file:line", loc)
	}
	line, err := strconv.Atoi(loc[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid location %q: %w", loc, err)
	}
	return loc[:i], line, nil
}
