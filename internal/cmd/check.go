package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/internal/config"
)

// ErrOutputMismatch is returned when rendered output does not match the
// expected tree
var ErrOutputMismatch = errors.New("output does not match expected")

// NewCheckCommand creates and returns the check subcommand
func NewCheckCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <output-dir> <expected-dir>",
		Short: "Check a rendered directory against its expected tree",
		Long: `Compare an output directory with an expected directory using fuzzy
matching: expected files may contain the wildcard marker. Names from the
configured ignore list (.DS_Store by default) are skipped.

On mismatch a full report is printed.

Exit code: 0 if the output matches, 1 otherwise`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.validated(config.Overrides{})
			if err != nil {
				return err
			}
			return runCheck(cmd.OutOrStdout(), args[0], args[1], cfg, opts)
		},
		SilenceUsage: true,
	}

	return cmd
}

func runCheck(w io.Writer, outputDir, expectedDir string, cfg *config.Config, opts *globalOptions) error {
	fmt.Fprintf(w, "output: %s\nexpected: %s\n", outputDir, expectedDir)

	matcher, err := cfg.Matcher()
	if err != nil {
		return err
	}

	options := append(cfg.DiffOptions(), treediff.WithMatch(matcher.ExpectedLeft()))
	result, err := treediff.Diff(expectedDir, outputDir, options...)
	if err != nil {
		return err
	}

	if result.Empty() {
		opts.printer(color.FgGreen).Fprintln(w, "Output matches expected.")
		return nil
	}

	report, err := treediff.NewReporter(
		treediff.WithLabels("Expected", "Actual"),
		treediff.WithTextMatcher(matcher),
		treediff.WithColor(opts.color),
	).Build(expectedDir, outputDir, result)
	if err != nil {
		return err
	}

	fmt.Fprintln(w)
	if err := report.Render(w); err != nil {
		return err
	}

	return ErrOutputMismatch
}
