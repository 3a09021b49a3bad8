package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/internal/config"
)

// ErrTreesDiffer is returned when a comparison finds differences
var ErrTreesDiffer = errors.New("directories differ")

type diffFlags struct {
	ignore         []string
	ignorePatterns []string
	fuzzy          bool
	wildcard       string
	encoding       string
	asJSON         bool
	report         bool
}

func (f *diffFlags) overrides(cmd *cobra.Command) config.Overrides {
	overrides := config.Overrides{
		Ignore:         f.ignore,
		IgnorePatterns: f.ignorePatterns,
	}
	if cmd.Flags().Changed("wildcard") {
		overrides.Wildcard = &f.wildcard
	}
	if cmd.Flags().Changed("encoding") {
		overrides.Encoding = &f.encoding
	}
	return overrides
}

// NewDiffCommand creates and returns the diff subcommand
func NewDiffCommand(opts *globalOptions) *cobra.Command {
	flags := &diffFlags{}

	cmd := &cobra.Command{
		Use:   "diff <left> <right>",
		Short: "Compare two directory trees",
		Long: `Compare two directory trees and print the entries only present on the
left, only present on the right, and the files whose contents differ.

With --fuzzy, LEFT is the expected tree: its files may contain the
wildcard marker, and a left file matches the right file when the
wildcard segments can be found in order.

Exit code: 0 if the trees match, 1 if they differ or on error`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.validated(flags.overrides(cmd))
			if err != nil {
				return err
			}
			return runDiff(cmd.OutOrStdout(), args[0], args[1], cfg, flags, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringArrayVar(&flags.ignore, "ignore", nil, "Entry name to skip at every level (repeatable)")
	cmd.Flags().StringArrayVar(&flags.ignorePatterns, "ignore-pattern", nil, "Glob matched against entry names to skip (repeatable)")
	cmd.Flags().BoolVar(&flags.fuzzy, "fuzzy", false, "Treat LEFT as expected output with wildcard markers")
	cmd.Flags().StringVar(&flags.wildcard, "wildcard", treediff.DefaultWildcard, "Wildcard marker used with --fuzzy")
	cmd.Flags().StringVar(&flags.encoding, "encoding", treediff.DefaultEncoding, "Text encoding used with --fuzzy")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&flags.report, "report", false, "Print a detailed report with file diffs")

	return cmd
}

type diffOutput struct {
	Left   string           `json:"left"`
	Right  string           `json:"right"`
	Equal  bool             `json:"equal"`
	Result *treediff.Result `json:"result"`
}

func runDiff(w io.Writer, left, right string, cfg *config.Config, flags *diffFlags, opts *globalOptions) error {
	options := cfg.DiffOptions()

	matcher, err := cfg.Matcher()
	if err != nil {
		return err
	}
	if flags.fuzzy {
		options = append(options, treediff.WithMatch(matcher.ExpectedLeft()))
	}

	opts.logger.Debug("comparing %s with %s", left, right)
	result, err := treediff.Diff(left, right, options...)
	if err != nil {
		return err
	}

	switch {
	case flags.asJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(diffOutput{Left: left, Right: right, Equal: result.Empty(), Result: result}); err != nil {
			return err
		}
	case flags.report && !result.Empty():
		reportOptions := []treediff.ReportOption{
			treediff.WithTextMatcher(matcher),
			treediff.WithColor(opts.color),
		}
		if flags.fuzzy {
			reportOptions = append(reportOptions, treediff.WithLabels("Expected", "Actual"))
		}

		report, err := treediff.NewReporter(reportOptions...).Build(left, right, result)
		if err != nil {
			return err
		}
		if err := report.Render(w); err != nil {
			return err
		}
	default:
		printResult(w, left, right, result, opts)
	}

	if !result.Empty() {
		return fmt.Errorf("%w: %d entries", ErrTreesDiffer, result.Len())
	}
	return nil
}

func printResult(w io.Writer, left, right string, result *treediff.Result, opts *globalOptions) {
	leftOnly := opts.printer(color.FgRed)
	rightOnly := opts.printer(color.FgGreen)
	differ := opts.printer(color.FgYellow)

	for _, p := range result.LeftOnly {
		leftOnly.Fprintf(w, "Only in %s: %s\n", left, p)
	}
	for _, p := range result.RightOnly {
		rightOnly.Fprintf(w, "Only in %s: %s\n", right, p)
	}
	for _, p := range result.DiffFiles {
		differ.Fprintf(w, "Differ: %s\n", p)
	}
}
