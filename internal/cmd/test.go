package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/harness"
	"github.com/boostgo/treediff/internal/config"
	"github.com/boostgo/treediff/render"
)

// NewTestCommand creates and returns the test subcommand
func NewTestCommand(opts *globalOptions) *cobra.Command {
	var (
		outputDir string
		runs      []string
	)

	cmd := &cobra.Command{
		Use:   "test <fixtures-dir>",
		Short: "Render template fixtures and compare them with expected output",
		Long: `Render every fixture under a fixtures directory and compare the result
with the fixture's expected tree. A fixture is a directory holding:

  project/       the template tree
  expected/      the expected rendering, may contain wildcard markers
  fixture.yaml   optional description and template context

When the argument is itself a fixture, only that fixture runs.

Failing renders are kept under --output when given; otherwise the run
directory is removed.

Exit code: 0 if every fixture passes, 1 otherwise`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides config.Overrides
			if cmd.Flags().Changed("output") {
				overrides.OutputDir = &outputDir
			}

			cfg, err := opts.validated(overrides)
			if err != nil {
				return err
			}

			fixtures, err := loadFixtures(args[0], runs)
			if err != nil {
				return err
			}

			matcher, err := cfg.Matcher()
			if err != nil {
				return err
			}

			runner := harness.NewRunner(render.NewTemplateRenderer(nil),
				harness.WithLogger(opts.logger),
				harness.WithOutputDir(cfg.OutputDir),
				harness.WithMatcher(matcher),
				harness.WithDiffOptions(cfg.DiffOptions()...),
				harness.WithReportOptions(treediff.WithColor(opts.color)),
			)

			opts.logger.Info("running %d fixtures", len(fixtures))
			summary, runErr := runner.Run(cmd.Context(), fixtures)
			if summary != nil {
				if err := printSummary(cmd.OutOrStdout(), summary, opts); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}

			if failed := summary.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d of %d fixtures failed", len(failed), len(summary.Results))
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&outputDir, "output", "", "Directory in which to keep failing test runs")
	cmd.Flags().StringArrayVar(&runs, "run", nil, "Only run fixtures whose name matches this glob (repeatable)")

	return cmd
}

func loadFixtures(dir string, runs []string) ([]harness.Fixture, error) {
	if treediff.DirectoryExist(filepath.Join(dir, harness.ProjectDirName)) {
		fixture, err := harness.LoadFixture(dir)
		if err != nil {
			return nil, err
		}
		return []harness.Fixture{fixture}, nil
	}

	return harness.Discover(dir, runs...)
}

func printSummary(w io.Writer, summary *harness.Summary, opts *globalOptions) error {
	pass := opts.printer(color.FgGreen, color.Bold)
	fail := opts.printer(color.FgRed, color.Bold)

	for _, result := range summary.Results {
		elapsed := result.Duration.Round(time.Millisecond)
		switch {
		case result.Passed():
			pass.Fprint(w, "PASS")
			fmt.Fprintf(w, " %s (%s)\n", result.Fixture.Name, elapsed)
		case result.Err != nil:
			fail.Fprint(w, "ERROR")
			fmt.Fprintf(w, " %s: %v\n", result.Fixture.Name, result.Err)
		default:
			fail.Fprint(w, "FAIL")
			fmt.Fprintf(w, " %s (%s)\n\n", result.Fixture.Name, elapsed)
			if result.Report != nil {
				if err := result.Report.Render(w); err != nil {
					return fmt.Errorf("render report for %s: %w", result.Fixture.Name, err)
				}
				fmt.Fprintln(w)
			}
		}
	}

	failed := len(summary.Failed())
	fmt.Fprintf(w, "\n%d passed, %d failed\n", len(summary.Results)-failed, failed)
	if summary.RunDir != "" {
		fmt.Fprintf(w, "Failures kept at: %s\n", summary.RunDir)
	}
	return nil
}
