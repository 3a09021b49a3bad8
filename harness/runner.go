// Package harness renders template fixtures and compares them against their
// expected trees.
package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/internal/logging"
)

const (
	runDirPrefix = "testrun_"
	runDirLayout = "20060102-150405"
	lockFileName = ".treediff.lock"
)

// DefaultSkipped lists names ignored when comparing rendered output
var DefaultSkipped = []string{".DS_Store"}

// Renderer materializes a project template into outputDir
type Renderer interface {
	Render(ctx context.Context, templateDir, outputDir string, data map[string]any) error
}

// FixtureResult is the outcome of one fixture
type FixtureResult struct {
	Fixture   Fixture
	OutputDir string
	Result    *treediff.Result
	Report    *treediff.Report
	Err       error
	Duration  time.Duration
}

// Passed reports whether the fixture rendered and matched its expected tree
func (r FixtureResult) Passed() bool {
	return r.Err == nil && r.Result != nil && r.Result.Empty()
}

// Summary collects the results of a run. RunDir is empty when the run
// directory was removed.
type Summary struct {
	RunDir  string
	Results []FixtureResult
}

// Passed reports whether every fixture passed
func (s *Summary) Passed() bool {
	return len(s.Failed()) == 0
}

// Failed returns the failing fixture results
func (s *Summary) Failed() []FixtureResult {
	return lo.Filter(s.Results, func(r FixtureResult, _ int) bool {
		return !r.Passed()
	})
}

// RunnerOption represents optional parameters for NewRunner
type RunnerOption func(*Runner)

// Runner renders fixtures and compares them with their expected trees
type Runner struct {
	renderer      Renderer
	logger        logging.Logger
	outputDir     string
	matcher       *treediff.FuzzyMatcher
	diffOptions   []treediff.DiffOption
	reportOptions []treediff.ReportOption
	now           func() time.Time
}

// WithLogger sets the run logger. Defaults to a discarding logger.
func WithLogger(logger logging.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithOutputDir keeps failing runs under dir instead of a temp directory
func WithOutputDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.outputDir = dir
	}
}

// WithMatcher sets the fuzzy matcher used for file comparison
func WithMatcher(matcher *treediff.FuzzyMatcher) RunnerOption {
	return func(r *Runner) {
		if matcher != nil {
			r.matcher = matcher
		}
	}
}

// WithDiffOptions replaces the default ignore options (DefaultSkipped)
func WithDiffOptions(options ...treediff.DiffOption) RunnerOption {
	return func(r *Runner) {
		r.diffOptions = options
	}
}

// WithReportOptions adds reporter options, applied after the
// Expected/Actual labels
func WithReportOptions(options ...treediff.ReportOption) RunnerOption {
	return func(r *Runner) {
		r.reportOptions = append(r.reportOptions, options...)
	}
}

func NewRunner(renderer Renderer, options ...RunnerOption) *Runner {
	matcher, _ := treediff.NewFuzzyMatcher()
	r := &Runner{
		renderer:    renderer,
		logger:      logging.Discard(),
		matcher:     matcher,
		diffOptions: []treediff.DiffOption{treediff.WithIgnore(DefaultSkipped...)},
		now:         time.Now,
	}
	for _, opt := range options {
		opt(r)
	}

	return r
}

// Run renders and checks every fixture in order inside a fresh run
// directory. The context is checked between fixtures; on cancellation the
// results gathered so far are returned with the context error.
//
// Passing fixtures leave nothing behind. The run directory is removed
// unless an output directory was configured and some fixture failed.
func (r *Runner) Run(ctx context.Context, fixtures []Fixture) (*Summary, error) {
	runDir, err := r.createRunDir()
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunDir:  runDir,
		Results: make([]FixtureResult, 0, len(fixtures)),
	}

	var runErr error
	for _, fixture := range fixtures {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		result := r.runFixture(ctx, fixture, filepath.Join(runDir, fixture.Name))
		summary.Results = append(summary.Results, result)
	}

	r.cleanup(summary)
	return summary, runErr
}

// createRunDir makes a fresh run directory under the output dir. Only the
// creation is serialized across processes; each run owns a unique directory.
func (r *Runner) createRunDir() (string, error) {
	base := r.outputDir
	if base == "" {
		base = os.TempDir()
	} else if !treediff.DirectoryExist(base) {
		r.logger.Info("creating test output dir: %s", base)
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", err
		}
	}

	lock := flock.New(filepath.Join(base, lockFileName))
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("failed to acquire lock on %s: %w", base, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.WithError(err).Warn("failed to release lock on %s", base)
		}
	}()

	name := fmt.Sprintf("%s%s-%s", runDirPrefix, r.now().Format(runDirLayout), uuid.New().String())
	runDir := filepath.Join(base, name)
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return "", err
	}

	r.logger.Info("created test run dir: %s", runDir)
	return runDir, nil
}

func (r *Runner) runFixture(ctx context.Context, fixture Fixture, outputDir string) (result FixtureResult) {
	start := r.now()
	result = FixtureResult{
		Fixture:   fixture,
		OutputDir: outputDir,
	}
	log := r.logger.WithField("fixture", fixture.Name)

	defer func() {
		result.Duration = r.now().Sub(start)
	}()

	if err := r.renderer.Render(ctx, fixture.ProjectDir, outputDir, fixture.Config.Context); err != nil {
		log.WithError(err).Error("render failed")
		result.Err = err
		return result
	}

	options := append(append([]treediff.DiffOption{}, r.diffOptions...), treediff.WithMatch(r.matcher.ExpectedLeft()))
	diff, err := treediff.Diff(fixture.ExpectedDir, outputDir, options...)
	if err != nil {
		log.WithError(err).Error("compare failed")
		result.Err = err
		return result
	}
	result.Result = diff

	if diff.Empty() {
		log.Debug("passed")
		if err := os.RemoveAll(outputDir); err != nil {
			log.WithError(err).Warn("failed to remove %s", outputDir)
		}
		return result
	}

	reportOptions := append([]treediff.ReportOption{
		treediff.WithLabels("Expected", "Actual"),
		treediff.WithTextMatcher(r.matcher),
	}, r.reportOptions...)

	report, err := treediff.NewReporter(reportOptions...).Build(fixture.ExpectedDir, outputDir, diff)
	if err != nil {
		log.WithError(err).Error("report failed")
		result.Err = err
		return result
	}
	report.Description = fmt.Sprintf("Test %s: %s", fixture.Name, fixture.Config.Description)
	report.Context = fixture.Config.Context
	result.Report = report

	log.Info("failed: %d differing entries", diff.Len())
	return result
}

func (r *Runner) cleanup(summary *Summary) {
	if !treediff.DirectoryExist(summary.RunDir) {
		summary.RunDir = ""
		return
	}
	if r.outputDir != "" && !isEmptyDir(summary.RunDir) {
		r.logger.Info("test failures at: %s", summary.RunDir)
		return
	}

	r.logger.Info("cleaning up: deleting: %s", summary.RunDir)
	if err := os.RemoveAll(summary.RunDir); err != nil {
		r.logger.WithError(err).Warn("failed to remove %s", summary.RunDir)
		return
	}
	summary.RunDir = ""
}

func isEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) == 0
}
