package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/internal/config"
	"github.com/boostgo/treediff/internal/logging"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// globalOptions carries the persistent flags and the state derived from them
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool

	config *config.Config
	logger *logging.StandardLogger
	color  bool
}

// NewRootCommand creates and returns the root cobra command for treediff
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "treediff",
		Short: "Compare directory trees with exact or fuzzy file matching",
		Long: `Treediff recursively compares two directory trees and reports entries
present on only one side and files whose contents differ.

Expected files may contain a wildcard marker ("..." by default) that
matches any run of text, which makes treediff suited to checking
rendered template output against golden directories.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Logging verbosity (trace, debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(NewDiffCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (o *globalOptions) load(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") && !treediff.FileExist(o.configPath) {
		return fmt.Errorf("config file not found: %s", o.configPath)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	var overrides config.Overrides
	if cmd.Flags().Changed("log-level") {
		overrides.LogLevel = &o.logLevel
	}
	if o.noColor {
		never := config.ColorNever
		overrides.Color = &never
	}
	cfg.Merge(overrides)

	logger := logging.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return err
	}

	o.config = cfg
	o.logger = logger
	o.color = useColor(cfg.Color, cmd.OutOrStdout())
	logger.Debug("loaded config from %s", o.configPath)

	return nil
}

// useColor resolves a color mode against the output writer
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}

	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd()) && !color.NoColor
}

// validated merges command overrides into the loaded config and validates it
func (o *globalOptions) validated(overrides config.Overrides) (*config.Config, error) {
	o.config.Merge(overrides)
	if err := o.config.Validate(); err != nil {
		return nil, err
	}

	return o.config, nil
}

// printer returns a color printer honoring the resolved color mode
func (o *globalOptions) printer(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if o.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
