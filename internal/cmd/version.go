package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates and returns the version subcommand
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the treediff version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "treediff version %s\n", Version)
		},
	}
}
