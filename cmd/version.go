package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/utkarsh5026/distmatrix/cmd.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)

// NewVersionCommand prints build information.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the distmatrix version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "distmatrix %s (commit %s, %s)\n", Version, Commit, runtime.Version())
		},
	}
}
