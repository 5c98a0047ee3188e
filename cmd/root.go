// Package cmd contains all the commands included in the distmatrix binary.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/utkarsh5026/distmatrix/internal/config"
)

const envFileFlag = "env-file"

// NewRootCommand builds the command tree. Every subcommand reads its settings
// from CLI flags, DISTMATRIX_* environment variables or distmatrix.yaml (in
// that order).
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "distmatrix",
		Short: "Compute pairwise great-circle distances between labeled points",
		Long: `distmatrix reads a headerless CSV of "label,latitude,longitude" rows and writes
the distance between every unordered pair of points.

The work can run sequentially, with one goroutine per pair, on a bounded worker
pool, across child processes, or as a streaming pipeline.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			envFile, _ := cmd.Flags().GetString(envFileFlag)
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			return config.Setup(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String(envFileFlag, ".env", "file of KEY=VALUE pairs loaded into the environment")
	flags.String(config.LogFormatKey, "text", "log format: 'text' or 'json'")
	flags.String(config.LogLevelKey, "info", "log level: 'none', 'debug', 'info', 'warn' or 'error'")

	root.AddCommand(NewRunCommand(v), NewBenchCommand(v), NewVersionCommand())
	return root
}

// mustBindPFlag binds a config key to a pflag and panics if the binding fails.
func mustBindPFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic("failed to bind pflag: " + err.Error())
	}
}

func bindLogFlags(v *viper.Viper, cmd *cobra.Command) {
	flags := cmd.Flags()
	mustBindPFlag(v, config.LogFormatKey, flags.Lookup(config.LogFormatKey))
	mustBindPFlag(v, config.LogLevelKey, flags.Lookup(config.LogLevelKey))
}
