// Package cli provides the vmbridge command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vmbridge/internal/cli/commands"
	"vmbridge/internal/config"
	"vmbridge/internal/logging"
)

// Version is set at build time.
var Version = "0.1.0"

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "vmbridge",
		Short: "vmbridge - binding generator for a foreign VM boundary",
		Long: `vmbridge compiles .vmb declaration files into Go bindings.

Functions declared without a body are called on the foreign VM; functions
with a Go body are exported to it. The generated code converts every value
across the boundary and reports failures as bridge errors.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.Setup(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			cmd.SetContext(commands.WithEnv(cmd.Context(), &commands.Env{Config: cfg, Logger: logger}))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./vmbridge.yaml or ./vmbridge.toml)")
	flags.StringP("package", "p", "", "Package name of the generated files (default: output directory name)")
	flags.StringP("output", "o", "", "Output directory")
	flags.String("suffix", "", "Suffix replacing .vmb in output file names")
	flags.String("bridge-import", "", "Import path of the runtime bridge package")
	flags.Bool("fix-imports", true, "Add imports used by function bodies")
	flags.String("log-level", "", "Log level (debug|info|warn|error)")
	flags.String("log-format", "", "Log format (text|json)")
	flags.IntP("jobs", "j", 0, "Number of files parsed in parallel")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{logging.FormatText, logging.FormatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
