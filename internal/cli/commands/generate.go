package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [inputs...]",
		Short: "Generate bindings from declaration files",
		Long: `Parse .vmb declaration files and write one Go file of bindings per input.

Inputs are files or directories; directories contribute every .vmb file
directly inside them. Without arguments the inputs from the config file
are used. Nothing is written unless every input generates successfully.`,
		Example: `  # Generate bindings for one directory
  vmbridge generate ./defs --output ./calc --package calc

  # Remove stale generated files first, without asking
  vmbridge generate --clean --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := EnvFrom(cmd.Context())
			if err != nil {
				return err
			}

			gen, err := build(cmd.Context(), env, args)
			if err != nil {
				return err
			}
			outputs, err := gen.Render()
			if err != nil {
				return err
			}

			cfg := env.Config
			if cfg.Clean {
				if err := CleanOutput(cfg.Output, cfg.Suffix, cfg.Force, cmd.InOrStdin(), cmd.ErrOrStderr(), env.Logger); err != nil {
					return err
				}
			}

			written, err := gen.Save(outputs)
			if err != nil {
				return err
			}
			for _, path := range written {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().Bool("clean", false, "Remove previously generated files from the output directory")
	cmd.Flags().Bool("force", false, "Do not ask before cleaning the output directory")
	return cmd
}
