package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [inputs...]",
		Short: "Validate declaration files without writing output",
		Long: `Parse every input, resolve its class bindings and render the bindings
in memory. Reports the first error, or a summary per file followed by
every class binding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := EnvFrom(cmd.Context())
			if err != nil {
				return err
			}

			gen, err := build(cmd.Context(), env, args)
			if err != nil {
				return err
			}
			if _, err := gen.Render(); err != nil {
				return err
			}

			for _, f := range gen.Files {
				decls := 0
				for _, g := range f.Groups {
					decls += len(g.Decls)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d classes, %d groups, %d functions)\n",
					f.Name, len(f.Classes), len(f.Groups), decls)
			}
			for _, b := range gen.Registry.Bindings() {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "class %s = %q\n", b.TypeID, b.QualifiedName)
			}
			return nil
		},
	}
}
