package cli

import (
	"github.com/spf13/cobra"
)

func newLookupCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "lookup <fid|username>",
		Short:   "Fetch and score a profile",
		Example: "  quotientctl lookup dwr\n  quotientctl lookup 3 --format json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := g.client().Profile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			writeProfile(cmd.OutOrStdout(), report)
			return nil
		},
	}
}
