package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newShareCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "share <fid> [on|off]",
		Short:   "Show or set the public share preference",
		Example: "  quotientctl share 3\n  quotientctl share 3 off",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := parseFID(args[0])
			if err != nil {
				return err
			}
			var enabled *bool
			if len(args) == 2 {
				v, err := parseSwitch(args[1])
				if err != nil {
					return err
				}
				enabled = &v
			}
			pref, err := g.client().Share(cmd.Context(), fid, enabled)
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), pref)
			}
			state := "disabled"
			if pref.Enabled {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public share for fid %d is %s\n", pref.FID, state)
			return nil
		},
	}
}

func parseSwitch(raw string) (bool, error) {
	switch raw {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid switch %q (want on or off)", raw)
	}
	return v, nil
}
