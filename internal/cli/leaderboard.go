package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/okian/quotient/internal/domain/types"
)

func newTopCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top of the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := g.client().Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries")
	return cmd
}

func newRankCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <fid>",
		Short: "Show the leaderboard position of one profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := parseFID(args[0])
			if err != nil {
				return err
			}
			entry, err := g.client().Rank(cmd.Context(), fid)
			if err != nil {
				return err
			}
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), entry)
			}
			return writeEntries(cmd.OutOrStdout(), []types.Entry{entry})
		},
	}
}

func parseFID(raw string) (uint64, error) {
	fid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || fid == 0 {
		return 0, fmt.Errorf("invalid fid %q", raw)
	}
	return fid, nil
}
