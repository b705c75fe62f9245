package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/quotient/internal/domain/quotient"
	"github.com/okian/quotient/internal/domain/types"
)

func newScoreCommand(g *globalFlags) *cobra.Command {
	var (
		m        quotient.UserMetrics
		verified bool
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score metrics offline",
		Long: "Run the Quotient engine on the given metrics without contacting a server.\n" +
			"Leaving --verified unset means no verification signal.",
		Example: "  quotientctl score --followers 1500 --following 300 --engagement 0.9 --verified",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("verified") {
				m.HasVerifiedAddress = quotient.Verified(verified)
			}
			a := types.Assess(m)
			if g.format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), a)
			}
			writeAssessment(cmd.OutOrStdout(), a)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&m.FollowerCount, "followers", 0, "Follower count")
	f.IntVar(&m.FollowingCount, "following", 0, "Following count")
	f.Float64Var(&m.EngagementScore, "engagement", 0, "Engagement score, usually in [0,1]")
	f.BoolVar(&verified, "verified", false, "Has at least one verified address")
	f.IntVar(&m.VerifiedAddressCount, "verified-count", 0, "Number of verified addresses")
	return cmd
}
