package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/okian/quotient/internal/domain/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeAssessment(w io.Writer, a types.Assessment) {
	fmt.Fprintf(w, "Score:      %d / 1000\n", a.Quotient.CompositeScore)
	fmt.Fprintf(w, "Tier:       %s (%s, top %d%%)\n", a.Quotient.Tier, a.Quotient.RankLabel, a.Quotient.Percentile)
	fmt.Fprintf(w, "            %s\n", a.Quotient.Description)
	fmt.Fprintf(w, "Breakdown:  engagement %.1f, reach %d, ratio %d, verification %d\n",
		a.Breakdown.Engagement, a.Breakdown.Reach, a.Breakdown.Ratio, a.Breakdown.Verification)
	fmt.Fprintf(w, "Ratio:      %.2f\n", a.Ratio)
	fmt.Fprintf(w, "Influence:  %s\n", a.Influence.Badge())
	if a.Spam.IsSpam {
		fmt.Fprintf(w, "Spam:       yes (%s, score %d)\n", a.Spam.Confidence, a.Spam.Score)
	} else {
		fmt.Fprintf(w, "Spam:       no (%s, score %d)\n", a.Spam.Confidence, a.Spam.Score)
	}
	for _, r := range a.Spam.Reasons {
		fmt.Fprintf(w, "  - %s\n", r)
	}
}

func writeProfile(w io.Writer, r types.ProfileReport) {
	p := r.Profile
	name := p.DisplayName
	if name == "" {
		name = p.Username
	}
	fmt.Fprintf(w, "%s (@%s, fid %d)\n", name, p.Username, p.FID)
	if p.Bio != "" {
		fmt.Fprintf(w, "%s\n", strings.TrimSpace(p.Bio))
	}
	fmt.Fprintf(w, "Followers:  %d  Following: %d\n", p.FollowerCount, p.FollowingCount)
	fmt.Fprintf(w, "Share:      %t  Source: %s\n\n", r.PublicShareEnabled, r.Source)
	writeAssessment(w, r.Assessment)
}

func writeEntries(w io.Writer, entries []types.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tFID\tUSERNAME\tSCORE\tTIER")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", e.Rank, e.FID, e.Username, e.Score, e.Tier)
	}
	return tw.Flush()
}
