package quotient

import "math"

// QuotientRank is the engine output. Every field other than CompositeScore
// is derived from the tier.
type QuotientRank struct {
	CompositeScore int    `json:"score"`
	Tier           Tier   `json:"tier"`
	RankLabel      string `json:"rank"`
	Percentile     int    `json:"percentile"`
	Description    string `json:"description"`
}

// Breakdown exposes the additive contributions behind a composite score.
type Breakdown struct {
	Engagement   float64 `json:"engagement"`
	Reach        int     `json:"reach"`
	Ratio        int     `json:"ratio"`
	Verification int     `json:"verification"`
}

// Raw returns the unrounded, unclamped sum.
func (b Breakdown) Raw() float64 {
	return b.Engagement + float64(b.Reach+b.Ratio+b.Verification)
}

// step is an inclusive threshold and the points it awards.
type step struct {
	threshold float64
	points    int
}

// Highest matching band only; the bands are not cumulative.
var (
	reachSteps = [...]step{
		{10000, 200},
		{5000, 150},
		{1000, 100},
		{500, 60},
		{100, 30},
		{50, 15},
	}
	ratioSteps = [...]step{
		{10, 100},
		{5, 70},
		{2, 40},
		{1, 20},
	}
)

func stepPoints(steps []step, v float64) int {
	for _, s := range steps {
		if v >= s.threshold {
			return s.points
		}
	}
	return 0
}

// Score returns the per-signal contributions for m. The engagement share is
// capped at MaxScore so the breakdown stays finite for any input.
func Score(m UserMetrics) Breakdown {
	m = sanitize(m)
	b := Breakdown{
		Engagement: min(m.EngagementScore*engagementWeight, MaxScore),
		Reach:      stepPoints(reachSteps[:], float64(m.FollowerCount)),
		Ratio:      stepPoints(ratioSteps[:], FollowerRatio(m)),
	}
	if m.HasVerifiedAddress != nil && *m.HasVerifiedAddress {
		b.Verification = verificationBonus
	}
	return b
}

// CompositeScore rounds half up and clamps into [MinScore, MaxScore].
func CompositeScore(m UserMetrics) int {
	return clampScore(Score(m).Raw())
}

func clampScore(raw float64) int {
	if raw >= MaxScore {
		return MaxScore
	}
	return max(int(math.Floor(raw+0.5)), MinScore)
}

// Rank runs the full engine for m.
func Rank(m UserMetrics) QuotientRank {
	return RankForScore(CompositeScore(m))
}

// RankForScore builds the tier-derived fields for an already computed score.
func RankForScore(score int) QuotientRank {
	t := TierForScore(score)
	return QuotientRank{
		CompositeScore: score,
		Tier:           t,
		RankLabel:      t.Label(),
		Percentile:     t.Percentile(),
		Description:    t.Description(),
	}
}
