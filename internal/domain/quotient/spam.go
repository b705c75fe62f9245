package quotient

// SpamConfidence buckets the additive suspicion score.
type SpamConfidence string

// Confidence levels.
const (
	SpamNone   SpamConfidence = "none"
	SpamLow    SpamConfidence = "low"
	SpamMedium SpamConfidence = "medium"
	SpamHigh   SpamConfidence = "high"
)

// Spam thresholds, inclusive.
const (
	spamLowThreshold    = 2
	spamMediumThreshold = 4
	spamHighThreshold   = 6
)

// Spam reasons.
const (
	ReasonLowEngagement    = "Very low engagement score"
	ReasonExtremeFollowing = "Following many more accounts than followers"
	ReasonHighFollowing    = "High following-to-follower ratio"
	ReasonNoVerification   = "No verified addresses"
	ReasonVeryFewFollowers = "Very few followers"
	ReasonFewFollowers     = "Low follower count"
	ReasonMassFollowing    = "Mass following behavior"
)

// SpamVerdict is the output of DetectSpam.
type SpamVerdict struct {
	IsSpam     bool           `json:"isSpam"`
	Confidence SpamConfidence `json:"confidence"`
	Score      int            `json:"score"`
	Reasons    []string       `json:"reasons"`
}

// DetectSpam scores five independent signals and buckets the total.
// An engagement score of exactly 0 is read as "unknown" and not penalised.
func DetectSpam(m UserMetrics) SpamVerdict {
	m = sanitize(m)
	var (
		score   int
		reasons = make([]string, 0, 5)
	)
	add := func(points int, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if m.EngagementScore > 0 && m.EngagementScore < 0.1 {
		add(3, ReasonLowEngagement)
	}

	switch r := followingRatio(m); {
	case r > 20:
		add(3, ReasonExtremeFollowing)
	case r > 10:
		add(2, ReasonHighFollowing)
	}

	if m.VerifiedAddressCount == 0 {
		add(1, ReasonNoVerification)
	}

	switch {
	case m.FollowerCount < 3:
		add(2, ReasonVeryFewFollowers)
	case m.FollowerCount < 10:
		add(1, ReasonFewFollowers)
	}

	if m.FollowingCount > 500 && m.FollowerCount < 50 {
		add(2, ReasonMassFollowing)
	}

	v := SpamVerdict{Score: score, Confidence: spamConfidence(score), Reasons: reasons}
	v.IsSpam = v.Confidence != SpamNone
	if !v.IsSpam {
		v.Reasons = []string{}
	}
	return v
}

func spamConfidence(score int) SpamConfidence {
	switch {
	case score >= spamHighThreshold:
		return SpamHigh
	case score >= spamMediumThreshold:
		return SpamMedium
	case score >= spamLowThreshold:
		return SpamLow
	default:
		return SpamNone
	}
}
