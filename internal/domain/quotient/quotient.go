// Package quotient implements the Quotient Ranking Engine: a pure mapping
// from a Farcaster account's social-graph metrics to a composite score, a
// tier, and the companion influence and spam classifications.
//
// Every function in this package is deterministic, allocation-light and
// free of shared state, so it is safe to call from any number of goroutines.
// Out-of-range inputs are clamped or defaulted, never rejected.
package quotient

import "math"

// Scoring constants.
const (
	// MaxScore is the ceiling of the composite score.
	MaxScore = 1000
	// MinScore is the floor of the composite score.
	MinScore = 0

	engagementWeight  = 400
	verificationBonus = 50
)

// UserMetrics is the engine input, sourced from the social-graph provider.
type UserMetrics struct {
	FollowerCount  int `json:"followerCount"`
	FollowingCount int `json:"followingCount"`

	// EngagementScore is the provider's quality signal, observed in [0,1].
	// Absent means 0.
	EngagementScore float64 `json:"engagementScore"`

	// HasVerifiedAddress is nil when the caller has no verification signal;
	// only a non-nil true earns the verification bonus.
	HasVerifiedAddress *bool `json:"hasVerifiedAddress,omitempty"`

	// VerifiedAddressCount feeds the spam heuristic.
	VerifiedAddressCount int `json:"verifiedAddressCount"`
}

// Verified is a convenience for building UserMetrics literals.
func Verified(v bool) *bool { return &v }

// sanitize applies the permissive input policy: negative counts and a
// negative or NaN engagement score become 0. Engagement above 1 is kept; the
// composite clamp absorbs it.
func sanitize(m UserMetrics) UserMetrics {
	if m.FollowerCount < 0 {
		m.FollowerCount = 0
	}
	if m.FollowingCount < 0 {
		m.FollowingCount = 0
	}
	if m.VerifiedAddressCount < 0 {
		m.VerifiedAddressCount = 0
	}
	if math.IsNaN(m.EngagementScore) || m.EngagementScore < 0 {
		m.EngagementScore = 0
	}
	return m
}

// FollowerRatio returns followers divided by max(following, 1).
func FollowerRatio(m UserMetrics) float64 {
	m = sanitize(m)
	return float64(m.FollowerCount) / float64(max(m.FollowingCount, 1))
}

// followingRatio is the inverse ratio used by the spam heuristic.
func followingRatio(m UserMetrics) float64 {
	return float64(m.FollowingCount) / float64(max(m.FollowerCount, 1))
}
