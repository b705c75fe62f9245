// Package types contains the response shapes shared by the service and the
// HTTP layer.
package types

import (
	"math"

	"github.com/okian/quotient/internal/domain/model"
	"github.com/okian/quotient/internal/domain/quotient"
)

// Entry represents a leaderboard entry.
type Entry struct {
	Rank     int           `json:"rank"`
	FID      uint64        `json:"fid"`
	Username string        `json:"username"`
	Score    int           `json:"score"`
	Tier     quotient.Tier `json:"tier"`
}

// PublicStats is the shareable summary of a profile.
type PublicStats struct {
	FID                uint64        `json:"fid"`
	DisplayName        string        `json:"displayName"`
	Username           string        `json:"username"`
	AvatarURL          string        `json:"avatarUrl"`
	NeynarScore        int           `json:"neynarScore"`
	InfluenceLevel     string        `json:"influenceLevel"`
	QuotientRank       string        `json:"quotientRank"`
	QuotientTier       quotient.Tier `json:"quotientTier"`
	QuotientScore      int           `json:"quotientScore"`
	Followers          int           `json:"followers"`
	Following          int           `json:"following"`
	PublicShareEnabled bool          `json:"publicShareEnabled"`
}

// ShareDisabled is returned instead of PublicStats when the account opted out.
type ShareDisabled struct {
	FID                uint64 `json:"fid"`
	PublicShareEnabled bool   `json:"publicShareEnabled"`
	Message            string `json:"message"`
}

// ShareDisabledMessage is the message carried by ShareDisabled.
const ShareDisabledMessage = "User has not enabled public share images"

// Assessment bundles every engine output for one set of metrics.
type Assessment struct {
	Metrics   quotient.UserMetrics  `json:"metrics"`
	Quotient  quotient.QuotientRank `json:"quotient"`
	Breakdown quotient.Breakdown    `json:"breakdown"`
	Ratio     float64               `json:"followerRatio"`
	Influence quotient.Influence    `json:"influence"`
	Spam      quotient.SpamVerdict  `json:"spam"`
}

// Assess runs the engine once for m.
func Assess(m quotient.UserMetrics) Assessment {
	return Assessment{
		Metrics:   m,
		Quotient:  quotient.Rank(m),
		Breakdown: quotient.Score(m),
		Ratio:     quotient.FollowerRatio(m),
		Influence: quotient.ClassifyInfluence(m),
		Spam:      quotient.DetectSpam(m),
	}
}

// ProfileReport is the full profile view.
type ProfileReport struct {
	Profile            model.Profile `json:"profile"`
	Assessment         Assessment    `json:"assessment"`
	PublicShareEnabled bool          `json:"publicShareEnabled"`
	Source             string        `json:"source"`
}

// NewPublicStats builds the public summary from a profile and its assessment.
func NewPublicStats(p *model.Profile, a *Assessment) PublicStats {
	return PublicStats{
		FID:                p.FID,
		DisplayName:        p.DisplayName,
		Username:           p.Username,
		AvatarURL:          p.AvatarURL,
		NeynarScore:        int(math.Round(p.Score() * 100)),
		InfluenceLevel:     a.Influence.Badge(),
		QuotientRank:       a.Quotient.RankLabel,
		QuotientTier:       a.Quotient.Tier,
		QuotientScore:      a.Quotient.CompositeScore,
		Followers:          p.FollowerCount,
		Following:          p.FollowingCount,
		PublicShareEnabled: true,
	}
}
