// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/quotient/internal/domain/quotient"
)

// channelURLBase is where a channel without an explicit URL is linked.
const channelURLBase = "https://warpcast.com/~/channel/"

// Profile is a Farcaster account as returned by the social-graph provider.
type Profile struct {
	FID            uint64 `json:"fid"`
	Username       string `json:"username"`
	DisplayName    string `json:"displayName"`
	AvatarURL      string `json:"avatarUrl"`
	Bio            string `json:"bio,omitempty"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`

	// NeynarScore is nil when the provider did not report one.
	NeynarScore *float64 `json:"neynarScore,omitempty"`

	VerifiedAddresses []string `json:"verifiedAddresses"`
	CustodyAddress    string   `json:"custodyAddress,omitempty"`
	PowerBadge        bool     `json:"powerBadge"`

	FetchedAt time.Time `json:"fetchedAt"`
}

// Score returns the provider score, or 0 when absent.
func (p *Profile) Score() float64 {
	if p.NeynarScore == nil {
		return 0
	}
	return *p.NeynarScore
}

// Metrics converts the profile into ranking engine input. A provider profile
// always carries the verification signal, so HasVerifiedAddress is set.
func (p *Profile) Metrics() quotient.UserMetrics {
	return quotient.UserMetrics{
		FollowerCount:        p.FollowerCount,
		FollowingCount:       p.FollowingCount,
		EngagementScore:      p.Score(),
		HasVerifiedAddress:   quotient.Verified(len(p.VerifiedAddresses) > 0),
		VerifiedAddressCount: len(p.VerifiedAddresses),
	}
}

// Key returns the FID as a decimal string.
func (p *Profile) Key() string { return strconv.FormatUint(p.FID, 10) }

// Channel is a Farcaster channel the account belongs to.
type Channel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"imageUrl,omitempty"`
	FollowerCount int    `json:"followerCount"`
	URL           string `json:"url"`
}

// Normalize fills derived defaults: name, description and URL fall back to
// values built from the channel id.
func (c *Channel) Normalize() {
	if c.Name == "" {
		c.Name = c.ID
	}
	if c.Description == "" {
		c.Description = "Farcaster channel: /" + c.ID
	}
	if c.URL == "" {
		c.URL = channelURLBase + c.ID
	}
}

// RefreshRequest asks the worker pool to re-fetch and re-rank a profile.
type RefreshRequest struct {
	RequestID  string
	FID        uint64
	EnqueuedAt time.Time
}

// NewRefreshRequest builds a request with a fresh id.
func NewRefreshRequest(fid uint64, now time.Time) RefreshRequest {
	return RefreshRequest{
		RequestID:  uuid.NewString(),
		FID:        fid,
		EnqueuedAt: now,
	}
}
