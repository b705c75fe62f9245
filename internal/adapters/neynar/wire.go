package neynar

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/okian/quotient/internal/domain/model"
)

// user is the subset of the Neynar v2 user object the service reads.
type user struct {
	FID            uint64 `json:"fid"`
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	PfpURL         string `json:"pfp_url"`
	CustodyAddress string `json:"custody_address"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	PowerBadge     bool   `json:"power_badge"`
	Profile        struct {
		Bio struct {
			Text string `json:"text"`
		} `json:"bio"`
	} `json:"profile"`
	Experimental struct {
		NeynarUserScore *float64 `json:"neynar_user_score"`
	} `json:"experimental"`
	NeynarUserScore   *float64        `json:"neynar_user_score"`
	Verifications     []string        `json:"verifications"`
	VerifiedAddresses json.RawMessage `json:"verified_addresses"`
}

type bulkResponse struct {
	Users []user `json:"users"`
}

type usernameResponse struct {
	User *user `json:"user"`
}

type channel struct {
	ID            string `json:"id"`
	ChannelID     string `json:"channel_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	Image         string `json:"image"`
	FollowerCount int    `json:"follower_count"`
	URL           string `json:"url"`
}

// channelsResponse accepts both the flat and the result-wrapped shapes.
type channelsResponse struct {
	Channels []channel `json:"channels"`
	Result   struct {
		Channels []channel `json:"channels"`
	} `json:"result"`
}

// score prefers a non-zero experimental field, then the top-level one. A zero
// experimental score still beats no score at all.
func (u *user) score() *float64 {
	exp, top := u.Experimental.NeynarUserScore, u.NeynarUserScore
	switch {
	case exp != nil && *exp != 0:
		return exp
	case top != nil:
		return top
	}
	return exp
}

// addresses merges verifications and verified_addresses, which is either
// {eth_addresses, sol_addresses} or a list of {address}. Order is preserved,
// duplicates are dropped case-insensitively. A verified custody address still
// counts as a verification.
func (u *user) addresses() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(u.Verifications))
	add := func(a string) {
		a = strings.TrimSpace(a)
		if a == "" {
			return
		}
		k := strings.ToLower(a)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}

	for _, a := range u.Verifications {
		add(a)
	}

	if len(u.VerifiedAddresses) == 0 {
		return out
	}
	var grouped struct {
		Eth []string `json:"eth_addresses"`
		Sol []string `json:"sol_addresses"`
	}
	if err := json.Unmarshal(u.VerifiedAddresses, &grouped); err == nil {
		for _, a := range grouped.Eth {
			add(a)
		}
		for _, a := range grouped.Sol {
			add(a)
		}
		return out
	}
	var listed []struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(u.VerifiedAddresses, &listed); err == nil {
		for _, v := range listed {
			add(v.Address)
		}
	}
	return out
}

func (u *user) toProfile(at time.Time) model.Profile {
	return model.Profile{
		FID:               u.FID,
		Username:          u.Username,
		DisplayName:       u.DisplayName,
		AvatarURL:         u.PfpURL,
		Bio:               u.Profile.Bio.Text,
		FollowerCount:     u.FollowerCount,
		FollowingCount:    u.FollowingCount,
		NeynarScore:       u.score(),
		VerifiedAddresses: u.addresses(),
		CustodyAddress:    u.CustodyAddress,
		PowerBadge:        u.PowerBadge,
		FetchedAt:         at,
	}
}

func (c *channel) toModel() model.Channel {
	id := c.ID
	if id == "" {
		id = c.ChannelID
	}
	img := c.ImageURL
	if img == "" {
		img = c.Image
	}
	ch := model.Channel{
		ID:            id,
		Name:          c.Name,
		Description:   c.Description,
		ImageURL:      img,
		FollowerCount: c.FollowerCount,
		URL:           c.URL,
	}
	ch.Normalize()
	return ch
}
