package quotient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tier is one of six ordered buckets summarising the composite score.
type Tier string

// Tiers, highest first.
const (
	TierS Tier = "S"
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
	TierF Tier = "F"
)

// tierBand binds a tier to its inclusive lower bound and display fields.
type tierBand struct {
	tier        Tier
	minScore    int
	label       string
	percentile  int
	description string
}

// tierTable is ordered by descending lower bound; first match wins.
var tierTable = [...]tierBand{
	{TierS, 800, "S-Tier Elite", 99, "Top 1% - Elite Farcaster influencer"},
	{TierA, 600, "A-Tier Power User", 95, "Top 5% - Highly influential member"},
	{TierB, 400, "B-Tier Active", 80, "Top 20% - Active community member"},
	{TierC, 200, "C-Tier Engaged", 60, "Top 40% - Engaged participant"},
	{TierD, 100, "D-Tier Growing", 40, "Growing account with potential"},
	{TierF, MinScore, "F-Tier Starter", 20, "New or inactive account"},
}

// Tiers returns all tiers from highest to lowest.
func Tiers() []Tier {
	out := make([]Tier, len(tierTable))
	for i, b := range tierTable {
		out[i] = b.tier
	}
	return out
}

// TierForScore maps a composite score to its tier. It is total: scores above
// MaxScore land in S, negative scores in F.
func TierForScore(score int) Tier {
	for _, b := range tierTable {
		if score >= b.minScore {
			return b.tier
		}
	}
	return TierF
}

func (t Tier) band() (tierBand, bool) {
	for _, b := range tierTable {
		if b.tier == t {
			return b, true
		}
	}
	return tierBand{}, false
}

// Label returns the human-readable rank label, e.g. "A-Tier Power User".
func (t Tier) Label() string {
	b, _ := t.band()
	return b.label
}

// Percentile returns the approximate population percentile of the tier.
func (t Tier) Percentile() int {
	b, _ := t.band()
	return b.percentile
}

// Description returns the one-line tier description.
func (t Tier) Description() string {
	b, _ := t.band()
	return b.description
}

// MinScore returns the inclusive lower bound of the tier's score band.
func (t Tier) MinScore() int {
	b, _ := t.band()
	return b.minScore
}

// Ordinal orders tiers: F is 0, S is 5. Unknown tiers are -1.
func (t Tier) Ordinal() int {
	for i, b := range tierTable {
		if b.tier == t {
			return len(tierTable) - 1 - i
		}
	}
	return -1
}

// Valid reports whether t is one of the six known tiers.
func (t Tier) Valid() bool { return t.Ordinal() >= 0 }

func (t Tier) String() string { return string(t) }

// ParseTier parses a tier letter, case-insensitively.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// UnmarshalJSON rejects unknown tier letters.
func (t *Tier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
