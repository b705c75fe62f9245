package quotient

// Influence is a four-level label driven by the follower ratio alone.
type Influence string

// Influence levels, highest first.
const (
	InfluenceInfluencer Influence = "Influencer"
	InfluenceNotable    Influence = "Notable"
	InfluenceGrowing    Influence = "Growing"
	InfluenceEmerging   Influence = "Emerging"
)

var influenceSteps = [...]struct {
	threshold float64
	level     Influence
	emoji     string
}{
	{10, InfluenceInfluencer, "🔥"},
	{3, InfluenceNotable, "⭐"},
	{1, InfluenceGrowing, "📈"},
	{0, InfluenceEmerging, "🌱"},
}

// ClassifyInfluence maps the follower ratio to an influence level.
func ClassifyInfluence(m UserMetrics) Influence {
	ratio := FollowerRatio(m)
	for _, s := range influenceSteps {
		if ratio >= s.threshold {
			return s.level
		}
	}
	return InfluenceEmerging
}

// Badge returns the level prefixed with its emoji, e.g. "🔥 Influencer".
func (i Influence) Badge() string {
	for _, s := range influenceSteps {
		if s.level == i {
			return s.emoji + " " + string(i)
		}
	}
	return string(i)
}
