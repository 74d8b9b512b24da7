package service

import "math"

// Tier is one of the three visual bands of the progress bar. From and
// To are the gradient endpoints for clients that render color.
type Tier struct {
	Name string
	From string
	To   string
}

var (
	// TierComplete: everything done.
	TierComplete = Tier{Name: "complete", From: "#43e97b", To: "#38f9d7"}
	// TierHalfway: at least half done.
	TierHalfway = Tier{Name: "halfway", From: "#4facfe", To: "#00f2fe"}
	// TierStarting: under half done.
	TierStarting = Tier{Name: "starting", From: "#667eea", To: "#764ba2"}
)

// Progress maps completion counts to a fill percentage and a tier.
// The percentage rounds half away from zero (62.5% becomes 63%), and
// exact boundary values belong to the higher tier: 100 is complete,
// 50 is halfway. An empty list is 0%. Pure and idempotent.
func Progress(total, completed int) (int, Tier) {
	percent := 0
	if total > 0 {
		percent = int(math.Round(float64(completed) / float64(total) * 100))
	}

	switch {
	case percent == 100:
		return percent, TierComplete
	case percent >= 50:
		return percent, TierHalfway
	default:
		return percent, TierStarting
	}
}
