package feed

import (
	"math"
	"strconv"
	"time"
)

// Virality window and rate. A post qualifies as a viral candidate only while
// it is young enough that its like rate still forecasts growth.
const (
	ViralLikeCap     = 100
	ViralMinAge      = 3 * time.Minute
	ViralMaxAge      = 60 * time.Minute
	ViralRatePerHour = 60.0

	growthMinAge = 30 * time.Minute
	growthMaxAge = 24 * time.Hour
)

// IsViralCandidate reports whether likes accumulated since published make
// the post an early "going viral" candidate at time now.
func IsViralCandidate(likes int, published, now time.Time) bool {
	if likes >= ViralLikeCap {
		return false
	}
	age := now.Sub(published)
	if age < ViralMinAge || age > ViralMaxAge {
		return false
	}
	return float64(likes)/age.Hours() >= ViralRatePerHour
}

// GrowthKind classifies what the growth indicator shows.
type GrowthKind int

const (
	GrowthNone    GrowthKind = iota // too young or no likes
	GrowthRate                      // numeric likes per hour
	GrowthOverDay                   // older than a day, rate saturated
)

// Growth is the hourly like-rate indicator shown next to a badge.
type Growth struct {
	Kind    GrowthKind
	PerHour int
}

// HourlyGrowth computes the growth indicator for a post.
func HourlyGrowth(likes int, published, now time.Time) Growth {
	if likes <= 0 {
		return Growth{}
	}
	age := now.Sub(published)
	if age < growthMinAge {
		return Growth{}
	}
	if age > growthMaxAge {
		return Growth{Kind: GrowthOverDay}
	}
	rate := int(math.Round(float64(likes) / age.Hours()))
	if rate == 0 {
		return Growth{}
	}
	return Growth{Kind: GrowthRate, PerHour: rate}
}

// String renders the indicator ("+12/h", "+>1d"); empty when nothing shows.
func (g Growth) String() string {
	switch g.Kind {
	case GrowthRate:
		return "+" + strconv.Itoa(g.PerHour) + "/h"
	case GrowthOverDay:
		return "+>1d"
	default:
		return ""
	}
}
