package annotate

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/feedpulse/feed"
)

// ViralLabel marks a viral candidate badge.
const ViralLabel = "🚀"

// Badge is the marker rendered on a classified post.
type Badge struct {
	Color  string `json:"color"`
	Label  string `json:"label,omitempty"`
	Growth string `json:"growth,omitempty"`
	Viral  bool   `json:"viral"`
	BandID string `json:"band_id,omitempty"`
}

// Assess classifies rec at time now. It returns nil when the post matches
// no band and is not a viral candidate. A viral candidate takes visual
// precedence over its band colour.
func Assess(rec feed.PostRecord, bands []feed.ThresholdBand, now time.Time, dark bool) *Badge {
	band, inBand := feed.Classify(bands, rec.LikeCount)

	published, hasTime := rec.Published()
	viral := hasTime && feed.IsViralCandidate(rec.LikeCount, published, now)

	if !inBand && !viral {
		return nil
	}

	b := &Badge{}
	if hasTime {
		b.Growth = feed.HourlyGrowth(rec.LikeCount, published, now).String()
	}
	if inBand {
		b.BandID = band.ID
	}
	if viral {
		b.Viral = true
		b.Label = ViralLabel
		b.Color = feed.ThemeColor("#22C55E", dark)
	} else {
		b.Color = feed.ThemeColor(band.Color, dark)
	}
	return b
}

var colorRe = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]{3,20}|rgba?\([0-9., ]+\))$`)

var badgePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^(feedpulse-[a-z-]+\s?)+$`)).OnElements("div")
	p.AllowStyles("background").Matching(colorRe).OnElements("div")
	return p
}()

// HTML renders the badge body. Colours come from user configuration, so
// the markup is sanitised before it reaches the page.
func (b Badge) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<div class="feedpulse-badge-body`)
	if b.Viral {
		sb.WriteString(` feedpulse-viral`)
	}
	sb.WriteString(`" style="background: `)
	sb.WriteString(html.EscapeString(b.Color))
	sb.WriteString(`">`)
	sb.WriteString(`<div class="feedpulse-label">`)
	sb.WriteString(html.EscapeString(b.Label))
	sb.WriteString(`</div>`)
	if b.Growth != "" {
		sb.WriteString(`<div class="feedpulse-growth">`)
		sb.WriteString(html.EscapeString(b.Growth))
		sb.WriteString(`</div>`)
	}
	sb.WriteString(`</div>`)
	return badgePolicy.Sanitize(sb.String())
}
