package feed

import (
	"fmt"
	"sort"
	"time"
)

// Infinity is the max of the last band: an effectively unbounded like count.
const Infinity = 999999

// ThresholdBand maps an inclusive like-count range to a display colour.
type ThresholdBand struct {
	ID    string `json:"id" yaml:"id"`
	Min   int    `json:"min" yaml:"min"`
	Max   int    `json:"max" yaml:"max"`
	Color string `json:"color" yaml:"color"`
}

// Contains reports whether likes falls inside [Min, Max].
func (b ThresholdBand) Contains(likes int) bool {
	return likes >= b.Min && likes <= b.Max
}

// DefaultBands returns the stock four-band configuration.
func DefaultBands() []ThresholdBand {
	return []ThresholdBand{
		{ID: "green", Min: 100, Max: 299, Color: "#22C55E"},
		{ID: "yellow", Min: 300, Max: 699, Color: "#EAB308"},
		{ID: "orange", Min: 700, Max: 999, Color: "#F97316"},
		{ID: "red", Min: 1000, Max: Infinity, Color: "#EF4444"},
	}
}

// Classify returns the first band whose range contains likes.
func Classify(bands []ThresholdBand, likes int) (ThresholdBand, bool) {
	for _, b := range bands {
		if b.Contains(likes) {
			return b, true
		}
	}
	return ThresholdBand{}, false
}

// NormalizeBands returns a copy sorted by Min with contiguous ranges:
// every band ends one below the next band's Min and the last ends at Infinity.
func NormalizeBands(bands []ThresholdBand) []ThresholdBand {
	out := make([]ThresholdBand, len(bands))
	copy(out, bands)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min < out[j].Min })
	for i := range out {
		if i < len(out)-1 {
			out[i].Max = out[i+1].Min - 1
		} else {
			out[i].Max = Infinity
		}
	}
	return out
}

// AddBand inserts a band starting at min and renormalises. The id is derived
// from now so repeated additions stay unique.
func AddBand(bands []ThresholdBand, min int, color string, now time.Time) ([]ThresholdBand, error) {
	if min <= 0 {
		return nil, fmt.Errorf("feed: band min must be positive, got %d", min)
	}
	for _, b := range bands {
		if b.Min == min {
			return nil, fmt.Errorf("feed: a band already starts at %d", min)
		}
	}
	nb := ThresholdBand{
		ID:    fmt.Sprintf("threshold_%d", now.UnixMilli()),
		Min:   min,
		Max:   min + 99999,
		Color: color,
	}
	return NormalizeBands(append(append([]ThresholdBand(nil), bands...), nb)), nil
}

// RemoveBand drops the band with the given id and renormalises.
func RemoveBand(bands []ThresholdBand, id string) []ThresholdBand {
	kept := make([]ThresholdBand, 0, len(bands))
	for _, b := range bands {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	return NormalizeBands(kept)
}

var darkPalette = map[string]string{
	"#22C55E": "#34D399",
	"#EAB308": "#FCD34D",
	"#F97316": "#FB923C",
	"#EF4444": "#F87171",
}

// ThemeColor brightens the stock colours on dark backgrounds. Custom
// colours pass through unchanged.
func ThemeColor(color string, dark bool) string {
	if !dark {
		return color
	}
	if c, ok := darkPalette[color]; ok {
		return c
	}
	return color
}
