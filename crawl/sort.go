package crawl

import (
	"sort"

	"github.com/hazyhaar/feedpulse/feed"
)

// Filter returns the records meeting every minimum in cfg, in input order.
func Filter(recs []feed.PostRecord, cfg Config) []feed.PostRecord {
	out := make([]feed.PostRecord, 0, len(recs))
	for _, r := range recs {
		if cfg.Keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortNewestFirst orders recs by publish time descending, in place.
// Ties break on ID so the order is deterministic; unparseable timestamps
// sort as the oldest.
func SortNewestFirst(recs []feed.PostRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, oki := recs[i].Published()
		tj, okj := recs[j].Published()
		switch {
		case oki && okj && !ti.Equal(tj):
			return ti.After(tj)
		case oki != okj:
			return oki
		default:
			return recs[i].ID > recs[j].ID
		}
	})
}
