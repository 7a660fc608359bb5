// Package feed holds the data model shared by the extractor, the live
// annotation service and the crawl pipeline: extracted posts, profile
// headers, threshold bands and the engagement heuristics computed on them.
package feed

import (
	"strings"
	"time"
)

// PostRecord is one post as read from the rendered feed. It is created the
// first time a post is observed and never mutated afterwards.
type PostRecord struct {
	ID           string `json:"id"`
	PublishedAt  string `json:"published_at"`
	Content      string `json:"content"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	RepostCount  int    `json:"repost_count"`
	ShareCount   int    `json:"share_count"`
}

// Published parses PublishedAt. The second return is false when the stored
// string is not a recognisable timestamp.
func (p PostRecord) Published() (time.Time, bool) {
	return ParseTime(p.PublishedAt)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses the datetime formats emitted by the host page.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Profile is the account header placed at the top of a collection report.
type Profile struct {
	Handle    string `json:"handle"`
	Followers string `json:"followers"`
	Bio       string `json:"bio"`
}

// UnknownHandle is used when no text fragment looks like an account handle.
const UnknownHandle = "unknown_id"
