package extract

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/feedpulse/feed"
)

var (
	handleRe   = regexp.MustCompile(`^[a-zA-Z0-9._]*[a-zA-Z][a-zA-Z0-9._]*$`)
	followerRe = regexp.MustCompile(`^[\d,.]+\s*(萬|[kKmM])?`)
)

// Profile scans the short text fragments of a profile page for the account
// handle, the bio and the follower count. Each field takes the first
// plausible fragment in document order; a labelled follower fragment is
// preferred over a bare number.
func (e *Extractor) Profile(doc *html.Node) feed.Profile {
	p := feed.Profile{Handle: feed.UnknownHandle}
	var numeric string
	handleFound, bioFound, followersFound := false, false, false

	for _, n := range e.profile.QueryAll(doc) {
		text := strings.TrimSpace(textContent(n))
		if text == "" {
			continue
		}
		if !handleFound && handleRe.MatchString(text) {
			p.Handle = text
			handleFound = true
		}
		if !bioFound && strings.Contains(text, "\n") {
			p.Bio = text
			bioFound = true
		}
		if !followersFound && e.isFollowerLabel(text) {
			p.Followers = text
			followersFound = true
		}
		if numeric == "" && followerRe.MatchString(text) {
			numeric = text
		}
	}
	if !followersFound {
		p.Followers = numeric
	}
	return p
}

func (e *Extractor) isFollowerLabel(text string) bool {
	lower := strings.ToLower(text)
	for _, l := range e.rules.FollowerLabels {
		if strings.Contains(lower, strings.ToLower(l)) {
			return true
		}
	}
	return false
}

// IsProfileURL reports whether u is a Threads profile page (a single path
// segment, not a post permalink). Collection is only offered there.
func IsProfileURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	if host != "threads.com" && host != "threads.net" {
		return false
	}
	path := strings.Trim(parsed.Path, "/")
	if path == "" || strings.Contains(path, "/") {
		return false
	}
	return !strings.Contains(parsed.Path, "/post/")
}
