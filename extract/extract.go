// Package extract reads engagement data out of rendered feed markup.
//
// Extraction is heuristic: it follows the host page's conventions described
// by Rules and never fails on malformed input. A missing signal degrades to
// its zero value; the only hard requirement for a post is a publish
// timestamp.
package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/feedpulse/feed"
)

// Extractor applies a compiled Rules set. It is stateless after
// construction and safe for concurrent use.
type Extractor struct {
	rules     Rules
	post      Selector
	time      Selector
	permalink Selector
	caption   Selector
	control   Selector
	count     Selector
	profile   Selector
	root      labelSet
	metrics   map[Metric][]labelSet
}

// labelSet matches icons whose label is any of a fixed set of strings,
// compared case-insensitively.
type labelSet map[string]struct{}

func newLabelSet(labels ...string) labelSet {
	s := make(labelSet, len(labels))
	for _, l := range labels {
		s[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	return s
}

func (s labelSet) has(label string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// New compiles rules. Empty fields fall back to DefaultRules.
func New(rules Rules) *Extractor {
	rules = rules.Merge(DefaultRules())
	e := &Extractor{
		rules:     rules,
		post:      Compile(rules.PostSelector),
		time:      Compile(rules.TimeSelector),
		permalink: Compile(rules.PermalinkSelector),
		caption:   Compile(rules.CaptionSelector),
		control:   Compile(rules.ControlSelector),
		count:     Compile(rules.CountSelector),
		profile:   Compile(rules.ProfileTextSelector),
		root:      newLabelSet(rules.RootLabels...),
		metrics:   make(map[Metric][]labelSet, len(rules.Metrics)),
	}
	for _, loc := range rules.Metrics {
		for _, label := range loc.Labels {
			variants := make([]string, 0, len(rules.LabelVariants))
			for _, v := range rules.LabelVariants {
				variants = append(variants, strings.ReplaceAll(v, "%s", label))
			}
			e.metrics[loc.Metric] = append(e.metrics[loc.Metric], newLabelSet(variants...))
		}
	}
	return e
}

// Rules returns the effective rules.
func (e *Extractor) Rules() Rules { return e.rules }

// Posts returns every post container under doc, in document order.
func (e *Extractor) Posts(doc *html.Node) []*html.Node {
	return e.post.QueryAll(doc)
}

// IsPost reports whether n itself is a post container.
func (e *Extractor) IsPost(n *html.Node) bool {
	return n != nil && e.post.Match(n)
}

// IsRootPost reports whether the post exposes a repost/share action.
// Replies nested in the same container type do not.
func (e *Extractor) IsRootPost(post *html.Node) bool {
	return e.findIcon(post, e.root) != nil
}

// Extract reads a PostRecord from a root post container. It returns false
// when the element is not a root post or carries no publish timestamp.
func (e *Extractor) Extract(post *html.Node) (feed.PostRecord, bool) {
	if post == nil || !e.IsRootPost(post) {
		return feed.PostRecord{}, false
	}
	ts := e.timestamp(post)
	if ts == "" {
		return feed.PostRecord{}, false
	}

	return feed.PostRecord{
		ID:           e.identity(post, ts),
		PublishedAt:  ts,
		Content:      e.content(post),
		LikeCount:    e.Count(post, MetricLike),
		CommentCount: e.Count(post, MetricComment),
		RepostCount:  e.Count(post, MetricRepost),
		ShareCount:   e.Count(post, MetricShare),
	}, true
}

func (e *Extractor) timestamp(post *html.Node) string {
	t := e.time.Query(post)
	if t == nil {
		return ""
	}
	return strings.TrimSpace(getAttr(t, e.rules.TimeAttr))
}

// identity prefers the permalink so re-extraction of the same post always
// yields the same key; the raw timestamp is the fallback.
func (e *Extractor) identity(post *html.Node, ts string) string {
	if a := e.permalink.Query(post); a != nil {
		if href := strings.TrimSpace(getAttr(a, "href")); href != "" {
			return href
		}
	}
	return ts
}

func (e *Extractor) content(post *html.Node) string {
	box := e.caption.Query(post)
	if box == nil {
		return ""
	}
	text := cleanText(textContent(box))
	for _, label := range e.rules.TranslateLabels {
		if strings.HasSuffix(text, "\n"+label) {
			text = strings.TrimSuffix(text, "\n"+label)
			break
		}
	}
	for _, label := range e.rules.TranslateLabels {
		if strings.HasSuffix(text, label) {
			text = strings.TrimSuffix(text, label)
			break
		}
	}
	return strings.TrimRight(text, " \t\r\n")
}

// Count reads one engagement counter. Labels are tried in table order; the
// first located icon decides, and a control without a parseable number
// yields 0.
func (e *Extractor) Count(post *html.Node, m Metric) int {
	for _, set := range e.metrics[m] {
		icon := e.findIcon(post, set)
		if icon == nil {
			continue
		}
		ctrl := e.control.Closest(icon)
		if ctrl == nil {
			return 0
		}
		span := e.count.Query(ctrl)
		if span == nil {
			return 0
		}
		return ParseCount(textContent(span))
	}
	return 0
}

// findIcon returns the first icon under root, in document order, whose
// label belongs to set.
func (e *Extractor) findIcon(root *html.Node, set labelSet) *html.Node {
	if root == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && strings.EqualFold(c.Data, e.rules.IconTag) {
				if label, ok := lookupAttr(c, e.rules.IconLabelAttr); ok && set.has(label) {
					found = c
					return true
				}
			}
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}
