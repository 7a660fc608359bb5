package extract

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector list, e.g.
// "svg[aria-label=Like], svg[aria-label=Unlike]".
type Selector struct {
	group cascadia.SelectorGroup
}

// Compile parses sel. A malformed selector matches nothing rather than
// failing, since selectors come from configuration tables.
func Compile(sel string) Selector {
	g, err := cascadia.ParseGroup(sel)
	if err != nil {
		return Selector{}
	}
	return Selector{group: g}
}

// Valid reports whether the selector parsed.
func (s Selector) Valid() bool {
	return len(s.group) > 0
}

// Match reports whether n matches s.
func (s Selector) Match(n *html.Node) bool {
	return n != nil && s.Valid() && s.group.Match(n)
}

// QueryAll returns every descendant of root matching s, in document order.
func (s Selector) QueryAll(root *html.Node) []*html.Node {
	if root == nil || !s.Valid() {
		return nil
	}
	return cascadia.QueryAll(root, s.group)
}

// Query returns the first descendant of root matching s, or nil.
func (s Selector) Query(root *html.Node) *html.Node {
	if root == nil || !s.Valid() {
		return nil
	}
	return cascadia.Query(root, s.group)
}

// Closest returns n or its nearest ancestor matching s, or nil.
func (s Selector) Closest(n *html.Node) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if s.Match(p) {
			return p
		}
	}
	return nil
}

// getAttr returns the value of an attribute on a node.
func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
