package extract

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseDocument parses a full page serialisation.
func ParseDocument(raw []byte) (*html.Node, error) {
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("extract: parse document: %w", err)
	}
	return doc, nil
}

// ParseElement parses the outer HTML of a single element and returns that
// element, detached from any document.
func ParseElement(outer string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(outer), ctx)
	if err != nil {
		return nil, fmt.Errorf("extract: parse element: %w", err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("extract: parse element: no element in fragment")
}
