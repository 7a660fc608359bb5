package annotate

import (
	"context"

	"golang.org/x/net/html"
)

// Element is one post container currently rendered in the document.
type Element struct {
	// Key identifies the live element across calls. It is stable for as
	// long as the element stays attached.
	Key string
	// Node is a parsed copy of the element, without any injected badge.
	Node *html.Node
	// Processed is the per-element idempotency marker.
	Processed bool
}

// Document is the live page as seen by the annotation service.
type Document interface {
	// Elements lists every post container currently rendered.
	Elements(ctx context.Context) ([]Element, error)
	// Annotate replaces any badge on the element with b (nil removes it)
	// and sets the processed marker.
	Annotate(ctx context.Context, key string, b *Badge) error
	// ClearAnnotations removes every badge and processed marker.
	ClearAnnotations(ctx context.Context) error
	// Observe starts delivering mutation notifications to notify until the
	// returned disconnect function is called.
	Observe(ctx context.Context, notify func()) (disconnect func(), err error)
}

// Themer is implemented by documents that can report a dark colour scheme.
type Themer interface {
	DarkMode(ctx context.Context) bool
}
