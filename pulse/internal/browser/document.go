package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/net/html"

	"github.com/hazyhaar/feedpulse/annotate"
	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/extract"
)

var (
	_ annotate.Document = (*Document)(nil)
	_ annotate.Themer   = (*Document)(nil)
	_ crawl.Document    = (*Document)(nil)
)

//go:embed observe.js
var observeJS string

//go:embed badge.css
var badgeCSS string

const bindingName = "__feedpulse_binding"

// Document exposes a tab to the annotation service and the crawl pipeline.
// Post containers are keyed with a data-fp-key attribute; the processed
// marker is the data-fp-processed attribute.
type Document struct {
	tab          *Tab
	postSelector string
	logger       *slog.Logger

	bindOnce sync.Once
	bindErr  error
}

// NewDocument wraps tab. postSelector is the CSS selector of post containers.
func NewDocument(tab *Tab, postSelector string, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	return &Document{tab: tab, postSelector: postSelector, logger: logger}
}

const elementsJS = `(sel) => {
	const out = [];
	let seq = window.__feedpulseSeq || 0;
	for (const el of document.querySelectorAll(sel)) {
		let key = el.getAttribute('data-fp-key');
		if (!key) {
			key = 'fp-' + (++seq);
			el.setAttribute('data-fp-key', key);
		}
		const processed = el.hasAttribute('data-fp-processed');
		let markup = '';
		if (!processed) {
			const clone = el.cloneNode(true);
			clone.querySelectorAll('.feedpulse-badge').forEach((b) => b.remove());
			markup = clone.outerHTML;
		}
		out.push({ key, processed, html: markup });
	}
	window.__feedpulseSeq = seq;
	return JSON.stringify(out);
}`

type rawElement struct {
	Key       string `json:"key"`
	Processed bool   `json:"processed"`
	HTML      string `json:"html"`
}

// Elements lists every post container. Processed elements carry no Node.
func (d *Document) Elements(ctx context.Context) ([]annotate.Element, error) {
	res, err := d.tab.Page.Context(ctx).Eval(elementsJS, d.postSelector)
	if err != nil {
		return nil, fmt.Errorf("browser: list elements: %w", err)
	}

	var raws []rawElement
	if err := json.Unmarshal([]byte(res.Value.Str()), &raws); err != nil {
		return nil, fmt.Errorf("browser: decode elements: %w", err)
	}

	out := make([]annotate.Element, 0, len(raws))
	for _, r := range raws {
		el := annotate.Element{Key: r.Key, Processed: r.Processed}
		if !r.Processed {
			n, err := extract.ParseElement(r.HTML)
			if err != nil {
				d.logger.Debug("browser: unparseable element", "key", r.Key, "error", err)
				continue
			}
			el.Node = n
		}
		out = append(out, el)
	}
	return out, nil
}

const annotateJS = `(key, markup) => {
	const el = document.querySelector('[data-fp-key="' + key + '"]');
	if (!el) return false;
	el.querySelectorAll('.feedpulse-badge').forEach((b) => b.remove());
	if (markup) {
		if (getComputedStyle(el).position === 'static') el.style.position = 'relative';
		const badge = document.createElement('div');
		badge.className = 'feedpulse-badge';
		badge.innerHTML = markup;
		el.appendChild(badge);
	}
	el.setAttribute('data-fp-processed', '1');
	return true;
}`

// Annotate replaces the badge on the keyed element and marks it processed.
func (d *Document) Annotate(ctx context.Context, key string, b *annotate.Badge) error {
	markup := ""
	if b != nil {
		markup = b.HTML()
	}
	res, err := d.tab.Page.Context(ctx).Eval(annotateJS, key, markup)
	if err != nil {
		return fmt.Errorf("browser: annotate %s: %w", key, err)
	}
	if !res.Value.Bool() {
		return fmt.Errorf("browser: annotate %s: element detached", key)
	}
	return nil
}

const clearJS = `() => {
	document.querySelectorAll('.feedpulse-badge').forEach((b) => b.remove());
	document.querySelectorAll('[data-fp-processed]').forEach((el) => el.removeAttribute('data-fp-processed'));
}`

// ClearAnnotations removes every badge and processed marker.
func (d *Document) ClearAnnotations(ctx context.Context) error {
	if _, err := d.tab.Page.Context(ctx).Eval(clearJS); err != nil {
		return fmt.Errorf("browser: clear annotations: %w", err)
	}
	return nil
}

const styleJS = `(css) => {
	if (document.getElementById('feedpulse-style')) return;
	const s = document.createElement('style');
	s.id = 'feedpulse-style';
	s.textContent = css;
	document.head.appendChild(s);
}`

const disconnectJS = `() => {
	if (window.__feedpulseObserver) {
		window.__feedpulseObserver.disconnect();
		delete window.__feedpulseObserver;
	}
}`

// Observe installs the badge stylesheet and a MutationObserver that calls
// notify whenever non-badge nodes are added. Both are reinstalled after a
// full page load.
func (d *Document) Observe(ctx context.Context, notify func()) (func(), error) {
	page := d.tab.Page

	d.bindOnce.Do(func() {
		if err := (proto.PageEnable{}).Call(page); err != nil {
			d.logger.Warn("browser: page enable failed", "error", err)
		}
		d.bindErr = proto.RuntimeAddBinding{Name: bindingName}.Call(page)
	})
	if d.bindErr != nil {
		return nil, fmt.Errorf("browser: add binding: %w", d.bindErr)
	}

	if err := d.install(ctx); err != nil {
		return nil, err
	}

	obsCtx, cancel := context.WithCancel(ctx)
	wait := page.Context(obsCtx).EachEvent(
		func(e *proto.RuntimeBindingCalled) {
			if e.Name == bindingName {
				notify()
			}
		},
		func(e *proto.PageLoadEventFired) {
			if err := d.install(obsCtx); err != nil {
				d.logger.Warn("browser: reinstall observer", "error", err)
				return
			}
			notify()
		},
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	d.logger.Debug("browser: observer installed", "url", d.tab.URL)

	return func() {
		cancel()
		<-done
		if _, err := page.Eval(disconnectJS); err != nil {
			d.logger.Debug("browser: disconnect observer", "error", err)
		}
	}, nil
}

func (d *Document) install(ctx context.Context) error {
	p := d.tab.Page.Context(ctx)
	if _, err := p.Eval(styleJS, badgeCSS); err != nil {
		return fmt.Errorf("browser: inject style: %w", err)
	}
	if _, err := p.Eval(observeJS); err != nil {
		return fmt.Errorf("browser: inject observer: %w", err)
	}
	return nil
}

const darkJS = `() => window.matchMedia('(prefers-color-scheme: dark)').matches ||
	document.documentElement.classList.contains('__fb-dark-mode')`

// DarkMode reports whether the page renders a dark colour scheme.
func (d *Document) DarkMode(ctx context.Context) bool {
	res, err := d.tab.Page.Context(ctx).Eval(darkJS)
	if err != nil {
		return false
	}
	return res.Value.Bool()
}

// Snapshot returns the rendered page, parsed.
func (d *Document) Snapshot(ctx context.Context) (*html.Node, error) {
	raw, err := d.tab.Page.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot: %w", err)
	}
	return extract.ParseDocument([]byte(raw))
}

// ScrollHeight returns document.body.scrollHeight.
func (d *Document) ScrollHeight(ctx context.Context) (int, error) {
	res, err := d.tab.Page.Context(ctx).Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return 0, fmt.Errorf("browser: scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

// ScrollToBottom scrolls the window to the current end of the document.
func (d *Document) ScrollToBottom(ctx context.Context) error {
	if _, err := d.tab.Page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}
