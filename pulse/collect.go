package pulse

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/kit"
)

// CollectRequest asks for one collection session.
type CollectRequest struct {
	// Preset names a fixed configuration. Empty = crawl.default_preset.
	Preset string `json:"preset,omitempty"`
	// Custom is used when Preset is "custom". Nil = crawl.custom.
	Custom *crawl.Config `json:"custom,omitempty"`
	// URL is a profile page to collect in a separate tab. Empty = the feed
	// tab, which must be showing a profile.
	URL string `json:"url,omitempty"`
}

// resolve returns the preset name actually used and its configuration.
// A configuration without its own ceiling gets crawl.max_duration.
func (e *Engine) resolve(req CollectRequest) (string, crawl.Config, error) {
	name := req.Preset
	if name == "" {
		name = e.cfg.Crawl.DefaultPreset
	}

	var c crawl.Config
	if name == crawl.PresetCustom {
		c = e.cfg.Crawl.Custom
		if req.Custom != nil {
			c = *req.Custom
		}
	} else {
		var err error
		c, err = crawl.Preset(name)
		if errors.Is(err, crawl.ErrUnknownPreset) {
			e.logger.Warn("pulse: unknown preset, using standard", "preset", name)
			name = crawl.PresetStandard
		} else if err != nil {
			return name, c, err
		}
	}

	if c.MaxDuration == 0 {
		c.MaxDuration = e.cfg.Crawl.MaxDuration
	}
	return name, c, c.Validate()
}

// Collect runs one collection session and archives its result. Only one
// session runs at a time.
func (e *Engine) Collect(ctx context.Context, req CollectRequest) (*crawl.Result, error) {
	if !e.collecting.CompareAndSwap(false, true) {
		return nil, ErrCollectionInProgress
	}
	defer e.collecting.Store(false)

	preset, cfg, err := e.resolve(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	doc, source, release, err := e.collectDocument(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer release()

	e.logger.Info("pulse: collection started",
		"preset", preset, "url", source,
		"transport", kit.GetTransport(ctx), "request_id", kit.GetRequestID(ctx),
		"max_items", cfg.MaxItems, "max_scroll_attempts", cfg.MaxScrollAttempts,
		"max_duration", cfg.MaxDuration)

	p := crawl.New(doc, crawl.Options{
		Extractor: e.ext,
		Settle:    e.cfg.Crawl.Settle,
		Locale:    e.cfg.Report.Locale,
		Now:       e.now,
		Logger:    e.logger,
	})
	res, err := p.Collect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := e.store.Save(ctx, res, preset, source); err != nil {
		e.logger.Error("pulse: archive collection", "session", res.SessionID, "error", err)
	}
	return res, nil
}

// collectDocument picks the page a session reads from.
func (e *Engine) collectDocument(ctx context.Context, pageURL string) (crawl.Document, string, func(), error) {
	if pageURL != "" {
		if !extract.IsProfileURL(pageURL) {
			return nil, "", nil, fmt.Errorf("%w: %s", ErrNotProfile, pageURL)
		}
		doc, closeFn, err := e.opener(ctx, pageURL)
		if err != nil {
			return nil, "", nil, err
		}
		release := func() {
			if err := closeFn(); err != nil {
				e.logger.Debug("pulse: close collection tab", "error", err)
			}
		}
		return doc, pageURL, release, nil
	}

	e.mu.Lock()
	doc, started, tab := e.doc, e.started, e.tab
	e.mu.Unlock()
	if !started {
		return nil, "", nil, ErrNotStarted
	}

	source := e.cfg.Feed.URL
	if tab != nil {
		if u, err := tab.CurrentURL(ctx); err == nil {
			source = u
		}
	}
	if !extract.IsProfileURL(source) {
		e.logger.Warn("pulse: collecting from a page that is not a profile", "url", source)
	}
	return doc, source, func() {}, nil
}
