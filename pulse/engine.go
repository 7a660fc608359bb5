// Package pulse wires feedpulse together: one Chrome feed tab, the live
// annotation service badging it, collection sessions run on demand, the
// archive of finished collections and the verification check. It also
// exposes the engine over HTTP and MCP.
package pulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/feedpulse/annotate"
	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
	"github.com/hazyhaar/feedpulse/idgen"
	"github.com/hazyhaar/feedpulse/pulse/internal/archive"
	"github.com/hazyhaar/feedpulse/pulse/internal/browser"
	"github.com/hazyhaar/feedpulse/pulse/internal/gate"
	"github.com/hazyhaar/feedpulse/pulse/internal/shield"
)

var (
	// ErrCollectionInProgress is returned when a collection is requested
	// while another one is running.
	ErrCollectionInProgress = errors.New("pulse: a collection is already running")
	// ErrNotStarted is returned when the feed page is needed before Start.
	ErrNotStarted = errors.New("pulse: engine not started")
	// ErrInvalidRequest wraps collection configurations that fail validation.
	ErrInvalidRequest = errors.New("pulse: invalid collection request")
	// ErrNotProfile is returned when a collection URL is not a profile page.
	ErrNotProfile = errors.New("pulse: not a profile page")
)

// Document is a live page usable by both the annotation service and the
// crawl pipeline.
type Document interface {
	annotate.Document
	crawl.Document
}

// Opener opens pageURL in a new tab for a collection. close releases it.
type Opener func(ctx context.Context, pageURL string) (doc crawl.Document, close func() error, err error)

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithDocument runs the engine on doc instead of launching Chrome.
func WithDocument(doc Document) Option { return func(e *Engine) { e.doc = doc } }

// WithOpener replaces how collection tabs are opened.
func WithOpener(o Opener) Option { return func(e *Engine) { e.opener = o } }

// WithClock sets the time source for annotation and collection.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// Engine is the feedpulse runtime. It is single-use: after Stop it cannot
// be started again.
type Engine struct {
	cfg    *Config
	logger *slog.Logger
	now    func() time.Time
	ext    *extract.Extractor
	gate   *gate.Checker
	store  *archive.Store

	mgr    *browser.Manager
	tab    *browser.Tab
	doc    Document
	opener Opener

	// bandsMu serialises band changes so e.bands and the badges agree.
	bandsMu sync.Mutex

	mu      sync.Mutex
	svc     *annotate.Service
	bands   []feed.ThresholdBand
	started bool
	stopped bool

	collecting  atomic.Bool
	verifyLimit *shield.ClientLimiter
}

// New builds an Engine from cfg and opens the archive. Chrome is not
// launched until Start.
func New(cfg *Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e := &Engine{
		cfg:         cfg,
		ext:         extract.New(cfg.Extract),
		bands:       feed.NormalizeBands(cfg.Annotate.Thresholds),
		verifyLimit: shield.NewClientLimiter(verifyInterval, verifyBurst),
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if len(e.bands) == 0 {
		e.bands = feed.DefaultBands()
	}

	g, err := gate.New(cfg.Gate.CodeHash)
	if err != nil {
		return nil, err
	}
	e.gate = g

	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("pulse: open archive: %w", err)
	}
	e.store = store

	if e.doc == nil || e.opener == nil {
		e.mgr = browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			Mode:             browser.Mode(cfg.Browser.Mode),
			UserDataDir:      cfg.Browser.UserDataDir,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Logger:           e.logger,
		})
	}
	if e.opener == nil {
		e.opener = e.openTab
	}
	return e, nil
}

// Start opens the feed page and, when enabled, starts annotating it.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return fmt.Errorf("pulse: engine stopped")
	}
	if e.started {
		return nil
	}

	if e.doc == nil {
		if _, err := e.mgr.Start(ctx); err != nil {
			return err
		}
		tab, err := browser.OpenTab(ctx, e.mgr, e.cfg.Feed.URL)
		if err != nil {
			return err
		}
		e.tab = tab
		e.doc = browser.NewDocument(tab, e.ext.Rules().PostSelector, e.logger)
	}

	if e.cfg.Annotate.IsEnabled() {
		e.svc = annotate.New(annotate.Config{
			Document:        e.doc,
			Extractor:       e.ext,
			Thresholds:      e.bands,
			DebounceWindow:  e.cfg.Annotate.DebounceWindow,
			DebounceMax:     e.cfg.Annotate.DebounceMax,
			PassesPerSecond: e.cfg.Annotate.PassesPerSecond,
			Now:             e.now,
			Logger:          e.logger,
		})
		if err := e.svc.Start(ctx); err != nil {
			e.svc = nil
			return err
		}
	}

	e.started = true
	e.logger.Info("pulse: started", "url", e.cfg.Feed.URL, "annotate", e.svc != nil)
	return nil
}

// Stop removes every badge, closes the browser and the archive.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil
	}
	e.stopped = true

	if e.svc != nil {
		e.svc.Stop()
		e.svc = nil
	}
	var errs []error
	if e.tab != nil {
		errs = append(errs, e.tab.Close())
		e.tab = nil
	}
	if e.mgr != nil {
		errs = append(errs, e.mgr.Close())
	}
	errs = append(errs, e.store.Close())

	e.logger.Info("pulse: stopped")
	return errors.Join(errs...)
}

// Thresholds returns the current band list.
func (e *Engine) Thresholds() []feed.ThresholdBand {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]feed.ThresholdBand(nil), e.bands...)
}

// SetThresholds normalises and installs bands, then re-annotates every
// visible post.
func (e *Engine) SetThresholds(ctx context.Context, bands []feed.ThresholdBand) error {
	e.bandsMu.Lock()
	defer e.bandsMu.Unlock()
	return e.setThresholds(ctx, bands)
}

func (e *Engine) setThresholds(ctx context.Context, bands []feed.ThresholdBand) error {
	for _, b := range bands {
		if b.Min <= 0 {
			return fmt.Errorf("pulse: threshold %q: min must be positive", b.ID)
		}
	}
	norm := feed.NormalizeBands(bands)

	e.mu.Lock()
	e.bands = norm
	svc := e.svc
	e.mu.Unlock()

	if svc != nil {
		return svc.SetThresholds(ctx, norm)
	}
	return nil
}

// AddBand inserts a band starting at min.
func (e *Engine) AddBand(ctx context.Context, min int, color string) ([]feed.ThresholdBand, error) {
	e.bandsMu.Lock()
	defer e.bandsMu.Unlock()
	bands, err := feed.AddBand(e.Thresholds(), min, color, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.setThresholds(ctx, bands); err != nil {
		return nil, err
	}
	return e.Thresholds(), nil
}

// RemoveBand deletes the band with id.
func (e *Engine) RemoveBand(ctx context.Context, id string) ([]feed.ThresholdBand, error) {
	e.bandsMu.Lock()
	defer e.bandsMu.Unlock()
	bands := feed.RemoveBand(e.Thresholds(), id)
	if err := e.setThresholds(ctx, bands); err != nil {
		return nil, err
	}
	return e.Thresholds(), nil
}

// Verify checks a verification code.
func (e *Engine) Verify(code string) bool {
	ok := e.gate.Verify(code)
	e.logger.Info("pulse: verification", "ok", ok)
	return ok
}

// Report returns an archived collection.
func (e *Engine) Report(ctx context.Context, id string) (*Collection, error) {
	if _, err := idgen.ParseSession(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportNotFound, err)
	}
	return e.store.Get(ctx, id)
}

// DeleteReport removes an archived collection.
func (e *Engine) DeleteReport(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Reports lists archived collections, newest first.
func (e *Engine) Reports(ctx context.Context, limit int) ([]Summary, error) {
	return e.store.List(ctx, limit)
}

// openTab is the default Opener: a new stealth tab on the shared browser.
func (e *Engine) openTab(ctx context.Context, pageURL string) (crawl.Document, func() error, error) {
	if _, err := e.mgr.Start(ctx); err != nil {
		return nil, nil, err
	}
	tab, err := browser.OpenTab(ctx, e.mgr, pageURL)
	if err != nil {
		return nil, nil, err
	}
	return browser.NewDocument(tab, e.ext.Rules().PostSelector, e.logger), tab.Close, nil
}
