// Package crawl implements the exhaustive collection pipeline: it scrolls a
// profile feed round after round, captures every rendered root post into a
// session-private dedup store, and stops when the feed stops growing or the
// item cap is reached. The result is filtered, sorted newest first and
// serialised as a markdown report.
//
// The pipeline only reads the document. It can run while the annotation
// service is badging the same page.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
	"github.com/hazyhaar/feedpulse/idgen"
)

// Document is the scrollable page as seen by the pipeline.
type Document interface {
	// Snapshot returns the currently rendered page, parsed.
	Snapshot(ctx context.Context) (*html.Node, error)
	// ScrollHeight returns the total scrollable extent.
	ScrollHeight(ctx context.Context) (int, error)
	// ScrollToBottom extends the view to the current maximum extent.
	ScrollToBottom(ctx context.Context) error
}

// StopReason records which condition ended a crawl.
type StopReason string

const (
	StopItemCap    StopReason = "item_cap"
	StopStagnation StopReason = "stagnation"
	StopDeadline   StopReason = "deadline"
)

// DefaultSettle is the wait after each scroll for lazy content to render.
const DefaultSettle = 800 * time.Millisecond

// Options configures a Pipeline.
type Options struct {
	Extractor *extract.Extractor
	// Settle is the per-round wait after scrolling. Default: DefaultSettle.
	Settle time.Duration
	// Locale selects report labels. Default: LocaleEN.
	Locale string
	// NewID generates session ids. Default: idgen.New.
	NewID func() string
	// Sleep waits for d or until ctx is done. Default: a timer select.
	Sleep  func(ctx context.Context, d time.Duration) error
	Now    func() time.Time
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Extractor == nil {
		o.Extractor = extract.New(extract.Rules{})
	}
	if o.Settle <= 0 {
		o.Settle = DefaultSettle
	}
	if o.Locale == "" {
		o.Locale = LocaleEN
	}
	if o.NewID == nil {
		o.NewID = idgen.New
	}
	if o.Sleep == nil {
		o.Sleep = sleepCtx
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Pipeline runs collection sessions against one document. Sessions must
// not overlap; each gets its own dedup store.
type Pipeline struct {
	doc  Document
	opts Options
}

// New creates a Pipeline over doc.
func New(doc Document, opts Options) *Pipeline {
	opts.defaults()
	return &Pipeline{doc: doc, opts: opts}
}

// Result is the outcome of one collection session.
type Result struct {
	SessionID  string            `json:"session_id"`
	Profile    feed.Profile      `json:"profile"`
	Config     Config            `json:"config"`
	Collected  int               `json:"collected"`
	Posts      []feed.PostRecord `json:"posts"`
	Rounds     int               `json:"rounds"`
	Stop       StopReason        `json:"stop"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Report     string            `json:"report"`
}

// Collect runs one session. A document that never yields a parseable post
// produces an empty result, not an error. Cancelling ctx aborts with its
// error; expiry of cfg.MaxDuration ends the crawl normally.
func (p *Pipeline) Collect(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		SessionID: p.opts.NewID(),
		Config:    cfg,
		StartedAt: p.opts.Now(),
	}
	log := p.opts.Logger.With("session", res.SessionID)

	runCtx := ctx
	if cfg.MaxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.MaxDuration)
		defer cancel()
	}

	store := feed.NewStore()
	stop, err := p.run(runCtx, cfg, store, res, log)
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		stop = StopDeadline
	}
	res.Stop = stop
	res.Collected = store.Len()

	res.Posts = Filter(store.Values(), cfg)
	SortNewestFirst(res.Posts)

	var buf bytes.Buffer
	if err := WriteReport(&buf, res.Profile, res.Posts, p.opts.Locale); err != nil {
		return nil, err
	}
	res.Report = buf.String()
	res.FinishedAt = p.opts.Now()

	log.Info("crawl: session complete",
		"rounds", res.Rounds, "collected", res.Collected,
		"qualifying", len(res.Posts), "stop", string(res.Stop))
	return res, nil
}

// run drives extract, scroll and settle rounds until a cap is reached.
func (p *Pipeline) run(ctx context.Context, cfg Config, store *feed.Store, res *Result, log *slog.Logger) (StopReason, error) {
	ext := p.opts.Extractor
	stagnant := 0

	for {
		if store.Len() >= cfg.MaxItems {
			return StopItemCap, nil
		}
		if stagnant >= cfg.MaxScrollAttempts {
			return StopStagnation, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		res.Rounds++

		doc, err := p.doc.Snapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("crawl: snapshot: %w", err)
		}
		if res.Rounds == 1 {
			res.Profile = ext.Profile(doc)
		}

		added := 0
		for _, post := range ext.Posts(doc) {
			if store.Len() >= cfg.MaxItems {
				break
			}
			rec, ok := ext.Extract(post)
			if !ok {
				continue
			}
			if store.Put(rec.ID, rec) {
				added++
			}
		}

		// The extent comparison for this round runs after its extraction.
		before, err := p.doc.ScrollHeight(ctx)
		if err != nil {
			return "", fmt.Errorf("crawl: scroll height: %w", err)
		}
		if err := p.doc.ScrollToBottom(ctx); err != nil {
			return "", fmt.Errorf("crawl: scroll: %w", err)
		}
		if err := p.opts.Sleep(ctx, p.opts.Settle); err != nil {
			return "", err
		}
		after, err := p.doc.ScrollHeight(ctx)
		if err != nil {
			return "", fmt.Errorf("crawl: scroll height: %w", err)
		}

		if after == before {
			stagnant++
		} else {
			stagnant = 0
		}

		log.Debug("crawl: round",
			"round", res.Rounds, "added", added, "total", store.Len(),
			"height", after, "stagnant", stagnant)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
