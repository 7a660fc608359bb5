// Package annotate implements the live annotation service: it watches the
// feed for new posts, classifies them by like-count band and short-horizon
// growth, and badges them in place.
//
// Mutation notifications are coalesced by a debouncer; each flush runs one
// reconciliation pass over every unprocessed post. A per-element processed
// marker keeps passes idempotent. Reconfiguring thresholds clears every
// badge and marker and rescans from scratch.
package annotate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
)

// Config for creating a Service.
type Config struct {
	Document  Document
	Extractor *extract.Extractor
	// Thresholds is the initial band list. Default: feed.DefaultBands.
	Thresholds []feed.ThresholdBand
	// DebounceWindow is the quiet time before a pass. Default: 100ms.
	DebounceWindow time.Duration
	// DebounceMax forces a pass after this many notifications. Default: 64.
	DebounceMax int
	// PassesPerSecond caps reconciliation passes. Default: 4.
	PassesPerSecond float64
	// Now returns the current time. Default: time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Stats summarises one reconciliation pass.
type Stats struct {
	Seen    int `json:"seen"`    // unprocessed elements examined
	Skipped int `json:"skipped"` // not root posts or no timestamp yet
	Marked  int `json:"marked"`  // elements transitioned to processed
	Badged  int `json:"badged"`  // of which received a badge
	Viral   int `json:"viral"`   // of which are viral candidates
}

// Service is the long-lived annotation controller for one document.
type Service struct {
	doc     Document
	ext     *extract.Extractor
	logger  *slog.Logger
	now     func() time.Time
	limiter *rate.Limiter
	dcfg    debounceConfig

	// mu serialises passes and guards bands.
	mu    sync.Mutex
	bands []feed.ThresholdBand

	notifyCh chan struct{}

	// life guards Start and Stop and the fields they publish.
	life       sync.Mutex
	cancel     context.CancelFunc
	done       chan struct{}
	disconnect func()
	running    atomic.Bool
	passes     atomic.Int64
}

// New creates a Service. Call Start to begin observing.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extract.New(extract.Rules{})
	}
	if len(cfg.Thresholds) == 0 {
		cfg.Thresholds = feed.DefaultBands()
	}
	if cfg.PassesPerSecond <= 0 {
		cfg.PassesPerSecond = 4
	}

	return &Service{
		doc:      cfg.Document,
		ext:      cfg.Extractor,
		logger:   cfg.Logger,
		now:      cfg.Now,
		limiter:  rate.NewLimiter(rate.Limit(cfg.PassesPerSecond), 1),
		dcfg:     debounceConfig{Window: cfg.DebounceWindow, MaxPending: cfg.DebounceMax},
		bands:    append([]feed.ThresholdBand(nil), cfg.Thresholds...),
		notifyCh: make(chan struct{}, 256),
	}
}

// Start connects the mutation observer, annotates the posts already on the
// page and runs the reconciliation loop until Stop or ctx is done.
func (s *Service) Start(ctx context.Context) error {
	s.life.Lock()
	defer s.life.Unlock()
	if s.running.Load() {
		return fmt.Errorf("annotate: already started")
	}

	disconnect, err := s.doc.Observe(ctx, s.Notify)
	if err != nil {
		return fmt.Errorf("annotate: observe: %w", err)
	}
	s.disconnect = disconnect

	if _, err := s.Scan(ctx); err != nil {
		s.logger.Warn("annotate: initial pass failed", "error", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)
	go s.loop(loopCtx, s.done)

	s.logger.Info("annotate: started", "bands", len(s.Thresholds()))
	return nil
}

// Stop disconnects observation and removes every injected badge.
func (s *Service) Stop() {
	s.life.Lock()
	defer s.life.Unlock()
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	s.cancel()
	<-s.done
	if s.disconnect != nil {
		s.disconnect()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.doc.ClearAnnotations(ctx); err != nil {
		s.logger.Warn("annotate: clear on stop failed", "error", err)
	}
	s.logger.Info("annotate: stopped", "passes", s.passes.Load())
}

// Notify signals that the document changed. It never blocks: bursts beyond
// the channel buffer are already represented by pending notifications.
func (s *Service) Notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Passes returns the number of reconciliation passes run so far.
func (s *Service) Passes() int64 { return s.passes.Load() }

// Thresholds returns a copy of the current band list.
func (s *Service) Thresholds() []feed.ThresholdBand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]feed.ThresholdBand(nil), s.bands...)
}

// SetThresholds replaces the band list, clears every badge and marker and
// re-annotates all visible posts.
func (s *Service) SetThresholds(ctx context.Context, bands []feed.ThresholdBand) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bands = append([]feed.ThresholdBand(nil), bands...)
	if err := s.doc.ClearAnnotations(ctx); err != nil {
		return fmt.Errorf("annotate: clear annotations: %w", err)
	}
	st, err := s.scanLocked(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("annotate: thresholds reconfigured",
		"bands", len(bands), "marked", st.Marked, "badged", st.Badged)
	return nil
}

// Scan runs one reconciliation pass over every unprocessed post.
func (s *Service) Scan(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanLocked(ctx)
}

func (s *Service) scanLocked(ctx context.Context) (Stats, error) {
	var st Stats
	s.passes.Add(1)

	elems, err := s.doc.Elements(ctx)
	if err != nil {
		return st, fmt.Errorf("annotate: list elements: %w", err)
	}

	dark := false
	if th, ok := s.doc.(Themer); ok {
		dark = th.DarkMode(ctx)
	}
	now := s.now()

	for _, el := range elems {
		if el.Processed {
			continue
		}
		st.Seen++

		// Non-root containers and posts whose timestamp has not rendered
		// yet stay unprocessed so a later pass can pick them up.
		rec, ok := s.ext.Extract(el.Node)
		if !ok {
			st.Skipped++
			continue
		}

		badge := Assess(rec, s.bands, now, dark)
		if err := s.doc.Annotate(ctx, el.Key, badge); err != nil {
			s.logger.Debug("annotate: element annotation failed", "key", el.Key, "error", err)
			continue
		}
		st.Marked++
		if badge != nil {
			st.Badged++
			if badge.Viral {
				st.Viral++
			}
		}
	}

	if st.Marked > 0 {
		s.logger.Debug("annotate: pass complete",
			"seen", st.Seen, "marked", st.Marked, "badged", st.Badged, "viral", st.Viral)
	}
	return st, nil
}

// loop coalesces notifications and runs a pass per debounce flush.
func (s *Service) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	deb := newDebouncer(s.dcfg, func(pending int) {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		if _, err := s.Scan(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("annotate: pass failed", "pending", pending, "error", err)
		}
	})

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notifyCh:
			deb.add()
		case <-deb.timerC():
			deb.flush()
		}
	}
}
