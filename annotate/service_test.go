package annotate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeDoc is an in-memory Document keyed by element order.
type fakeDoc struct {
	mu        sync.Mutex
	items     []string
	processed map[string]bool
	badges    map[string]*Badge
	annotates int
	clears    int
	notify    func()
	dark      bool
}

func newFakeDoc(items ...string) *fakeDoc {
	return &fakeDoc{
		items:     items,
		processed: make(map[string]bool),
		badges:    make(map[string]*Badge),
	}
}

func (d *fakeDoc) add(item string) {
	d.mu.Lock()
	d.items = append(d.items, item)
	n := d.notify
	d.mu.Unlock()
	if n != nil {
		n()
	}
}

func (d *fakeDoc) Elements(ctx context.Context) ([]Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Element
	for i, s := range d.items {
		n, err := extract.ParseElement(s)
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("fp-%d", i)
		out = append(out, Element{Key: key, Node: n, Processed: d.processed[key]})
	}
	return out, nil
}

func (d *fakeDoc) Annotate(ctx context.Context, key string, b *Badge) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.annotates++
	d.processed[key] = true
	if b == nil {
		delete(d.badges, key)
	} else {
		d.badges[key] = b
	}
	return nil
}

func (d *fakeDoc) ClearAnnotations(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	d.processed = make(map[string]bool)
	d.badges = make(map[string]*Badge)
	return nil
}

func (d *fakeDoc) Observe(ctx context.Context, notify func()) (func(), error) {
	d.mu.Lock()
	d.notify = notify
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		d.notify = nil
		d.mu.Unlock()
	}, nil
}

func (d *fakeDoc) DarkMode(ctx context.Context) bool { return d.dark }

func (d *fakeDoc) badge(key string) *Badge {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.badges[key]
}

func (d *fakeDoc) isProcessed(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.processed[key]
}

func postHTML(likes int, published time.Time) string {
	return fmt.Sprintf(`<div data-pressable-container="true">
  <a href="/@a/post/%d"><time datetime="%s"></time></a>
  <div role="button"><svg aria-label="Like"></svg><span>%d</span></div>
  <svg aria-label="Share"></svg>
</div>`, likes, published.UTC().Format(time.RFC3339), likes)
}

func newTestService(doc *fakeDoc) *Service {
	return New(Config{
		Document:       doc,
		Now:            func() time.Time { return testNow },
		DebounceWindow: 10 * time.Millisecond,
	})
}

func TestScan_ClassifiesAndMarks(t *testing.T) {
	doc := newFakeDoc(
		postHTML(150, testNow.Add(-5*time.Hour)),
		postHTML(50, testNow.Add(-5*time.Hour)),
		postHTML(1000, testNow.Add(-5*time.Hour)),
	)
	s := newTestService(doc)

	st, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Marked != 3 || st.Badged != 2 {
		t.Errorf("stats: got %+v, want 3 marked, 2 badged", st)
	}
	if b := doc.badge("fp-0"); b == nil || b.Color != "#22C55E" {
		t.Errorf("150 likes: got %+v, want green", b)
	}
	if b := doc.badge("fp-1"); b != nil {
		t.Errorf("50 likes: got %+v, want no badge", b)
	}
	if !doc.isProcessed("fp-1") {
		t.Error("50 likes: unbadged post not marked processed")
	}
	if b := doc.badge("fp-2"); b == nil || b.Color != "#EF4444" {
		t.Errorf("1000 likes: got %+v, want red", b)
	}
}

func TestScan_Idempotent(t *testing.T) {
	doc := newFakeDoc(postHTML(300, testNow.Add(-2*time.Hour)))
	s := newTestService(doc)

	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	st, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Seen != 0 || doc.annotates != 1 {
		t.Errorf("second pass: seen=%d annotates=%d, want 0 and 1", st.Seen, doc.annotates)
	}
}

func TestScan_SkipsRepliesAndRetriesMissingTimestamp(t *testing.T) {
	reply := `<div data-pressable-container="true">
  <time datetime="2025-03-01T10:00:00Z"></time>
  <div role="button"><svg aria-label="Like"></svg><span>500</span></div>
</div>`
	pending := `<div data-pressable-container="true">
  <div role="button"><svg aria-label="Like"></svg><span>500</span></div>
  <svg aria-label="Share"></svg>
</div>`
	doc := newFakeDoc(reply, pending)
	s := newTestService(doc)

	st, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Skipped != 2 || st.Marked != 0 {
		t.Errorf("stats: got %+v, want 2 skipped", st)
	}
	if doc.isProcessed("fp-0") || doc.isProcessed("fp-1") {
		t.Error("skipped elements were marked processed")
	}
}

func TestScan_ViralPrecedence(t *testing.T) {
	doc := newFakeDoc(postHTML(80, testNow.Add(-30*time.Minute)))
	doc.dark = true
	s := newTestService(doc)

	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := doc.badge("fp-0")
	if b == nil || !b.Viral {
		t.Fatalf("badge: got %+v, want viral", b)
	}
	if b.Label != ViralLabel || b.Color != "#34D399" {
		t.Errorf("viral badge: got label %q color %q", b.Label, b.Color)
	}
	if b.Growth != "+160/h" {
		t.Errorf("growth: got %q, want +160/h", b.Growth)
	}
}

func TestSetThresholds_Rescans(t *testing.T) {
	doc := newFakeDoc(postHTML(150, testNow.Add(-5*time.Hour)))
	s := newTestService(doc)
	ctx := context.Background()

	if _, err := s.Scan(ctx); err != nil {
		t.Fatal(err)
	}
	if doc.badge("fp-0") == nil {
		t.Fatal("initial scan: no badge")
	}

	bands := []feed.ThresholdBand{{ID: "hi", Min: 200, Max: feed.Infinity, Color: "#000000"}}
	if err := s.SetThresholds(ctx, bands); err != nil {
		t.Fatal(err)
	}
	if doc.clears != 1 {
		t.Errorf("clears: got %d, want 1", doc.clears)
	}
	if b := doc.badge("fp-0"); b != nil {
		t.Errorf("after reconfigure: got %+v, want no badge", b)
	}
	if !doc.isProcessed("fp-0") {
		t.Error("after reconfigure: element not re-marked")
	}
	if got := s.Thresholds(); len(got) != 1 || got[0].ID != "hi" {
		t.Errorf("Thresholds: got %+v", got)
	}
}

func TestService_DebouncedNotifications(t *testing.T) {
	doc := newFakeDoc()
	s := newTestService(doc)
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	base := s.Passes()

	for i := 0; i < 5; i++ {
		doc.add(postHTML(150+i, testNow.Add(-5*time.Hour)))
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !doc.isProcessed("fp-4") {
		time.Sleep(5 * time.Millisecond)
	}
	if !doc.isProcessed("fp-4") {
		t.Fatal("posts added after Start were never annotated")
	}
	if got := s.Passes() - base; got > 3 {
		t.Errorf("passes for 5 rapid notifications: got %d, want coalesced", got)
	}

	s.Stop()
	if doc.clears != 1 {
		t.Errorf("Stop: clears=%d, want 1", doc.clears)
	}
	if doc.badge("fp-0") != nil {
		t.Error("Stop: badges not removed")
	}
}

func TestService_StartTwice(t *testing.T) {
	s := newTestService(newFakeDoc())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start: want error")
	}
}

func TestService_ConcurrentStartStop(t *testing.T) {
	doc := newFakeDoc(postHTML(150, testNow.Add(-5*time.Hour)))
	s := newTestService(doc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
	s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}
	s.Stop()
}

func TestBadgeHTML_Sanitised(t *testing.T) {
	b := Badge{Color: `red;" onclick="alert(1)`, Label: "<script>x</script>", Growth: "+5/h"}
	out := b.HTML()
	if strings.Contains(out, "onclick") || strings.Contains(out, "<script>") {
		t.Errorf("HTML not sanitised: %s", out)
	}
	if !strings.Contains(out, "+5/h") {
		t.Errorf("HTML lost growth text: %s", out)
	}

	ok := Badge{Color: "#EF4444", Label: ViralLabel, Viral: true}.HTML()
	if !strings.Contains(ok, "feedpulse-viral") || !strings.Contains(ok, "#EF4444") {
		t.Errorf("HTML: got %s", ok)
	}
}
