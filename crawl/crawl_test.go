package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/feedpulse/extract"
	"github.com/hazyhaar/feedpulse/feed"
)

// fakeFeed renders one more page of posts per scroll until growRounds
// scrolls have happened, after which the extent stops increasing.
type fakeFeed struct {
	pages      [][]string
	growRounds int
	scrolls    int
	snapshots  int
	header     string
}

func (f *fakeFeed) visible() int {
	n := f.scrolls + 1
	if n > len(f.pages) {
		n = len(f.pages)
	}
	return n
}

func (f *fakeFeed) Snapshot(ctx context.Context) (*html.Node, error) {
	f.snapshots++
	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString(f.header)
	for _, page := range f.pages[:f.visible()] {
		for _, p := range page {
			sb.WriteString(p)
		}
	}
	sb.WriteString("</body></html>")
	return extract.ParseDocument([]byte(sb.String()))
}

func (f *fakeFeed) ScrollHeight(ctx context.Context) (int, error) {
	g := f.scrolls
	if g > f.growRounds {
		g = f.growRounds
	}
	return 1000 + g*500, nil
}

func (f *fakeFeed) ScrollToBottom(ctx context.Context) error {
	f.scrolls++
	return nil
}

func post(id string, ts time.Time, likes, comments int) string {
	return fmt.Sprintf(`<div data-pressable-container="true">
  <a href="/@alice/post/%s"><time datetime="%s"></time></a>
  <div class="x1a6qonq">post %s</div>
  <div role="button"><svg aria-label="Like"></svg><span>%d</span></div>
  <div role="button"><svg aria-label="Reply"></svg><span>%d</span></div>
  <div role="button"><svg aria-label="Repost"></svg><span>0</span></div>
  <div role="button"><svg aria-label="Share"></svg><span>0</span></div>
</div>`, id, ts.UTC().Format(time.RFC3339), id, likes, comments)
}

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func newTestPipeline(doc Document) *Pipeline {
	return New(doc, Options{Sleep: noSleep, NewID: func() string { return "sess-1" }})
}

func TestCollect_TerminatesAfterStagnation(t *testing.T) {
	f := &fakeFeed{
		growRounds: 3,
		pages: [][]string{
			{post("a", t0, 1, 1)},
			{post("b", t0.Add(time.Hour), 1, 1)},
			{post("c", t0.Add(2*time.Hour), 1, 1)},
			{post("d", t0.Add(3*time.Hour), 1, 1)},
		},
	}
	res, err := newTestPipeline(f).Collect(context.Background(), Config{MaxItems: 100, MaxScrollAttempts: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Rounds != 5 {
		t.Errorf("Rounds: got %d, want 5", res.Rounds)
	}
	if f.snapshots != 5 {
		t.Errorf("extraction passes: got %d, want 5", f.snapshots)
	}
	if res.Stop != StopStagnation {
		t.Errorf("Stop: got %q, want %q", res.Stop, StopStagnation)
	}
	if res.Collected != 4 {
		t.Errorf("Collected: got %d, want 4", res.Collected)
	}
	if res.SessionID != "sess-1" {
		t.Errorf("SessionID: got %q", res.SessionID)
	}
}

func TestCollect_ItemCap(t *testing.T) {
	f := &fakeFeed{
		growRounds: 10,
		pages: [][]string{
			{post("a", t0, 1, 1), post("b", t0.Add(time.Minute), 1, 1), post("c", t0.Add(2*time.Minute), 1, 1)},
			{post("d", t0.Add(3*time.Minute), 1, 1)},
		},
	}
	res, err := newTestPipeline(f).Collect(context.Background(), Config{MaxItems: 2, MaxScrollAttempts: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collected != 2 || res.Rounds != 1 || res.Stop != StopItemCap {
		t.Errorf("got collected=%d rounds=%d stop=%q, want 2, 1, item_cap",
			res.Collected, res.Rounds, res.Stop)
	}
}

func TestCollect_ReportNewestFirst(t *testing.T) {
	t1, t2, t3 := t0, t0.Add(time.Hour), t0.Add(2*time.Hour)
	f := &fakeFeed{
		growRounds: 0,
		pages:      [][]string{{post("two", t2, 5, 5), post("three", t3, 5, 5), post("one", t1, 5, 5)}},
	}
	res, err := newTestPipeline(f).Collect(context.Background(), Config{MaxItems: 10, MaxScrollAttempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	i1 := strings.Index(res.Report, "### "+t1.Format(time.RFC3339))
	i2 := strings.Index(res.Report, "### "+t2.Format(time.RFC3339))
	i3 := strings.Index(res.Report, "### "+t3.Format(time.RFC3339))
	if i1 < 0 || i2 < 0 || i3 < 0 {
		t.Fatalf("report missing a post block:\n%s", res.Report)
	}
	if !(i3 < i2 && i2 < i1) {
		t.Errorf("report order: T3@%d T2@%d T1@%d, want T3, T2, T1", i3, i2, i1)
	}
}

func TestCollect_FilterExcludesCaptured(t *testing.T) {
	f := &fakeFeed{
		pages: [][]string{{post("quiet", t0, 50, 0), post("busy", t0.Add(time.Hour), 50, 9)}},
	}
	res, err := newTestPipeline(f).Collect(context.Background(),
		Config{MaxItems: 10, MaxScrollAttempts: 1, MinComments: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Collected != 2 {
		t.Errorf("Collected: got %d, want 2", res.Collected)
	}
	if len(res.Posts) != 1 || res.Posts[0].ID != "/@alice/post/busy" {
		t.Errorf("Posts: got %+v, want only busy", res.Posts)
	}
	if strings.Contains(res.Report, "post quiet") {
		t.Error("report contains filtered post")
	}
}

func TestCollect_EmptyFeed(t *testing.T) {
	f := &fakeFeed{pages: [][]string{{`<div data-pressable-container="true"><span>no time</span></div>`}}}
	res, err := newTestPipeline(f).Collect(context.Background(), Config{MaxItems: 10, MaxScrollAttempts: 2})
	if err != nil {
		t.Fatalf("empty feed: got error %v, want empty result", err)
	}
	if res.Collected != 0 || len(res.Posts) != 0 {
		t.Errorf("got %d collected, %d posts, want 0", res.Collected, len(res.Posts))
	}
	if !strings.Contains(res.Report, "# All posts") {
		t.Errorf("empty report missing heading:\n%s", res.Report)
	}
}

func TestCollect_ProfileHeader(t *testing.T) {
	f := &fakeFeed{
		header: `<span>alice</span><span>line one
line two</span><span>1.2萬 粉絲</span>`,
		pages: [][]string{{post("a", t0, 1, 1)}},
	}
	res, err := newTestPipeline(f).Collect(context.Background(), Config{MaxItems: 10, MaxScrollAttempts: 1})
	if err != nil {
		t.Fatal(err)
	}
	if res.Profile.Handle != "alice" {
		t.Errorf("Handle: got %q", res.Profile.Handle)
	}
	if !strings.HasPrefix(res.Report, "# @alice\n") {
		t.Errorf("report header: got %q", res.Report[:min(len(res.Report), 40)])
	}
	if !strings.Contains(res.Report, "line one  \nline two") {
		t.Errorf("bio line breaks not normalised:\n%s", res.Report)
	}
}

func TestCollect_Deadline(t *testing.T) {
	f := &fakeFeed{growRounds: 1 << 20, pages: [][]string{{post("a", t0, 1, 1)}}}
	p := New(f, Options{Sleep: sleepCtx, Settle: 5 * time.Millisecond})
	res, err := p.Collect(context.Background(),
		Config{MaxItems: Unlimited, MaxScrollAttempts: Unlimited, MaxDuration: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("deadline: got error %v, want normal end", err)
	}
	if res.Stop != StopDeadline {
		t.Errorf("Stop: got %q, want deadline", res.Stop)
	}
	if res.Collected != 1 {
		t.Errorf("Collected: got %d, want 1", res.Collected)
	}
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeFeed{pages: [][]string{{post("a", t0, 1, 1)}}}
	_, err := newTestPipeline(f).Collect(ctx, Config{MaxItems: 10, MaxScrollAttempts: 3})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v, want context.Canceled", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (Config{MaxItems: Unlimited, MaxScrollAttempts: Unlimited}).Validate(); !errors.Is(err, ErrUnbounded) {
		t.Errorf("unlimited without ceiling: got %v, want ErrUnbounded", err)
	}
	if err := (Config{MaxItems: 0, MaxScrollAttempts: 1}).Validate(); err == nil {
		t.Error("zero max_items: want error")
	}
	if err := (Config{MaxItems: 5, MaxScrollAttempts: 1, MinLikes: -1}).Validate(); err == nil {
		t.Error("negative minimum: want error")
	}
	for _, name := range PresetNames() {
		c, err := Preset(name)
		if err != nil {
			t.Errorf("Preset(%q): %v", name, err)
		}
		if err := c.Validate(); err != nil {
			t.Errorf("Preset(%q).Validate: %v", name, err)
		}
	}
}

func TestPreset_UnknownFallsBack(t *testing.T) {
	c, err := Preset("turbo")
	if !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("err: got %v, want ErrUnknownPreset", err)
	}
	if c.MaxItems != 100 || c.MaxScrollAttempts != 20 {
		t.Errorf("fallback: got %+v, want standard", c)
	}
	pop, _ := Preset(PresetPopular)
	if pop.MinLikes != 10 {
		t.Errorf("popular MinLikes: got %d, want 10", pop.MinLikes)
	}
}

func TestSortNewestFirst_Ties(t *testing.T) {
	recs := []feed.PostRecord{
		{ID: "x", PublishedAt: "garbage"},
		{ID: "a", PublishedAt: "2025-03-01T10:00:00Z"},
		{ID: "b", PublishedAt: "2025-03-01T10:00:00Z"},
		{ID: "c", PublishedAt: "2025-03-02T10:00:00Z"},
	}
	SortNewestFirst(recs)
	got := []string{recs[0].ID, recs[1].ID, recs[2].ID, recs[3].ID}
	want := []string{"c", "b", "a", "x"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
}

func TestWriteReport_Format(t *testing.T) {
	var buf bytes.Buffer
	prof := feed.Profile{Handle: "bob", Followers: "1,024", Bio: "hi"}
	posts := []feed.PostRecord{{PublishedAt: "2025-03-01T10:00:00.000Z", Content: "a\nb", LikeCount: 3, CommentCount: 2, RepostCount: 1}}
	if err := WriteReport(&buf, prof, posts, LocaleZHTW); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"# @bob",
		"**追蹤者**：1,024",
		"# 所有貼文",
		"### 2025-03-01T10:00:00.000Z",
		"👍 3　💬 2　🔃 1　📤 0",
		"a  \nb",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportFileName(t *testing.T) {
	got := ReportFileName(time.Date(2025, 7, 4, 23, 0, 0, 0, time.UTC))
	if got != "threads-scrape-2025-07-04.md" {
		t.Errorf("ReportFileName: got %q", got)
	}
}
