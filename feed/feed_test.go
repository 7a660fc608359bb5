package feed

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	bands := DefaultBands()

	b, ok := Classify(bands, 150)
	if !ok {
		t.Fatal("Classify(150): no band, want green")
	}
	if b.ID != "green" {
		t.Errorf("Classify(150): got %q, want %q", b.ID, "green")
	}

	if b, ok := Classify(bands, 50); ok {
		t.Errorf("Classify(50): got %q, want no band", b.ID)
	}

	if b, _ := Classify(bands, 1000); b.ID != "red" {
		t.Errorf("Classify(1000): got %q, want red", b.ID)
	}
	if b, _ := Classify(bands, 699); b.ID != "yellow" {
		t.Errorf("Classify(699): got %q, want yellow", b.ID)
	}
}

func TestNormalizeBands_Contiguous(t *testing.T) {
	in := []ThresholdBand{
		{ID: "c", Min: 700, Max: 1},
		{ID: "a", Min: 100, Max: 5},
		{ID: "b", Min: 300, Max: 9},
	}
	got := NormalizeBands(in)

	wantIDs := []string{"a", "b", "c"}
	wantMax := []int{299, 699, Infinity}
	for i := range got {
		if got[i].ID != wantIDs[i] {
			t.Errorf("band[%d].ID: got %q, want %q", i, got[i].ID, wantIDs[i])
		}
		if got[i].Max != wantMax[i] {
			t.Errorf("band[%d].Max: got %d, want %d", i, got[i].Max, wantMax[i])
		}
	}
	if in[0].Max != 1 {
		t.Error("NormalizeBands must not modify its input")
	}
}

func TestAddRemoveBand(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bands, err := AddBand(DefaultBands(), 500, "#FFD700", now)
	if err != nil {
		t.Fatalf("AddBand: %v", err)
	}
	if len(bands) != 5 {
		t.Fatalf("AddBand: got %d bands, want 5", len(bands))
	}
	if bands[1].Max != 499 {
		t.Errorf("yellow Max after insert: got %d, want 499", bands[1].Max)
	}
	if bands[2].Min != 500 || bands[2].Max != 699 {
		t.Errorf("new band: got [%d,%d], want [500,699]", bands[2].Min, bands[2].Max)
	}

	if _, err := AddBand(bands, 0, "#000", now); err == nil {
		t.Error("AddBand(min=0): expected error")
	}
	if _, err := AddBand(bands, 300, "#000", now); err == nil {
		t.Error("AddBand(duplicate min): expected error")
	}

	bands = RemoveBand(bands, "red")
	if len(bands) != 4 {
		t.Fatalf("RemoveBand: got %d bands, want 4", len(bands))
	}
	if last := bands[len(bands)-1]; last.Max != Infinity {
		t.Errorf("last band Max: got %d, want %d", last.Max, Infinity)
	}
}

func TestIsViralCandidate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		likes int
		age   time.Duration
		want  bool
	}{
		{"fast young post", 50, 10 * time.Minute, true},
		{"below age floor", 50, 2 * time.Minute, false},
		{"over like cap", 150, 10 * time.Minute, false},
		{"past window", 90, 61 * time.Minute, false},
		{"slow rate", 5, 30 * time.Minute, false},
		{"exactly 60 per hour", 30, 30 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsViralCandidate(tt.likes, now.Add(-tt.age), now)
			if got != tt.want {
				t.Errorf("IsViralCandidate(%d, -%s): got %v, want %v", tt.likes, tt.age, got, tt.want)
			}
		})
	}
}

func TestHourlyGrowth(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if g := HourlyGrowth(100, now.Add(-10*time.Minute), now); g.Kind != GrowthNone {
		t.Errorf("young post: got kind %d, want none", g.Kind)
	}

	g := HourlyGrowth(300, now.Add(-2*time.Hour), now)
	if g.Kind != GrowthRate || g.PerHour != 150 {
		t.Errorf("2h post: got %+v, want rate 150", g)
	}
	if g.String() != "+150/h" {
		t.Errorf("String: got %q, want %q", g.String(), "+150/h")
	}

	g = HourlyGrowth(300, now.Add(-25*time.Hour), now)
	if g.Kind != GrowthOverDay {
		t.Errorf("25h post: got kind %d, want over-day", g.Kind)
	}
	if g.String() != "+>1d" {
		t.Errorf("String: got %q, want %q", g.String(), "+>1d")
	}

	if g := HourlyGrowth(0, now.Add(-2*time.Hour), now); g.String() != "" {
		t.Errorf("no likes: got %q, want empty", g.String())
	}
}

func TestStore_FirstSeenWins(t *testing.T) {
	s := NewStore()
	puts := []PostRecord{
		{ID: "a", LikeCount: 1},
		{ID: "b", LikeCount: 2},
		{ID: "a", LikeCount: 99},
		{ID: "c", LikeCount: 3},
		{ID: "b", LikeCount: 98},
	}
	for _, p := range puts {
		s.Put(p.ID, p)
	}

	if got := len(s.Values()); got != 3 {
		t.Fatalf("Values: got %d records, want 3", got)
	}
	if s.Len() != 3 {
		t.Errorf("Len: got %d, want 3", s.Len())
	}
	for _, r := range s.Values() {
		if r.LikeCount > 10 {
			t.Errorf("record %q: got likes %d, first insert should win", r.ID, r.LikeCount)
		}
	}
	if !s.Has("c") || s.Has("z") {
		t.Error("Has: wrong membership")
	}
	if s.Put("a", PostRecord{ID: "a"}) {
		t.Error("Put on existing id: got true, want false")
	}
}

func TestParseTime(t *testing.T) {
	for _, s := range []string{"2025-03-01T12:00:00.000Z", "2025-03-01T12:00:00Z", "2025-03-01T12:00:00+08:00"} {
		if _, ok := ParseTime(s); !ok {
			t.Errorf("ParseTime(%q): not parsed", s)
		}
	}
	if _, ok := ParseTime("yesterday"); ok {
		t.Error("ParseTime(yesterday): parsed, want failure")
	}
}

func TestThemeColor(t *testing.T) {
	if got := ThemeColor("#22C55E", true); got != "#34D399" {
		t.Errorf("dark green: got %q", got)
	}
	if got := ThemeColor("#22C55E", false); got != "#22C55E" {
		t.Errorf("light green: got %q", got)
	}
	if got := ThemeColor("#123456", true); got != "#123456" {
		t.Errorf("custom colour: got %q", got)
	}
}
