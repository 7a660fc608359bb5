package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("UUIDv7: %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("x_", func() string { return "abc" })
	if got := gen(); got != "x_abc" {
		t.Fatalf("Prefixed: got %q", got)
	}
}

func TestNew_Session(t *testing.T) {
	id := New()
	if !strings.HasPrefix(id, SessionPrefix) {
		t.Fatalf("New: missing prefix in %q", id)
	}
	u, err := ParseSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if u.Version() != 7 {
		t.Errorf("version: got %d, want 7", u.Version())
	}
}

func TestParseSession_Invalid(t *testing.T) {
	for _, id := range []string{"", "col_", "col_nope", "0190a6b2-0000-7000-8000-000000000000"} {
		if _, err := ParseSession(id); err == nil {
			t.Errorf("ParseSession(%q): want error", id)
		}
	}
}
