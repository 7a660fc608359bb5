package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
})

func TestAPIHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	APIHeaders(ok).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 16)
		_, readErr = r.Body.Read(buf)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader("0123456789")))
	if readErr == nil || !strings.Contains(readErr.Error(), "too large") {
		t.Errorf("got %v, want body too large", readErr)
	}
}

func TestHeadToGet(t *testing.T) {
	var method string
	h := HeadToGet(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { method = r.Method }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("HEAD", "/", nil))
	if method != http.MethodGet {
		t.Errorf("method: got %q", method)
	}
}

func TestAccessLog_PassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequestID(AccessLog(nil)(ok)).ServeHTTP(rec, httptest.NewRequest("GET", "/x", nil))
	if rec.Body.String() != "ok" {
		t.Errorf("body: %q", rec.Body)
	}
}

func TestClientLimiter(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	l := NewClientLimiter(time.Second, 2)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 rejected")
	}
	if l.Allow("a") {
		t.Fatal("third request allowed inside the interval")
	}
	if !l.Allow("b") {
		t.Fatal("other client throttled")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("request after interval rejected")
	}

	now = now.Add(time.Hour)
	if n := l.GC(time.Minute); n != 2 {
		t.Errorf("GC: dropped %d, want 2", n)
	}
}

func TestClientLimiter_Middleware(t *testing.T) {
	l := NewClientLimiter(time.Minute, 1)
	h := l.Middleware(ok)

	req := httptest.NewRequest("POST", "/verify", nil)
	req.RemoteAddr = "10.0.0.1:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second: %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After: %q", rec.Header().Get("Retry-After"))
	}
}
