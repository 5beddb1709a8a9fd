package throttle

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const (
	testRemoteAddr  = "1.2.3.4:1234"
	testPrivateAddr = "192.168.1.1:1234"
)

// --- Tracker accessor tests ---

func TestTracker_IntervalAccessor(t *testing.T) {
	tracker := MustTracker(2*time.Second, 10)

	iv := tracker.Interval()
	if iv.Duration != 2*time.Second {
		t.Errorf("expected duration 2s, got %v", iv.Duration)
	}
	if iv.Limit != 10 {
		t.Errorf("expected limit 10, got %d", iv.Limit)
	}
}

func TestTracker_SlackAccessor(t *testing.T) {
	tracker := MustTracker(time.Minute, 5)
	if got := tracker.Slack(); got != DefaultSlack {
		t.Errorf("expected default slack %v, got %v", DefaultSlack, got)
	}

	tracker = MustTracker(time.Minute, 5, WithSlack(time.Second))
	if got := tracker.Slack(); got != time.Second {
		t.Errorf("expected 1s slack, got %v", got)
	}
}

func TestTracker_RemainingZeroLimit(t *testing.T) {
	tracker := MustTracker(time.Minute, 0)

	tracker.Allow()
	if got := tracker.Remaining(); got != 0 {
		t.Errorf("expected 0 remaining with zero limit, got %d", got)
	}
}

func TestMustTracker_Valid(t *testing.T) {
	tracker := MustTracker(time.Minute, 5, WithSlack(time.Millisecond))
	if tracker == nil {
		t.Fatal("expected tracker")
	}
	if got := tracker.Slack(); got != time.Millisecond {
		t.Errorf("expected 1ms slack, got %v", got)
	}
}

func TestWithClock_NilRestoresRealClock(t *testing.T) {
	tracker, err := NewTracker(time.Minute, 1, WithClock(nil))
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if !tracker.Allow() {
		t.Error("tracker with real clock should admit")
	}
}

// --- Header helper tests ---

func TestAddRateLimitHeaders_NoWindow(t *testing.T) {
	tracker := MustTracker(time.Minute, 5)
	h := make(http.Header)

	AddRateLimitHeaders(h, tracker, true)

	if got := h.Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("expected limit header 5, got %q", got)
	}
	if got := h.Get("X-RateLimit-Reset"); got != "" {
		t.Errorf("expected no reset header before any window, got %q", got)
	}
}

func TestAddRateLimitHeaders_RetryAfterOnlyOnDenial(t *testing.T) {
	tracker := MustTracker(time.Minute, 5)
	tracker.Allow()

	h := make(http.Header)
	AddRateLimitHeaders(h, tracker, true)
	if got := h.Get("Retry-After"); got != "" {
		t.Errorf("expected no Retry-After on admission, got %q", got)
	}

	h = make(http.Header)
	AddRateLimitHeaders(h, tracker, false)
	if got := h.Get("Retry-After"); got == "" {
		t.Error("expected Retry-After on denial")
	}
}

func TestHeaderTracker_Multi(t *testing.T) {
	multi := NewMulti(MustTracker(time.Minute, 1), MustTracker(time.Hour, 1))

	// A composite has no single window to report
	if got := headerTracker(multi); got != nil {
		t.Errorf("expected nil header tracker for Multi, got %v", got)
	}
}

func TestDefaultOnLimitReached(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	DefaultOnLimitReached(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestJSONOnLimitReachedWithCode(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()

	JSONOnLimitReachedWithCode(http.StatusServiceUnavailable)(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("expected JSON content type, got %s", w.Header().Get("Content-Type"))
	}
}

// --- Skip function tests ---

func TestSkipPrivateIPs(t *testing.T) {
	tests := []struct {
		remoteAddr string
		skip       bool
	}{
		{testPrivateAddr, true},
		{"10.0.0.1:1234", true},
		{"127.0.0.1:9999", true},
		{testRemoteAddr, false},
		{"not-an-ip", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := SkipPrivateIPs(req); got != tt.skip {
			t.Errorf("SkipPrivateIPs(%s): expected %v, got %v", tt.remoteAddr, tt.skip, got)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{"with port", testPrivateAddr, "192.168.1.1"},
		{"without port", "192.168.1.1", "192.168.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = tt.remoteAddr

			if ip := clientIP(req); ip != tt.expected {
				t.Errorf("expected IP %s, got %s", tt.expected, ip)
			}
		})
	}
}

func TestSkipPaths(t *testing.T) {
	skip := SkipPaths("/a", "/b")

	req := httptest.NewRequest("GET", "/a", nil)
	if !skip(req) {
		t.Error("expected /a to be skipped")
	}

	req = httptest.NewRequest("GET", "/c", nil)
	if skip(req) {
		t.Error("expected /c not to be skipped")
	}
}

// --- Handler wrapper tests ---

func TestHandler(t *testing.T) {
	tracker := MustTracker(time.Minute, 1)

	handler := Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), tracker)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 after budget spent, got %d", w.Code)
	}
}
