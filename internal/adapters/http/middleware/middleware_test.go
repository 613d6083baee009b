package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		ErrorKind string `json:"error_kind"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.ErrorKind
}

// TestRateLimiter_PerIP verifies the burst is per client address and refills over time.
func TestRateLimiter_PerIP(t *testing.T) {
	rl := NewRateLimiter(2)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request in the same instant should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("another address has its own bucket")
	}
	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("bucket should refill after a second")
	}
}

// TestRateLimiter_SweepsIdleVisitors verifies idle addresses are forgotten.
func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(5)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(10 * time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.visitors["10.0.0.1"]; ok {
		t.Error("idle visitor was not swept")
	}
	if len(rl.visitors) != 1 {
		t.Errorf("visitors = %d, want 1", len(rl.visitors))
	}
}

// TestRateLimit_Returns429 verifies the middleware rejects with a JSON body.
func TestRateLimit_Returns429(t *testing.T) {
	handler := RateLimit(NewRateLimiter(1))(okHandler)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", first.Code)
	}
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", second.Code)
	}
	if kind := errorKind(t, second); kind != "rate_limited" {
		t.Errorf("error_kind = %q, want rate_limited", kind)
	}
}

func TestSecurityHeaders(t *testing.T) {
	rr := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "no-store",
	} {
		if got := rr.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

// TestCSRF_JSONExemptFormRejected verifies JSON posts pass and token-less form posts are refused.
func TestCSRF_JSONExemptFormRejected(t *testing.T) {
	handler := CSRF(make([]byte, 32), CSRFOptions{})(okHandler)

	jsonReq := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{}`))
	jsonReq.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, jsonReq)
	if rr.Code != http.StatusOK {
		t.Errorf("JSON post status = %d, want 200", rr.Code)
	}

	formReq := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("email=a%40b.c"))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, formReq)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("form post status = %d, want 403", rr.Code)
	}
	if kind := errorKind(t, rr); kind != "csrf" {
		t.Errorf("error_kind = %q, want csrf", kind)
	}

	getReq := httptest.NewRequest("GET", "/api/auth/csrf", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, getReq)
	if rr.Code != http.StatusOK {
		t.Errorf("GET status = %d, want 200", rr.Code)
	}
}

// TestChain_Order verifies the last middleware runs first.
func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	Chain(okHandler, mark("inner"), mark("outer")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if strings.Join(order, ",") != "outer,inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}
