package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coachdesk/internal/metrics"
)

// TestTimingMiddleware_RecordsSample verifies that a request sample is recorded.
func TestTimingMiddleware_RecordsSample(t *testing.T) {
	ring := metrics.NewRing(100)
	handler := Timing(ring, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if ring.Total() != 1 {
		t.Errorf("Total = %d, want 1", ring.Total())
	}
}

// TestTimingMiddleware_LabelsMatchedPattern verifies samples carry the route pattern, not the raw path.
func TestTimingMiddleware_LabelsMatchedPattern(t *testing.T) {
	ring := metrics.NewRing(100)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/programs/{id}/calendar", func(w http.ResponseWriter, r *http.Request) {})
	// An inner middleware copies the request, as Auth does.
	copying := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(r.Context()))
		})
	}
	handler := Chain(RoutePattern(mux), copying, Timing(ring, time.Hour))

	for _, path := range []string{"/api/programs/p1/calendar", "/api/programs/p2/calendar", "/nowhere"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	got := map[string]int{}
	for _, s := range ring.Summarize(time.Time{}, 10).SlowestRoutes {
		got[s.Name] = s.Count
	}
	if got["GET /api/programs/{id}/calendar"] != 2 {
		t.Errorf("pattern count = %d, want 2 (routes %v)", got["GET /api/programs/{id}/calendar"], got)
	}
	if got[unmatchedRoute] != 1 {
		t.Errorf("unmatched count = %d, want 1 (routes %v)", got[unmatchedRoute], got)
	}
}

// TestTimingMiddleware_CapturesStatusCode verifies the status code is captured.
func TestTimingMiddleware_CapturesStatusCode(t *testing.T) {
	ring := metrics.NewRing(100)
	handler := Timing(ring, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/missing", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if ring.Total() != 1 {
		t.Errorf("Total = %d, want 1", ring.Total())
	}
}

// TestTimingMiddleware_NilRing verifies middleware works without a ring.
func TestTimingMiddleware_NilRing(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}
