package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// SampleKind separates HTTP requests from database calls.
type SampleKind uint8

const (
	SampleRequest SampleKind = iota
	SampleQuery
)

// Sample is one timing kept in the ring.
type Sample struct {
	Kind     SampleKind
	Name     string // "GET /api/invitations" or "QueryContext"
	Status   int    // HTTP status, 0 for queries
	Duration time.Duration
	At       time.Time
}

// Ring keeps the most recent samples. Record never blocks on readers for longer than a copy.
type Ring struct {
	mu      sync.Mutex
	samples []Sample
	next    int
	total   atomic.Int64
}

// NewRing creates a ring holding up to size samples.
// PRE: none; size <= 0 uses DefaultRingSize
// POST: Returns an empty ring
func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{samples: make([]Sample, size)}
}

// Record stores s, overwriting the oldest sample once full.
func (r *Ring) Record(s Sample) {
	r.mu.Lock()
	r.samples[r.next] = s
	r.next = (r.next + 1) % len(r.samples)
	r.mu.Unlock()
	r.total.Add(1)
}

// Total is the number of samples ever recorded.
func (r *Ring) Total() int64 {
	return r.total.Load()
}

// NameStat aggregates the samples sharing one name.
type NameStat struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MaxMs float64 `json:"max_ms"`
}

// Summary is the aggregate view served to admins.
type Summary struct {
	Recorded       int64      `json:"recorded"`
	RequestP50Ms   float64    `json:"request_p50_ms"`
	RequestP95Ms   float64    `json:"request_p95_ms"`
	RequestP99Ms   float64    `json:"request_p99_ms"`
	SlowestRoutes  []NameStat `json:"slowest_routes"`
	SlowestQueries []NameStat `json:"slowest_queries"`
}

// Summarize aggregates samples taken at or after since, listing the topN slowest names of each kind.
// Sorting happens here, not in Record.
func (r *Ring) Summarize(since time.Time, topN int) Summary {
	r.mu.Lock()
	buf := make([]Sample, len(r.samples))
	copy(buf, r.samples)
	r.mu.Unlock()

	var requestMs []float64
	byKind := map[SampleKind]map[string]*NameStat{
		SampleRequest: {},
		SampleQuery:   {},
	}
	for _, s := range buf {
		if s.At.IsZero() || s.At.Before(since) {
			continue
		}
		ms := float64(s.Duration.Microseconds()) / 1000
		if s.Kind == SampleRequest {
			requestMs = append(requestMs, ms)
		}
		group := byKind[s.Kind]
		if group == nil {
			continue
		}
		st, ok := group[s.Name]
		if !ok {
			st = &NameStat{Name: s.Name}
			group[s.Name] = st
		}
		st.Count++
		st.AvgMs += ms // running total until slowest() divides
		st.MaxMs = math.Max(st.MaxMs, ms)
	}

	out := Summary{
		Recorded:       r.Total(),
		SlowestRoutes:  slowest(byKind[SampleRequest], topN),
		SlowestQueries: slowest(byKind[SampleQuery], topN),
	}
	if len(requestMs) > 0 {
		sort.Float64s(requestMs)
		out.RequestP50Ms = quantile(requestMs, 0.50)
		out.RequestP95Ms = quantile(requestMs, 0.95)
		out.RequestP99Ms = quantile(requestMs, 0.99)
	}
	return out
}

func slowest(group map[string]*NameStat, n int) []NameStat {
	list := make([]NameStat, 0, len(group))
	for _, st := range group {
		st.AvgMs /= float64(st.Count)
		list = append(list, *st)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Name < list[j].Name
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if n >= 0 && len(list) > n {
		list = list[:n]
	}
	return list
}

// quantile interpolates linearly between the two closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}
