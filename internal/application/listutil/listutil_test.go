package listutil

import (
	"net/url"
	"testing"
)

// TestParsePageParams_Defaults verifies default page params when no query values provided.
func TestParsePageParams_Defaults(t *testing.T) {
	q := url.Values{}
	p := ParsePageParams(q)
	if p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected per_page %d, got %d", DefaultPerPage, p.PerPage)
	}
}

// TestParsePageParams_Valid verifies correct parsing of valid page and per_page values.
func TestParsePageParams_Valid(t *testing.T) {
	q := url.Values{"page": {"3"}, "per_page": {"50"}}
	p := ParsePageParams(q)
	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.PerPage != 50 {
		t.Errorf("expected per_page 50, got %d", p.PerPage)
	}
}

// TestParsePageParams_InvalidPerPage verifies fallback to default for invalid per_page.
func TestParsePageParams_InvalidPerPage(t *testing.T) {
	q := url.Values{"per_page": {"30"}} // not in allowed list
	p := ParsePageParams(q)
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per_page %d for invalid value, got %d", DefaultPerPage, p.PerPage)
	}
}

// TestParsePageParams_NegativePage verifies page is clamped to 1 for negative input.
func TestParsePageParams_NegativePage(t *testing.T) {
	q := url.Values{"page": {"-1"}}
	p := ParsePageParams(q)
	if p.Page != 1 {
		t.Errorf("expected page 1 for negative input, got %d", p.Page)
	}
}

// TestParseSortParams_Valid verifies correct parsing of sort column and direction.
func TestParseSortParams_Valid(t *testing.T) {
	q := url.Values{"sort": {"name"}, "dir": {"desc"}}
	s := ParseSortParams(q, []string{"name", "email"})
	if s.Sort != "name" {
		t.Errorf("expected sort=name, got %s", s.Sort)
	}
	if s.Dir != "desc" {
		t.Errorf("expected dir=desc, got %s", s.Dir)
	}
}

// TestParseSortParams_DisallowedColumn verifies disallowed sort columns are rejected.
func TestParseSortParams_DisallowedColumn(t *testing.T) {
	q := url.Values{"sort": {"password"}}
	s := ParseSortParams(q, []string{"name", "email"})
	if s.Sort != "" {
		t.Errorf("expected empty sort for disallowed column, got %s", s.Sort)
	}
}

// TestParseSortParams_InvalidDir verifies invalid direction defaults to asc.
func TestParseSortParams_InvalidDir(t *testing.T) {
	q := url.Values{"sort": {"name"}, "dir": {"DROP TABLE"}}
	s := ParseSortParams(q, []string{"name"})
	if s.Dir != "asc" {
		t.Errorf("expected dir=asc for invalid dir, got %s", s.Dir)
	}
}

// TestParseFilterParams verifies search and filter extraction from query values.
func TestParseFilterParams(t *testing.T) {
	q := url.Values{"q": {" smith "}, "status": {"active"}, "unknown": {"x"}}
	f := ParseFilterParams(q, []string{"status"})
	if f.Search != "smith" {
		t.Errorf("expected search=smith, got %s", f.Search)
	}
	if f.Filters["status"] != "active" {
		t.Errorf("expected status=active, got %s", f.Filters["status"])
	}
	if _, ok := f.Filters["unknown"]; ok {
		t.Error("unexpected filter key 'unknown'")
	}
}

// TestNewPageInfo verifies pagination metadata computation.
func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		perPage    int
		total      int
		wantPages  int
		wantPage   int
		wantOffset int
		wantNext   bool
	}{
		{"basic", 1, 20, 85, 5, 1, 0, true},
		{"page2", 2, 20, 85, 5, 2, 20, true},
		{"lastPage", 5, 20, 85, 5, 5, 80, false},
		{"pageBeyondTotal", 10, 20, 85, 5, 5, 80, false},
		{"emptyList", 1, 20, 0, 1, 1, 0, false},
		{"exactFit", 1, 10, 10, 1, 1, 0, false},
		{"singleRow", 1, 20, 1, 1, 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: got %d, want %d", pi.TotalPages, tt.wantPages)
			}
			if pi.Page != tt.wantPage {
				t.Errorf("Page: got %d, want %d", pi.Page, tt.wantPage)
			}
			if pi.Offset() != tt.wantOffset {
				t.Errorf("Offset: got %d, want %d", pi.Offset(), tt.wantOffset)
			}
			if pi.HasNext() != tt.wantNext {
				t.Errorf("HasNext: got %v, want %v", pi.HasNext(), tt.wantNext)
			}
		})
	}
}

// TestPaginate verifies slicing of an in-memory result set.
func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	tests := []struct {
		name string
		page int
		want []int
	}{
		{"first", 1, []int{1, 2, 3}},
		{"last partial", 3, []int{7}},
		{"beyond end clamps", 9, []int{7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, info := Paginate(items, PageParams{Page: tt.page, PerPage: 3})
			if len(got) != len(tt.want) {
				t.Fatalf("Paginate() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Paginate()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
			if info.Total != 7 || info.TotalPages != 3 {
				t.Errorf("info = %+v", info)
			}
		})
	}

	got, info := Paginate([]string(nil), PageParams{Page: 1, PerPage: 10})
	if len(got) != 0 || info.Total != 0 || info.TotalPages != 1 {
		t.Errorf("Paginate(nil) = %v, %+v", got, info)
	}
}

func TestMatchesSearch(t *testing.T) {
	if !MatchesSearch("", "anything") {
		t.Error("empty search should match")
	}
	if !MatchesSearch("JORD", "Casey", "jordan@example.com") {
		t.Error("search should match case-insensitively on any field")
	}
	if MatchesSearch("zed", "Casey", "jordan@example.com") {
		t.Error("unexpected match")
	}
}
