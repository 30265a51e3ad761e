package pagination

import (
	"errors"
	"math"
	"strconv"
	"testing"
)

func TestSummarizeInvariants(t *testing.T) {
	for total := 0; total <= 37; total++ {
		for limit := 1; limit <= 12; limit++ {
			for page := 1; page <= 6; page++ {
				s := Summarize(Params{Page: page, Limit: limit}, total)

				wantPages := total / limit
				if total%limit != 0 {
					wantPages++
				}
				if s.TotalPages != wantPages {
					t.Fatalf("total=%d limit=%d: totalPages=%d want %d", total, limit, s.TotalPages, wantPages)
				}
				if s.HasNext != (page < s.TotalPages) {
					t.Fatalf("total=%d limit=%d page=%d: hasNext=%v", total, limit, page, s.HasNext)
				}
				if s.HasPrev != (page > 1) {
					t.Fatalf("page=%d: hasPrev=%v", page, s.HasPrev)
				}
				if s.TotalCount != total || s.CurrentPage != page {
					t.Fatalf("summary does not echo inputs: %+v", s)
				}
			}
		}
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 1, Limit: 10}).Offset(); got != 0 {
		t.Fatalf("page 1 offset = %d", got)
	}
	if got := (Params{Page: 3, Limit: 10}).Offset(); got != 20 {
		t.Fatalf("page 3 offset = %d", got)
	}
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse("", "", 10, 100)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Page != 1 || p.Limit != 10 {
		t.Fatalf("unexpected defaults: %+v", p)
	}
}

func TestParseClampsLimit(t *testing.T) {
	p, err := Parse("2", "1000", 10, 100)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Page != 2 || p.Limit != 100 {
		t.Fatalf("unexpected params: %+v", p)
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	for _, tc := range [][2]string{
		{"0", ""},
		{"-1", ""},
		{"abc", ""},
		{"", "0"},
		{"", "ten"},
		{"9223372036854775807", ""},
		{"9223372036854775807", "100"},
	} {
		if _, err := Parse(tc[0], tc[1], 10, 100); !errors.Is(err, ErrInvalid) {
			t.Fatalf("Parse(%q, %q): expected ErrInvalid, got %v", tc[0], tc[1], err)
		}
	}
}

func TestOffsetSaturatesInsteadOfOverflowing(t *testing.T) {
	if got := (Params{Page: math.MaxInt, Limit: 100}).Offset(); got != math.MaxInt {
		t.Fatalf("expected saturated offset, got %d", got)
	}
	if got := (Params{Page: math.MaxInt/100 + 1, Limit: 100}).Offset(); got < 0 {
		t.Fatalf("offset wrapped negative: %d", got)
	}
}

func TestParseAcceptsLargestRepresentablePage(t *testing.T) {
	page := strconv.Itoa(math.MaxInt/100 + 1)
	p, err := Parse(page, "100", 10, 100)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Offset() < 0 {
		t.Fatalf("offset wrapped negative: %d", p.Offset())
	}
}
