// Package pagination implements the offset paging shared by the record and
// media listings.
package pagination

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid pagination parameters")

const DefaultPage = 1

type Params struct {
	Page  int
	Limit int
}

// Offset saturates at math.MaxInt instead of wrapping negative.
func (p Params) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type Summary struct {
	CurrentPage int
	TotalPages  int
	TotalCount  int
	HasNext     bool
	HasPrev     bool
}

// Summarize derives the page summary from the total number of matching rows.
// totalPages is ceil(total/limit); an empty result has zero pages.
func Summarize(p Params, total int) Summary {
	totalPages := 0
	if p.Limit > 0 && total > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Summary{
		CurrentPage: p.Page,
		TotalPages:  totalPages,
		TotalCount:  total,
		HasNext:     p.Page < totalPages,
		HasPrev:     p.Page > 1,
	}
}

// Parse reads the raw page and limit query values. Empty values fall back to
// page 1 and defaultLimit; limits above maxLimit are clamped. A page whose
// offset does not fit in an int is rejected.
func Parse(pageRaw, limitRaw string, defaultLimit, maxLimit int) (Params, error) {
	params := Params{Page: DefaultPage, Limit: defaultLimit}

	if v := strings.TrimSpace(pageRaw); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, ErrInvalid
		}
		params.Page = n
	}

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, ErrInvalid
		}
		params.Limit = n
	}

	if maxLimit > 0 && params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	if params.Limit > 0 && params.Page-1 > math.MaxInt/params.Limit {
		return Params{}, ErrInvalid
	}

	return params, nil
}
