// Package listutil parses paging, sorting and filter query parameters for list endpoints.
package listutil

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// DefaultPerPage applies when per_page is absent or not one of PerPageOptions.
const DefaultPerPage = 20

// PerPageOptions are the accepted per_page values.
var PerPageOptions = []int{10, 20, 50, 100}

// Options names the sort columns and exact-match filters an endpoint accepts.
type Options struct {
	SortColumns []string
	Filters     []string
}

// Query is a parsed list request.
type Query struct {
	Page    int
	PerPage int
	Sort    string // empty selects the store's default order
	Desc    bool
	Search  string            // trimmed q parameter
	Filters map[string]string // only keys named in Options.Filters, only when non-empty
}

// Parse reads page, per_page, sort, dir, q and the filter keys of opts from v.
// Unknown or malformed values fall back to defaults instead of failing.
// POST: Page >= 1; PerPage is one of PerPageOptions; Sort is empty or in opts.SortColumns
func Parse(v url.Values, opts Options) Query {
	q := Query{
		Page:    1,
		PerPage: DefaultPerPage,
		Search:  strings.TrimSpace(v.Get("q")),
		Filters: make(map[string]string, len(opts.Filters)),
	}
	if page, err := strconv.Atoi(v.Get("page")); err == nil && page > 1 {
		q.Page = page
	}
	if n, err := strconv.Atoi(v.Get("per_page")); err == nil && slices.Contains(PerPageOptions, n) {
		q.PerPage = n
	}
	if sort := v.Get("sort"); slices.Contains(opts.SortColumns, sort) {
		q.Sort = sort
		q.Desc = strings.EqualFold(v.Get("dir"), "desc")
	}
	for _, key := range opts.Filters {
		if val := v.Get(key); val != "" {
			q.Filters[key] = val
		}
	}
	return q
}

// PageInfo is the paging envelope returned alongside a page of rows.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageInfo clamps page into range once the row total is known.
// PRE: total >= 0
// POST: TotalPages >= 1; 1 <= Page <= TotalPages
func NewPageInfo(page, perPage, total int) PageInfo {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	pages := max((total+perPage-1)/perPage, 1)
	return PageInfo{
		Page:       min(max(page, 1), pages),
		PerPage:    perPage,
		Total:      total,
		TotalPages: pages,
	}
}

// Offset is the number of rows before the current page.
func (p PageInfo) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasNext reports whether a later page exists.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}
