// Package listutil pages member lists for the JSON API.
package listutil

import (
	"errors"
	"net/url"
	"strconv"
)

// DefaultPerPage is used when a request asks for a page without a size.
const DefaultPerPage = 50

// MaxPerPage caps per_page.
const MaxPerPage = 500

// ErrInvalidPage is returned for a page or per_page that is not a positive number.
var ErrInvalidPage = errors.New("page and per_page must be positive whole numbers")

// PageParams is a requested page, 1-indexed.
type PageParams struct {
	Page    int
	PerPage int
}

// ParsePageParams reads ?page= and ?per_page=.
// ok is false when neither is present, meaning the caller wants everything.
// POST: on success Page >= 1 and 1 <= PerPage <= MaxPerPage
func ParsePageParams(q url.Values) (p PageParams, ok bool, err error) {
	rawPage, rawPer := q.Get("page"), q.Get("per_page")
	if rawPage == "" && rawPer == "" {
		return PageParams{}, false, nil
	}
	p = PageParams{Page: 1, PerPage: DefaultPerPage}
	if rawPage != "" {
		if p.Page, err = strconv.Atoi(rawPage); err != nil || p.Page < 1 {
			return PageParams{}, false, ErrInvalidPage
		}
	}
	if rawPer != "" {
		if p.PerPage, err = strconv.Atoi(rawPer); err != nil || p.PerPage < 1 {
			return PageParams{}, false, ErrInvalidPage
		}
		if p.PerPage > MaxPerPage {
			p.PerPage = MaxPerPage
		}
	}
	return p, true, nil
}

// PageInfo describes one page of a result of Total rows.
type PageInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPageInfo computes page metadata. A page past the end is kept as asked
// so that it yields an empty slice rather than silently showing the last page.
// PRE: total >= 0
func NewPageInfo(p PageParams, total int) PageInfo {
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.Page < 1 {
		p.Page = 1
	}
	pages := (total + p.PerPage - 1) / p.PerPage
	if pages < 1 {
		pages = 1
	}
	return PageInfo{Page: p.Page, PerPage: p.PerPage, Total: total, TotalPages: pages}
}

// Bounds returns the [start, end) slice indexes of the page.
// POST: 0 <= start <= end <= Total
func (p PageInfo) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end = start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// HasNext reports whether a later page has rows.
func (p PageInfo) HasNext() bool {
	return p.Page < p.TotalPages
}
