// Package table turns raw record pages into view-ready table payloads:
// pagination math, page clamping, row mapping, and serial numbering.
package table

// DefaultPageSize applies when a screen declares no page size.
const DefaultPageSize = 10

// Pager holds the pagination state of one table: the current 1-indexed
// page, the page size, and the total record count.
type Pager struct {
	Page       int
	Limit      int
	TotalCount int
}

// NewPager builds a pager with the page clamped into the valid range.
func NewPager(page, limit, totalCount int) Pager {
	if limit < 1 {
		limit = DefaultPageSize
	}
	if totalCount < 0 {
		totalCount = 0
	}
	p := Pager{Page: page, Limit: limit, TotalCount: totalCount}
	p.Page = p.Clamp(page)
	return p
}

// TotalPages returns the page count. An empty table still has one page so
// the view always has somewhere to stand.
func (p Pager) TotalPages() int {
	if p.TotalCount <= 0 {
		return 1
	}
	pages := p.TotalCount / p.Limit
	if p.TotalCount%p.Limit != 0 {
		pages++
	}
	return pages
}

// Clamp forces a requested page into [1, TotalPages].
func (p Pager) Clamp(page int) int {
	if page < 1 {
		return 1
	}
	if tp := p.TotalPages(); page > tp {
		return tp
	}
	return page
}

// SliceBounds returns the half-open interval of the current page within a
// fully fetched row set of n rows.
func (p Pager) SliceBounds(n int) (lo, hi int) {
	lo = (p.Page - 1) * p.Limit
	if lo > n {
		lo = n
	}
	hi = lo + p.Limit
	if hi > n {
		hi = n
	}
	return lo, hi
}

// HasPrev reports whether a previous page exists.
func (p Pager) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a next page exists.
func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages()
}

// SerialNumber returns the 1-based serial number of row index on the given
// page. Numbering runs continuously across pages.
func SerialNumber(page, limit, index int) int {
	return (page-1)*limit + index + 1
}
