package store

import "math"

const (
	DefaultPageSize = 12
	MaxPageSize     = 100

	// MaxPage keeps Offset from overflowing at MaxPageSize.
	MaxPage = math.MaxInt / MaxPageSize
)

// Pagination describes one page of an offset-paginated listing.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// PageRequest is a requested page. Zero values select the first page of
// DefaultPageSize rows.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps page to >= 1 and limit to [1, MaxPageSize], substituting
// defaultLimit for a missing limit.
func (p PageRequest) Normalize(defaultLimit int) PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Limit < 1 {
		p.Limit = defaultLimit
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

func newPagination(p PageRequest, total int64) Pagination {
	pages := int(total) / p.Limit
	if int(total)%p.Limit > 0 {
		pages++
	}

	return Pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: pages,
	}
}
