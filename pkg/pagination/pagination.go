package pagination

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit    = 20
	MaxLimit        = 100
	DefaultPageSize = 10
)

// Params holds offset-based pagination parameters extracted from a request.
// Used by the FHIR search surface.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts offset pagination parameters from the echo context.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("_count"))
	if limit <= 0 {
		limit, _ = strconv.Atoi(c.QueryParam("limit"))
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	if offset <= 0 {
		offset, _ = strconv.Atoi(c.QueryParam("offset"))
	}
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Response wraps an offset-paginated API response.
type Response struct {
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(data interface{}, total, limit, offset int) *Response {
	return &Response{
		Data:    data,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// FHIRLinks generates FHIR Bundle pagination links for a search result.
// basePath should be the request path (e.g., "/fhir/Condition").
func (p Params) FHIRLinks(basePath string, total int) []FHIRLink {
	links := []FHIRLink{
		{
			Relation: "self",
			URL:      fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.Offset, p.Limit),
		},
	}

	if p.HasNext(total) {
		links = append(links, FHIRLink{
			Relation: "next",
			URL:      fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.NextOffset(), p.Limit),
		})
	}

	if p.HasPrevious() {
		links = append(links, FHIRLink{
			Relation: "previous",
			URL:      fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.PreviousOffset(), p.Limit),
		})
	}

	return links
}

// FHIRLink represents a single FHIR Bundle link entry.
type FHIRLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

// Pager is 1-based, fixed-page-size pagination over an in-memory sequence.
// The requested page is clamped into [1, TotalPages] so that a shrinking
// sequence never leaves a stale out-of-range page showing empty results.
type Pager struct {
	Total    int `json:"total"`
	PageSize int `json:"page_size"`
	Page     int `json:"page"`
}

// NewPager builds a clamped pager. A non-positive page size falls back to
// DefaultPageSize and is capped at MaxLimit.
func NewPager(total, pageSize, page int) Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxLimit {
		pageSize = MaxLimit
	}
	if total < 0 {
		total = 0
	}
	p := Pager{Total: total, PageSize: pageSize, Page: page}
	if last := p.TotalPages(); p.Page > last {
		p.Page = last
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// TotalPages returns the number of pages, at least 1.
func (p Pager) TotalPages() int {
	if p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// Bounds returns the half-open slice interval [start, end) for the current
// page, clamped to [0, Total].
func (p Pager) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PageSize
	if start > p.Total {
		start = p.Total
	}
	end = start + p.PageSize
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// HasNext reports whether a page exists after the current one.
func (p Pager) HasNext() bool {
	return p.Page < p.TotalPages()
}

// HasPrevious reports whether a page exists before the current one.
func (p Pager) HasPrevious() bool {
	return p.Page > 1
}

// Slice returns the visible window of items for the pager's current page.
func Slice[T any](items []T, p Pager) []T {
	start, end := p.Bounds()
	if start >= len(items) {
		return []T{}
	}
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// PageFromContext extracts page-based pagination parameters from the echo
// context, clamped against the supplied total.
func PageFromContext(c echo.Context, total int) Pager {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("page_size"))
	return NewPager(total, size, page)
}
