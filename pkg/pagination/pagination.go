package pagination

import (
	"math"
	"net/http"

	"github.com/platinummonkey/stockroom/pkg/httputil"
)

// MaxPerPage caps per_page on every list endpoint
const MaxPerPage = 100

// MaxPage caps page so Offset stays within a 32-bit OFFSET
const MaxPage = math.MaxInt32 / MaxPerPage

// Params is a validated page request
type Params struct {
	Page    int
	PerPage int
}

// New normalizes page and perPage: values below 1 fall back to page 1 and
// defaultPerPage, page is capped at MaxPage and perPage at MaxPerPage
func New(page, perPage, defaultPerPage int) Params {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return Params{Page: page, PerPage: perPage}
}

// FromRequest reads page and per_page from the query string
func FromRequest(r *http.Request, defaultPerPage int) Params {
	return New(
		httputil.ParseQueryPositiveInt(r, "page", 1),
		httputil.ParseQueryPositiveInt(r, "per_page", defaultPerPage),
		defaultPerPage,
	)
}

// Offset is the number of rows to skip
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Envelope describes the page that was returned
type Envelope struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// NewEnvelope builds the envelope for total matching rows
func NewEnvelope(p Params, total int64) Envelope {
	var pages int64
	if total > 0 {
		pages = (total + int64(p.PerPage) - 1) / int64(p.PerPage)
	}
	return Envelope{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: pages,
	}
}
