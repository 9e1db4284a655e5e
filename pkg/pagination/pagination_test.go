package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{name: "defaults", query: "", want: Params{Page: 1, PerPage: 10}},
		{name: "explicit", query: "page=3&per_page=25", want: Params{Page: 3, PerPage: 25}},
		{name: "zero falls back", query: "page=0&per_page=0", want: Params{Page: 1, PerPage: 10}},
		{name: "garbage falls back", query: "page=x&per_page=y", want: Params{Page: 1, PerPage: 10}},
		{name: "capped", query: "per_page=1000", want: Params{Page: 1, PerPage: MaxPerPage}},
		{name: "huge page capped", query: "page=9223372036854775807&per_page=100", want: Params{Page: MaxPage, PerPage: MaxPerPage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/products?"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(req, 10))
		})
	}
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, New(1, 10, 10).Offset())
	assert.Equal(t, 20, New(3, 10, 10).Offset())

	huge := New(math.MaxInt, MaxPerPage, 10)
	assert.Positive(t, huge.Offset())
	assert.LessOrEqual(t, huge.Offset(), math.MaxInt32)
}

func TestNewEnvelope(t *testing.T) {
	tests := []struct {
		total   int64
		perPage int
		want    int64
	}{
		{total: 0, perPage: 10, want: 0},
		{total: 1, perPage: 10, want: 1},
		{total: 10, perPage: 10, want: 1},
		{total: 25, perPage: 10, want: 3},
		{total: 3, perPage: 1, want: 3},
	}

	for _, tt := range tests {
		env := NewEnvelope(New(1, tt.perPage, 10), tt.total)
		assert.Equal(t, tt.want, env.TotalPages, "total=%d per_page=%d", tt.total, tt.perPage)
		assert.Equal(t, tt.total, env.Total)
	}
}
