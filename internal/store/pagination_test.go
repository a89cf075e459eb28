package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"Zero", PageRequest{}, PageRequest{Page: 1, Limit: DefaultPageSize}},
		{"Negative", PageRequest{Page: -3, Limit: -1}, PageRequest{Page: 1, Limit: DefaultPageSize}},
		{"TooLarge", PageRequest{Page: 2, Limit: 500}, PageRequest{Page: 2, Limit: MaxPageSize}},
		{"Kept", PageRequest{Page: 4, Limit: 20}, PageRequest{Page: 4, Limit: 20}},
		{"HugePage", PageRequest{Page: 1 << 62, Limit: 12}, PageRequest{Page: MaxPage, Limit: 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(DefaultPageSize))
		})
	}
}

func TestPageRequest_OffsetNeverNegative(t *testing.T) {
	for _, limit := range []int{1, DefaultPageSize, MaxPageSize, 1000} {
		p := PageRequest{Page: 1 << 62, Limit: limit}.Normalize(DefaultPageSize)
		assert.GreaterOrEqual(t, p.Offset(), 0, "limit %d", limit)
	}
}

func TestNewPagination(t *testing.T) {
	p := PageRequest{Page: 2, Limit: 12}

	assert.Equal(t, 12, p.Offset())
	assert.Equal(t, Pagination{Page: 2, Limit: 12, Total: 25, Pages: 3}, newPagination(p, 25))
	assert.Equal(t, 2, newPagination(p, 24).Pages)
	assert.Equal(t, 0, newPagination(p, 0).Pages)
}
