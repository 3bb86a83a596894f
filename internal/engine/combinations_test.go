package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/oraclebot/internal/domain"
)

func TestIndexSubsets_Counts(t *testing.T) {
	tests := []struct {
		n, lo, hi int
		want      int
	}{
		{n: 3, lo: 1, hi: 3, want: 7},
		{n: 5, lo: 1, hi: 3, want: 5 + 10 + 10},
		{n: 5, lo: 2, hi: 3, want: 10 + 10},
		{n: 2, lo: 1, hi: 5, want: 3},
		{n: 4, lo: 0, hi: 1, want: 4}, // nunca el vacío
		{n: 0, lo: 1, hi: 3, want: 0},
		{n: 3, lo: 4, hi: 5, want: 0},
	}
	for _, tc := range tests {
		assert.Len(t, indexSubsets(tc.n, tc.lo, tc.hi), tc.want, "n=%d %d..%d", tc.n, tc.lo, tc.hi)
	}
}

func TestIndexSubsets_Order(t *testing.T) {
	got := indexSubsets(3, 1, 3)
	assert.Equal(t, [][]int{{0}, {1}, {2}, {0, 1}, {0, 2}, {1, 2}, {0, 1, 2}}, got)
}

func TestSubsets_KeepIDOrder(t *testing.T) {
	got := subsets([]string{"T17", "S1", "E10"}, 2, 2)
	assert.Equal(t, []domain.Combo{
		{"T17", "S1"},
		{"T17", "E10"},
		{"S1", "E10"},
	}, got)
}
