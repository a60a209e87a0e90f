package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"maScan/internal/config"
	"maScan/internal/model"
)

func rows() []model.ResultRow {
	return []model.ResultRow{
		{Code: "A", BiasPct: 1.5, PE: 30},
		{Code: "B", BiasPct: -3, PE: 10},
		{Code: "C", BiasPct: 1.5, PE: 20},
		{Code: "D", BiasPct: 0.2, PE: 0},
	}
}

func codes(rs []model.ResultRow) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Code
	}
	return out
}

func TestRows(t *testing.T) {
	tests := []struct {
		key  config.SortKey
		desc bool
		want []string
	}{
		{config.SortBias, true, []string{"A", "C", "D", "B"}},
		{config.SortBias, false, []string{"B", "D", "A", "C"}},
		{config.SortAbsBias, true, []string{"B", "A", "C", "D"}},
		{config.SortPE, false, []string{"D", "B", "C", "A"}},
		{config.SortPE, true, []string{"A", "C", "B", "D"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			rs := rows()
			Rows(rs, tt.key, tt.desc)
			assert.Equal(t, tt.want, codes(rs))
		})
	}
}

func TestRows_StableForEqualKeys(t *testing.T) {
	rs := []model.ResultRow{{Code: "x1", PE: 5}, {Code: "x2", PE: 5}, {Code: "x3", PE: 5}}
	Rows(rs, config.SortPE, true)
	assert.Equal(t, []string{"x1", "x2", "x3"}, codes(rs))
	Rows(rs, config.SortPE, false)
	assert.Equal(t, []string{"x1", "x2", "x3"}, codes(rs))
}
