// Package rank 对选股结果按乖离率、乖离率绝对值或 PE 排序。
package rank

import (
	"cmp"
	"math"
	"slices"

	"maScan/internal/config"
	"maScan/internal/model"
)

func keyFunc(key config.SortKey) func(model.ResultRow) float64 {
	switch key {
	case config.SortAbsBias:
		return func(r model.ResultRow) float64 { return math.Abs(r.BiasPct) }
	case config.SortPE:
		return func(r model.ResultRow) float64 { return r.PE }
	default:
		return func(r model.ResultRow) float64 { return r.BiasPct }
	}
}

// Rows 原地稳定排序，键相同的行保持原有先后。
func Rows(rows []model.ResultRow, key config.SortKey, desc bool) {
	k := keyFunc(key)
	slices.SortStableFunc(rows, func(a, b model.ResultRow) int {
		if desc {
			return cmp.Compare(k(b), k(a))
		}
		return cmp.Compare(k(a), k(b))
	})
}
