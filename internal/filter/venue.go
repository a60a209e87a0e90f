package filter

import (
	"strings"

	"maScan/internal/model"
)

// 北交所（含原新三板精选层）代码前缀
var bjCodePrefixes = []string{"43", "83", "87", "88"}

func IsBJCode(code string) bool {
	for _, p := range bjCodePrefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Venue 入队前的市场过滤：不含北交所时按代码前缀剔除。
func Venue(includeBJ bool) func(model.Symbol) bool {
	return func(s model.Symbol) bool {
		return includeBJ || !IsBJCode(s.Code)
	}
}
