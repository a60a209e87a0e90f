// Package indicator 从日 K 收盘序列计算简单均线与均线形态统计。
package indicator

// SMA 最近 n 根收盘的简单均价，数据不足返回 0。
func SMA(closes []float64, n int) float64 { return SMAAt(closes, n, 0) }

// SMAAt 以倒数第 offset+1 根为末的 n 日均价，offset 0 表示最后一根。
func SMAAt(closes []float64, n, offset int) float64 {
	if n <= 0 || offset < 0 || len(closes) < n+offset {
		return 0
	}
	end := len(closes) - offset
	return mean(closes[end-n : end])
}

// Series 逐日 n 日均价，与 closes 等长；前 n-1 根不足一个周期，为 0。
func Series(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(closes); i++ {
		out[i] = mean(closes[i-n+1 : i+1])
	}
	return out
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
