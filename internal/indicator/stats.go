package indicator

// Params 均线周期与两个窗口长度；AboveDays <= 0 表示不检查上方窗口。
type Params struct {
	Period    int
	BelowDays int
	AboveDays int
}

// Stats 最近一根已收盘 K 的均线统计。OK 为 false 时其余字段无意义。
type Stats struct {
	OK               bool
	LastClose        float64
	MALast           float64
	MAPrev           float64
	BelowWindowHolds bool // 最新一根之前 BelowDays 根收盘都严格低于当日均线
	AboveWindowHolds bool // 最新一根之前 AboveDays 根收盘都严格高于当日均线
}

// Evaluate 计算形态统计。最后一根日期等于 today（盘中未收盘）时先剔除；
// 剔除后至少需要 max(BelowDays, AboveDays) + Period 根。
func Evaluate(dates []string, closes []float64, p Params, today string) Stats {
	if p.Period <= 0 || len(dates) != len(closes) {
		return Stats{}
	}
	required := max(p.BelowDays, p.AboveDays) + p.Period
	if len(closes) < required {
		return Stats{}
	}
	c := closes
	if len(dates) > 0 && dates[len(dates)-1] == today {
		c = c[:len(c)-1]
	}
	n := len(c)
	if n < required {
		return Stats{}
	}

	ma := Series(c, p.Period)
	st := Stats{
		OK:        true,
		LastClose: c[n-1],
		MALast:    ma[n-1],
		MAPrev:    ma[n-1],
	}
	if n >= p.Period+1 {
		st.MAPrev = ma[n-2]
	}
	st.BelowWindowHolds = windowHolds(c, ma, p.Period, p.BelowDays, func(close, avg float64) bool { return close < avg })
	if p.AboveDays > 0 {
		st.AboveWindowHolds = windowHolds(c, ma, p.Period, p.AboveDays, func(close, avg float64) bool { return close > avg })
	}
	return st
}

// windowHolds 检查最新一根之前的 days 根（偏移 days..1）；某根不足一个周期即不成立。
func windowHolds(c, ma []float64, period, days int, ok func(close, avg float64) bool) bool {
	n := len(c)
	for offset := days; offset >= 1; offset-- {
		idx := n - 1 - offset
		if idx < period-1 {
			return false
		}
		if !ok(c[idx], ma[idx]) {
			return false
		}
	}
	return true
}
