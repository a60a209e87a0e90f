// Package model 定义证券、日 K 序列、选股结果等数据结构。
package model

import (
	"strconv"
	"strings"
)

// Market 交易所板块编码，与东方财富 f13 一致：0 深圳、1 上海、2 北交所。
type Market int

const (
	MarketSZ Market = 0
	MarketSH Market = 1
	MarketBJ Market = 2
)

// Markets 规范顺序，市场回退时按此顺序补齐。
var Markets = []Market{MarketSZ, MarketSH, MarketBJ}

func (m Market) String() string {
	switch m {
	case MarketSZ:
		return "sz"
	case MarketSH:
		return "sh"
	case MarketBJ:
		return "bj"
	default:
		return strconv.Itoa(int(m))
	}
}

// ParseMarket 解析 "sz"/"sh"/"bj" 或数字编码，未知返回 false。
func ParseMarket(s string) (Market, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "sz":
		return MarketSZ, true
	case "1", "sh":
		return MarketSH, true
	case "2", "bj":
		return MarketBJ, true
	}
	return 0, false
}

// Symbol 列表接口单条：代码、名称、行业、市场、现价、PE。创建后不再修改。
type Symbol struct {
	Code      string
	Name      string
	Sector    string
	Market    Market
	LastPrice float64
	PE        float64
}

// ID 返回带市场前缀的证券 id，如 1.600519；缓存与 K 线请求都以此为键。
func (s Symbol) ID(m Market) string {
	return SymbolID(m, s.Code)
}

func SymbolID(m Market, code string) string {
	return strconv.Itoa(int(m)) + "." + code
}

// ParseSymbolID 拆分 "1.600519" 为市场与代码。
func ParseSymbolID(id string) (Market, string, bool) {
	mk, code, ok := strings.Cut(id, ".")
	if !ok || code == "" {
		return 0, "", false
	}
	m, ok := ParseMarket(mk)
	if !ok {
		return 0, "", false
	}
	return m, code, true
}

// BarSeries 日 K 收盘序列，日期升序且不重复，Dates 与 Closes 等长。
type BarSeries struct {
	Dates  []string
	Closes []float64
}

func (b BarSeries) Len() int { return len(b.Closes) }

func (b BarSeries) Valid() bool {
	return len(b.Closes) > 0 && len(b.Dates) == len(b.Closes)
}

// Trim 只保留最近 n 根。
func (b BarSeries) Trim(n int) BarSeries {
	if n <= 0 || len(b.Closes) <= n {
		return b
	}
	drop := len(b.Closes) - n
	return BarSeries{
		Dates:  append([]string(nil), b.Dates[drop:]...),
		Closes: append([]float64(nil), b.Closes[drop:]...),
	}
}

// ResultRow 选股结果：证券信息 + 最近已收盘日均线 + 乖离率 + 窗口天数。
type ResultRow struct {
	Code       string
	Name       string
	Sector     string
	Market     Market
	PE         float64
	LastPrice  float64
	MA         float64
	BiasPct    float64 // (LastPrice/MA-1)*100
	WindowDays int
}
