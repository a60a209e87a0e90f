// Package filter 定义均线形态条件（Criterion）与组合方式（And/Or），Strategy 按配置选出突破或回踩策略。
package filter

import (
	"maScan/internal/config"
	"maScan/internal/indicator"
	"maScan/internal/model"
)

// Candidate 待判定的证券：列表现价 + 日 K 统计。
type Candidate struct {
	Symbol model.Symbol
	Stats  indicator.Stats
}

// Criterion 单条条件：入参为候选，返回是否通过。
type Criterion func(*Candidate) bool

func And(cs ...Criterion) Criterion {
	return func(c *Candidate) bool {
		if c == nil {
			return false
		}
		for _, cr := range cs {
			if cr == nil {
				continue
			}
			if !cr(c) {
				return false
			}
		}
		return true
	}
}

func Or(cs ...Criterion) Criterion {
	return func(c *Candidate) bool {
		if c == nil {
			return false
		}
		for _, cr := range cs {
			if cr == nil {
				continue
			}
			if cr(c) {
				return true
			}
		}
		return false
	}
}

func StatsOK(c *Candidate) bool { return c.Stats.OK }

// PriceAboveMA 现价（列表价）高于最近已收盘日均线。
func PriceAboveMA(c *Candidate) bool { return c.Symbol.LastPrice > c.Stats.MALast }

func BelowWindow(c *Candidate) bool { return c.Stats.BelowWindowHolds }

func AboveWindow(c *Candidate) bool { return c.Stats.AboveWindowHolds }

// SlopeUp required 为 false 时恒通过。
func SlopeUp(required bool) Criterion {
	return func(c *Candidate) bool {
		return !required || c.Stats.MALast > c.Stats.MAPrev
	}
}

// NearMA 现价落在均线 ±tolPct% 以内（含边界）。
func NearMA(tolPct float64) Criterion {
	tol := tolPct / 100
	return func(c *Candidate) bool {
		ma := c.Stats.MALast
		last := c.Symbol.LastPrice
		return last >= ma*(1-tol) && last <= ma*(1+tol)
	}
}

// BreakAbove 连续 N 日收盘在均线下，现价站上均线。
func BreakAbove(requireSlopeUp bool) Criterion {
	return And(StatsOK, PriceAboveMA, BelowWindow, SlopeUp(requireSlopeUp))
}

// Pullback 连续 N 日收盘在均线上，现价回到均线附近。
func Pullback(tolPct float64, requireSlopeUp bool) Criterion {
	return And(StatsOK, AboveWindow, SlopeUp(requireSlopeUp), NearMA(tolPct))
}

// Strategy 当前模式对应的形态条件。
func Strategy(s config.Scan) Criterion {
	if s.Mode == config.ModePullback {
		return Pullback(s.PullbackTolerancePct, s.RequireSlopeUp)
	}
	return BreakAbove(s.RequireSlopeUp)
}

// Bias 乖离率 (price/ma-1)*100。
func Bias(price, ma float64) float64 {
	return (price/ma - 1) * 100
}

// Row 入选候选转为结果行。
func Row(c *Candidate, windowDays int) model.ResultRow {
	s := c.Symbol
	return model.ResultRow{
		Code:       s.Code,
		Name:       s.Name,
		Sector:     s.Sector,
		Market:     s.Market,
		PE:         s.PE,
		LastPrice:  s.LastPrice,
		MA:         c.Stats.MALast,
		BiasPct:    Bias(s.LastPrice, c.Stats.MALast),
		WindowDays: windowDays,
	}
}
