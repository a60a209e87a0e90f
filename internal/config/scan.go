package config

import (
	"fmt"
	"time"
)

// Provider 行情数据源。
type Provider string

const (
	ProviderEastmoney   Provider = "eastmoney"
	ProviderSina        Provider = "sina"
	ProviderTonghuashun Provider = "tonghuashun"
)

// Mode 形态模式，两者互斥。
type Mode string

const (
	ModeBreakAbove Mode = "break_above" // 连续 N 日收盘在均线下，今日站上
	ModePullback   Mode = "pullback"    // 连续 N 日收盘在均线上，今日回踩到均线附近
)

// SortKey 结果排序字段。
type SortKey string

const (
	SortBias    SortKey = "bias"
	SortAbsBias SortKey = "abs_bias"
	SortPE      SortKey = "pe"
)

// 扫描默认值
const (
	defaultMAPeriod             = 5
	defaultBelowDays            = 3
	defaultAboveDays            = 3
	defaultPullbackTolerancePct = 1.5
	defaultPageSize             = 200
	defaultMaxInFlight          = 12
	defaultRequestTimeout       = 12 * time.Second
	defaultMaxRetries           = 2
)

// K 线请求条数：至少 minBarsLimit 根，或窗口 + barsLimitSlack
const (
	minBarsLimit   = 40
	barsLimitSlack = 15
)

// Scan 一次扫描的全部参数，扫描开始后视为只读。
type Scan struct {
	Provider             Provider      `yaml:"provider" env:"MASCAN_PROVIDER"`
	Mode                 Mode          `yaml:"mode" env:"MASCAN_MODE"`
	MAPeriod             int           `yaml:"ma_period" env:"MASCAN_MA_PERIOD"`
	BelowDays            int           `yaml:"below_days" env:"MASCAN_BELOW_DAYS"`
	AboveDays            int           `yaml:"above_days" env:"MASCAN_ABOVE_DAYS"`
	PullbackTolerancePct float64       `yaml:"pullback_tolerance_pct" env:"MASCAN_PULLBACK_TOLERANCE_PCT"`
	RequireSlopeUp       bool          `yaml:"require_slope_up" env:"MASCAN_REQUIRE_SLOPE_UP"`
	IncludeBJ            bool          `yaml:"include_bj" env:"MASCAN_INCLUDE_BJ"`
	PageSize             int           `yaml:"page_size" env:"MASCAN_PAGE_SIZE"`
	MaxInFlight          int           `yaml:"max_in_flight" env:"MASCAN_CONCURRENCY"`
	Timeout              time.Duration `yaml:"timeout" env:"MASCAN_TIMEOUT"`
	MaxRetries           int           `yaml:"max_retries" env:"MASCAN_MAX_RETRIES"`
	SortKey              SortKey       `yaml:"sort_key" env:"MASCAN_SORT_KEY"`
	SortDesc             bool          `yaml:"sort_desc" env:"MASCAN_SORT_DESC"`
}

func DefaultScan() Scan {
	return Scan{
		Provider:             ProviderEastmoney,
		Mode:                 ModeBreakAbove,
		MAPeriod:             defaultMAPeriod,
		BelowDays:            defaultBelowDays,
		AboveDays:            defaultAboveDays,
		PullbackTolerancePct: defaultPullbackTolerancePct,
		IncludeBJ:            true,
		PageSize:             defaultPageSize,
		MaxInFlight:          defaultMaxInFlight,
		Timeout:              defaultRequestTimeout,
		MaxRetries:           defaultMaxRetries,
		SortKey:              SortBias,
		SortDesc:             true,
	}
}

// EffectiveAboveDays 仅回踩模式使用上方窗口，突破模式为 0。
func (s Scan) EffectiveAboveDays() int {
	if s.Mode == ModePullback {
		return s.AboveDays
	}
	return 0
}

// WindowDays 结果行展示的窗口天数。
func (s Scan) WindowDays() int {
	if s.Mode == ModePullback {
		return s.AboveDays
	}
	return s.BelowDays
}

func (s Scan) lookback() int {
	return max(s.BelowDays, s.EffectiveAboveDays())
}

// MinCachedBars 缓存命中时至少需要的 K 线根数（多留一根给可能被剔除的当日未收盘 K）。
func (s Scan) MinCachedBars() int {
	return s.lookback() + s.MAPeriod + 1
}

// BarsLimit 单次 K 线请求条数。
func (s Scan) BarsLimit() int {
	return max(minBarsLimit, s.lookback()+barsLimitSlack)
}

// Validate 检查取值范围，错误信息带 yaml 字段名。
func (s Scan) Validate() error {
	switch s.Provider {
	case ProviderEastmoney, ProviderSina, ProviderTonghuashun:
	default:
		return fmt.Errorf("scan.provider: unknown provider %q", s.Provider)
	}
	switch s.Mode {
	case ModeBreakAbove, ModePullback:
	default:
		return fmt.Errorf("scan.mode: unknown mode %q", s.Mode)
	}
	switch s.SortKey {
	case SortBias, SortAbsBias, SortPE:
	default:
		return fmt.Errorf("scan.sort_key: unknown key %q", s.SortKey)
	}
	if s.MAPeriod < 1 {
		return fmt.Errorf("scan.ma_period must be >= 1")
	}
	if s.BelowDays < 0 || s.AboveDays < 0 {
		return fmt.Errorf("scan.below_days / scan.above_days must be >= 0")
	}
	if s.Mode == ModePullback && s.AboveDays < 1 {
		return fmt.Errorf("scan.above_days must be >= 1 in pullback mode")
	}
	if s.PullbackTolerancePct < 0 {
		return fmt.Errorf("scan.pullback_tolerance_pct must be >= 0")
	}
	if s.PageSize <= 0 {
		return fmt.Errorf("scan.page_size must be positive")
	}
	if s.MaxInFlight <= 0 {
		return fmt.Errorf("scan.max_in_flight must be positive")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("scan.timeout must be positive")
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("scan.max_retries must be >= 0")
	}
	return nil
}
