// Package config 从 YAML 文件加载配置，再被环境变量覆盖；未出现的字段保持默认值。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// 配置路径
const (
	defaultConfigPath = "config.yaml"
	envConfigPath     = "CONFIG_PATH"
)

// 数据源默认地址
const (
	EastmoneyListURL    = "https://82.push2.eastmoney.com/api/qt/clist/get"
	EastmoneyBarsURL    = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	SinaListURL         = "https://vip.stock.finance.sina.com.cn/quotes_service/api/json_v2.php/Market_Center.getHQNodeData"
	SinaBarsURL         = "https://money.finance.sina.com.cn/quotes_service/api/json_v2.php/CN_MarketData.getKLineData"
	TonghuashunBarsURL  = "https://d.10jqka.com.cn/v6/line/"
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultRatePerSec   = 20
	defaultJitterMS     = 0
	defaultCacheFile    = "kline_cache.json"
	defaultCacheDirName = "maScan"
)

// 缓存后端
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// 调度：周一至周五 9:15 起每半小时一次，15:00 收盘再跑一次（与本地时区一致）
var defaultScheduleSpecs = []string{"15,45 9-14 * * 1-5", "0 15 * * 1-5"}

const (
	defaultRunTimeout              = 10 * time.Minute
	defaultEmptyRunsBeforeReminder = 3
)

// Config 程序全部配置。
type Config struct {
	Scan      Scan      `yaml:"scan"`
	Providers Providers `yaml:"providers"`
	API       API       `yaml:"api"`
	Cache     Cache     `yaml:"cache"`
	Schedule  Schedule  `yaml:"schedule"`
	Mail      SMTP      `yaml:"mail"`
	Output    Output    `yaml:"output"`
	Log       Log       `yaml:"log"`
}

// Endpoints 单个数据源的列表与 K 线地址；同花顺列表沿用东方财富。
type Endpoints struct {
	ListURL string `yaml:"list_url"`
	BarsURL string `yaml:"bars_url"`
}

type Providers struct {
	Eastmoney   Endpoints `yaml:"eastmoney"`
	Sina        Endpoints `yaml:"sina"`
	Tonghuashun Endpoints `yaml:"tonghuashun"`
}

// API 请求节流：每秒请求数、额外随机抖动（防封）。
type API struct {
	RatePerSecond float64 `yaml:"rate_per_second" env:"MASCAN_API_RATE"`
	JitterMS      int     `yaml:"jitter_ms" env:"MASCAN_API_JITTER_MS"`
	UserAgent     string  `yaml:"user_agent"`
}

type Cache struct {
	Backend string `yaml:"backend" env:"MASCAN_CACHE_BACKEND"`
	Path    string `yaml:"path" env:"MASCAN_CACHE_PATH"`
}

// Schedule 常驻调度；连续 EmptyRunsBeforeReminder 次无入选时发提醒邮件。
type Schedule struct {
	Enabled                 bool          `yaml:"enabled" env:"MASCAN_SCHEDULE"`
	Specs                   []string      `yaml:"specs"`
	RunTimeout              time.Duration `yaml:"run_timeout"`
	EmptyRunsBeforeReminder int           `yaml:"empty_runs_before_reminder"`
}

// Output 结果导出：json 或 parquet；Path 为空则只打印。
type Output struct {
	Format string `yaml:"format" env:"MASCAN_OUTPUT_FORMAT"`
	Path   string `yaml:"path" env:"MASCAN_OUTPUT_PATH"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// Default 返回全部默认值。
func Default() *Config {
	return &Config{
		Scan: DefaultScan(),
		Providers: Providers{
			Eastmoney:   Endpoints{ListURL: EastmoneyListURL, BarsURL: EastmoneyBarsURL},
			Sina:        Endpoints{ListURL: SinaListURL, BarsURL: SinaBarsURL},
			Tonghuashun: Endpoints{ListURL: EastmoneyListURL, BarsURL: TonghuashunBarsURL},
		},
		API: API{
			RatePerSecond: defaultRatePerSec,
			JitterMS:      defaultJitterMS,
			UserAgent:     defaultUserAgent,
		},
		Cache: Cache{
			Backend: CacheBackendFile,
			Path:    defaultCachePath(),
		},
		Schedule: Schedule{
			Specs:                   append([]string(nil), defaultScheduleSpecs...),
			RunTimeout:              defaultRunTimeout,
			EmptyRunsBeforeReminder: defaultEmptyRunsBeforeReminder,
		},
		Output: Output{Format: "json"},
		Log:    Log{Level: "info"},
	}
}

func defaultCachePath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return filepath.Join("data", defaultCacheFile)
	}
	return filepath.Join(dir, defaultCacheDirName, defaultCacheFile)
}

// Path 返回 CONFIG_PATH 指定路径，默认 config.yaml。
func Path() string {
	if v := os.Getenv(envConfigPath); v != "" {
		return v
	}
	return defaultConfigPath
}

// Load 读取 YAML（文件不存在时只用默认值），再应用环境变量覆盖。
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	cfg.Mail.normalize()
	return cfg, nil
}

// For 返回指定数据源的地址，未知按东方财富。
func (p Providers) For(name Provider) Endpoints {
	switch name {
	case ProviderSina:
		return p.Sina
	case ProviderTonghuashun:
		return p.Tonghuashun
	default:
		return p.Eastmoney
	}
}

// Endpoints 返回当前数据源的地址。
func (c *Config) Endpoints() Endpoints {
	return c.Providers.For(c.Scan.Provider)
}

// Validate 检查必填项与取值范围。
func (c *Config) Validate() error {
	if err := c.Scan.Validate(); err != nil {
		return err
	}
	ep := c.Endpoints()
	if ep.ListURL == "" || ep.BarsURL == "" {
		return fmt.Errorf("providers.%s: list_url and bars_url are required", c.Scan.Provider)
	}
	if c.API.RatePerSecond < 0 || c.API.JitterMS < 0 {
		return fmt.Errorf("api.rate_per_second / api.jitter_ms must be >= 0")
	}
	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	switch c.Output.Format {
	case "", "json", "parquet":
	default:
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if c.Schedule.Enabled && len(c.Schedule.Specs) == 0 {
		return fmt.Errorf("schedule.specs is required when schedule.enabled")
	}
	return nil
}
