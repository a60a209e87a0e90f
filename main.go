// Package main 是均线形态选股程序的入口：拉取沪深京 A 股列表、逐只计算均线形态、排序输出，可选导出与邮件推送。
// 支持单次运行或调度模式（schedule.enabled / MASCAN_SCHEDULE=1 时按 cron 表达式执行）。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maScan/internal/api"
	"maScan/internal/cache"
	"maScan/internal/config"
	"maScan/internal/export"
	"maScan/internal/mail"
	"maScan/internal/model"
	"maScan/internal/scanner"
	"maScan/internal/trace"
)

// 结果打印
const (
	topNPrinted      = 50
	progressLogEvery = 500
)

type app struct {
	cfg    *config.Config
	engine *scanner.Engine
	cache  *cache.Cache
	out    io.Writer
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	trace.Setup(os.Stderr, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		log.Fatalf("main: %v", err)
	}
}

// run 建好 app 后按配置执行单次或调度，返回前总会关闭缓存。
func run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := newApp(cfg, out)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.close()

	if cfg.Schedule.Enabled {
		if err := a.runScheduler(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	}
	runCtx, cancel := context.WithTimeout(ctx, cfg.Schedule.RunTimeout)
	defer cancel()
	_, err = a.runOnce(runCtx)
	return err
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	store, err := cache.NewStore(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	c := cache.New(store, time.Now)
	client := api.NewClient(
		api.WithTimeout(cfg.Scan.Timeout),
		api.WithRateLimit(cfg.API.RatePerSecond),
		api.WithJitter(time.Duration(cfg.API.JitterMS)*time.Millisecond),
		api.WithUserAgent(cfg.API.UserAgent),
	)
	providers := func(name config.Provider) (api.Provider, error) {
		return api.NewProvider(name, cfg.Providers.For(name))
	}
	return &app{
		cfg:    cfg,
		engine: scanner.NewEngine(client, c, providers),
		cache:  c,
		out:    out,
	}, nil
}

func (a *app) close() {
	if err := a.cache.Close(); err != nil {
		log.Printf("cache close: %v", err)
	}
}

// errCancelled 扫描被取消（信号或超时）。
var errCancelled = errors.New("scan cancelled")

// runOnce 跑一次扫描并消费全部事件，返回排好序的结果。
func (a *app) runOnce(ctx context.Context) ([]model.ResultRow, error) {
	ctx = trace.WithTraceID(ctx, trace.NewTraceID())
	trace.Log(ctx, "main: start provider=%s mode=%s", a.cfg.Scan.Provider, a.cfg.Scan.Mode)
	rows, err := a.consume(ctx, a.engine.RunOnce(ctx, a.cfg.Scan))
	if err != nil {
		return nil, err
	}
	a.printRows(rows)
	if a.cfg.Output.Path != "" {
		path, err := export.Save(rows, time.Now().Format(time.DateOnly), a.cfg.Output.Format, a.cfg.Output.Path)
		if err != nil {
			trace.Warn(ctx, "main: 导出失败 %v", err)
		} else {
			trace.Log(ctx, "main: 已导出 %s", path)
		}
	}
	mail.MustSendReport(ctx, &a.cfg.Mail, rows, describe(a.cfg.Scan))
	trace.Log(ctx, "main: end, 共 %d 只", len(rows))
	return rows, nil
}

// consume 读到 channel 关闭为止。
func (a *app) consume(ctx context.Context, events <-chan scanner.Event) ([]model.ResultRow, error) {
	var (
		rows []model.ResultRow
		err  error
	)
	for ev := range events {
		switch e := ev.(type) {
		case scanner.StageChanged:
			trace.Log(ctx, "main: %s", e.Text)
		case scanner.Progress:
			if e.Total > 0 && (e.Done == e.Total || e.Done%progressLogEvery == 0) {
				trace.Debug(ctx, "main: 进度 %d/%d", e.Done, e.Total)
			}
		case scanner.Matched:
			fmt.Fprintf(a.out, "命中 %s %s 现价=%.2f MA=%.2f 乖离=%.2f%%\n",
				e.Row.Code, e.Row.Name, e.Row.LastPrice, e.Row.MA, e.Row.BiasPct)
		case scanner.Finished:
			rows = e.Rows
		case scanner.Failed:
			err = e.Err
			if err == nil {
				err = errors.New(e.Reason)
			}
		case scanner.Cancelled:
			err = errCancelled
		}
	}
	return rows, err
}

func (a *app) printRows(rows []model.ResultRow) {
	fmt.Fprintf(a.out, "%s，共 %d 只\n", describe(a.cfg.Scan), len(rows))
	for i, r := range rows {
		if i == topNPrinted {
			fmt.Fprintf(a.out, "... 其余 %d 只省略\n", len(rows)-topNPrinted)
			break
		}
		fmt.Fprintf(a.out, "%3d %s.%s %-8s %-8s 现价=%.2f MA=%.2f 乖离=%.2f%% PE=%.2f\n",
			i+1, r.Market, r.Code, r.Name, r.Sector, r.LastPrice, r.MA, r.BiasPct, r.PE)
	}
}

// describe 一句话描述当前形态条件，用于打印与邮件标题。
func describe(s config.Scan) string {
	var d string
	switch s.Mode {
	case config.ModePullback:
		d = fmt.Sprintf("MA%d 回踩：前 %d 日收盘在均线上，今日距均线 %.1f%% 内", s.MAPeriod, s.AboveDays, s.PullbackTolerancePct)
	default:
		d = fmt.Sprintf("MA%d 突破：前 %d 日收盘在均线下，今日站上", s.MAPeriod, s.BelowDays)
	}
	if s.RequireSlopeUp {
		d += "，均线向上"
	}
	return d
}
