package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"maScan/internal/mail"
	"maScan/internal/trace"
)

// runScheduler 常驻进程：按 schedule.specs 执行，同一时刻只跑一次，ctx 结束后等当前一次收尾退出。
// 连续 EmptyRunsBeforeReminder 次无入选时发送提醒邮件。
func (a *app) runScheduler(ctx context.Context) error {
	ctx = trace.WithTraceID(ctx, trace.NewTraceID())
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	r := &reminder{threshold: a.cfg.Schedule.EmptyRunsBeforeReminder}
	for _, spec := range a.cfg.Schedule.Specs {
		if _, err := c.AddFunc(spec, func() { a.scheduledRun(ctx, r) }); err != nil {
			return fmt.Errorf("register %q: %w", spec, err)
		}
	}
	trace.Log(ctx, "main: 调度模式启动 specs=%v", a.cfg.Schedule.Specs)
	c.Start()
	if entries := c.Entries(); len(entries) > 0 {
		trace.Log(ctx, "main: 下次执行 %s", entries[0].Next.Format(timeFormatNextRun))
	}
	<-ctx.Done()
	trace.Log(ctx, "main: 收到退出信号，等待当前扫描结束")
	<-c.Stop().Done()
	return nil
}

const timeFormatNextRun = "2006-01-02 15:04"

func (a *app) scheduledRun(ctx context.Context, r *reminder) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, a.cfg.Schedule.RunTimeout)
	defer cancel()
	rows, err := a.runOnce(runCtx)
	if err != nil {
		if !errors.Is(err, errCancelled) {
			trace.Warn(runCtx, "main: 本次扫描失败 %v", err)
		}
		return
	}
	if n, due := r.observe(len(rows)); due {
		trace.Log(runCtx, "main: 连续 %d 次无入选，发送提醒邮件", n)
		if err := mail.SendNoSelectionReminder(runCtx, &a.cfg.Mail, n); err != nil {
			trace.Warn(runCtx, "main: 发送提醒邮件失败 err=%v", err)
		}
	}
}

// reminder 统计连续空结果次数；只在 cron 串行回调中使用。
type reminder struct {
	threshold int
	empty     int
}

// observe 记录一次结果数，到阈值时返回 (次数, true) 并清零。
func (r *reminder) observe(matched int) (int, bool) {
	if matched > 0 {
		r.empty = 0
		return 0, false
	}
	r.empty++
	if r.threshold > 0 && r.empty >= r.threshold {
		n := r.empty
		r.empty = 0
		return n, true
	}
	return r.empty, false
}
