// Package mail 按 SMTP 配置发送选股结果 HTML 邮件与无入选提醒。
package mail

import (
	"cmp"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"maScan/internal/config"
	"maScan/internal/model"
	"maScan/internal/trace"
)

const (
	smtpTimeout     = 15 * time.Second
	defaultSMTPPort = 587
	implicitTLSPort = 465
)

// SendReport 发送选股结果；未配置 SMTP 或结果为空时什么都不做。
func SendReport(ctx context.Context, cfg *config.SMTP, rows []model.ResultRow, title string) error {
	if cfg == nil || !cfg.Enabled() || len(rows) == 0 {
		return nil
	}
	to := recipients(cfg.To)
	trace.Log(ctx, "mail: SendReport to=%s count=%d", strings.Join(to, ","), len(rows))
	if err := send(cfg, "今日选股结果", buildReportHTML(rows, title), to); err != nil {
		return err
	}
	trace.Log(ctx, "mail: sent ok")
	return nil
}

// SendNoSelectionReminder 调度模式下连续多次无入选时的提醒。
func SendNoSelectionReminder(ctx context.Context, cfg *config.SMTP, emptyRuns int) error {
	if cfg == nil || !cfg.Enabled() {
		return nil
	}
	trace.Log(ctx, "mail: reminder to=%s empty_runs=%d", cfg.To, emptyRuns)
	return send(cfg, "选股提醒：连续无入选", buildReminderHTML(emptyRuns, time.Now()), recipients(cfg.To))
}

// MustSendReport 发送失败只记日志。
func MustSendReport(ctx context.Context, cfg *config.SMTP, rows []model.ResultRow, title string) {
	if len(rows) == 0 {
		trace.Log(ctx, "mail: 无选中股票，不发邮件")
		return
	}
	if cfg == nil || !cfg.Enabled() {
		trace.Log(ctx, "mail: 未配置 SMTP，跳过")
		return
	}
	if err := SendReport(ctx, cfg, rows, title); err != nil {
		trace.Warn(ctx, "mail: 发送失败 err=%v", err)
	}
}

func recipients(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// buildMessage 拼邮件头与正文；主题按 RFC 2047 编码。
func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ","))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.BEncoding.Encode("UTF-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func send(cfg *config.SMTP, subject, htmlBody string, to []string) error {
	if len(to) == 0 {
		return fmt.Errorf("smtp: no recipients")
	}
	c, err := dial(cfg)
	if err != nil {
		return err
	}
	defer c.Close()
	return deliver(c, cfg.From, to, buildMessage(cfg.From, to, subject, htmlBody))
}

// dial 连上服务器并完成加密与认证：465 端口直接 TLS，其余端口有 STARTTLS 就升级。
func dial(cfg *config.SMTP) (*smtp.Client, error) {
	port := cmp.Or(cfg.Port, defaultSMTPPort)
	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(port))
	tlsCfg := &tls.Config{ServerName: cfg.Server}
	dialer := &net.Dialer{Timeout: smtpTimeout, Deadline: time.Now().Add(smtpTimeout)}

	var (
		conn net.Conn
		err  error
	)
	if port == implicitTLSPort {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsCfg)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(smtpTimeout))

	c, err := smtp.NewClient(conn, cfg.Server)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	steps := []struct {
		name string
		run  func() error
	}{
		{"starttls", func() error {
			if ok, _ := c.Extension("STARTTLS"); port == implicitTLSPort || !ok {
				return nil
			}
			return c.StartTLS(tlsCfg)
		}},
		{"auth", func() error {
			if cfg.Password == "" {
				return nil
			}
			return c.Auth(smtp.PlainAuth("", cfg.User, cfg.Password, cfg.Server))
		}},
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			c.Close()
			return nil, fmt.Errorf("smtp %s: %w", st.name, err)
		}
	}
	return c, nil
}

// deliver 一封信走完 MAIL/RCPT/DATA/QUIT。
func deliver(c *smtp.Client, from string, to []string, msg []byte) error {
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	for _, t := range to {
		if err := c.Rcpt(t); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", t, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}
