// Package api 封装行情数据源（东方财富、新浪、同花顺）的列表与日 K 接口，含请求节流与 trace 日志。
package api

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"maScan/internal/trace"
)

// 请求头（模拟浏览器）
const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultReferer   = "https://quote.eastmoney.com/"
	acceptJSON       = "application/json,text/plain,*/*"
	acceptLanguage   = "zh-CN,zh;q=0.9,en;q=0.8"
)

const (
	defaultHTTPTimeout = 12 * time.Second
	defaultRatePerSec  = 20
	maxRespLogLen      = 1200
)

// Client 单次请求不重试：重试与换市场由扫描调度负责。
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	jitter     time.Duration
	userAgent  string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout 单个请求的超时，含读取响应体。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit 每秒请求数；<=0 不限速。
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithJitter 每次请求前额外随机等待 [0, d]。
func WithJitter(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.jitter = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRatePerSec), defaultRatePerSec),
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError 非 200 响应。
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.URL)
}

func (c *Client) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.jitter <= 0 {
		return nil
	}
	d := time.Duration(rand.Int64N(int64(c.jitter) + 1))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// get 发起一次 GET 并读完响应体；ctx 取消会中断进行中的请求。
// timeout > 0 时从节流等待结束后开始计时，只约束请求本身。
func (c *Client) get(ctx context.Context, r Request, timeout time.Duration) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("api client is nil")
	}
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	u := r.String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	referer := r.Referer
	if referer == "" {
		referer = defaultReferer
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptJSON)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Referer", referer)

	trace.Debug(ctx, "api: req GET %s", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	trace.Debug(ctx, "api: resp status=%d len=%d body=%s", resp.StatusCode, len(body), truncateForLog(body))
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, URL: u, Body: truncateForLog(body)}
	}
	return body, nil
}

func truncateForLog(b []byte) string {
	s := string(b)
	if len(b) > maxRespLogLen {
		s = s[:maxRespLogLen] + "..."
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r", " "), "\n", " ")
}
