package api

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"maScan/internal/model"
	"maScan/internal/trace"
)

const listingBodyPreview = 200

// Page 列表一页：过滤后的证券与接口给出的总数（未知为 0）。
type Page struct {
	Number  int
	Symbols []model.Symbol
	Total   int
}

// ListingError 列表任一页拉取或解析失败，整次扫描随之失败。
type ListingError struct {
	Page int
	Err  error
	// Body 解析失败时响应体前 200 字节
	Body string
}

func (e *ListingError) Error() string {
	if e.Body != "" || e.Err == nil {
		return fmt.Sprintf("解析列表失败。响应前200字：%s", e.Body)
	}
	return fmt.Sprintf("拉取列表失败：%v", e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// Listing 从第 1 页起逐页拉取，遇到没有可用条目的页即结束。
// 出错时产出一次 error 后结束；ctx 取消时产出 ctx.Err()。
func (c *Client) Listing(ctx context.Context, p Provider, pageSize int) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		for pn := 1; ; pn++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, err)
				return
			}
			body, err := c.get(ctx, p.ListingRequest(pn, pageSize), 0)
			if err != nil {
				if ctx.Err() != nil {
					yield(Page{}, ctx.Err())
					return
				}
				yield(Page{}, &ListingError{Page: pn, Err: err})
				return
			}
			raw, total, err := p.ParseListing(NormalizeJSON(body))
			if err != nil {
				yield(Page{}, &ListingError{Page: pn, Err: err, Body: preview(body, listingBodyPreview)})
				return
			}
			symbols := usableSymbols(raw)
			trace.Debug(ctx, "api: %s listing page=%d raw=%d usable=%d total=%d", p.Name(), pn, len(raw), len(symbols), total)
			if len(symbols) == 0 {
				return
			}
			if !yield(Page{Number: pn, Symbols: symbols, Total: total}, nil) {
				return
			}
		}
	}
}

// usableSymbols 代码须为 6 位数字且现价 > 0（停牌、退市现价为 0 或 "-"）。
func usableSymbols(in []model.Symbol) []model.Symbol {
	out := in[:0]
	for _, s := range in {
		if isStockCode(s.Code) && s.LastPrice > 0 {
			out = append(out, s)
		}
	}
	return out
}

func isStockCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func preview(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return strings.ToValidUTF8(string(b), "")
}
