package api

import (
	"context"
	"fmt"
	"time"

	"maScan/internal/model"
)

// MinBars 一次成功的日 K 响应至少要有的根数。
const MinBars = 6

// FetchError 单只证券单次日 K 请求失败（网络、状态码、解析或根数不足）。
type FetchError struct {
	SymbolID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch bars %s: %v", e.SymbolID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetchBars 请求一次日 K，symbolID 形如 "0.000001"，不在此重试。
// ctx 负责取消（含节流等待）；timeout 只从请求发出起计时，<=0 时只受 http.Client 超时约束。
func (c *Client) FetchBars(ctx context.Context, p Provider, symbolID string, limit int, timeout time.Duration) (model.BarSeries, error) {
	m, code, ok := model.ParseSymbolID(symbolID)
	if !ok {
		return model.BarSeries{}, &FetchError{SymbolID: symbolID, Err: fmt.Errorf("bad symbol id")}
	}
	body, err := c.get(ctx, p.BarsRequest(m, code, limit), timeout)
	if err != nil {
		return model.BarSeries{}, &FetchError{SymbolID: symbolID, Err: err}
	}
	bs, err := p.ParseBars(NormalizeJSON(body))
	if err != nil {
		return model.BarSeries{}, &FetchError{SymbolID: symbolID, Err: err}
	}
	if bs.Len() < MinBars || !bs.Valid() {
		return model.BarSeries{}, &FetchError{SymbolID: symbolID, Err: fmt.Errorf("only %d bars", bs.Len())}
	}
	return bs, nil
}
