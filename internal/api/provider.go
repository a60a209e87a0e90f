package api

import (
	"fmt"
	"net/url"

	"maScan/internal/config"
	"maScan/internal/model"
)

// Request 一次 GET 请求的描述；Referer 为空时使用东方财富。
type Request struct {
	URL     string
	Query   url.Values
	Referer string
}

func (r Request) String() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	return r.URL + "?" + r.Query.Encode()
}

// Provider 数据源能力：构造列表/日 K 请求并解析响应。
// 传入 Parse* 的 body 已经过 NormalizeJSON。
type Provider interface {
	Name() string
	ListingRequest(page, pageSize int) Request
	// ParseListing 返回本页原始条目与总数（未知为 0），过滤由调用方完成。
	ParseListing(body []byte) ([]model.Symbol, int, error)
	BarsRequest(m model.Market, code string, limit int) Request
	ParseBars(body []byte) (model.BarSeries, error)
}

// NewProvider 按配置选择数据源。
func NewProvider(name config.Provider, ep config.Endpoints) (Provider, error) {
	switch name {
	case config.ProviderEastmoney:
		return &Eastmoney{ListURL: ep.ListURL, BarsURL: ep.BarsURL}, nil
	case config.ProviderSina:
		return &Sina{ListURL: ep.ListURL, BarsURL: ep.BarsURL}, nil
	case config.ProviderTonghuashun:
		return &Tonghuashun{
			Eastmoney: Eastmoney{ListURL: ep.ListURL},
			BarsURL:   ep.BarsURL,
		}, nil
	default:
		return nil, fmt.Errorf("api: unknown provider %q", name)
	}
}
