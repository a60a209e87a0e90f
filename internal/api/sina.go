package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"maScan/internal/model"
)

// Sina 新浪：列表 Market_Center.getHQNodeData（沪深 A 股节点），日 K getKLineData。
type Sina struct {
	ListURL string
	BarsURL string
}

func (s *Sina) Name() string { return "sina" }

func (s *Sina) ListingRequest(page, pageSize int) Request {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("num", strconv.Itoa(pageSize))
	q.Set("sort", "code")
	q.Set("asc", "1")
	q.Set("node", "hs_a")
	q.Set("symbol", "")
	q.Set("_s_r_a", "init")
	return Request{URL: s.ListURL, Query: q}
}

// ParseListing 响应为数组，symbol 形如 sh600000；trade 是字符串价格。新浪不给总数。
func (s *Sina) ParseListing(body []byte) ([]model.Symbol, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("sina: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, 0, fmt.Errorf("sina: expected array")
	}
	var out []model.Symbol
	for _, v := range root.Array() {
		if !v.IsObject() {
			continue
		}
		m := model.MarketSZ
		if strings.HasPrefix(v.Get("symbol").String(), "sh") {
			m = model.MarketSH
		}
		out = append(out, model.Symbol{
			Code:      strings.TrimSpace(v.Get("code").String()),
			Name:      strings.TrimSpace(v.Get("name").String()),
			LastPrice: parseFloat(v.Get("trade")),
			PE:        parseFloat(v.Get("per")),
			Market:    m,
		})
	}
	return out, 0, nil
}

// BarsRequest symbol 前缀取本次尝试的市场：sh600000 / sz000001 / bj830799。
func (s *Sina) BarsRequest(m model.Market, code string, limit int) Request {
	q := url.Values{}
	q.Set("symbol", m.String()+code)
	q.Set("scale", "240")
	q.Set("ma", "no")
	q.Set("datalen", strconv.Itoa(limit))
	return Request{URL: s.BarsURL, Query: q}
}

// ParseBars 响应为 [{"day":"2024-01-02","close":"10.12",...}]。
func (s *Sina) ParseBars(body []byte) (model.BarSeries, error) {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return model.BarSeries{}, fmt.Errorf("sina: expected array")
	}
	var bs model.BarSeries
	for _, v := range root.Array() {
		if !v.IsObject() {
			continue
		}
		bs.Dates = append(bs.Dates, v.Get("day").String())
		bs.Closes = append(bs.Closes, parseFloat(v.Get("close")))
	}
	return bs, nil
}

// parseFloat 兼容数字与字符串数字，无法解析为 0。
func parseFloat(v gjson.Result) float64 {
	if v.Type == gjson.String {
		f, _ := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		return f
	}
	return v.Float()
}
