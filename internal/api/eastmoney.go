package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"maScan/internal/model"
)

const eastmoneyUT = "fa5fd1943c7b386f172d6893dbfba10b"

// 列表范围：深主板、创业板、沪主板、科创板、北交所
const eastmoneyListFS = "m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23,m:0+t:81+s:2048"

// 列表字段：f12 代码 f14 名称 f2 现价 f13 市场 f9 市盈率 f100 行业
const eastmoneyListFields = "f12,f14,f2,f13,f9,f100"

// Eastmoney 东方财富：列表 clist/get，日 K kline/get（不复权）。
type Eastmoney struct {
	ListURL string
	BarsURL string
}

func (e *Eastmoney) Name() string { return "eastmoney" }

func (e *Eastmoney) ListingRequest(page, pageSize int) Request {
	q := url.Values{}
	q.Set("pn", strconv.Itoa(page))
	q.Set("pz", strconv.Itoa(pageSize))
	q.Set("po", "1")
	q.Set("np", "2")
	q.Set("fltt", "2")
	q.Set("invt", "2")
	q.Set("fid", "f3")
	q.Set("ut", eastmoneyUT)
	q.Set("fs", eastmoneyListFS)
	q.Set("fields", eastmoneyListFields)
	return Request{URL: e.ListURL, Query: q}
}

// ParseListing data.diff 可能是数组，也可能是 {"0":{},"1":{}} 形式的对象；缺失视为空页。
func (e *Eastmoney) ParseListing(body []byte) ([]model.Symbol, int, error) {
	if !gjson.ValidBytes(body) {
		return nil, 0, fmt.Errorf("eastmoney: invalid json")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, 0, fmt.Errorf("eastmoney: expected object")
	}
	total := int(root.Get("data.total").Int())
	diff := root.Get("data.diff")
	if !diff.Exists() || diff.Type == gjson.Null {
		return nil, total, nil
	}
	var out []model.Symbol
	diff.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		out = append(out, model.Symbol{
			Code:      strings.TrimSpace(v.Get("f12").String()),
			Name:      strings.TrimSpace(v.Get("f14").String()),
			LastPrice: v.Get("f2").Float(),
			Market:    model.Market(v.Get("f13").Int()),
			PE:        v.Get("f9").Float(),
			Sector:    strings.TrimSpace(v.Get("f100").String()),
		})
		return true
	})
	return out, total, nil
}

func (e *Eastmoney) BarsRequest(m model.Market, code string, limit int) Request {
	q := url.Values{}
	q.Set("secid", model.SymbolID(m, code))
	q.Set("klt", "101")
	q.Set("fqt", "0")
	q.Set("beg", "0")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(limit))
	q.Set("rtntype", "6")
	q.Set("ut", eastmoneyUT)
	q.Set("fields1", "f1,f2,f3,f4")
	q.Set("fields2", "f51,f52,f53")
	return Request{URL: e.BarsURL, Query: q}
}

// ParseBars data.klines 每条为 "日期,开盘,收盘"。
func (e *Eastmoney) ParseBars(body []byte) (model.BarSeries, error) {
	return parseKlinesGJSON(body)
}

func parseKlinesGJSON(body []byte) (model.BarSeries, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() {
		return model.BarSeries{}, fmt.Errorf("eastmoney: no data.klines")
	}
	arr := klines.Array()
	var bs model.BarSeries
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 3 {
			continue
		}
		closeVal, _ := strconv.ParseFloat(parts[2], 64)
		bs.Dates = append(bs.Dates, parts[0])
		bs.Closes = append(bs.Closes, closeVal)
	}
	return bs, nil
}
