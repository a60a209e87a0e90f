package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"maScan/internal/model"
)

const tonghuashunReferer = "https://q.10jqka.com.cn/"

// Tonghuashun 同花顺：日 K 为 JSONP 脚本 hs_<code>/01/last.js；没有可用的列表接口，沿用东方财富。
type Tonghuashun struct {
	Eastmoney
	BarsURL string
}

func (t *Tonghuashun) Name() string { return "tonghuashun" }

// BarsRequest 路径只含代码，不区分市场；条数由接口决定。
func (t *Tonghuashun) BarsRequest(_ model.Market, code string, _ int) Request {
	base := t.BarsURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return Request{
		URL:     base + "hs_" + code + "/01/last.js",
		Referer: tonghuashunReferer,
	}
}

// ParseBars data 为 "20240102,开,高,低,收,...;20240103,..."，日期统一为 yyyy-MM-dd。
func (t *Tonghuashun) ParseBars(body []byte) (model.BarSeries, error) {
	data := gjson.GetBytes(body, "data")
	if data.Type != gjson.String {
		return model.BarSeries{}, fmt.Errorf("tonghuashun: data is not a string")
	}
	var bs model.BarSeries
	for _, row := range strings.Split(data.Str, ";") {
		if row == "" {
			continue
		}
		parts := strings.Split(row, ",")
		if len(parts) < 5 {
			continue
		}
		closeVal, _ := strconv.ParseFloat(parts[4], 64)
		bs.Dates = append(bs.Dates, normalizeDate(parts[0]))
		bs.Closes = append(bs.Closes, closeVal)
	}
	return bs, nil
}

// normalizeDate 20240102 -> 2024-01-02，其它格式原样返回。
func normalizeDate(s string) string {
	if len(s) != 8 {
		return s
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return s
		}
	}
	return s[:4] + "-" + s[4:6] + "-" + s[6:]
}
