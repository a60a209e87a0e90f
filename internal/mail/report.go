package mail

import (
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"time"

	"maScan/internal/model"
)

var tradingSayings = []string{
	"截断亏损，让利润奔跑。",
	"不要和趋势作对。",
	"会买的是徒弟，会卖的是师傅。",
	"行情在绝望中诞生，在犹豫中发展，在欢乐中死亡。",
	"空仓也是一种仓位。",
}

func buildReportHTML(rows []model.ResultRow, title string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8"><title>选股结果</title></head><body>`)
	fmt.Fprintf(&b, "<h2>今日选股结果（%d 只）</h2>", len(rows))
	if title != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(title))
	}
	b.WriteString(`<table border="1" cellspacing="0" cellpadding="8" style="border-collapse: collapse; font-size: 14px;">`)
	b.WriteString(`<thead><tr style="background: #eee;"><th>代码</th><th>名称</th><th>行业</th><th>现价</th><th>均线</th><th>乖离%</th><th>PE</th><th>窗口</th></tr></thead><tbody>`)
	for _, r := range rows {
		sector := r.Sector
		if sector == "" {
			sector = "-"
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%.2f</td><td>%d</td></tr>",
			html.EscapeString(r.Code), html.EscapeString(r.Name), html.EscapeString(sector),
			r.LastPrice, r.MA, r.BiasPct, r.PE, r.WindowDays)
	}
	b.WriteString("</tbody></table></body></html>")
	return b.String()
}

func buildReminderHTML(emptyRuns int, now time.Time) string {
	saying := tradingSayings[rand.IntN(len(tradingSayings))]
	return fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="UTF-8"></head><body>`+
		`<p>截至 %s，已连续 %d 次扫描无入选。</p><p>%s</p></body></html>`,
		now.Format(time.DateTime), emptyRuns, html.EscapeString(saying))
}
