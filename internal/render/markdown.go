// Package render formats a Report for terminal display. Formatting is a
// presentation concern: the report itself carries plain numbers and nils,
// and absent values render as N/A rather than zero.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Markdown renders the full report as a Markdown document.
func Markdown(r *model.Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# 投資分析報告書：%s (%s)\n\n", r.DisplayName, r.Ticker))
	b.WriteString(fmt.Sprintf("分析日期：%s\n\n", r.GeneratedAt.Format("2006-01-02")))

	b.WriteString("## 執行摘要\n\n")
	b.WriteString(fmt.Sprintf("- 綜合信念評分：%d / 100\n", r.Score.Score))
	b.WriteString(fmt.Sprintf("- 投資建議：%s\n", r.Verdict.Label()))
	b.WriteString(fmt.Sprintf("- 最新收盤價：%.2f\n", r.Price))
	b.WriteString(fmt.Sprintf("- 籌碼態勢：%s\n\n", r.Score.ChipStatus))
	for _, reason := range r.Score.Reasons {
		b.WriteString(fmt.Sprintf("  - %s\n", reason))
	}
	b.WriteString("\n")

	if r.Summary != "" {
		b.WriteString("## 商業背景\n\n")
		b.WriteString(r.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## 財務估值\n\n")
	if r.Valuation != nil {
		b.WriteString(fmt.Sprintf("- 本益比 (P/E)：%s\n", fmtOpt(r.Valuation.PERatio, "%.2f")))
		b.WriteString(fmt.Sprintf("- 股價淨值比 (P/B)：%s\n", fmtOpt(r.Valuation.PBRatio, "%.2f")))
		b.WriteString(fmt.Sprintf("- 殖利率：%s\n", fmtOpt(r.Valuation.DividendYieldPct, "%.2f%%")))
	} else {
		b.WriteString("查無估值數據\n")
	}
	b.WriteString("\n")

	b.WriteString("## 獲利能力\n\n")
	if r.Profitability != nil {
		p := r.Profitability
		b.WriteString(fmt.Sprintf("- 毛利率：%s | 營益率：%s | 淨利率：%s\n",
			fmtOpt(p.GrossMarginPct, "%.2f%%"), fmtOpt(p.OperatingMarginPct, "%.2f%%"), fmtOpt(p.NetMarginPct, "%.2f%%")))
		b.WriteString(fmt.Sprintf("- ROE：%s | ROA：%s\n", fmtOpt(p.ReturnOnEquityPct, "%.2f%%"), fmtOpt(p.ReturnOnAssetsPct, "%.2f%%")))
		b.WriteString(fmt.Sprintf("- EPS：%s | 每股淨值：%s\n", fmtOpt(p.EPS, "%.2f"), fmtOpt(p.BookValuePerShare, "%.2f")))
	} else {
		b.WriteString("查無獲利數據\n")
	}
	b.WriteString("\n")

	b.WriteString("## 法人籌碼\n\n")
	if r.InstitutionalFlow != nil {
		f := r.InstitutionalFlow
		b.WriteString(fmt.Sprintf("- 外資買賣超：%d 張\n", f.ForeignNetLots))
		b.WriteString(fmt.Sprintf("- 投信買賣超：%d 張\n", f.TrustNetLots))
		b.WriteString(fmt.Sprintf("- 自營商買賣超：%d 張\n", f.DealerNetLots))
	} else {
		b.WriteString("今日尚無法人交易數據\n")
	}
	if r.Ownership != nil {
		o := r.Ownership
		b.WriteString(fmt.Sprintf("- 大戶持股 (%s)：%.2f%% (%+.2fpp)\n",
			o.AsOfDate.Format("2006-01-02"), o.LargeHolderPct, o.LargeHolderPctChange))
		b.WriteString(fmt.Sprintf("- 股東總人數：%d (%+d)\n", o.TotalHolders, o.TotalHoldersChange))
	}
	if r.InsiderHoldingPct != nil {
		b.WriteString(fmt.Sprintf("- 董監持股：%.2f%%\n", *r.InsiderHoldingPct))
	}
	b.WriteString("\n")

	b.WriteString("## 技術分析\n\n")
	latest := r.Latest()
	b.WriteString(fmt.Sprintf("- RSI (14)：%s\n", fmtOpt(latest.RSI, "%.2f")))
	b.WriteString(fmt.Sprintf("- MACD 柱體：%.2f\n", latest.MACD-latest.Signal))
	if latest.MA20 != nil {
		b.WriteString(fmt.Sprintf("- 月線乖離：%.2f\n", r.Price-*latest.MA20))
	}
	b.WriteString(fmt.Sprintf("- MA5：%s | MA20：%s | MA60：%s\n\n",
		fmtOpt(latest.MA5, "%.2f"), fmtOpt(latest.MA20, "%.2f"), fmtOpt(latest.MA60, "%.2f")))

	b.WriteString("## 未來展望\n\n")
	b.WriteString("### 戰略催化劑\n\n")
	for _, c := range r.Outlook.Catalysts {
		b.WriteString(fmt.Sprintf("- %s\n", c))
	}
	b.WriteString("\n### 風險矩陣\n\n")
	for _, risk := range r.Outlook.Risks {
		b.WriteString(fmt.Sprintf("- ⚠️ %s\n", risk))
	}
	b.WriteString("\n### 綜合投資論述\n\n")
	b.WriteString(r.Outlook.Thesis)
	b.WriteString("\n")

	if len(r.Provenance) > 0 {
		b.WriteString("\n## 資料來源\n\n")
		for _, field := range sortedKeys(r.Provenance) {
			b.WriteString(fmt.Sprintf("- %s：%s\n", field, r.Provenance[field]))
		}
	}

	return b.String()
}

func fmtOpt(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
