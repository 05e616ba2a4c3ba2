// Package outlook maps the resolved record and the already-computed score
// to narrative catalysts, risks, and a thesis sentence. The output is
// advisory text only and never feeds back into the score.
package outlook

import (
	"fmt"

	"github.com/ryantsai1111-cpu/stockk/internal/config"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
	"github.com/ryantsai1111-cpu/stockk/internal/scoring"
)

// Generator produces the narrative buckets with the configured thresholds.
type Generator struct {
	cfg config.ScoringConfig
}

// NewGenerator creates an outlook generator.
func NewGenerator(cfg config.ScoringConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Generate derives the three narrative buckets. Each statement is gated by
// an explicit condition over the resolved fields; when nothing in a bucket
// fires, a generic fallback keeps the bucket non-empty.
func (g *Generator) Generate(in scoring.Input, breakdown model.ScoreBreakdown, verdict model.Verdict, displayName string) model.Outlook {
	var out model.Outlook

	// Catalysts
	if in.Flow != nil && in.Flow.TrustNetLots > 0 {
		out.Catalysts = append(out.Catalysts, "**內資作帳**：投信近期站在買方，季底作帳行情可期。")
	}
	if in.Tech.MA60 != nil && in.Price > *in.Tech.MA60 {
		out.Catalysts = append(out.Catalysts, "**均線支撐**：股價位於季線之上，下方支撐強勁。")
	}
	if in.Valuation != nil && in.Valuation.DividendYieldPct != nil && *in.Valuation.DividendYieldPct > 5 {
		out.Catalysts = append(out.Catalysts, "**存股價值**：高殖利率提供下檔保護。")
	}
	if in.Ownership != nil && in.Ownership.LargeHolderPctChange > 0 {
		out.Catalysts = append(out.Catalysts, "**籌碼集中**：大戶持股比例上升，主力籌碼穩定。")
	}
	if in.Profitability != nil && in.Profitability.GrossMarginPct != nil && *in.Profitability.GrossMarginPct > 40 {
		out.Catalysts = append(out.Catalysts, "**高毛利護城河**：毛利率逾四成，獲利結構優異。")
	}
	if len(out.Catalysts) == 0 {
		out.Catalysts = append(out.Catalysts, "**區間整理**：等待量能放大突破。")
	}

	// Risks
	if in.Tech.RSI != nil && *in.Tech.RSI > g.cfg.OverheatedRSI {
		out.Risks = append(out.Risks, "**技術過熱**：RSI 指標進入超買區，短線隨時可能回檔。")
	}
	if in.Flow != nil && in.Flow.ForeignNetLots < 0 {
		out.Risks = append(out.Risks, "**外資提款**：外資近期賣超，籌碼面有鬆動疑慮。")
	}
	if in.Ownership != nil && in.Ownership.LargeHolderPctChange < -g.cfg.LargeHolderDropPct {
		out.Risks = append(out.Risks, "**大戶撤退**：大戶持股比例下降，留意籌碼流向散戶。")
	}
	if len(out.Risks) == 0 {
		out.Risks = append(out.Risks, "**市場波動**：留意大盤系統性風險與國際情勢變化。")
	}

	// Thesis: one templated sentence referencing the 20-session average as
	// the support level.
	support := in.Price
	if in.Tech.MA20 != nil {
		support = *in.Tech.MA20
	}
	out.Thesis = fmt.Sprintf(
		"綜合多方數據分析，%s 目前評分為 **%d 分**。籌碼面呈現 **%s** 態勢。建議投資人採取 **%s** 策略，並以月線 %.2f 作為防守點。",
		displayName, breakdown.Score, breakdown.ChipStatus, verdict.Label(), support,
	)

	return out
}
