// Package scoring turns the resolved record and technical indicators into a
// deterministic score breakdown. Rules are evaluated in a fixed order; each
// either adds to, subtracts from, or leaves the running score unchanged and
// may append a reason string. Optional inputs that are absent mean the rule
// does not fire: "unknown" contributes zero, it is never treated as zero
// value. The final score is the 50-point neutral baseline plus the fired
// deltas, clamped to [0,100].
package scoring

import (
	"fmt"

	"github.com/ryantsai1111-cpu/stockk/internal/config"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

const baselineScore = 50

// Input is the resolved record the rules evaluate. Tech is the snapshot of
// the most recent bar.
type Input struct {
	Price             float64
	Tech              model.TechnicalSnapshot
	Valuation         *model.ValuationSnapshot
	Profitability     *model.ProfitabilitySnapshot
	Flow              *model.InstitutionalFlow
	Ownership         *model.OwnershipConcentration
	InsiderHoldingPct *float64
}

// Engine evaluates the rule set with the configured thresholds.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates a scoring engine.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate runs the ordered rule set and returns the clamped breakdown.
func (e *Engine) Evaluate(in Input) model.ScoreBreakdown {
	score := baselineScore
	var reasons []string
	add := func(delta int, reason string) {
		score += delta
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	// Rule 1: price vs 20-session average. Strictly above earns the bonus;
	// equality is the penalty case.
	if in.Tech.MA20 != nil {
		if in.Price > *in.Tech.MA20 {
			add(10, "站上月線，短多格局")
		} else {
			add(-10, "跌破月線，短線整理")
		}
	}

	// Rule 2: price vs 60-session average.
	if in.Tech.MA60 != nil {
		if in.Price > *in.Tech.MA60 {
			add(10, "站穩季線，長線看好")
		} else {
			add(-10, "")
		}
	}

	// Rule 3: oversold oscillator.
	if in.Tech.RSI != nil && *in.Tech.RSI < e.cfg.OversoldRSI {
		add(5, "RSI 超賣，醞釀反彈")
	}

	// Rule 4: institutional flow. Without a flow record the rule does not
	// fire and the chip status reports insufficient data.
	chip := model.ChipNoData
	if in.Flow != nil {
		f, t := in.Flow.ForeignNetLots, in.Flow.TrustNetLots
		switch {
		case f > 0 && t > 0:
			chip = model.ChipAlignedBuying
			add(20, "外資投信同步買超")
		case f < 0 && t < 0:
			chip = model.ChipAlignedSelling
			add(-20, "外資投信同步調節")
		case t > 0:
			chip = model.ChipTrustBacked
			add(10, "投信買超護盤")
		case f > 0:
			chip = model.ChipForeignBuying
		default:
			chip = model.ChipNeutral
		}
	}

	// Rule 5: ownership concentration, asymmetric band: any increase is a
	// bonus, a decrease only penalizes past the configured cutoff.
	if in.Ownership != nil {
		if in.Ownership.LargeHolderPctChange > 0 {
			add(10, "大戶持股比例上升，籌碼趨於集中")
		} else if in.Ownership.LargeHolderPctChange < -e.cfg.LargeHolderDropPct {
			add(-10, "大戶籌碼鬆動，持股比例下滑")
		}
	}

	// Rule 6: insider/director holdings.
	if in.InsiderHoldingPct != nil && *in.InsiderHoldingPct > 20 {
		add(5, "董監持股逾兩成，經營層信心十足")
	}

	// Rule 7: profitability.
	if in.Profitability != nil {
		if in.Profitability.GrossMarginPct != nil && *in.Profitability.GrossMarginPct > 30 {
			add(5, "毛利率逾三成，產品具競爭力")
		}
		if in.Profitability.ReturnOnEquityPct != nil && *in.Profitability.ReturnOnEquityPct > 15 {
			add(5, "ROE 逾 15%，獲利能力佳")
		}
	}

	// Rule 8: valuation.
	if in.Valuation != nil {
		if in.Valuation.DividendYieldPct != nil && *in.Valuation.DividendYieldPct > 4 {
			add(5, fmt.Sprintf("高殖利率 (%.2f%%)", *in.Valuation.DividendYieldPct))
		}
		if in.Valuation.PERatio != nil && *in.Valuation.PERatio < 15 {
			add(5, fmt.Sprintf("本益比低 (%.2f)", *in.Valuation.PERatio))
		}
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return model.ScoreBreakdown{
		Score:      score,
		Reasons:    reasons,
		ChipStatus: chip,
	}
}

// Verdict maps a score to its tier using the configured thresholds.
func (e *Engine) Verdict(score int) model.Verdict {
	v := e.cfg.Verdict
	switch {
	case score >= v.StrongBuy:
		return model.VerdictStrongBuy
	case score >= v.Hold:
		return model.VerdictHold
	case score >= v.Watch:
		return model.VerdictWatch
	default:
		return model.VerdictSell
	}
}
