package model

import "time"

// Verdict is the categorical investment stance derived purely from the score.
type Verdict string

const (
	VerdictStrongBuy Verdict = "STRONG_BUY"
	VerdictHold      Verdict = "HOLD"
	VerdictWatch     Verdict = "WATCH"
	VerdictSell      Verdict = "SELL"
)

// Label returns the user-facing zh-TW label for the verdict.
func (v Verdict) Label() string {
	switch v {
	case VerdictStrongBuy:
		return "強力買進"
	case VerdictHold:
		return "持有/觀望"
	case VerdictWatch:
		return "觀望"
	default:
		return "賣出/避開"
	}
}

// ChipStatus summarizes institutional trading behavior for the latest session.
type ChipStatus string

const (
	ChipAlignedBuying  ChipStatus = "土洋合一 (法人齊買)"
	ChipAlignedSelling ChipStatus = "法人棄守 (雙重賣壓)"
	ChipTrustBacked    ChipStatus = "投信認養"
	ChipForeignBuying  ChipStatus = "外資買進"
	ChipNeutral        ChipStatus = "中性觀望"
	ChipNoData         ChipStatus = "籌碼資料不足"
)

// ScoreBreakdown is the output of the scoring engine: the clamped score,
// the reasons in evaluation order, and the chip status label.
type ScoreBreakdown struct {
	Score      int
	Reasons    []string
	ChipStatus ChipStatus
}

// Outlook holds the derived narrative. It is advisory text only and never
// feeds back into the score.
type Outlook struct {
	Catalysts []string
	Risks     []string
	Thesis    string
}

// Report is the root aggregate produced once per request. It has no further
// lifecycle: it is not persisted and never updated in place.
type Report struct {
	Ticker            string
	DisplayName       string
	Price             float64
	Bars              []PriceBar
	Technical         []TechnicalSnapshot
	Valuation         *ValuationSnapshot
	Profitability     *ProfitabilitySnapshot
	InstitutionalFlow *InstitutionalFlow
	Ownership         *OwnershipConcentration
	InsiderHoldingPct *float64
	Summary           string
	Score             ScoreBreakdown
	Verdict           Verdict
	Outlook           Outlook
	Provenance        map[string]string
	GeneratedAt       time.Time
}

// Latest returns the technical snapshot for the most recent bar.
func (r *Report) Latest() TechnicalSnapshot {
	return r.Technical[len(r.Technical)-1]
}
