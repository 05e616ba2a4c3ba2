package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ryantsai1111-cpu/stockk/internal/config"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

func testConfig() config.ScoringConfig {
	return config.ScoringConfig{
		OversoldRSI:        30,
		OverheatedRSI:      75,
		LargeHolderDropPct: 0.2,
		Verdict:            config.VerdictThresholds{StrongBuy: 75, Hold: 55, Watch: 40},
	}
}

func fp(v float64) *float64 { return &v }

func TestEvaluate_TechnicalOnlyBaseline(t *testing.T) {
	// Every optional source absent, price above both averages, neutral
	// oscillator: only the two trend rules fire.
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price: 110,
		Tech:  model.TechnicalSnapshot{MA20: fp(100), MA60: fp(95), RSI: fp(50)},
	})

	assert.Equal(t, 70, out.Score)
	assert.Equal(t, model.ChipNoData, out.ChipStatus)
	assert.Equal(t, []string{"站上月線，短多格局", "站穩季線，長線看好"}, out.Reasons)
	assert.Equal(t, model.VerdictHold, e.Verdict(out.Score))
}

func TestEvaluate_NoIndicatorsNoDeltas(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{Price: 110})

	assert.Equal(t, 50, out.Score)
	assert.Empty(t, out.Reasons)
	assert.Equal(t, model.ChipNoData, out.ChipStatus)
}

func TestEvaluate_MA20EqualityIsPenalty(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price: 100,
		Tech:  model.TechnicalSnapshot{MA20: fp(100)},
	})

	assert.Equal(t, 40, out.Score)
	assert.Contains(t, out.Reasons, "跌破月線，短線整理")
}

func TestEvaluate_MA60PenaltyHasNoReason(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price: 90,
		Tech:  model.TechnicalSnapshot{MA60: fp(95)},
	})

	assert.Equal(t, 40, out.Score)
	assert.Empty(t, out.Reasons)
}

func TestEvaluate_OversoldBonus(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price: 90,
		Tech:  model.TechnicalSnapshot{RSI: fp(29.9)},
	})
	assert.Equal(t, 55, out.Score)
	assert.Contains(t, out.Reasons, "RSI 超賣，醞釀反彈")

	// Boundary: exactly at the cutoff does not fire.
	out = e.Evaluate(Input{Price: 90, Tech: model.TechnicalSnapshot{RSI: fp(30)}})
	assert.Equal(t, 50, out.Score)
}

func TestEvaluate_ChipStatus(t *testing.T) {
	e := NewEngine(testConfig())

	tests := []struct {
		name      string
		flow      *model.InstitutionalFlow
		wantChip  model.ChipStatus
		wantScore int
	}{
		{"aligned buying", &model.InstitutionalFlow{ForeignNetLots: 50, TrustNetLots: 30}, model.ChipAlignedBuying, 70},
		{"aligned selling", &model.InstitutionalFlow{ForeignNetLots: -50, TrustNetLots: -30}, model.ChipAlignedSelling, 30},
		{"trust backed", &model.InstitutionalFlow{ForeignNetLots: -10, TrustNetLots: 30}, model.ChipTrustBacked, 60},
		{"foreign only carries no delta", &model.InstitutionalFlow{ForeignNetLots: 50, TrustNetLots: 0}, model.ChipForeignBuying, 50},
		{"neutral", &model.InstitutionalFlow{ForeignNetLots: 0, TrustNetLots: 0, DealerNetLots: 5}, model.ChipNeutral, 50},
		{"missing flow", nil, model.ChipNoData, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := e.Evaluate(Input{Price: 100, Flow: tt.flow})
			assert.Equal(t, tt.wantChip, out.ChipStatus)
			assert.Equal(t, tt.wantScore, out.Score)
		})
	}
}

func TestEvaluate_OwnershipAsymmetricBand(t *testing.T) {
	e := NewEngine(testConfig())

	// Any increase is a bonus.
	out := e.Evaluate(Input{Price: 100, Ownership: &model.OwnershipConcentration{LargeHolderPctChange: 0.01}})
	assert.Equal(t, 60, out.Score)

	// A mild decrease inside the band is neutral.
	out = e.Evaluate(Input{Price: 100, Ownership: &model.OwnershipConcentration{LargeHolderPctChange: -0.15}})
	assert.Equal(t, 50, out.Score)

	// Exactly at the cutoff is still neutral; past it penalizes.
	out = e.Evaluate(Input{Price: 100, Ownership: &model.OwnershipConcentration{LargeHolderPctChange: -0.2}})
	assert.Equal(t, 50, out.Score)
	out = e.Evaluate(Input{Price: 100, Ownership: &model.OwnershipConcentration{LargeHolderPctChange: -0.21}})
	assert.Equal(t, 40, out.Score)
	assert.Contains(t, out.Reasons, "大戶籌碼鬆動，持股比例下滑")
}

func TestEvaluate_InsiderProfitabilityValuation(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price:             100,
		InsiderHoldingPct: fp(25),
		Profitability: &model.ProfitabilitySnapshot{
			GrossMarginPct:    fp(45),
			ReturnOnEquityPct: fp(22),
		},
		Valuation: &model.ValuationSnapshot{
			DividendYieldPct: fp(4.5),
			PERatio:          fp(12.3),
		},
	})

	assert.Equal(t, 75, out.Score)
	assert.Contains(t, out.Reasons, "高殖利率 (4.50%)")
	assert.Contains(t, out.Reasons, "本益比低 (12.30)")
	assert.Equal(t, model.VerdictStrongBuy, e.Verdict(out.Score))
}

func TestEvaluate_PartialProfitabilityFiresOnlyKnownFields(t *testing.T) {
	e := NewEngine(testConfig())
	out := e.Evaluate(Input{
		Price:         100,
		Profitability: &model.ProfitabilitySnapshot{GrossMarginPct: fp(55)},
	})
	assert.Equal(t, 55, out.Score)
}

func TestEvaluate_ClampsToRange(t *testing.T) {
	e := NewEngine(testConfig())

	high := e.Evaluate(Input{
		Price:             200,
		Tech:              model.TechnicalSnapshot{MA20: fp(100), MA60: fp(95), RSI: fp(20)},
		Flow:              &model.InstitutionalFlow{ForeignNetLots: 10, TrustNetLots: 10},
		Ownership:         &model.OwnershipConcentration{LargeHolderPctChange: 1},
		InsiderHoldingPct: fp(30),
		Profitability:     &model.ProfitabilitySnapshot{GrossMarginPct: fp(50), ReturnOnEquityPct: fp(25)},
		Valuation:         &model.ValuationSnapshot{DividendYieldPct: fp(6), PERatio: fp(8)},
	})
	assert.Equal(t, 100, high.Score)

	low := e.Evaluate(Input{
		Price:     50,
		Tech:      model.TechnicalSnapshot{MA20: fp(100), MA60: fp(95)},
		Flow:      &model.InstitutionalFlow{ForeignNetLots: -10, TrustNetLots: -10},
		Ownership: &model.OwnershipConcentration{LargeHolderPctChange: -5},
	})
	assert.Equal(t, 0, low.Score)
}

func TestVerdict_Tiers(t *testing.T) {
	e := NewEngine(testConfig())

	tests := []struct {
		score int
		want  model.Verdict
	}{
		{100, model.VerdictStrongBuy},
		{75, model.VerdictStrongBuy},
		{74, model.VerdictHold},
		{55, model.VerdictHold},
		{54, model.VerdictWatch},
		{40, model.VerdictWatch},
		{39, model.VerdictSell},
		{0, model.VerdictSell},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.Verdict(tt.score), "score %d", tt.score)
	}
}
