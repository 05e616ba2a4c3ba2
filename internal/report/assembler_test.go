package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryantsai1111-cpu/stockk/internal/adapter"
	"github.com/ryantsai1111-cpu/stockk/internal/config"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
	"github.com/ryantsai1111-cpu/stockk/internal/outlook"
	"github.com/ryantsai1111-cpu/stockk/internal/scoring"
)

func fp(v float64) *float64 { return &v }
func sp(s string) *string   { return &s }

func scoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		OversoldRSI:        30,
		OverheatedRSI:      75,
		LargeHolderDropPct: 0.2,
		Verdict:            config.VerdictThresholds{StrongBuy: 75, Hold: 55, Watch: 40},
	}
}

// risingBars returns n chronological daily bars with strictly rising closes,
// so the latest close sits above every moving average.
func risingBars(n int) []model.PriceBar {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func newAssembler(adapters []adapter.Adapter, opts ...Option) *Assembler {
	cfg := scoringConfig()
	chains := config.DefaultPriorities()
	// Route every field through the two test adapter names.
	for field := range chains {
		chains[field] = []string{"primary", "secondary"}
	}
	return New(chains, scoring.NewEngine(cfg), outlook.NewGenerator(cfg), adapters, opts...)
}

func TestGenerate_NoPriceHistoryIsFatal(t *testing.T) {
	a := newAssembler([]adapter.Adapter{&adapter.Mock{AdapterName: "primary"}})

	rep, err := a.Generate(context.Background(), "0000.TW")
	require.ErrorIs(t, err, ErrNoPriceHistory)
	assert.Nil(t, rep, "no partial report on the fatal path")
}

func TestGenerate_FullReport(t *testing.T) {
	primary := &adapter.Mock{
		AdapterName: "primary",
		Bars:        risingBars(80),
		Valuation:   &model.ValuationSnapshot{PERatio: fp(14.2), DividendYieldPct: fp(4.6)},
		Profit:      &model.ProfitabilitySnapshot{GrossMarginPct: fp(53.1), ReturnOnEquityPct: fp(26.5)},
		Flow:        &model.InstitutionalFlow{ForeignNetLots: 1500, TrustNetLots: 320, DealerNetLots: 45},
		Ownership:   &model.OwnershipConcentration{AsOfDate: time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), LargeHolderPct: 46.12, LargeHolderPctChange: 0.32, TotalHolders: 612420, TotalHoldersChange: -1480},
		InsiderPct:  fp(21.53),
		DisplayName: sp("台積電"),
		Summary:     sp("Leading semiconductor foundry."),
	}

	a := newAssembler([]adapter.Adapter{primary, &adapter.Mock{AdapterName: "secondary"}})
	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.Equal(t, "2330.TW", rep.Ticker)
	assert.Equal(t, "台積電", rep.DisplayName)
	assert.Equal(t, 179.0, rep.Price)
	assert.Len(t, rep.Bars, 80)
	assert.Len(t, rep.Technical, 80)

	// Rising series above both averages, aligned buying, concentration up,
	// insider above 20%, strong margins and cheap valuation: everything fires.
	assert.Equal(t, 100, rep.Score.Score)
	assert.Equal(t, model.ChipAlignedBuying, rep.Score.ChipStatus)
	assert.Equal(t, model.VerdictStrongBuy, rep.Verdict)
	assert.Equal(t, "Leading semiconductor foundry.", rep.Summary)
	assert.NotEmpty(t, rep.Outlook.Catalysts)
	assert.NotEmpty(t, rep.Outlook.Risks)
	assert.Contains(t, rep.Outlook.Thesis, "台積電")

	// Provenance names the serving adapter per resolved field.
	assert.Equal(t, "primary", rep.Provenance["price_history"])
	assert.Equal(t, "primary", rep.Provenance["institutional_flow"])
	assert.Equal(t, "primary", rep.Provenance["valuation.pe_ratio"])
	assert.Equal(t, "primary", rep.Provenance["display_name"])
}

func TestGenerate_OnlyPriceHistoryAvailable(t *testing.T) {
	// Every optional source down, price above both moving
	// averages, neutral oscillator behavior on a rising series still yields
	// a complete report.
	primary := &adapter.Mock{AdapterName: "primary", Bars: risingBars(80)}
	a := newAssembler([]adapter.Adapter{primary})

	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)

	assert.Equal(t, model.ChipNoData, rep.Score.ChipStatus)
	assert.Nil(t, rep.Valuation)
	assert.Nil(t, rep.InstitutionalFlow)
	assert.Empty(t, rep.Summary)
	// Ticker stands in for the display name.
	assert.Equal(t, "2330.TW", rep.DisplayName)
	assert.NotEmpty(t, rep.Outlook.Catalysts)
	assert.NotEmpty(t, rep.Outlook.Risks)
	// Strictly rising closes: RSI is 100, which is overheated, not oversold.
	assert.Contains(t, rep.Outlook.Risks[0], "技術過熱")
}

func TestGenerate_FallbackAdapterFillsGaps(t *testing.T) {
	primary := &adapter.Mock{AdapterName: "primary", Bars: risingBars(80)}
	secondary := &adapter.Mock{
		AdapterName: "secondary",
		DisplayName: sp("聯發科"),
		Flow:        &model.InstitutionalFlow{ForeignNetLots: -10, TrustNetLots: 25},
	}
	a := newAssembler([]adapter.Adapter{primary, secondary})

	rep, err := a.Generate(context.Background(), "2454.TW")
	require.NoError(t, err)

	assert.Equal(t, "聯發科", rep.DisplayName)
	assert.Equal(t, model.ChipTrustBacked, rep.Score.ChipStatus)
	assert.Equal(t, "secondary", rep.Provenance["display_name"])
	assert.Equal(t, "secondary", rep.Provenance["institutional_flow"])
	assert.Equal(t, "primary", rep.Provenance["price_history"])
}

func TestGenerate_AdapterErrorsDegradeNotAbort(t *testing.T) {
	primary := &adapter.Mock{AdapterName: "primary", Bars: risingBars(80)}
	secondary := &adapter.Mock{AdapterName: "secondary", Err: errors.New("origin down")}
	a := newAssembler([]adapter.Adapter{primary, secondary})

	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Nil(t, rep.Valuation)
	assert.Nil(t, rep.Ownership)
}

func TestGenerate_TranslatorRewritesSummary(t *testing.T) {
	primary := &adapter.Mock{AdapterName: "primary", Bars: risingBars(80), Summary: sp("Foundry.")}

	a := newAssembler([]adapter.Adapter{primary}, WithTranslator(func(_ context.Context, text string) (string, error) {
		return "晶圓代工廠。", nil
	}))
	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Equal(t, "晶圓代工廠。", rep.Summary)
}

func TestGenerate_TranslatorFailureKeepsOriginal(t *testing.T) {
	primary := &adapter.Mock{AdapterName: "primary", Bars: risingBars(80), Summary: sp("Foundry.")}

	a := newAssembler([]adapter.Adapter{primary}, WithTranslator(func(_ context.Context, _ string) (string, error) {
		return "", errors.New("translation service down")
	}))
	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Equal(t, "Foundry.", rep.Summary)
}

func TestGenerate_ProvenanceDoesNotLeakAcrossRequests(t *testing.T) {
	withFlow := &adapter.Mock{
		AdapterName: "primary",
		Bars:        risingBars(80),
		Flow:        &model.InstitutionalFlow{ForeignNetLots: 100, TrustNetLots: 100},
	}
	a := newAssembler([]adapter.Adapter{withFlow})

	rep, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Contains(t, rep.Provenance, "institutional_flow")

	// Second request where the flow disappears: no stale provenance entry.
	withFlow.Flow = nil
	rep, err = a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.NotContains(t, rep.Provenance, "institutional_flow")
	assert.Equal(t, model.ChipNoData, rep.Score.ChipStatus)
}

func TestGenerate_DeterministicForSameInputs(t *testing.T) {
	primary := &adapter.Mock{
		AdapterName: "primary",
		Bars:        risingBars(80),
		Flow:        &model.InstitutionalFlow{ForeignNetLots: 10, TrustNetLots: 20},
		DisplayName: sp("台積電"),
	}
	a := newAssembler([]adapter.Adapter{primary})

	first, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)
	second, err := a.Generate(context.Background(), "2330.TW")
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.Verdict, second.Verdict)
	assert.Equal(t, first.Outlook, second.Outlook)
	assert.Equal(t, first.Provenance, second.Provenance)
}

func TestNormalizeBars_SortsAndDedupes(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC) }
	bars := []model.PriceBar{
		{Date: d(3), Close: 103},
		{Date: d(1), Close: 101},
		{Date: d(3), Close: 999}, // duplicate date, later occurrence dropped
		{Date: d(2), Close: 102},
	}
	out := normalizeBars(bars)
	require.Len(t, out, 3)
	assert.Equal(t, 101.0, out[0].Close)
	assert.Equal(t, 102.0, out[1].Close)
	assert.Equal(t, 103.0, out[2].Close)
}
