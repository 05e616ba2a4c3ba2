// Package report orchestrates adapters, resolver, indicator engine, scoring,
// and outlook generation into one immutable Report value.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ryantsai1111-cpu/stockk/internal/adapter"
	"github.com/ryantsai1111-cpu/stockk/internal/indicator"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
	"github.com/ryantsai1111-cpu/stockk/internal/outlook"
	"github.com/ryantsai1111-cpu/stockk/internal/resolver"
	"github.com/ryantsai1111-cpu/stockk/internal/scoring"
)

// ErrNoPriceHistory is the one fatal condition: the ticker could not be
// resolved to any trading history. Every other missing input degrades the
// report instead of aborting it.
var ErrNoPriceHistory = errors.New("no price history")

// Translator converts the raw business description; it is an opaque external
// transform invoked before assembly.
type Translator func(ctx context.Context, text string) (string, error)

// Assembler generates reports. It holds no per-request state: each Generate
// call builds its own resolver so provenance never leaks across requests.
type Assembler struct {
	chains       map[string][]string
	adapters     []adapter.Adapter
	scorer       *scoring.Engine
	generator    *outlook.Generator
	translator   Translator
	lookbackDays int
	logger       arbor.ILogger
}

// Option configures the Assembler.
type Option func(*Assembler)

// WithTranslator sets the business-description translator.
func WithTranslator(t Translator) Option {
	return func(a *Assembler) { a.translator = t }
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(a *Assembler) { a.logger = logger }
}

// WithLookbackDays sets the price-history window.
func WithLookbackDays(days int) Option {
	return func(a *Assembler) { a.lookbackDays = days }
}

// New creates an Assembler over the given priority chains and adapters.
func New(chains map[string][]string, scorer *scoring.Engine, generator *outlook.Generator, adapters []adapter.Adapter, opts ...Option) *Assembler {
	a := &Assembler{
		chains:       chains,
		adapters:     adapters,
		scorer:       scorer,
		generator:    generator,
		lookbackDays: 365,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate produces the report for one ticker. The price history is the hard
// prerequisite; the optional field groups have no data dependency on one
// another and are resolved concurrently before scoring runs.
func (a *Assembler) Generate(ctx context.Context, ticker string) (*model.Report, error) {
	res := resolver.New(a.chains, a.logger, a.adapters...)

	bars := res.PriceHistory(ctx, ticker, a.lookbackDays)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPriceHistory, ticker)
	}
	bars = normalizeBars(bars)

	snaps, err := indicator.Compute(bars)
	if err != nil {
		return nil, fmt.Errorf("compute indicators: %w", err)
	}

	var (
		valuation     *model.ValuationSnapshot
		profitability *model.ProfitabilitySnapshot
		flow          *model.InstitutionalFlow
		ownership     *model.OwnershipConcentration
		insiderPct    *float64
		displayName   *string
		summary       *string
	)
	var wg sync.WaitGroup
	wg.Add(7)
	go func() { defer wg.Done(); valuation = res.Valuation(ctx, ticker) }()
	go func() { defer wg.Done(); profitability = res.Profitability(ctx, ticker) }()
	go func() { defer wg.Done(); flow = res.InstitutionalFlow(ctx, ticker) }()
	go func() { defer wg.Done(); ownership = res.Ownership(ctx, ticker) }()
	go func() { defer wg.Done(); insiderPct = res.InsiderHolding(ctx, ticker) }()
	go func() { defer wg.Done(); displayName = res.DisplayName(ctx, ticker) }()
	go func() { defer wg.Done(); summary = res.BusinessSummary(ctx, ticker) }()
	wg.Wait()

	latest := snaps[len(snaps)-1]
	price := latest.Close

	in := scoring.Input{
		Price:             price,
		Tech:              latest,
		Valuation:         valuation,
		Profitability:     profitability,
		Flow:              flow,
		Ownership:         ownership,
		InsiderHoldingPct: insiderPct,
	}
	breakdown := a.scorer.Evaluate(in)
	verdict := a.scorer.Verdict(breakdown.Score)

	name := ticker
	if displayName != nil {
		name = *displayName
	}

	outlookText := a.generator.Generate(in, breakdown, verdict, name)

	var summaryText string
	if summary != nil {
		summaryText = *summary
		if a.translator != nil {
			if translated, terr := a.translator(ctx, summaryText); terr == nil {
				summaryText = translated
			} else if a.logger != nil {
				a.logger.Warn().Err(terr).Str("ticker", ticker).Msg("summary translation failed, keeping original text")
			}
		}
	}

	return &model.Report{
		Ticker:            ticker,
		DisplayName:       name,
		Price:             price,
		Bars:              bars,
		Technical:         snaps,
		Valuation:         valuation,
		Profitability:     profitability,
		InstitutionalFlow: flow,
		Ownership:         ownership,
		InsiderHoldingPct: insiderPct,
		Summary:           summaryText,
		Score:             breakdown,
		Verdict:           verdict,
		Outlook:           outlookText,
		Provenance:        res.Provenance(),
		GeneratedAt:       time.Now(),
	}, nil
}

// normalizeBars sorts the series chronologically and drops duplicate dates,
// keeping the first occurrence.
func normalizeBars(bars []model.PriceBar) []model.PriceBar {
	sorted := make([]model.PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, b := range sorted {
		if len(out) > 0 && b.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, b)
	}
	return out
}
