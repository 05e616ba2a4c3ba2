// Package resolver reconciles partial data from several source adapters
// into one canonical record. For each logical field it walks a configured
// priority chain and takes the first value an origin actually supplied,
// recording which adapter satisfied the field. The resolver never
// fabricates values: an exhausted chain leaves the field nil.
package resolver

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ryantsai1111-cpu/stockk/internal/adapter"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Logical field names, matching the keys of the configured priority map.
const (
	FieldPriceHistory      = "price_history"
	FieldDisplayName       = "display_name"
	FieldValuation         = "valuation"
	FieldProfitability     = "profitability"
	FieldInstitutionalFlow = "institutional_flow"
	FieldOwnership         = "ownership"
	FieldInsiderHolding    = "insider_holding"
	FieldBusinessSummary   = "business_summary"
)

// Resolver resolves each logical field across the registered adapters.
type Resolver struct {
	adapters map[string]adapter.Adapter
	chains   map[string][]string
	logger   arbor.ILogger

	mu         sync.Mutex
	provenance map[string]string
}

// New creates a Resolver with the given priority chains and adapters.
func New(chains map[string][]string, logger arbor.ILogger, adapters ...adapter.Adapter) *Resolver {
	reg := make(map[string]adapter.Adapter, len(adapters))
	for _, a := range adapters {
		reg[a.Name()] = a
	}
	return &Resolver{
		adapters:   reg,
		chains:     chains,
		logger:     logger,
		provenance: make(map[string]string),
	}
}

// Provenance returns a copy of the field -> adapter map recorded so far.
func (r *Resolver) Provenance() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.provenance))
	for k, v := range r.provenance {
		out[k] = v
	}
	return out
}

func (r *Resolver) record(field, adapterName string) {
	r.mu.Lock()
	r.provenance[field] = adapterName
	r.mu.Unlock()
}

func (r *Resolver) warn(field, adapterName string, err error) {
	if r.logger != nil {
		r.logger.Warn().Err(err).Str("field", field).Str("adapter", adapterName).Msg("adapter unavailable, falling through")
	}
}

// PriceHistory returns the first non-empty daily series in the chain.
func (r *Resolver) PriceHistory(ctx context.Context, ticker string, days int) []model.PriceBar {
	for _, name := range r.chains[FieldPriceHistory] {
		src, ok := r.adapters[name].(adapter.PriceHistorySource)
		if !ok {
			continue
		}
		bars, err := src.FetchPriceHistory(ctx, ticker, days)
		if err != nil {
			r.warn(FieldPriceHistory, name, err)
			continue
		}
		if len(bars) == 0 {
			continue
		}
		r.record(FieldPriceHistory, name)
		return bars
	}
	return nil
}

// Valuation merges valuation fields across the chain: each sub-field takes
// the highest-priority non-nil value, with per-field provenance.
func (r *Resolver) Valuation(ctx context.Context, ticker string) *model.ValuationSnapshot {
	var merged *model.ValuationSnapshot
	for _, name := range r.chains[FieldValuation] {
		src, ok := r.adapters[name].(adapter.ValuationSource)
		if !ok {
			continue
		}
		snap, err := src.FetchValuation(ctx, ticker)
		if err != nil {
			r.warn(FieldValuation, name, err)
			continue
		}
		if snap == nil {
			continue
		}
		if snap.DisplayName != nil {
			if merged == nil {
				merged = &model.ValuationSnapshot{}
			}
			if merged.DisplayName == nil {
				merged.DisplayName = snap.DisplayName
				r.record("valuation.display_name", name)
			}
		}
		slots := []struct {
			key string
			src *float64
			dst func(*model.ValuationSnapshot) **float64
		}{
			{"valuation.pe_ratio", snap.PERatio, func(m *model.ValuationSnapshot) **float64 { return &m.PERatio }},
			{"valuation.pb_ratio", snap.PBRatio, func(m *model.ValuationSnapshot) **float64 { return &m.PBRatio }},
			{"valuation.dividend_yield", snap.DividendYieldPct, func(m *model.ValuationSnapshot) **float64 { return &m.DividendYieldPct }},
		}
		for _, s := range slots {
			if s.src == nil {
				continue
			}
			if merged == nil {
				merged = &model.ValuationSnapshot{}
			}
			dst := s.dst(merged)
			if *dst == nil {
				*dst = s.src
				r.record(s.key, name)
			}
		}
	}
	return merged
}

// Profitability merges profitability metrics the same way as Valuation.
func (r *Resolver) Profitability(ctx context.Context, ticker string) *model.ProfitabilitySnapshot {
	var merged *model.ProfitabilitySnapshot
	for _, name := range r.chains[FieldProfitability] {
		src, ok := r.adapters[name].(adapter.ProfitabilitySource)
		if !ok {
			continue
		}
		snap, err := src.FetchProfitability(ctx, ticker)
		if err != nil {
			r.warn(FieldProfitability, name, err)
			continue
		}
		if snap == nil {
			continue
		}
		slots := []struct {
			key string
			src *float64
			dst func(*model.ProfitabilitySnapshot) **float64
		}{
			{"profitability.gross_margin", snap.GrossMarginPct, func(m *model.ProfitabilitySnapshot) **float64 { return &m.GrossMarginPct }},
			{"profitability.operating_margin", snap.OperatingMarginPct, func(m *model.ProfitabilitySnapshot) **float64 { return &m.OperatingMarginPct }},
			{"profitability.net_margin", snap.NetMarginPct, func(m *model.ProfitabilitySnapshot) **float64 { return &m.NetMarginPct }},
			{"profitability.roe", snap.ReturnOnEquityPct, func(m *model.ProfitabilitySnapshot) **float64 { return &m.ReturnOnEquityPct }},
			{"profitability.roa", snap.ReturnOnAssetsPct, func(m *model.ProfitabilitySnapshot) **float64 { return &m.ReturnOnAssetsPct }},
			{"profitability.eps", snap.EPS, func(m *model.ProfitabilitySnapshot) **float64 { return &m.EPS }},
			{"profitability.book_value", snap.BookValuePerShare, func(m *model.ProfitabilitySnapshot) **float64 { return &m.BookValuePerShare }},
		}
		for _, s := range slots {
			if s.src == nil {
				continue
			}
			if merged == nil {
				merged = &model.ProfitabilitySnapshot{}
			}
			dst := s.dst(merged)
			if *dst == nil {
				*dst = s.src
				r.record(s.key, name)
			}
		}
	}
	return merged
}

// InstitutionalFlow takes the first complete flow record in the chain; the
// record is all-or-nothing per origin.
func (r *Resolver) InstitutionalFlow(ctx context.Context, ticker string) *model.InstitutionalFlow {
	for _, name := range r.chains[FieldInstitutionalFlow] {
		src, ok := r.adapters[name].(adapter.InstitutionalFlowSource)
		if !ok {
			continue
		}
		flow, err := src.FetchInstitutionalFlow(ctx, ticker)
		if err != nil {
			r.warn(FieldInstitutionalFlow, name, err)
			continue
		}
		if flow == nil {
			continue
		}
		r.record(FieldInstitutionalFlow, name)
		return flow
	}
	return nil
}

// Ownership takes the first concentration comparison in the chain.
func (r *Resolver) Ownership(ctx context.Context, ticker string) *model.OwnershipConcentration {
	for _, name := range r.chains[FieldOwnership] {
		src, ok := r.adapters[name].(adapter.OwnershipSource)
		if !ok {
			continue
		}
		own, err := src.FetchOwnership(ctx, ticker)
		if err != nil {
			r.warn(FieldOwnership, name, err)
			continue
		}
		if own == nil {
			continue
		}
		r.record(FieldOwnership, name)
		return own
	}
	return nil
}

// InsiderHolding takes the first parseable insider percentage in the chain.
func (r *Resolver) InsiderHolding(ctx context.Context, ticker string) *float64 {
	for _, name := range r.chains[FieldInsiderHolding] {
		src, ok := r.adapters[name].(adapter.InsiderHoldingSource)
		if !ok {
			continue
		}
		pct, err := src.FetchInsiderHolding(ctx, ticker)
		if err != nil {
			r.warn(FieldInsiderHolding, name, err)
			continue
		}
		if pct == nil {
			continue
		}
		r.record(FieldInsiderHolding, name)
		return pct
	}
	return nil
}

// DisplayName takes the first non-empty name in the chain.
func (r *Resolver) DisplayName(ctx context.Context, ticker string) *string {
	for _, name := range r.chains[FieldDisplayName] {
		src, ok := r.adapters[name].(adapter.DisplayNameSource)
		if !ok {
			continue
		}
		display, err := src.FetchDisplayName(ctx, ticker)
		if err != nil {
			r.warn(FieldDisplayName, name, err)
			continue
		}
		if display == nil {
			continue
		}
		r.record(FieldDisplayName, name)
		return display
	}
	return nil
}

// BusinessSummary takes the first non-empty description in the chain.
func (r *Resolver) BusinessSummary(ctx context.Context, ticker string) *string {
	for _, name := range r.chains[FieldBusinessSummary] {
		src, ok := r.adapters[name].(adapter.BusinessSummarySource)
		if !ok {
			continue
		}
		summary, err := src.FetchBusinessSummary(ctx, ticker)
		if err != nil {
			r.warn(FieldBusinessSummary, name, err)
			continue
		}
		if summary == nil {
			continue
		}
		r.record(FieldBusinessSummary, name)
		return summary
	}
	return nil
}
