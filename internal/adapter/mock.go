package adapter

import (
	"context"
	"sync"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Mock returns controllable fixed data for development and testing. Nil
// fields behave exactly like an origin that cannot supply the value, and
// Err simulates an unreachable origin for every capability.
type Mock struct {
	AdapterName string
	Bars        []model.PriceBar
	Valuation   *model.ValuationSnapshot
	Profit      *model.ProfitabilitySnapshot
	Flow        *model.InstitutionalFlow
	Ownership   *model.OwnershipConcentration
	InsiderPct  *float64
	DisplayName *string
	Summary     *string
	Err         error

	// Capabilities are fetched concurrently; Calls is guarded.
	mu    sync.Mutex
	Calls []string
}

func (m *Mock) Name() string {
	if m.AdapterName == "" {
		return "mock"
	}
	return m.AdapterName
}

func (m *Mock) record(capability string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, capability)
	m.mu.Unlock()
}

// CallNames returns a copy of the recorded capability calls.
func (m *Mock) CallNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}

func (m *Mock) FetchPriceHistory(_ context.Context, _ string, days int) ([]model.PriceBar, error) {
	m.record("price_history")
	if m.Err != nil {
		return nil, m.Err
	}
	bars := m.Bars
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (m *Mock) FetchValuation(_ context.Context, _ string) (*model.ValuationSnapshot, error) {
	m.record("valuation")
	return m.Valuation, m.Err
}

func (m *Mock) FetchProfitability(_ context.Context, _ string) (*model.ProfitabilitySnapshot, error) {
	m.record("profitability")
	return m.Profit, m.Err
}

func (m *Mock) FetchInstitutionalFlow(_ context.Context, _ string) (*model.InstitutionalFlow, error) {
	m.record("institutional_flow")
	return m.Flow, m.Err
}

func (m *Mock) FetchOwnership(_ context.Context, _ string) (*model.OwnershipConcentration, error) {
	m.record("ownership")
	return m.Ownership, m.Err
}

func (m *Mock) FetchInsiderHolding(_ context.Context, _ string) (*float64, error) {
	m.record("insider_holding")
	return m.InsiderPct, m.Err
}

func (m *Mock) FetchDisplayName(_ context.Context, _ string) (*string, error) {
	m.record("display_name")
	return m.DisplayName, m.Err
}

func (m *Mock) FetchBusinessSummary(_ context.Context, _ string) (*string, error) {
	m.record("business_summary")
	return m.Summary, m.Err
}
