// Package adapter implements the source adapters. Each adapter wraps exactly
// one external origin and exposes the capabilities that origin can serve.
// Adapters never panic and never let a parse failure escape their boundary:
// a field that cannot be fetched or parsed comes back nil, not as an error
// the caller must recover from. A returned error means the origin itself was
// unreachable; the resolver treats that the same as an absent value.
package adapter

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Adapter is the base capability every origin implements.
type Adapter interface {
	Name() string
}

// PriceHistorySource fetches the daily price history, the one hard
// prerequisite for report generation.
type PriceHistorySource interface {
	Adapter
	FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error)
}

// ValuationSource fetches valuation ratios.
type ValuationSource interface {
	Adapter
	FetchValuation(ctx context.Context, ticker string) (*model.ValuationSnapshot, error)
}

// ProfitabilitySource fetches profitability metrics.
type ProfitabilitySource interface {
	Adapter
	FetchProfitability(ctx context.Context, ticker string) (*model.ProfitabilitySnapshot, error)
}

// InstitutionalFlowSource fetches the latest session's institutional net
// positions. The result is all-or-nothing per origin.
type InstitutionalFlowSource interface {
	Adapter
	FetchInstitutionalFlow(ctx context.Context, ticker string) (*model.InstitutionalFlow, error)
}

// OwnershipSource fetches the ownership concentration comparison across the
// two most recent disclosure periods.
type OwnershipSource interface {
	Adapter
	FetchOwnership(ctx context.Context, ticker string) (*model.OwnershipConcentration, error)
}

// InsiderHoldingSource fetches the director/insider holding percentage,
// scanning a small window of recent disclosure periods.
type InsiderHoldingSource interface {
	Adapter
	FetchInsiderHolding(ctx context.Context, ticker string) (*float64, error)
}

// DisplayNameSource fetches the security's display name.
type DisplayNameSource interface {
	Adapter
	FetchDisplayName(ctx context.Context, ticker string) (*string, error)
}

// BusinessSummarySource fetches the free-text business description, handed
// through unmodified; translation is an external concern.
type BusinessSummarySource interface {
	Adapter
	FetchBusinessSummary(ctx context.Context, ticker string) (*string, error)
}

// NewHTTPClient builds the injected transport shared by the adapters:
// bounded timeout, optional proxy, no process-wide state.
func NewHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// twseCode strips the exchange suffix from a normalized ticker, yielding the
// bare TWSE/TPEx code used by the domestic origins ("2330.TW" -> "2330").
func twseCode(ticker string) string {
	code := strings.TrimSuffix(ticker, ".TW")
	return strings.TrimSuffix(code, ".TWO")
}

// parseFloat converts an origin's numeric string to a float, treating empty
// strings and "N/A" placeholders as absent rather than zero.
func parseFloat(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "N/A" || s == "-" || s == "--" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseLots converts a share-count string to board lots (1 lot = 1000
// shares), matching the exchange's reporting unit.
func parseLots(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return floorLots(v), true
}

// floorLots floors shares to board lots, so a net sale below one lot stays
// negative instead of rounding to neutral.
func floorLots(shares int64) int64 {
	lots := shares / 1000
	if shares%1000 != 0 && shares < 0 {
		lots--
	}
	return lots
}

func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
