package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// FinMind wraps the FinMind v4 aggregator API. It backs the profitability
// chain and serves as a fallback origin for institutional flow, ownership
// concentration, and the display name.
type FinMind struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// FinMindOption configures the FinMind adapter.
type FinMindOption func(*FinMind)

// WithFinMindHTTPClient sets a custom HTTP client.
func WithFinMindHTTPClient(c *http.Client) FinMindOption {
	return func(f *FinMind) { f.httpClient = c }
}

// WithFinMindLogger sets a logger.
func WithFinMindLogger(logger arbor.ILogger) FinMindOption {
	return func(f *FinMind) { f.logger = logger }
}

// NewFinMind creates the aggregator adapter. The token may be empty; the
// API then serves with the anonymous quota.
func NewFinMind(baseURL, token string, opts ...FinMindOption) *FinMind {
	f := &FinMind{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *FinMind) Name() string { return "finmind" }

func (f *FinMind) dataset(ctx context.Context, dataset, dataID string, extra url.Values, out interface{}) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("dataset", dataset)
	params.Set("data_id", dataID)
	if f.token != "" {
		params.Set("token", f.token)
	}
	for k, vs := range extra {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	u := fmt.Sprintf("%s/api/v4/data?%s", f.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if f.logger != nil {
		f.logger.Debug().Str("dataset", dataset).Str("data_id", dataID).Msg("FinMind API request")
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("finmind fetch %s: %w", dataset, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("finmind fetch %s: status %d", dataset, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("finmind read %s: %w", dataset, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("finmind decode %s: %w", dataset, err)
	}
	return nil
}

// startDate bounds dataset queries to the recent window the report needs.
func startDate(days int) string {
	return time.Now().AddDate(0, 0, -days).Format("2006-01-02")
}

type statementRow struct {
	Date    string  `json:"date"`
	StockID string  `json:"stock_id"`
	Type    string  `json:"type"`
	Value   float64 `json:"value"`
}

// FetchProfitability derives margin ratios from the latest quarterly income
// statement. ROE/ROA and book value are not in this dataset and stay nil so
// a lower-priority origin can fill them.
func (f *FinMind) FetchProfitability(ctx context.Context, ticker string) (*model.ProfitabilitySnapshot, error) {
	var envelope struct {
		Data []statementRow `json:"data"`
	}
	extra := url.Values{}
	extra.Set("start_date", startDate(400))
	if err := f.dataset(ctx, "TaiwanStockFinancialStatements", twseCode(ticker), extra, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, nil
	}

	latest := ""
	for _, row := range envelope.Data {
		if row.Date > latest {
			latest = row.Date
		}
	}
	values := make(map[string]float64)
	for _, row := range envelope.Data {
		if row.Date == latest {
			values[row.Type] = row.Value
		}
	}
	revenue, ok := values["Revenue"]
	if !ok || revenue == 0 {
		return nil, nil
	}

	snap := &model.ProfitabilitySnapshot{}
	if v, ok := values["GrossProfit"]; ok {
		snap.GrossMarginPct = fptr(v / revenue * 100)
	}
	if v, ok := values["OperatingIncome"]; ok {
		snap.OperatingMarginPct = fptr(v / revenue * 100)
	}
	if v, ok := values["IncomeAfterTaxes"]; ok {
		snap.NetMarginPct = fptr(v / revenue * 100)
	}
	if v, ok := values["EPS"]; ok {
		snap.EPS = fptr(v)
	}
	return snap, nil
}

type institutionalRow struct {
	Date    string `json:"date"`
	StockID string `json:"stock_id"`
	Buy     int64  `json:"buy"`
	Sell    int64  `json:"sell"`
	Name    string `json:"name"`
}

// FetchInstitutionalFlow folds the latest session's per-desk rows into the
// three-leg net position, converting shares to board lots.
func (f *FinMind) FetchInstitutionalFlow(ctx context.Context, ticker string) (*model.InstitutionalFlow, error) {
	var envelope struct {
		Data []institutionalRow `json:"data"`
	}
	extra := url.Values{}
	extra.Set("start_date", startDate(10))
	if err := f.dataset(ctx, "TaiwanStockInstitutionalInvestorsBuySell", twseCode(ticker), extra, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 {
		return nil, nil
	}

	latest := ""
	for _, row := range envelope.Data {
		if row.Date > latest {
			latest = row.Date
		}
	}
	flow := &model.InstitutionalFlow{}
	seen := false
	for _, row := range envelope.Data {
		if row.Date != latest {
			continue
		}
		net := floorLots(row.Buy - row.Sell)
		switch row.Name {
		case "Foreign_Investor", "Foreign_Dealer_Self":
			flow.ForeignNetLots += net
			seen = true
		case "Investment_Trust":
			flow.TrustNetLots += net
			seen = true
		case "Dealer_self", "Dealer_Hedging":
			flow.DealerNetLots += net
			seen = true
		}
	}
	if !seen {
		return nil, nil
	}
	return flow, nil
}

type holdingLevelRow struct {
	Date    string  `json:"date"`
	StockID string  `json:"stock_id"`
	Level   string  `json:"HoldingSharesLevel"`
	People  int     `json:"people"`
	Percent float64 `json:"percent"`
}

// Share-distribution levels above 400 board lots.
var finmindLargeHolderLevels = map[string]bool{
	"400,001-600,000":     true,
	"600,001-800,000":     true,
	"800,001-1,000,000":   true,
	"more than 1,000,001": true,
}

// FetchOwnership compares the two most recent share-distribution weeks.
func (f *FinMind) FetchOwnership(ctx context.Context, ticker string) (*model.OwnershipConcentration, error) {
	var envelope struct {
		Data []holdingLevelRow `json:"data"`
	}
	extra := url.Values{}
	extra.Set("start_date", startDate(30))
	if err := f.dataset(ctx, "TaiwanStockHoldingSharesPer", twseCode(ticker), extra, &envelope); err != nil {
		return nil, err
	}

	type period struct {
		largePct float64
		holders  int
	}
	periods := make(map[string]*period)
	for _, row := range envelope.Data {
		p, ok := periods[row.Date]
		if !ok {
			p = &period{}
			periods[row.Date] = p
		}
		if finmindLargeHolderLevels[row.Level] {
			p.largePct += row.Percent
		}
		if row.Level == "total" {
			p.holders = row.People
		}
	}
	if len(periods) < 2 {
		return nil, nil
	}

	dates := make([]string, 0, len(periods))
	for d := range periods {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	asOf, err := time.Parse("2006-01-02", dates[0])
	if err != nil {
		return nil, nil
	}
	latest, previous := periods[dates[0]], periods[dates[1]]
	return &model.OwnershipConcentration{
		AsOfDate:             asOf,
		LargeHolderPct:       latest.largePct,
		LargeHolderPctChange: latest.largePct - previous.largePct,
		TotalHolders:         latest.holders,
		TotalHoldersChange:   latest.holders - previous.holders,
	}, nil
}

type stockInfoRow struct {
	StockID   string `json:"stock_id"`
	StockName string `json:"stock_name"`
}

// FetchDisplayName returns the listed name from the aggregator's registry.
func (f *FinMind) FetchDisplayName(ctx context.Context, ticker string) (*string, error) {
	var envelope struct {
		Data []stockInfoRow `json:"data"`
	}
	if err := f.dataset(ctx, "TaiwanStockInfo", twseCode(ticker), nil, &envelope); err != nil {
		return nil, err
	}
	for _, row := range envelope.Data {
		if row.StockID == twseCode(ticker) {
			return strPtr(row.StockName), nil
		}
	}
	return nil, nil
}

func fptr(v float64) *float64 { return &v }
