package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Yahoo wraps the Yahoo Finance public endpoints: the v8 chart API for the
// daily price history and quoteSummary for profitability ratios, fallback
// valuation, and the business profile.
type Yahoo struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger

	mu   sync.Mutex
	memo map[string]quoteSummaryMemo
}

type quoteSummaryMemo struct {
	result    *quoteSummaryResult
	fetchedAt time.Time
}

// quoteSummary responses are consulted by three capabilities per report;
// memoize briefly so one report issues one call.
const quoteSummaryMemoTTL = 5 * time.Minute

// YahooOption configures the Yahoo adapter.
type YahooOption func(*Yahoo)

// WithYahooHTTPClient sets a custom HTTP client.
func WithYahooHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.httpClient = c }
}

// WithYahooLogger sets a logger.
func WithYahooLogger(logger arbor.ILogger) YahooOption {
	return func(y *Yahoo) { y.logger = logger }
}

// NewYahoo creates the Yahoo Finance adapter.
func NewYahoo(baseURL string, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		memo:       make(map[string]quoteSummaryMemo),
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string { return "yahoo" }

// yahooChart is the response structure of the v8 chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// FetchPriceHistory returns up to `days` daily bars in chronological order.
// An unknown ticker yields an empty series, which the assembler treats as
// the one fatal condition.
func (y *Yahoo) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	rng := "2y"
	switch {
	case days <= 90:
		rng = "3mo"
	case days <= 180:
		rng = "6mo"
	case days <= 365:
		rng = "1y"
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		y.baseURL, url.PathEscape(ticker), rng)

	body, err := y.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		// "Not Found" style API errors mean no trading history, not a
		// transport failure.
		if y.logger != nil {
			y.logger.Debug().Str("ticker", ticker).Str("code", chart.Chart.Error.Code).Msg("yahoo chart api error")
		}
		return nil, nil
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	quote := result.Indicators.Quote[0]
	// Malformed responses can truncate individual quote arrays; never index
	// past the shortest one.
	n := len(result.Timestamp)
	for _, leg := range [][]interface{}{quote.Open, quote.High, quote.Low, quote.Close} {
		if len(leg) < n {
			n = len(leg)
		}
	}
	bars := make([]model.PriceBar, 0, n)
	for i, ts := range result.Timestamp[:n] {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bars on holidays
		}
		var vol float64
		if i < len(quote.Volume) {
			vol = toFloat(quote.Volume[i])
		}
		bars = append(bars, model.PriceBar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: vol,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// fmtValue is Yahoo's {raw, fmt} wrapper around a numeric field.
type fmtValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResult struct {
	Price struct {
		ShortName string `json:"shortName"`
		LongName  string `json:"longName"`
	} `json:"price"`
	SummaryDetail struct {
		TrailingPE    fmtValue `json:"trailingPE"`
		DividendYield fmtValue `json:"dividendYield"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics struct {
		PriceToBook fmtValue `json:"priceToBook"`
		TrailingEPS fmtValue `json:"trailingEps"`
		BookValue   fmtValue `json:"bookValue"`
	} `json:"defaultKeyStatistics"`
	FinancialData struct {
		GrossMargins     fmtValue `json:"grossMargins"`
		OperatingMargins fmtValue `json:"operatingMargins"`
		ProfitMargins    fmtValue `json:"profitMargins"`
		ReturnOnEquity   fmtValue `json:"returnOnEquity"`
		ReturnOnAssets   fmtValue `json:"returnOnAssets"`
	} `json:"financialData"`
	AssetProfile struct {
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
}

type quoteSummaryEnvelope struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *struct {
			Code string `json:"code"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (y *Yahoo) quoteSummary(ctx context.Context, ticker string) (*quoteSummaryResult, error) {
	y.mu.Lock()
	if m, ok := y.memo[ticker]; ok && time.Since(m.fetchedAt) < quoteSummaryMemoTTL {
		y.mu.Unlock()
		return m.result, nil
	}
	y.mu.Unlock()

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=price,summaryDetail,defaultKeyStatistics,financialData,assetProfile",
		y.baseURL, url.PathEscape(ticker))
	body, err := y.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var env quoteSummaryEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("yahoo decode quoteSummary: %w", err)
	}
	var result *quoteSummaryResult
	if env.QuoteSummary.Error == nil && len(env.QuoteSummary.Result) > 0 {
		result = &env.QuoteSummary.Result[0]
	}

	y.mu.Lock()
	y.memo[ticker] = quoteSummaryMemo{result: result, fetchedAt: time.Now()}
	y.mu.Unlock()
	return result, nil
}

// FetchProfitability maps quoteSummary ratios (fractions) to percentages.
func (y *Yahoo) FetchProfitability(ctx context.Context, ticker string) (*model.ProfitabilitySnapshot, error) {
	qs, err := y.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		return nil, nil
	}
	snap := &model.ProfitabilitySnapshot{
		GrossMarginPct:     asPercent(qs.FinancialData.GrossMargins.Raw),
		OperatingMarginPct: asPercent(qs.FinancialData.OperatingMargins.Raw),
		NetMarginPct:       asPercent(qs.FinancialData.ProfitMargins.Raw),
		ReturnOnEquityPct:  asPercent(qs.FinancialData.ReturnOnEquity.Raw),
		ReturnOnAssetsPct:  asPercent(qs.FinancialData.ReturnOnAssets.Raw),
		EPS:                qs.DefaultKeyStatistics.TrailingEPS.Raw,
		BookValuePerShare:  qs.DefaultKeyStatistics.BookValue.Raw,
	}
	if *snap == (model.ProfitabilitySnapshot{}) {
		return nil, nil
	}
	return snap, nil
}

// FetchValuation serves as the fallback valuation origin.
func (y *Yahoo) FetchValuation(ctx context.Context, ticker string) (*model.ValuationSnapshot, error) {
	qs, err := y.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		return nil, nil
	}
	snap := &model.ValuationSnapshot{
		DisplayName:      strPtr(qs.Price.ShortName),
		PERatio:          qs.SummaryDetail.TrailingPE.Raw,
		PBRatio:          qs.DefaultKeyStatistics.PriceToBook.Raw,
		DividendYieldPct: asPercent(qs.SummaryDetail.DividendYield.Raw),
	}
	if snap.DisplayName == nil && snap.PERatio == nil && snap.PBRatio == nil && snap.DividendYieldPct == nil {
		return nil, nil
	}
	return snap, nil
}

// FetchDisplayName returns the vendor's short or long name.
func (y *Yahoo) FetchDisplayName(ctx context.Context, ticker string) (*string, error) {
	qs, err := y.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		return nil, nil
	}
	if name := strPtr(qs.Price.ShortName); name != nil {
		return name, nil
	}
	return strPtr(qs.Price.LongName), nil
}

// FetchBusinessSummary returns the raw business description, untranslated.
func (y *Yahoo) FetchBusinessSummary(ctx context.Context, ticker string) (*string, error) {
	qs, err := y.quoteSummary(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		return nil, nil
	}
	return strPtr(qs.AssetProfile.LongBusinessSummary), nil
}

func (y *Yahoo) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	return body, nil
}

func asPercent(frac *float64) *float64 {
	if frac == nil {
		return nil
	}
	v := *frac * 100
	return &v
}
