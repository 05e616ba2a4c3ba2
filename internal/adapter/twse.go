package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ryantsai1111-cpu/stockk/internal/marketcache"
	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

const (
	cacheKeyBWIBBU = "twse:bwibbu_all"
	cacheKeyT86    = "twse:t86_all"
)

// TWSE wraps the exchange's official open API. Its endpoints return
// market-wide tables, so the raw payloads are served through the
// read-through cache and individual tickers are looked up locally.
type TWSE struct {
	baseURL    string
	httpClient *http.Client
	cache      *marketcache.Cache
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// TWSEOption configures the TWSE adapter.
type TWSEOption func(*TWSE)

// WithTWSEHTTPClient sets a custom HTTP client.
func WithTWSEHTTPClient(c *http.Client) TWSEOption {
	return func(t *TWSE) { t.httpClient = c }
}

// WithTWSELogger sets a logger.
func WithTWSELogger(logger arbor.ILogger) TWSEOption {
	return func(t *TWSE) { t.logger = logger }
}

// NewTWSE creates the official exchange adapter.
func NewTWSE(baseURL string, cache *marketcache.Cache, opts ...TWSEOption) *TWSE {
	t := &TWSE{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TWSE) Name() string { return "twse" }

// bwibbuRow is one row of the daily PE/yield/PB table (BWIBBU_ALL).
type bwibbuRow struct {
	Code          string `json:"Code"`
	Name          string `json:"Name"`
	PERatio       string `json:"PEratio"`
	DividendYield string `json:"DividendYield"`
	PBRatio       string `json:"PBratio"`
}

// t86Row is one row of the institutional investors daily report (T86_ALL).
// Net buy/sell values are share counts with thousands separators.
type t86Row struct {
	Code       string `json:"Code"`
	ForeignNet string `json:"ForeignInvestorNetBuySell"`
	TrustNet   string `json:"InvestmentTrustNetBuySell"`
	DealerNet  string `json:"DealerNetBuySell"`
}

func (t *TWSE) fetchTable(ctx context.Context, path string) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if t.logger != nil {
		t.logger.Debug().Str("path", path).Msg("TWSE open API request")
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twse fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twse fetch %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twse read %s: %w", path, err)
	}
	return body, nil
}

// FillBWIBBU fetches the raw valuation table; exposed for scheduled refresh.
func (t *TWSE) FillBWIBBU(ctx context.Context) ([]byte, error) {
	return t.fetchTable(ctx, "/exchangeReport/BWIBBU_ALL")
}

// FillT86 fetches the raw institutional flow table; exposed for scheduled refresh.
func (t *TWSE) FillT86(ctx context.Context) ([]byte, error) {
	return t.fetchTable(ctx, "/fund/T86_ALL")
}

func (t *TWSE) valuationRow(ctx context.Context, code string) (*bwibbuRow, error) {
	payload, err := t.cache.Fetch(ctx, cacheKeyBWIBBU, t.FillBWIBBU)
	if err != nil {
		return nil, err
	}
	var rows []bwibbuRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("twse decode BWIBBU_ALL: %w", err)
	}
	for i := range rows {
		if rows[i].Code == code {
			return &rows[i], nil
		}
	}
	return nil, nil
}

// FetchValuation looks up the ticker in the cached market-wide valuation
// table. Unparseable cells ("N/A", "-") stay nil without suppressing
// sibling fields.
func (t *TWSE) FetchValuation(ctx context.Context, ticker string) (*model.ValuationSnapshot, error) {
	row, err := t.valuationRow(ctx, twseCode(ticker))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return &model.ValuationSnapshot{
		DisplayName:      strPtr(row.Name),
		PERatio:          parseFloat(row.PERatio),
		PBRatio:          parseFloat(row.PBRatio),
		DividendYieldPct: parseFloat(row.DividendYield),
	}, nil
}

// FetchInstitutionalFlow looks up the ticker in the cached T86 daily report.
// Share counts are converted to board lots. The record is all-or-nothing:
// if any leg fails to parse, the whole record is unavailable.
func (t *TWSE) FetchInstitutionalFlow(ctx context.Context, ticker string) (*model.InstitutionalFlow, error) {
	payload, err := t.cache.Fetch(ctx, cacheKeyT86, t.FillT86)
	if err != nil {
		return nil, err
	}
	var rows []t86Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("twse decode T86_ALL: %w", err)
	}
	code := twseCode(ticker)
	for _, row := range rows {
		if row.Code != code {
			continue
		}
		foreign, okF := parseLots(row.ForeignNet)
		trust, okT := parseLots(row.TrustNet)
		dealer, okD := parseLots(row.DealerNet)
		if !okF || !okT || !okD {
			return nil, nil
		}
		return &model.InstitutionalFlow{
			ForeignNetLots: foreign,
			TrustNetLots:   trust,
			DealerNetLots:  dealer,
		}, nil
	}
	return nil, nil
}

// FetchDisplayName returns the official listed name for the ticker.
func (t *TWSE) FetchDisplayName(ctx context.Context, ticker string) (*string, error) {
	row, err := t.valuationRow(ctx, twseCode(ticker))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return strPtr(row.Name), nil
}
