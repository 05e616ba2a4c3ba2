package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// Large-holder bracket: share-distribution levels covering holdings above
// 400 board lots (400,001 shares and up).
var tdccLargeHolderLevels = map[string]bool{"12": true, "13": true, "14": true, "15": true}

const tdccTotalLevel = "17"

// TDCC wraps the depository's public share-distribution disclosure. Rows
// are weekly per-level buckets; the adapter folds the two most recent
// disclosure periods into one concentration comparison.
type TDCC struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// TDCCOption configures the TDCC adapter.
type TDCCOption func(*TDCC)

// WithTDCCHTTPClient sets a custom HTTP client.
func WithTDCCHTTPClient(c *http.Client) TDCCOption {
	return func(t *TDCC) { t.httpClient = c }
}

// WithTDCCLogger sets a logger.
func WithTDCCLogger(logger arbor.ILogger) TDCCOption {
	return func(t *TDCC) { t.logger = logger }
}

// NewTDCC creates the disclosure adapter.
func NewTDCC(baseURL string, opts ...TDCCOption) *TDCC {
	t := &TDCC{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TDCC) Name() string { return "tdcc" }

// tdccRow is one per-level bucket of the weekly share-distribution table.
type tdccRow struct {
	Date    string `json:"資料日期"`
	Code    string `json:"證券代號"`
	Level   string `json:"持股分級"`
	Holders string `json:"人數"`
	Percent string `json:"占集保庫存數比例"`
}

// FetchOwnership returns the large-holder concentration comparison across
// the two most recent disclosure periods, or nil when fewer than two
// periods exist for the ticker.
func (t *TDCC) FetchOwnership(ctx context.Context, ticker string) (*model.OwnershipConcentration, error) {
	code := twseCode(ticker)
	u := fmt.Sprintf("%s/getOD.ashx?id=1-5&sca=%s", t.baseURL, code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tdcc fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tdcc fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tdcc read body: %w", err)
	}

	var rows []tdccRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("tdcc decode: %w", err)
	}

	type period struct {
		largePct float64
		holders  int
	}
	periods := make(map[string]*period)
	for _, row := range rows {
		if row.Code != code {
			continue
		}
		p, ok := periods[row.Date]
		if !ok {
			p = &period{}
			periods[row.Date] = p
		}
		if tdccLargeHolderLevels[row.Level] {
			if v := parseFloat(row.Percent); v != nil {
				p.largePct += *v
			}
		}
		if row.Level == tdccTotalLevel {
			if v := parseFloat(row.Holders); v != nil {
				p.holders = int(*v)
			}
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

	latest, previous := periods[dates[0]], periods[dates[1]]
	asOf, err := parseTDCCDate(dates[0])
	if err != nil {
		return nil, nil
	}
	return &model.OwnershipConcentration{
		AsOfDate:             asOf,
		LargeHolderPct:       latest.largePct,
		LargeHolderPctChange: latest.largePct - previous.largePct,
		TotalHolders:         latest.holders,
		TotalHoldersChange:   latest.holders - previous.holders,
	}, nil
}

// parseTDCCDate parses the depository's compact date form ("20260821").
func parseTDCCDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("unexpected date %q", s)
	}
	if _, err := strconv.Atoi(s); err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", s)
}
