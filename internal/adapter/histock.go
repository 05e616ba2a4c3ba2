package adapter

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

// HiStock scrapes the consumer finance pages that publish director/insider
// holdings and the weekly share-distribution table. Page structure drifts,
// so every selector miss degrades to an absent field rather than an error.
type HiStock struct {
	baseURL        string
	httpClient     *http.Client
	lookbackMonths int
	logger         arbor.ILogger
}

// HiStockOption configures the HiStock adapter.
type HiStockOption func(*HiStock)

// WithHiStockHTTPClient sets a custom HTTP client.
func WithHiStockHTTPClient(c *http.Client) HiStockOption {
	return func(h *HiStock) { h.httpClient = c }
}

// WithHiStockLogger sets a logger.
func WithHiStockLogger(logger arbor.ILogger) HiStockOption {
	return func(h *HiStock) { h.logger = logger }
}

// WithHiStockLookbackMonths sets how many recent disclosure rows to scan for
// a parseable insider holding percentage.
func WithHiStockLookbackMonths(n int) HiStockOption {
	return func(h *HiStock) { h.lookbackMonths = n }
}

// NewHiStock creates the scraping adapter.
func NewHiStock(baseURL string, opts ...HiStockOption) *HiStock {
	h := &HiStock{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		lookbackMonths: 4,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HiStock) Name() string { return "histock" }

func (h *HiStock) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("histock fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("histock fetch %s: status %d", path, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("histock parse %s: %w", path, err)
	}
	return doc, nil
}

var periodPattern = regexp.MustCompile(`^\d{4}[/\-]\d{1,2}(?:[/\-]\d{1,2})?$`)

// FetchInsiderHolding scans the director-holdings table and returns the
// first parseable percentage within the recent disclosure window. Months
// whose cell is still a placeholder are skipped, not treated as zero.
func (h *HiStock) FetchInsiderHolding(ctx context.Context, ticker string) (*float64, error) {
	doc, err := h.fetchDocument(ctx, "/stock/"+twseCode(ticker)+"/%E8%91%A3%E7%9B%A3%E6%8C%81%E8%82%A1")
	if err != nil {
		return nil, err
	}

	var pct *float64
	scanned := 0
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		if !periodPattern.MatchString(strings.TrimSpace(cells.First().Text())) {
			return true
		}
		scanned++
		if v := parsePercentCell(cells.Last().Text()); v != nil {
			pct = v
			return false
		}
		return scanned < h.lookbackMonths
	})
	return pct, nil
}

// FetchOwnership parses the weekly share-distribution table and compares
// the two most recent disclosure rows. Fewer than two rows means the
// comparison cannot exist.
func (h *HiStock) FetchOwnership(ctx context.Context, ticker string) (*model.OwnershipConcentration, error) {
	doc, err := h.fetchDocument(ctx, "/stock/"+twseCode(ticker)+"/%E8%82%A1%E6%9D%B1%E6%8C%81%E8%82%A1%E5%88%86%E7%B4%9A")
	if err != nil {
		return nil, err
	}

	type ownershipRow struct {
		date    time.Time
		pct     float64
		holders int
	}
	var rows []ownershipRow
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return true
		}
		raw := strings.TrimSpace(cells.First().Text())
		if !periodPattern.MatchString(raw) {
			return true
		}
		date, dateErr := time.Parse("2006/01/02", raw)
		if dateErr != nil {
			return true
		}
		pct := parsePercentCell(cells.Eq(1).Text())
		holders := parseFloat(cells.Eq(2).Text())
		if pct == nil || holders == nil {
			return true
		}
		rows = append(rows, ownershipRow{date: date, pct: *pct, holders: int(*holders)})
		return len(rows) < 2
	})
	if len(rows) < 2 {
		return nil, nil
	}
	// Rows are listed newest first.
	latest, previous := rows[0], rows[1]
	return &model.OwnershipConcentration{
		AsOfDate:             latest.date,
		LargeHolderPct:       latest.pct,
		LargeHolderPctChange: latest.pct - previous.pct,
		TotalHolders:         latest.holders,
		TotalHoldersChange:   latest.holders - previous.holders,
	}, nil
}

// FetchDisplayName extracts the security name from the stock page title,
// e.g. "台積電 (2330) 個股概況".
func (h *HiStock) FetchDisplayName(ctx context.Context, ticker string) (*string, error) {
	doc, err := h.fetchDocument(ctx, "/stock/"+twseCode(ticker))
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(doc.Find("title").Text())
	if idx := strings.IndexAny(title, "(（"); idx > 0 {
		title = title[:idx]
	}
	return strPtr(title), nil
}

func parsePercentCell(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == "--" || s == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
