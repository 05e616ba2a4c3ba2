package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insiderPageFixture = `<html><body><table>
<tr><th>年月</th><th>全體董監持股(張)</th><th>持股比例</th></tr>
<tr><td>2026/08</td><td>1,250</td><td>-</td></tr>
<tr><td>2026/07</td><td>1,250</td><td>21.53%</td></tr>
<tr><td>2026/06</td><td>1,240</td><td>21.36%</td></tr>
</table></body></html>`

const ownershipPageFixture = `<html><body><table>
<tr><th>日期</th><th>大戶比例</th><th>股東人數</th></tr>
<tr><td>2026/08/21</td><td>46.12%</td><td>612,420</td></tr>
<tr><td>2026/08/14</td><td>45.80%</td><td>613,900</td></tr>
<tr><td>2026/08/07</td><td>45.95%</td><td>614,100</td></tr>
</table></body></html>`

func newHiStockFixture(t *testing.T, pages map[string]string) *HiStock {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return NewHiStock(srv.URL, WithHiStockHTTPClient(srv.Client()))
}

func TestHiStock_FetchInsiderHolding_SkipsPlaceholderMonths(t *testing.T) {
	h := newHiStockFixture(t, map[string]string{
		"/stock/2330/董監持股": insiderPageFixture,
	})

	pct, err := h.FetchInsiderHolding(context.Background(), "2330.TW")
	require.NoError(t, err)
	require.NotNil(t, pct)
	// The newest month is still a placeholder; the first parseable row wins.
	assert.Equal(t, 21.53, *pct)
}

func TestHiStock_FetchInsiderHolding_AllPlaceholdersWithinWindow(t *testing.T) {
	page := `<html><body><table>
<tr><td>2026/08</td><td>1,250</td><td>-</td></tr>
<tr><td>2026/07</td><td>1,250</td><td>--</td></tr>
<tr><td>2026/06</td><td>1,250</td><td>-</td></tr>
<tr><td>2026/05</td><td>1,250</td><td>-</td></tr>
<tr><td>2026/04</td><td>1,250</td><td>19.88%</td></tr>
</table></body></html>`
	h := newHiStockFixture(t, map[string]string{"/stock/2330/董監持股": page})

	// The parseable row sits outside the four-month scan window.
	pct, err := h.FetchInsiderHolding(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Nil(t, pct)
}

func TestHiStock_FetchOwnership_ComparesTwoNewestRows(t *testing.T) {
	h := newHiStockFixture(t, map[string]string{
		"/stock/2330/股東持股分級": ownershipPageFixture,
	})

	own, err := h.FetchOwnership(context.Background(), "2330.TW")
	require.NoError(t, err)
	require.NotNil(t, own)
	assert.Equal(t, "2026-08-21", own.AsOfDate.Format("2006-01-02"))
	assert.Equal(t, 46.12, own.LargeHolderPct)
	assert.InDelta(t, 0.32, own.LargeHolderPctChange, 1e-9)
	assert.Equal(t, 612420, own.TotalHolders)
	assert.Equal(t, -1480, own.TotalHoldersChange)
}

func TestHiStock_FetchOwnership_SinglePeriodIsUnavailable(t *testing.T) {
	page := `<html><body><table>
<tr><td>2026/08/21</td><td>46.12%</td><td>612,420</td></tr>
</table></body></html>`
	h := newHiStockFixture(t, map[string]string{"/stock/2330/股東持股分級": page})

	own, err := h.FetchOwnership(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Nil(t, own)
}

func TestHiStock_FetchDisplayName_FromTitle(t *testing.T) {
	h := newHiStockFixture(t, map[string]string{
		"/stock/2330": `<html><head><title>台積電 (2330) 個股概況</title></head><body></body></html>`,
	})

	name, err := h.FetchDisplayName(context.Background(), "2330.TW")
	require.NoError(t, err)
	require.NotNil(t, name)
	assert.Equal(t, "台積電", *name)
}

func TestHiStock_FetchDisplayName_EmptyTitleIsUnavailable(t *testing.T) {
	h := newHiStockFixture(t, map[string]string{
		"/stock/2330": `<html><head><title></title></head><body></body></html>`,
	})
	name, err := h.FetchDisplayName(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Nil(t, name)
}

func TestParsePercentCell(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"21.53%", fp(21.53)},
		{" 46.12% ", fp(46.12)},
		{"1,234.5%", fp(1234.5)},
		{"-", nil},
		{"--", nil},
		{"N/A", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := parsePercentCell(tt.in)
		if tt.want == nil {
			assert.Nil(t, got, "input %q", tt.in)
		} else {
			require.NotNil(t, got, "input %q", tt.in)
			assert.Equal(t, *tt.want, *got)
		}
	}
}
