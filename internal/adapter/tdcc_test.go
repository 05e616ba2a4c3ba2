package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tdccFixture = `[
  {"資料日期":"20260821","證券代號":"2330","持股分級":"1","人數":"400000","占集保庫存數比例":"2.10"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"12","人數":"310","占集保庫存數比例":"3.20"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"13","人數":"120","占集保庫存數比例":"2.80"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"14","人數":"55","占集保庫存數比例":"1.95"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"15","人數":"890","占集保庫存數比例":"38.17"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"17","人數":"612,420","占集保庫存數比例":"100.00"},
  {"資料日期":"20260814","證券代號":"2330","持股分級":"12","人數":"305","占集保庫存數比例":"3.10"},
  {"資料日期":"20260814","證券代號":"2330","持股分級":"13","人數":"118","占集保庫存數比例":"2.75"},
  {"資料日期":"20260814","證券代號":"2330","持股分級":"14","人數":"54","占集保庫存數比例":"1.90"},
  {"資料日期":"20260814","證券代號":"2330","持股分級":"15","人數":"885","占集保庫存數比例":"38.05"},
  {"資料日期":"20260814","證券代號":"2330","持股分級":"17","人數":"613,900","占集保庫存數比例":"100.00"},
  {"資料日期":"20260821","證券代號":"2317","持股分級":"15","人數":"700","占集保庫存數比例":"30.00"}
]`

func newTDCCFixture(t *testing.T, body string) *TDCC {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/getOD.ashx", r.URL.Path)
		require.Equal(t, "1-5", r.URL.Query().Get("id"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewTDCC(srv.URL, WithTDCCHTTPClient(srv.Client()))
}

func TestTDCC_FetchOwnership_SumsLargeHolderLevels(t *testing.T) {
	tdcc := newTDCCFixture(t, tdccFixture)

	own, err := tdcc.FetchOwnership(context.Background(), "2330.TW")
	require.NoError(t, err)
	require.NotNil(t, own)

	// Levels 12-15 sum to the large-holder bracket; level 1 is excluded.
	assert.InDelta(t, 46.12, own.LargeHolderPct, 1e-9)
	assert.InDelta(t, 46.12-45.80, own.LargeHolderPctChange, 1e-9)
	assert.Equal(t, 612420, own.TotalHolders)
	assert.Equal(t, -1480, own.TotalHoldersChange)
	assert.Equal(t, "2026-08-21", own.AsOfDate.Format("2006-01-02"))
}

func TestTDCC_FetchOwnership_IgnoresOtherTickers(t *testing.T) {
	tdcc := newTDCCFixture(t, tdccFixture)

	// 2317 only has one period in the fixture.
	own, err := tdcc.FetchOwnership(context.Background(), "2317.TW")
	require.NoError(t, err)
	assert.Nil(t, own)
}

func TestTDCC_FetchOwnership_SinglePeriodIsUnavailable(t *testing.T) {
	tdcc := newTDCCFixture(t, `[
  {"資料日期":"20260821","證券代號":"2330","持股分級":"15","人數":"890","占集保庫存數比例":"38.17"},
  {"資料日期":"20260821","證券代號":"2330","持股分級":"17","人數":"612420","占集保庫存數比例":"100.00"}
]`)

	own, err := tdcc.FetchOwnership(context.Background(), "2330.TW")
	require.NoError(t, err)
	assert.Nil(t, own)
}

func TestTDCC_FetchOwnership_OriginErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tdcc := NewTDCC(srv.URL, WithTDCCHTTPClient(srv.Client()))
	_, err := tdcc.FetchOwnership(context.Background(), "2330.TW")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestParseTDCCDate(t *testing.T) {
	d, err := parseTDCCDate("20260821")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-21", d.Format("2006-01-02"))

	_, err = parseTDCCDate("2026-08-21")
	assert.Error(t, err)
	_, err = parseTDCCDate("2026082x")
	assert.Error(t, err)
}
