package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"

	"github.com/ryantsai1111-cpu/stockk/internal/adapter"
	"github.com/ryantsai1111-cpu/stockk/internal/config"
	"github.com/ryantsai1111-cpu/stockk/internal/marketcache"
	"github.com/ryantsai1111-cpu/stockk/internal/outlook"
	"github.com/ryantsai1111-cpu/stockk/internal/render"
	"github.com/ryantsai1111-cpu/stockk/internal/report"
	"github.com/ryantsai1111-cpu/stockk/internal/scoring"
)

func main() {
	var (
		tickerFlag = flag.String("ticker", "", "stock code to analyze (e.g. 2330 or 2330.TW)")
		cfgFlag    = flag.String("config", "configs/config.yaml", "path to config file")
		watchFlag  = flag.Bool("watch", false, "keep running and regenerate the report on the refresh schedule")
	)
	flag.Parse()

	cfgPath := *cfgFlag
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logger := arbor.NewLogger().WithConsoleWriter(arbormodels.WriterConfiguration{
		Type:       arbormodels.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString(cfg.LogLevel)

	if *tickerFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: report -ticker 2330 [-config configs/config.yaml] [-watch]")
		os.Exit(2)
	}
	ticker := normalizeTicker(*tickerFlag)

	var store marketcache.Store
	if cfg.Cache.SQLitePath != "" {
		s, serr := marketcache.NewSQLiteStore(cfg.Cache.SQLitePath)
		if serr != nil {
			logger.Warn().Err(serr).Msg("sqlite cache unavailable, using in-memory store")
			store = marketcache.NewMemoryStore()
		} else {
			store = s
		}
	} else {
		store = marketcache.NewMemoryStore()
	}
	defer store.Close()

	cache := marketcache.New(store, time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		marketcache.WithLogger(logger))

	timeout := time.Duration(cfg.Sources.TimeoutSeconds) * time.Second
	httpClient := adapter.NewHTTPClient(timeout, cfg.Proxy)

	twse := adapter.NewTWSE(cfg.Sources.TWSEBaseURL, cache,
		adapter.WithTWSEHTTPClient(httpClient), adapter.WithTWSELogger(logger))
	yahoo := adapter.NewYahoo(cfg.Sources.YahooBaseURL,
		adapter.WithYahooHTTPClient(httpClient), adapter.WithYahooLogger(logger))
	histock := adapter.NewHiStock(cfg.Sources.HiStockBaseURL,
		adapter.WithHiStockHTTPClient(httpClient), adapter.WithHiStockLogger(logger),
		adapter.WithHiStockLookbackMonths(cfg.Sources.InsiderLookbackMonths))
	tdcc := adapter.NewTDCC(cfg.Sources.TDCCBaseURL,
		adapter.WithTDCCHTTPClient(httpClient), adapter.WithTDCCLogger(logger))
	finmind := adapter.NewFinMind(cfg.Sources.FinMindBaseURL, cfg.Sources.FinMindToken,
		adapter.WithFinMindHTTPClient(httpClient), adapter.WithFinMindLogger(logger))

	scorer := scoring.NewEngine(cfg.Scoring)
	generator := outlook.NewGenerator(cfg.Scoring)

	assembler := report.New(cfg.Resolver.Priorities, scorer, generator,
		[]adapter.Adapter{twse, yahoo, histock, tdcc, finmind},
		report.WithLogger(logger),
		report.WithLookbackDays(cfg.Sources.LookbackDays))

	generate := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		rep, genErr := assembler.Generate(ctx, ticker)
		if genErr != nil {
			if errors.Is(genErr, report.ErrNoPriceHistory) {
				fmt.Fprintf(os.Stderr, "❌ 查無代碼 %s，請確認是否為上市股票。\n", ticker)
				return
			}
			logger.Error().Err(genErr).Str("ticker", ticker).Msg("report generation failed")
			return
		}
		fmt.Println(render.Markdown(rep))
	}

	generate()

	if !*watchFlag {
		return
	}

	refresher := marketcache.NewRefresher(cache, logger)
	spec := cfg.Cache.RefreshCron
	if err := refresher.Register(spec, "twse:bwibbu_all", twse.FillBWIBBU); err != nil {
		logger.Error().Err(err).Msg("register valuation table refresh")
		os.Exit(1)
	}
	if err := refresher.Register(spec, "twse:t86_all", twse.FillT86); err != nil {
		logger.Error().Err(err).Msg("register institutional table refresh")
		os.Exit(1)
	}
	if err := refresher.AddTask(spec, "report", generate); err != nil {
		logger.Error().Err(err).Msg("register report task")
		os.Exit(1)
	}
	refresher.Start()
	defer refresher.Stop()
	logger.Info().Str("cron", spec).Msg("watch mode running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received, stopping")
}

// normalizeTicker appends the listed-market suffix to bare numeric codes.
func normalizeTicker(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return s
		}
	}
	return s + ".TW"
}
