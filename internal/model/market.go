package model

import "time"

// PriceBar represents a single daily candlestick bar.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the chronological price history for one security.
type PriceSeries struct {
	Ticker    string
	Bars      []PriceBar
	FetchedAt time.Time
}
