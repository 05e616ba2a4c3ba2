package model

import "time"

// TechnicalSnapshot holds the derived indicators for one trading session.
// Moving averages and RSI are nil until enough preceding bars exist; MACD and
// its signal line are defined from the first bar because the EMA is seeded
// with the first observed close.
type TechnicalSnapshot struct {
	Date   time.Time
	Close  float64
	MA5    *float64
	MA20   *float64
	MA60   *float64
	MACD   float64
	Signal float64
	RSI    *float64
}
