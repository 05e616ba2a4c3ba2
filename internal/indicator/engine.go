// Package indicator derives per-bar technical indicators from a price series.
// Everything here is a pure function of the bars: indicators are recomputed
// from the full series on every report, with no state kept between requests.
package indicator

import (
	"errors"

	"github.com/ryantsai1111-cpu/stockk/internal/model"
)

const (
	macdFastSpan   = 12
	macdSlowSpan   = 26
	macdSignalSpan = 9
	rsiPeriod      = 14
)

// SMAWindows are the simple moving-average windows computed per bar.
var SMAWindows = []int{5, 20, 60}

var ErrEmptySeries = errors.New("no price bars")

// Compute derives one TechnicalSnapshot per bar. Moving averages are nil
// until a full window of closes exists; RSI is nil until rsiPeriod deltas
// exist. MACD and its signal line are defined from the first bar because the
// EMA recursion is seeded with the first close.
func Compute(bars []model.PriceBar) ([]model.TechnicalSnapshot, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ma5 := rollingMean(closes, 5)
	ma20 := rollingMean(closes, 20)
	ma60 := rollingMean(closes, 60)

	fast := ema(closes, macdFastSpan)
	slow := ema(closes, macdSlowSpan)
	macd := make([]float64, len(closes))
	for i := range closes {
		macd[i] = fast[i] - slow[i]
	}
	signal := ema(macd, macdSignalSpan)

	rsi := relativeStrength(closes, rsiPeriod)

	snaps := make([]model.TechnicalSnapshot, len(bars))
	for i, b := range bars {
		snaps[i] = model.TechnicalSnapshot{
			Date:   b.Date,
			Close:  b.Close,
			MA5:    ma5[i],
			MA20:   ma20[i],
			MA60:   ma60[i],
			MACD:   macd[i],
			Signal: signal[i],
			RSI:    rsi[i],
		}
	}
	return snaps, nil
}

// rollingMean returns the trailing arithmetic mean over `window` values,
// nil for indices before a full window exists.
func rollingMean(values []float64, window int) []*float64 {
	out := make([]*float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			m := sum / float64(window)
			out[i] = &m
		}
	}
	return out
}

// ema computes the recursive exponential moving average with smoothing
// factor 2/(span+1), seeded by the first value (no warm-up look-back).
func ema(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// relativeStrength computes the bounded [0,100] oscillator over trailing
// `period` day-over-day deltas: gains and losses are averaged separately
// with simple means. When the trailing loss is exactly zero the oscillator
// is 100, never an undefined ratio.
func relativeStrength(closes []float64, period int) []*float64 {
	out := make([]*float64, len(closes))
	if len(closes) < period+1 {
		return out
	}
	deltas := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		deltas[i] = closes[i] - closes[i-1]
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			if deltas[j] > 0 {
				gain += deltas[j]
			} else {
				loss -= deltas[j]
			}
		}
		gain /= float64(period)
		loss /= float64(period)

		var v float64
		if loss == 0 {
			v = 100
		} else {
			rs := gain / loss
			v = 100 - 100/(1+rs)
		}
		out[i] = &v
	}
	return out
}
