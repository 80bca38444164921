// Package indicators implements the technical indicators used by signal
// generation. All functions are pure: identical input produces identical
// output, and degenerate inputs return neutral fallbacks instead of errors.
package indicators

import (
	"math"

	"futures-signal-dashboard/internal/binance"
)

// EMA calculates the Exponential Moving Average over the full close series,
// seeded with the first close, and returns the latest value. If the history
// is shorter than the period it returns the most recent close (0 when empty).
func EMA(closes []float64, period int) float64 {
	if len(closes) < period {
		if len(closes) == 0 {
			return 0
		}
		return closes[len(closes)-1]
	}

	k := 2.0 / float64(period+1)
	ema := closes[0]
	for i := 1; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1-k)
	}
	return ema
}

// EMASeries calculates the EMA at every index of the series, seeded with the
// first value. Used by MACD, which needs the whole smoothed series.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}

	k := 2.0 / float64(period+1)
	series := make([]float64, len(values))
	series[0] = values[0]
	for i := 1; i < len(values); i++ {
		series[i] = values[i]*k + series[i-1]*(1-k)
	}
	return series
}

// ATR calculates the Average True Range with Wilder smoothing: the first ATR
// is a simple average of the first `period` true ranges, then
// atr = (atr*(period-1) + tr) / period. Returns 0 with fewer than period+1
// candles.
func ATR(klines []binance.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	trueRanges := make([]float64, 0, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trueRanges = append(trueRanges, tr)
	}

	atr := 0.0
	for _, tr := range trueRanges[:period] {
		atr += tr
	}
	atr /= float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr
}

// MACDResult holds the latest MACD line, signal line, and histogram values.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the MACD line (EMA12 - EMA26) across the full series and
// the signal line as the EMA9 of that series. Needs at least 35 closes
// (26 for the slow EMA plus 9 for the signal line); returns zeros otherwise.
func MACD(closes []float64) MACDResult {
	if len(closes) < 35 {
		return MACDResult{}
	}

	ema12 := EMASeries(closes, 12)
	ema26 := EMASeries(closes, 26)

	macdSeries := make([]float64, len(closes))
	for i := range closes {
		macdSeries[i] = ema12[i] - ema26[i]
	}

	signalSeries := EMASeries(macdSeries, 9)

	line := macdSeries[len(macdSeries)-1]
	signal := signalSeries[len(signalSeries)-1]

	return MACDResult{
		Line:      line,
		Signal:    signal,
		Histogram: line - signal,
	}
}

// RSI calculates the Relative Strength Index: simple-average seed over the
// first `period` deltas, Wilder smoothing after. Returns the neutral value 50
// when the series is too short, and 100 when the average loss is exactly 0.
func RSI(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 50
	}

	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
