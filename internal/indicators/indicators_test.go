package indicators

import (
	"math"
	"testing"

	"futures-signal-dashboard/internal/binance"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// TestEMAShortSeries verifies the degenerate fallback: with fewer closes than
// the period, EMA returns the most recent close rather than an error.
func TestEMAShortSeries(t *testing.T) {
	if got := EMA([]float64{10, 11, 12}, 21); got != 12 {
		t.Errorf("EMA short series = %f, want 12", got)
	}
	if got := EMA(nil, 21); got != 0 {
		t.Errorf("EMA empty series = %f, want 0", got)
	}
}

// TestEMAKnownValues checks the smoothing against hand-computed values for a
// small period: seed = first close, k = 2/(period+1).
func TestEMAKnownValues(t *testing.T) {
	closes := []float64{10, 20, 30}
	// k = 0.5; ema = 10 -> 15 -> 22.5
	if got := EMA(closes, 3); !almostEqual(got, 22.5) {
		t.Errorf("EMA = %f, want 22.5", got)
	}
}

func TestEMASeries(t *testing.T) {
	series := EMASeries([]float64{10, 20, 30}, 3)
	want := []float64{10, 15, 22.5}
	if len(series) != len(want) {
		t.Fatalf("series length = %d, want %d", len(series), len(want))
	}
	for i := range want {
		if !almostEqual(series[i], want[i]) {
			t.Errorf("series[%d] = %f, want %f", i, series[i], want[i])
		}
	}
}

func TestATRInsufficientData(t *testing.T) {
	klines := []binance.Kline{
		{High: 105, Low: 95, Close: 100},
		{High: 106, Low: 96, Close: 101},
	}
	if got := ATR(klines, 14); got != 0 {
		t.Errorf("ATR with insufficient data = %f, want 0", got)
	}
}

// TestATRWilderSmoothing hand-computes the first smoothed value with period 2.
func TestATRWilderSmoothing(t *testing.T) {
	klines := []binance.Kline{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},  // tr = max(2, 2, 0) = 2
		{High: 13, Low: 10, Close: 12}, // tr = max(3, 3, 0) = 3
		{High: 14, Low: 11, Close: 13}, // tr = max(3, 2, 1) = 3
	}
	// seed = (2+3)/2 = 2.5; smoothed = (2.5*1 + 3)/2 = 2.75
	if got := ATR(klines, 2); !almostEqual(got, 2.75) {
		t.Errorf("ATR = %f, want 2.75", got)
	}
}

func TestMACDTooShort(t *testing.T) {
	closes := make([]float64, 34)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	got := MACD(closes)
	if got.Line != 0 || got.Signal != 0 || got.Histogram != 0 {
		t.Errorf("MACD with 34 closes = %+v, want zeros", got)
	}
}

func TestMACDHistogramConsistency(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 2*float64(i) + 5*math.Sin(float64(i)/4)
	}
	got := MACD(closes)
	if !almostEqual(got.Histogram, got.Line-got.Signal) {
		t.Errorf("histogram %f != line-signal %f", got.Histogram, got.Line-got.Signal)
	}
	// A steadily rising series keeps the fast EMA above the slow EMA.
	if got.Line <= 0 {
		t.Errorf("MACD line = %f, want > 0 for rising series", got.Line)
	}
}

func TestRSINeutralFallback(t *testing.T) {
	closes := []float64{100, 101, 102}
	if got := RSI(closes, 14); got != 50 {
		t.Errorf("RSI short series = %f, want 50", got)
	}
}

func TestRSIAllGains(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = float64(100 + i)
	}
	if got := RSI(closes, 14); got != 100 {
		t.Errorf("RSI all gains = %f, want 100", got)
	}
}

func TestRSIBalanced(t *testing.T) {
	// Alternating +2/-1 deltas: avg gain twice avg loss, RS = 2, RSI ~ 66.7.
	closes := []float64{100}
	for i := 0; i < 40; i++ {
		if i%2 == 0 {
			closes = append(closes, closes[len(closes)-1]+2)
		} else {
			closes = append(closes, closes[len(closes)-1]-1)
		}
	}
	got := RSI(closes, 14)
	if got < 55 || got > 75 {
		t.Errorf("RSI zigzag = %f, want within (55, 75)", got)
	}
}

// TestDeterminism: indicators are pure, so repeated calls over the same input
// must be bit-identical.
func TestDeterminism(t *testing.T) {
	closes := make([]float64, 80)
	klines := make([]binance.Kline, 80)
	for i := range closes {
		closes[i] = 50 + 10*math.Sin(float64(i)/3)
		klines[i] = binance.Kline{High: closes[i] + 1, Low: closes[i] - 1, Close: closes[i]}
	}

	if EMA(closes, 21) != EMA(closes, 21) {
		t.Error("EMA is not deterministic")
	}
	if ATR(klines, 14) != ATR(klines, 14) {
		t.Error("ATR is not deterministic")
	}
	if RSI(closes, 14) != RSI(closes, 14) {
		t.Error("RSI is not deterministic")
	}
	if MACD(closes) != MACD(closes) {
		t.Error("MACD is not deterministic")
	}
}
