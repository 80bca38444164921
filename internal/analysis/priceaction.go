// Package analysis derives price-action structure (fair value gaps and
// pivot-based support/resistance levels) from candlestick series.
package analysis

import (
	"sort"

	"futures-signal-dashboard/internal/binance"
)

// Gap represents an unfilled price imbalance between three consecutive
// candles. Start is always the lower bound of the interval.
type Gap struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Mid returns the midpoint of the gap interval.
func (g Gap) Mid() float64 {
	return (g.Start + g.End) / 2
}

// FindFairValueGaps scans every triplet of consecutive candles (c1, c2, c3).
// A bullish gap exists when c1.Low > c3.High (interval [c3.High, c1.Low]);
// a bearish gap when c1.High < c3.Low (interval [c1.High, c3.Low]). Bullish
// gaps act as demand zones below price, bearish gaps as supply zones above.
func FindFairValueGaps(klines []binance.Kline) (bullish, bearish []Gap) {
	if len(klines) < 3 {
		return nil, nil
	}

	for i := 2; i < len(klines); i++ {
		c1 := klines[i-2]
		c3 := klines[i]

		if c1.Low > c3.High {
			bullish = append(bullish, Gap{Start: c3.High, End: c1.Low})
		}
		if c1.High < c3.Low {
			bearish = append(bearish, Gap{Start: c1.High, End: c3.Low})
		}
	}

	return bullish, bearish
}

// FindSupportResistance identifies pivot-based levels: a candle is a pivot
// high when its high is the maximum of the window [i-lookback, i+lookback],
// pivot low analogously. Both lists are deduplicated and sorted descending.
func FindSupportResistance(klines []binance.Kline, lookback int) (supports, resistances []float64) {
	if len(klines) <= lookback*2 {
		return nil, nil
	}

	supportSet := make(map[float64]struct{})
	resistanceSet := make(map[float64]struct{})

	for i := lookback; i < len(klines)-lookback; i++ {
		currentHigh := klines[i].High
		currentLow := klines[i].Low

		isPivotHigh := true
		isPivotLow := true
		for j := i - lookback; j <= i+lookback; j++ {
			if klines[j].High > currentHigh {
				isPivotHigh = false
			}
			if klines[j].Low < currentLow {
				isPivotLow = false
			}
		}

		if isPivotHigh {
			resistanceSet[currentHigh] = struct{}{}
		}
		if isPivotLow {
			supportSet[currentLow] = struct{}{}
		}
	}

	for level := range supportSet {
		supports = append(supports, level)
	}
	for level := range resistanceSet {
		resistances = append(resistances, level)
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Sort(sort.Reverse(sort.Float64Slice(resistances)))

	return supports, resistances
}
