package analysis

import (
	"testing"

	"futures-signal-dashboard/internal/binance"
)

// TestFindBullishGap tests detection of a bullish fair value gap: candle 1's
// low above candle 3's high.
func TestFindBullishGap(t *testing.T) {
	klines := []binance.Kline{
		{Open: 106, High: 108, Low: 104, Close: 105},
		{Open: 104, High: 105, Low: 99, Close: 100},
		{Open: 100, High: 101, Low: 97, Close: 98},
	}

	bullish, bearish := FindFairValueGaps(klines)

	if len(bearish) != 0 {
		t.Errorf("expected 0 bearish gaps, got %d", len(bearish))
	}
	if len(bullish) != 1 {
		t.Fatalf("expected 1 bullish gap, got %d", len(bullish))
	}
	if bullish[0].Start != 101 || bullish[0].End != 104 {
		t.Errorf("bullish gap = [%f, %f], want [101, 104]", bullish[0].Start, bullish[0].End)
	}
	if bullish[0].Mid() != 102.5 {
		t.Errorf("gap midpoint = %f, want 102.5", bullish[0].Mid())
	}
}

// TestFindBearishGap tests detection of a bearish gap: candle 1's high below
// candle 3's low.
func TestFindBearishGap(t *testing.T) {
	klines := []binance.Kline{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 105, Low: 97, Close: 104},
		{Open: 104, High: 108, Low: 101, Close: 106},
	}

	bullish, bearish := FindFairValueGaps(klines)

	if len(bullish) != 0 {
		t.Errorf("expected 0 bullish gaps, got %d", len(bullish))
	}
	if len(bearish) != 1 {
		t.Fatalf("expected 1 bearish gap, got %d", len(bearish))
	}
	if bearish[0].Start != 100 || bearish[0].End != 101 {
		t.Errorf("bearish gap = [%f, %f], want [100, 101]", bearish[0].Start, bearish[0].End)
	}
}

// TestNoGapOnOverlap tests that overlapping candles produce no gaps.
func TestNoGapOnOverlap(t *testing.T) {
	klines := []binance.Kline{
		{Open: 95, High: 100, Low: 94, Close: 98},
		{Open: 98, High: 102, Low: 97, Close: 100},
		{Open: 100, High: 104, Low: 99, Close: 102},
	}

	bullish, bearish := FindFairValueGaps(klines)
	if len(bullish) != 0 || len(bearish) != 0 {
		t.Errorf("expected no gaps, got %d bullish / %d bearish", len(bullish), len(bearish))
	}
}

func TestFindSupportResistanceTooShort(t *testing.T) {
	klines := make([]binance.Kline, 10)
	supports, resistances := FindSupportResistance(klines, 5)
	if supports != nil || resistances != nil {
		t.Error("expected nil levels for series shorter than the pivot window")
	}
}

// TestPivotDetection builds a series with one clear swing high and one clear
// swing low and verifies only pivot candles contribute levels.
func TestPivotDetection(t *testing.T) {
	// Highs rise to a peak of 120 at index 6, lows dip to 80 at index 6... use
	// two shapes: peak at index 5, trough at index 10.
	klines := make([]binance.Kline, 16)
	for i := range klines {
		klines[i] = binance.Kline{High: 100, Low: 90}
	}
	klines[5].High = 120  // swing high
	klines[10].Low = 80   // swing low

	supports, resistances := FindSupportResistance(klines, 5)

	foundResistance := false
	for _, r := range resistances {
		if r == 120 {
			foundResistance = true
		}
		if r > 120 {
			t.Errorf("resistance %f exceeds the series maximum", r)
		}
	}
	if !foundResistance {
		t.Error("swing high 120 not reported as resistance")
	}

	foundSupport := false
	for _, s := range supports {
		if s == 80 {
			foundSupport = true
		}
		if s < 80 {
			t.Errorf("support %f below the series minimum", s)
		}
	}
	if !foundSupport {
		t.Error("swing low 80 not reported as support")
	}
}

// TestLevelsDeduplicated verifies that repeated pivot values collapse to one
// level and that lists are sorted descending.
func TestLevelsDeduplicated(t *testing.T) {
	klines := make([]binance.Kline, 30)
	for i := range klines {
		klines[i] = binance.Kline{High: 100, Low: 90}
	}

	supports, resistances := FindSupportResistance(klines, 5)

	if len(resistances) != 1 || resistances[0] != 100 {
		t.Errorf("resistances = %v, want exactly [100]", resistances)
	}
	if len(supports) != 1 || supports[0] != 90 {
		t.Errorf("supports = %v, want exactly [90]", supports)
	}
}

func TestLevelsSortedDescending(t *testing.T) {
	klines := make([]binance.Kline, 40)
	for i := range klines {
		klines[i] = binance.Kline{High: 100, Low: 90}
	}
	klines[7].High = 130
	klines[20].High = 110
	klines[30].Low = 70

	_, resistances := FindSupportResistance(klines, 5)
	for i := 1; i < len(resistances); i++ {
		if resistances[i] > resistances[i-1] {
			t.Fatalf("resistances not sorted descending: %v", resistances)
		}
	}
}
