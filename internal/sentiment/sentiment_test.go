package sentiment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/binance"
	"futures-signal-dashboard/internal/events"
)

type fakeMarket struct {
	tickers    []binance.Ticker24hr
	tickersErr error
	klines     map[string][]binance.Kline
}

func (f *fakeMarket) Get24hrTickers(_ context.Context) ([]binance.Ticker24hr, error) {
	if f.tickersErr != nil {
		return nil, f.tickersErr
	}
	return f.tickers, nil
}

func (f *fakeMarket) GetKlines(_ context.Context, symbol, _ string, _ int) ([]binance.Kline, error) {
	k, ok := f.klines[symbol]
	if !ok {
		return nil, errors.New("fetch failed")
	}
	return k, nil
}

func (f *fakeMarket) GetExchangeInfo(_ context.Context) (*binance.ExchangeInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeMarket) GetSpotTicker(_ context.Context, _ string) (*binance.Ticker24hr, error) {
	return nil, errors.New("not implemented")
}

func candles(open, close float64) []binance.Kline {
	return []binance.Kline{
		{Open: open, Close: open + 1},
		{Open: open + 1, Close: open - 1},
		{Open: open - 1, Close: open},
		{Open: open, Close: close},
	}
}

func newService(market *fakeMarket) *Service {
	return NewService(market, events.NewBus(), 0, 4, zerolog.Nop())
}

func TestComputeBullishMajority(t *testing.T) {
	market := &fakeMarket{
		tickers: []binance.Ticker24hr{
			{Symbol: "SOLUSDT", QuoteVolume: 300},
			{Symbol: "XRPUSDT", QuoteVolume: 200},
			{Symbol: "DOGEUSDT", QuoteVolume: 100},
		},
		klines: map[string][]binance.Kline{
			"SOLUSDT":  candles(100, 105),
			"XRPUSDT":  candles(2, 2.1),
			"DOGEUSDT": candles(0.3, 0.2),
		},
	}

	snap, err := newService(market).Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.Verdict != VerdictBullish {
		t.Errorf("verdict = %s, want BULLISH", snap.Verdict)
	}
	if snap.Bullish != 2 || snap.Bearish != 1 || snap.Sampled != 3 {
		t.Errorf("counts = %d/%d/%d, want 2/1/3", snap.Bullish, snap.Bearish, snap.Sampled)
	}
}

func TestComputeTieIsNeutral(t *testing.T) {
	market := &fakeMarket{
		tickers: []binance.Ticker24hr{
			{Symbol: "SOLUSDT", QuoteVolume: 300},
			{Symbol: "XRPUSDT", QuoteVolume: 200},
		},
		klines: map[string][]binance.Kline{
			"SOLUSDT": candles(100, 105),
			"XRPUSDT": candles(2, 1.9),
		},
	}

	snap, err := newService(market).Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Verdict != VerdictNeutral {
		t.Errorf("verdict = %s, want NEUTRAL on tie", snap.Verdict)
	}
}

func TestComputeExcludesMajorsAndNonUSDT(t *testing.T) {
	market := &fakeMarket{
		tickers: []binance.Ticker24hr{
			{Symbol: "BTCUSDT", QuoteVolume: 9000},
			{Symbol: "ETHUSDT", QuoteVolume: 8000},
			{Symbol: "ETHBTC", QuoteVolume: 7000},
			{Symbol: "SOLUSDT", QuoteVolume: 300},
		},
		klines: map[string][]binance.Kline{
			"BTCUSDT": candles(100, 90),
			"ETHUSDT": candles(100, 90),
			"ETHBTC":  candles(100, 90),
			"SOLUSDT": candles(100, 105),
		},
	}

	snap, err := newService(market).Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Sampled != 1 {
		t.Errorf("sampled = %d, want only SOLUSDT", snap.Sampled)
	}
	if snap.Verdict != VerdictBullish {
		t.Errorf("verdict = %s, want BULLISH", snap.Verdict)
	}
}

func TestComputeToleratesFetchFailures(t *testing.T) {
	market := &fakeMarket{
		tickers: []binance.Ticker24hr{
			{Symbol: "SOLUSDT", QuoteVolume: 300},
			{Symbol: "BROKENUSDT", QuoteVolume: 250},
			{Symbol: "XRPUSDT", QuoteVolume: 200},
		},
		klines: map[string][]binance.Kline{
			"SOLUSDT": candles(100, 105),
			"XRPUSDT": candles(2, 2.5),
			// BROKENUSDT has no candles; its fetch fails.
		},
	}

	snap, err := newService(market).Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Sampled != 2 || snap.Verdict != VerdictBullish {
		t.Errorf("verdict from surviving subset = %s (%d sampled), want BULLISH (2)", snap.Verdict, snap.Sampled)
	}
}

func TestComputeCapsAtTopThirty(t *testing.T) {
	market := &fakeMarket{klines: map[string][]binance.Kline{}}
	for i := 0; i < 40; i++ {
		sym := fmt.Sprintf("ALT%02dUSDT", i)
		market.tickers = append(market.tickers, binance.Ticker24hr{Symbol: sym, QuoteVolume: float64(1000 - i)})
		market.klines[sym] = candles(100, 105)
	}

	snap, err := newService(market).Compute(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Sampled != 30 {
		t.Errorf("sampled = %d, want capped at 30", snap.Sampled)
	}
}

func TestComputeUpstreamFailure(t *testing.T) {
	market := &fakeMarket{tickersErr: errors.New("connection refused")}

	_, err := newService(market).Compute(context.Background())
	if err == nil {
		t.Fatal("expected an error when the ticker snapshot fails")
	}
}
