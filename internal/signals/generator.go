package signals

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"futures-signal-dashboard/internal/analysis"
	"futures-signal-dashboard/internal/binance"
	"futures-signal-dashboard/internal/indicators"
)

const (
	klineInterval   = "1h"
	klineLimit      = 100
	minKlines       = 51
	atrPeriod       = 14
	rsiPeriod       = 14
	emaFastPeriod   = 21
	emaSlowPeriod   = 50
	pivotLookback   = 5
	entryZoneFactor = 0.25
)

// riskMultiples are the laddered take-profit distances, expressed as
// multiples of the risk distance from the entry target.
var riskMultiples = [TakeProfitCount]float64{0.6, 1.2, 2.0, 3.5, 5.0}

// Generator turns a ticker snapshot plus recent candle history into fully
// parameterized trade plans. A symbol either yields a plan or is skipped;
// skipping is the common case and is never an error.
type Generator struct {
	client   binance.MarketData
	cache    *ParameterCache
	universe *TradableUniverse
	logger   zerolog.Logger

	// rng and now are injectable for deterministic tests.
	rng func(n int) int
	now func() time.Time
}

// NewGenerator builds a signal generator backed by the given market data
// client, parameter cache and tradable universe filter.
func NewGenerator(client binance.MarketData, cache *ParameterCache, universe *TradableUniverse, logger zerolog.Logger) *Generator {
	return &Generator{
		client:   client,
		cache:    cache,
		universe: universe,
		logger:   logger.With().Str("component", "signal_generator").Logger(),
		rng:      rand.Intn,
		now:      time.Now,
	}
}

// Generate produces up to count new active signals from the ticker snapshot.
// Symbols for which exclude returns true are skipped, as are symbols outside
// the tradable universe. Candidates are considered in order of 24h momentum,
// strongest movers first. A universe refresh failure aborts generation.
func (g *Generator) Generate(ctx context.Context, count int, exclude func(symbol string) bool, tickers []binance.Ticker24hr) ([]ActiveSignal, error) {
	if count <= 0 {
		return nil, nil
	}

	candidates := make([]binance.Ticker24hr, len(tickers))
	copy(candidates, tickers)
	sort.Slice(candidates, func(i, j int) bool {
		return math.Abs(candidates[i].PriceChangePercent) > math.Abs(candidates[j].PriceChangePercent)
	})

	var out []ActiveSignal
	for _, ticker := range candidates {
		if len(out) >= count {
			break
		}
		if exclude != nil && exclude(ticker.Symbol) {
			continue
		}

		tradable, err := g.universe.Contains(ctx, ticker.Symbol)
		if err != nil {
			return out, err
		}
		if !tradable {
			continue
		}

		params, ok := g.paramsFor(ctx, ticker)
		if !ok {
			continue
		}

		out = append(out, ActiveSignal{
			Parameters:  params,
			Price:       ticker.LastPrice,
			Change24h:   ticker.PriceChangePercent,
			QuoteVolume: ticker.QuoteVolume,
		})
	}

	return out, nil
}

// paramsFor returns the cached plan for the symbol, or runs the full
// analysis to build one. The second return is false when no setup exists.
func (g *Generator) paramsFor(ctx context.Context, ticker binance.Ticker24hr) (Parameters, bool) {
	if cached, ok := g.cache.Get(ticker.Symbol); ok {
		return cached, true
	}

	params, ok := g.analyze(ctx, ticker)
	if !ok {
		return Parameters{}, false
	}

	g.cache.Put(params)
	return params, true
}

func (g *Generator) analyze(ctx context.Context, ticker binance.Ticker24hr) (Parameters, bool) {
	log := g.logger.With().Str("symbol", ticker.Symbol).Logger()

	klines, err := g.client.GetKlines(ctx, ticker.Symbol, klineInterval, klineLimit)
	if err != nil {
		log.Warn().Err(err).Msg("kline fetch failed, skipping symbol")
		return Parameters{}, false
	}
	if len(klines) < minKlines {
		log.Debug().Int("candles", len(klines)).Msg("insufficient history")
		return Parameters{}, false
	}

	// The trailing candle is still forming and would skew the indicators.
	relevant := klines[:len(klines)-1]
	closes := make([]float64, len(relevant))
	for i, k := range relevant {
		closes[i] = k.Close
	}

	price := ticker.LastPrice
	atr := indicators.ATR(relevant, atrPeriod)
	ema21 := indicators.EMA(closes, emaFastPeriod)
	ema50 := indicators.EMA(closes, emaSlowPeriod)
	macd := indicators.MACD(closes)
	rsi := indicators.RSI(closes, rsiPeriod)

	if atr == 0 || ema21 == 0 {
		log.Debug().Msg("degenerate indicators, skipping")
		return Parameters{}, false
	}

	var direction Direction
	var confidence Confidence
	switch {
	case price > ema21 && ema21 > ema50 && rsi < 75:
		direction = DirectionLong
		confidence = ConfidenceHigh
		if macd.Line > macd.Signal && macd.Histogram > 0 {
			confidence = ConfidenceVeryHigh
		}
	case price < ema21 && ema21 < ema50 && rsi > 25:
		direction = DirectionShort
		confidence = ConfidenceHigh
		if macd.Line < macd.Signal && macd.Histogram < 0 {
			confidence = ConfidenceVeryHigh
		}
	default:
		return Parameters{}, false
	}

	supports, resistances := analysis.FindSupportResistance(relevant, pivotLookback)
	bullishFVGs, bearishFVGs := analysis.FindFairValueGaps(relevant)

	target, reason := g.selectEntryTarget(direction, price, atr, ema21, ema50, supports, resistances, bullishFVGs, bearishFVGs)
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		log.Debug().Msg("no valid entry target")
		return Parameters{}, false
	}

	spread := atr * entryZoneFactor
	zone := [2]float64{target - spread/2, target + spread/2}
	if zone[0] > zone[1] {
		zone[0], zone[1] = zone[1], zone[0]
	}

	stopMultiplier := 1.75
	if confidence == ConfidenceVeryHigh {
		stopMultiplier = 1.25
	}
	var stop float64
	if direction == DirectionLong {
		stop = zone[0] - atr*stopMultiplier
	} else {
		stop = zone[1] + atr*stopMultiplier
	}

	zone[0] = math.Max(0, zone[0])
	zone[1] = math.Max(0, zone[1])
	stop = math.Max(0, stop)

	risk := math.Abs(target - stop)
	if risk == 0 || risk/target < 0.001 {
		log.Debug().Msg("degenerate risk distance")
		return Parameters{}, false
	}

	var tps [TakeProfitCount]float64
	for i, m := range riskMultiples {
		if direction == DirectionLong {
			tps[i] = target + risk*m
		} else {
			tps[i] = math.Max(0, target-risk*m)
		}
	}

	// Freshness gate: the first target must still be ahead of price.
	if direction == DirectionLong && price >= tps[0] {
		log.Debug().Msg("price already past first target")
		return Parameters{}, false
	}
	if direction == DirectionShort && price <= tps[0] {
		log.Debug().Msg("price already past first target")
		return Parameters{}, false
	}

	riskPercent := math.Abs((target-stop)/target) * 100
	leverage := 5
	if riskPercent > 0 {
		v := math.Round(math.Min(25, math.Max(5, 20/riskPercent)))
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			leverage = int(v)
		}
	}

	var probability int
	if confidence == ConfidenceVeryHigh {
		probability = 90 + g.rng(9)
	} else {
		probability = 80 + g.rng(10)
	}

	for i := range tps {
		tps[i] = FormatPrice(tps[i])
	}

	params := Parameters{
		ID:           ticker.Symbol,
		Symbol:       strings.TrimSuffix(ticker.Symbol, "USDT"),
		Pair:         "USDT",
		Direction:    direction,
		Probability:  probability,
		EntryZone:    [2]float64{FormatPrice(math.Min(zone[0], zone[1])), FormatPrice(math.Max(zone[0], zone[1]))},
		StopLoss:     FormatPrice(stop),
		TakeProfits:  tps,
		Confidence:   confidence,
		RiskNotes:    reason + " Stop-loss positioned based on volatility (ATR).",
		SafeLeverage: leverage,
		Timestamp:    g.now(),
	}

	log.Info().
		Str("direction", string(direction)).
		Str("confidence", string(confidence)).
		Float64("stop", params.StopLoss).
		Int("leverage", leverage).
		Msg("signal parameters generated")

	return params, true
}

// selectEntryTarget picks the retracement level the trade should fill at:
// the nearest favorable support (LONG) or resistance (SHORT), falling back
// to a recently broken opposite level within 2xATR of price. Returns zero
// when no level qualifies.
func (g *Generator) selectEntryTarget(direction Direction, price, atr, ema21, ema50 float64, supports, resistances []float64, bullishFVGs, bearishFVGs []analysis.Gap) (float64, string) {
	if direction == DirectionLong {
		var pool []float64
		for _, s := range supports {
			if s < price {
				pool = append(pool, s)
			}
		}
		for _, fvg := range bullishFVGs {
			if fvg.End < price {
				pool = append(pool, fvg.Mid())
			}
		}
		if ema21 < price {
			pool = append(pool, ema21)
		}
		if ema50 < price {
			pool = append(pool, ema50)
		}

		if target, ok := maxFinite(pool); ok {
			reason := "Retracement to the nearest support/demand zone."
			nearEMA := relativeDistance(target, ema21) < 0.005 || relativeDistance(target, ema50) < 0.005
			inFVG := gapContains(bullishFVGs, target)
			switch {
			case nearEMA && inFVG:
				reason = "Confluence of support, FVG and moving average."
			case nearEMA:
				reason = "Retracement to moving average confluent with support."
			case inFVG:
				reason = "Retracement to Fair Value Gap (FVG)."
			}
			return target, reason
		}

		// Breakout/retest: the closest resistance broken within 2xATR.
		var broken []float64
		for _, r := range resistances {
			if r < price && price-r < atr*2 {
				broken = append(broken, r)
			}
		}
		if target, ok := minFinite(broken); ok {
			return target, "Retest (pullback) of broken resistance."
		}
		return 0, ""
	}

	var pool []float64
	for _, r := range resistances {
		if r > price {
			pool = append(pool, r)
		}
	}
	for _, fvg := range bearishFVGs {
		if fvg.Start > price {
			pool = append(pool, fvg.Mid())
		}
	}
	if ema21 > price {
		pool = append(pool, ema21)
	}
	if ema50 > price {
		pool = append(pool, ema50)
	}

	if target, ok := minFinite(pool); ok {
		reason := "Retracement to the nearest resistance/supply zone."
		nearEMA := relativeDistance(target, ema21) < 0.005 || relativeDistance(target, ema50) < 0.005
		inFVG := gapContains(bearishFVGs, target)
		switch {
		case nearEMA && inFVG:
			reason = "Confluence of resistance, FVG and moving average."
		case nearEMA:
			reason = "Retracement to moving average confluent with resistance."
		case inFVG:
			reason = "Retracement to Fair Value Gap (FVG)."
		}
		return target, reason
	}

	// Breakdown/retest: the closest support broken within 2xATR.
	var broken []float64
	for _, s := range supports {
		if s > price && s-price < atr*2 {
			broken = append(broken, s)
		}
	}
	if target, ok := maxFinite(broken); ok {
		return target, "Retest (pullback) of broken support."
	}
	return 0, ""
}

func relativeDistance(a, b float64) float64 {
	if b == 0 {
		return math.Inf(1)
	}
	return math.Abs(a-b) / b
}

func gapContains(gaps []analysis.Gap, v float64) bool {
	for _, g := range gaps {
		if v >= g.Start && v <= g.End {
			return true
		}
	}
	return false
}

func maxFinite(values []float64) (float64, bool) {
	best := math.Inf(-1)
	found := false
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		found = true
		if v > best {
			best = v
		}
	}
	return best, found
}

func minFinite(values []float64) (float64, bool) {
	best := math.Inf(1)
	found := false
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		found = true
		if v < best {
			best = v
		}
	}
	return best, found
}
